package main

import (
	"fmt"
	"log"

	"github.com/seinetours/booking-backend/internal/utils"
)

func main() {
	secrets, err := utils.NewSigningSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("# Seine Tours signing secrets")
	fmt.Print(secrets.EnvLines())
	fmt.Println("# STRIPE_WEBHOOK_SECRET is issued by the Stripe dashboard for /api/payment-webhook")
}
