package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var packageRowColumns = []string{
	"id", "title", "subtitle", "description", "location", "price", "child_price", "full_price",
	"rating", "review_count", "image_url", "gallery", "available_slots", "itinerary", "included",
	"variations", "is_featured", "created_at", "updated_at",
}

func addPackageRow(rows *sqlmock.Rows, id uuid.UUID, title string, slots int) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id.String(), []byte(title), []byte(`{"en":"Cruise"}`), []byte(`{}`), "Paris - Eiffel Tower", 17.0, 8.0, nil,
		4.8, 120, "https://img.example.com/seine.jpg", []byte(`{"https://img.example.com/1.jpg"}`), slots,
		[]byte(`[]`), []byte(`{"en":["Audio guide"]}`), []byte(`[]`), true, now, now,
	)
}

var bookingRowColumns = []string{
	"id", "booking_ref", "package_id", "customer_name", "customer_email", "customer_phone",
	"travel_date", "adults", "children", "number_of_passengers", "total_amount", "currency", "locale",
	"payment_status", "travel_status", "payment_intent_id", "transaction_id", "slots_held", "hold_expires_at",
	"fulfillment_status", "fulfillment_attempts", "fulfillment_error", "tickets_sent_at",
	"travel_completed_at", "created_at", "updated_at",
}

func addBookingRow(rows *sqlmock.Rows, ref string, packageID uuid.UUID, paymentStatus, travelStatus string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		uuid.New().String(), ref, packageID.String(), "Marie Curie", "marie@example.fr", "+33612345678",
		now.AddDate(0, 0, 7), 2, 1, 3, 42.0, "eur", "fr",
		paymentStatus, travelStatus, nil, nil, paymentStatus == "pending", nil,
		"pending", 0, nil, nil,
		nil, now, now,
	)
}
