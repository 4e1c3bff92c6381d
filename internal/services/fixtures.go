package services

import "github.com/seinetours/booking-backend/internal/models"

func price(v float64) *float64 { return &v }

// ParisPackages returns the demo catalog loaded by Seed
func ParisPackages() []*models.Package {
	return []*models.Package{
		{
			Title:       models.LocalizedText{"en": "Seine River Cruise", "fr": "Croisière sur la Seine"},
			Subtitle:    models.LocalizedText{"en": "One hour past the monuments", "fr": "Une heure au fil des monuments"},
			Description: models.LocalizedText{"en": "Sail under the bridges of Paris from the foot of the Eiffel Tower.", "fr": "Naviguez sous les ponts de Paris depuis le pied de la tour Eiffel."},
			Location:    "Port de la Bourdonnais, Paris",
			Price:       17,
			ChildPrice:  8,
			FullPrice:   price(22),
			Rating:      4.7,
			ReviewCount: 1843,
			ImageURL:    "/images/packages/seine-cruise.jpg",
			Gallery:     models.StringArray{"/images/packages/seine-cruise-1.jpg", "/images/packages/seine-cruise-2.jpg"},

			AvailableSlots: 120,
			Itinerary: models.Itinerary{
				{Day: 1, Title: models.LocalizedText{"en": "Boarding", "fr": "Embarquement"}, Description: models.LocalizedText{"en": "Board at pier 3, 15 minutes before departure.", "fr": "Embarquement ponton 3, 15 minutes avant le départ."}},
			},
			Included: models.LocalizedList{
				"en": {"1h cruise", "Audio commentary"},
				"fr": {"Croisière d'une heure", "Commentaires audio"},
			},
			Variations: models.Variations{
				{Name: models.LocalizedText{"en": "Evening cruise", "fr": "Croisière du soir"}, Price: 21, ChildPrice: 10, DiscountBadge: "-15%"},
			},
			IsFeatured: true,
		},
		{
			Title:       models.LocalizedText{"en": "Eiffel Tower Summit", "fr": "Sommet de la tour Eiffel"},
			Subtitle:    models.LocalizedText{"en": "Priority access by lift", "fr": "Accès prioritaire en ascenseur"},
			Description: models.LocalizedText{"en": "Skip the queue and ride to the top floor with a guide.", "fr": "Évitez la file et montez au sommet avec un guide."},
			Location:    "Champ de Mars, Paris",
			Price:       64,
			ChildPrice:  32,
			FullPrice:   price(79),
			Rating:      4.6,
			ReviewCount: 2210,
			ImageURL:    "/images/packages/eiffel-summit.jpg",
			Gallery:     models.StringArray{"/images/packages/eiffel-summit-1.jpg"},

			AvailableSlots: 40,
			Included: models.LocalizedList{
				"en": {"Summit ticket", "Guide"},
				"fr": {"Billet sommet", "Guide"},
			},
			IsFeatured: true,
		},
		{
			Title:       models.LocalizedText{"en": "Louvre Masterpieces", "fr": "Chefs-d'œuvre du Louvre"},
			Subtitle:    models.LocalizedText{"en": "Two-hour guided visit", "fr": "Visite guidée de deux heures"},
			Description: models.LocalizedText{"en": "The Mona Lisa, the Venus de Milo and the Winged Victory with an art historian.", "fr": "La Joconde, la Vénus de Milo et la Victoire de Samothrace avec un historien de l'art."},
			Location:    "Musée du Louvre, Paris",
			Price:       69,
			ChildPrice:  45,
			Rating:      4.8,
			ReviewCount: 967,
			ImageURL:    "/images/packages/louvre.jpg",

			AvailableSlots: 25,
			Included: models.LocalizedList{
				"en": {"Museum entry", "Headsets"},
				"fr": {"Entrée du musée", "Audiophones"},
			},
		},
		{
			Title:       models.LocalizedText{"en": "Versailles Day Trip", "fr": "Journée à Versailles"},
			Subtitle:    models.LocalizedText{"en": "Palace and gardens from Paris", "fr": "Château et jardins depuis Paris"},
			Description: models.LocalizedText{"en": "Coach transfer, palace tour and free time in the gardens.", "fr": "Transfert en car, visite du château et temps libre dans les jardins."},
			Location:    "Versailles",
			Price:       95,
			ChildPrice:  60,
			FullPrice:   price(110),
			Rating:      4.5,
			ReviewCount: 534,
			ImageURL:    "/images/packages/versailles.jpg",

			AvailableSlots: 30,
			Itinerary: models.Itinerary{
				{Day: 1, Title: models.LocalizedText{"en": "Morning", "fr": "Matin"}, Description: models.LocalizedText{"en": "Coach from Place de la Concorde to the palace.", "fr": "Car depuis la place de la Concorde jusqu'au château."}},
				{Day: 1, Title: models.LocalizedText{"en": "Afternoon", "fr": "Après-midi"}, Description: models.LocalizedText{"en": "Gardens and the Trianon estate.", "fr": "Jardins et domaine de Trianon."}},
			},
			IsFeatured: true,
		},
		{
			Title:       models.LocalizedText{"en": "Montmartre Walking Tour", "fr": "Balade à Montmartre"},
			Subtitle:    models.LocalizedText{"en": "Artists, vineyards and Sacré-Cœur", "fr": "Artistes, vignes et Sacré-Cœur"},
			Description: models.LocalizedText{"en": "Wander the hill of the painters with a local guide.", "fr": "Flânez sur la butte des peintres avec un guide local."},
			Location:    "Montmartre, Paris",
			Price:       25,
			ChildPrice:  0,
			Rating:      4.9,
			ReviewCount: 412,
			ImageURL:    "/images/packages/montmartre.jpg",

			AvailableSlots: 15,
		},
	}
}
