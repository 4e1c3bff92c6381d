package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingBooking(packageID uuid.UUID) *models.Booking {
	holdUntil := time.Now().Add(30 * time.Minute)
	return &models.Booking{
		BookingRef:         "PVLX2K9QAB12",
		PackageID:          &packageID,
		CustomerName:       "Marie Curie",
		CustomerEmail:      "marie@example.fr",
		CustomerPhone:      "+33612345678",
		TravelDate:         time.Now().AddDate(0, 0, 10),
		Adults:             2,
		Children:           1,
		NumberOfPassengers: 3,
		TotalAmount:        42,
		Currency:           "eur",
		Locale:             "fr",
		PaymentStatus:      models.PaymentStatusPending,
		TravelStatus:       models.TravelStatusPending,
		FulfillmentStatus:  models.FulfillmentPending,
		SlotsHeld:          true,
		HoldExpiresAt:      &holdUntil,
	}
}

func TestBookingRepository_CreateWithHold(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		packageID := uuid.New()
		booking := newPendingBooking(packageID)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE packages SET available_slots = available_slots - \$1`).
			WithArgs(3, packageID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bookings (.+) ON CONFLICT \(booking_ref\) DO NOTHING`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
		mock.ExpectCommit()

		require.NoError(t, repo.CreateWithHold(ctx, booking, nil))
		assert.NotEqual(t, uuid.Nil, booking.ID)
		assert.False(t, booking.CreatedAt.IsZero())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not enough availability writes no booking", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		packageID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE packages SET available_slots = available_slots - \$1`).
			WithArgs(3, packageID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(packageID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		err := repo.CreateWithHold(ctx, newPendingBooking(packageID), nil)
		assert.ErrorIs(t, err, models.ErrInsufficientAvailability)

		// No INSERT was expected, so a stray insert would fail here
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown package", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		packageID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE packages SET available_slots`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		err := repo.CreateWithHold(ctx, newPendingBooking(packageID), nil)
		assert.ErrorIs(t, err, models.ErrPackageNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Regenerates colliding reference", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		packageID := uuid.New()
		booking := newPendingBooking(packageID)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE packages SET available_slots`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WithArgs(sqlmock.AnyArg(), "PVLX2K9QAB12", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WithArgs(sqlmock.AnyArg(), "PVSECOND", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
		mock.ExpectCommit()

		err := repo.CreateWithHold(ctx, booking, func() string { return "PVSECOND" })
		require.NoError(t, err)
		assert.Equal(t, "PVSECOND", booking.BookingRef)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_GetByRef(t *testing.T) {
	ctx := context.Background()

	t.Run("Populates package", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		packageID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_ref = \$1`).
			WithArgs("PVREF1").
			WillReturnRows(addBookingRow(sqlmock.NewRows(bookingRowColumns), "PVREF1", packageID, "pending", "pending"))
		mock.ExpectQuery(`SELECT (.+) FROM packages WHERE id IN`).
			WithArgs(packageID).
			WillReturnRows(addPackageRow(sqlmock.NewRows(packageRowColumns), packageID, `{"en":"Seine cruise"}`, 9))

		booking, err := repo.GetByRef(ctx, "PVREF1")
		require.NoError(t, err)
		assert.Equal(t, "PVREF1", booking.BookingRef)
		assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
		require.NotNil(t, booking.Package)
		assert.Equal(t, "Seine cruise", booking.Package.Title["en"])

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_ref = \$1`).
			WithArgs("NOPE").
			WillReturnRows(sqlmock.NewRows(bookingRowColumns))

		_, err := repo.GetByRef(ctx, "NOPE")
		assert.ErrorIs(t, err, models.ErrBookingNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	packageID := uuid.New()

	rows := sqlmock.NewRows(bookingRowColumns)
	addBookingRow(rows, "PVNEW", packageID, "completed", "pending")
	addBookingRow(rows, "PVOLD", packageID, "pending", "pending")

	mock.ExpectQuery(`SELECT (.+) FROM bookings ORDER BY created_at DESC`).WillReturnRows(rows)
	// Both bookings share a package, so it is fetched once
	mock.ExpectQuery(`SELECT (.+) FROM packages WHERE id IN`).
		WithArgs(packageID).
		WillReturnRows(addPackageRow(sqlmock.NewRows(packageRowColumns), packageID, `{"en":"Seine cruise"}`, 9))

	bookings, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "PVNEW", bookings[0].BookingRef)
	assert.Same(t, bookings[0].Package, bookings[1].Package)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_MarkPaid(t *testing.T) {
	ctx := context.Background()
	lockColumns := []string{"payment_status", "slots_held", "number_of_passengers", "package_id", "transaction_id"}

	t.Run("Pending booking becomes completed", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT payment_status, (.+) FOR UPDATE`).
			WithArgs("PVREF1").
			WillReturnRows(sqlmock.NewRows(lockColumns).AddRow("pending", true, 3, uuid.New().String(), nil))
		mock.ExpectExec(`UPDATE bookings SET payment_status = 'completed'`).
			WithArgs("PVREF1", "pi_123").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		changed, err := repo.MarkPaid(ctx, "PVREF1", "pi_123")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Same transaction again is a no-op", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT payment_status, (.+) FOR UPDATE`).
			WithArgs("PVREF1").
			WillReturnRows(sqlmock.NewRows(lockColumns).AddRow("completed", false, 3, uuid.New().String(), "pi_123"))
		mock.ExpectRollback()

		changed, err := repo.MarkPaid(ctx, "PVREF1", "pi_123")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Different transaction conflicts", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT payment_status, (.+) FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(lockColumns).AddRow("completed", false, 3, uuid.New().String(), "pi_other"))
		mock.ExpectRollback()

		_, err := repo.MarkPaid(ctx, "PVREF1", "pi_123")
		assert.ErrorIs(t, err, models.ErrPaymentAlreadyConfirmed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed booking re-acquires slots", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		packageID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT payment_status, (.+) FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(lockColumns).AddRow("failed", false, 2, packageID.String(), nil))
		mock.ExpectExec(`UPDATE packages SET available_slots = available_slots - \$1`).
			WithArgs(2, packageID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings SET payment_status = 'completed'`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		changed, err := repo.MarkPaid(ctx, "PVREF1", "pi_late")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_MarkFailedAndRelease(t *testing.T) {
	ctx := context.Background()
	lockColumns := []string{"payment_status", "slots_held", "number_of_passengers", "package_id", "transaction_id"}

	t.Run("Releases held slots", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		packageID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT payment_status, (.+) FOR UPDATE`).
			WithArgs("PVREF1").
			WillReturnRows(sqlmock.NewRows(lockColumns).AddRow("pending", true, 3, packageID.String(), nil))
		mock.ExpectExec(`UPDATE packages SET available_slots = available_slots \+ \$1`).
			WithArgs(3, packageID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings SET payment_status = 'failed'`).
			WithArgs("PVREF1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		released, err := repo.MarkFailedAndRelease(ctx, "PVREF1")
		require.NoError(t, err)
		assert.True(t, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Paid booking is left alone", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT payment_status, (.+) FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(lockColumns).AddRow("completed", false, 3, uuid.New().String(), "pi_1"))
		mock.ExpectRollback()

		released, err := repo.MarkFailedAndRelease(ctx, "PVREF1")
		require.NoError(t, err)
		assert.False(t, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_CompleteTravel(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	t.Run("First scan changes the row", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings SET travel_status = 'completed'(.+)WHERE booking_ref = \$1 AND travel_status = 'pending' AND payment_status = 'completed'`).
			WithArgs("PVREF1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		changed, err := repo.CompleteTravel(ctx, "PVREF1", false)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Second scan is a no-op", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings SET travel_status = 'completed'`).
			WithArgs("PVREF1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		changed, err := repo.CompleteTravel(ctx, "PVREF1", false)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Walk-up payment", func(t *testing.T) {
		mock.ExpectExec(`payment_status = 'completed', slots_held = FALSE(.+)payment_status IN \('pending', 'completed'\)`).
			WithArgs("PVREF2").
			WillReturnResult(sqlmock.NewResult(0, 1))

		changed, err := repo.CompleteTravel(ctx, "PVREF2", true)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_Fulfillment(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	mock.ExpectExec(`SET fulfillment_status = 'failed', fulfillment_attempts = fulfillment_attempts \+ 1`).
		WithArgs("PVREF1", "smtp: connection refused").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkFulfillmentFailed(ctx, "PVREF1", "smtp: connection refused"))

	mock.ExpectQuery(`SELECT booking_ref FROM bookings WHERE payment_status = 'completed'`).
		WithArgs(5, sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows([]string{"booking_ref"}).AddRow("PVREF1"))
	refs, err := repo.ListPendingFulfillments(ctx, 5, time.Now().Add(-10*time.Minute), 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"PVREF1"}, refs)

	mock.ExpectExec(`SET fulfillment_status = 'sent'`).
		WithArgs("PVREF1").
		WillReturnError(fmt.Errorf("connection reset"))
	err = repo.MarkFulfillmentSent(ctx, "PVREF1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to mark fulfillment sent")

	assert.NoError(t, mock.ExpectationsWereMet())
}
