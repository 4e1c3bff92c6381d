package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/seinetours/booking-backend/pkg/mailer"
	"github.com/seinetours/booking-backend/pkg/payment"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func testLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// memStore backs both fake repositories so slot accounting spans packages and bookings
type memStore struct {
	mu       sync.Mutex
	packages map[uuid.UUID]*models.Package
	bookings map[string]*models.Booking
	writes   int
}

func newMemStore() *memStore {
	return &memStore{
		packages: map[uuid.UUID]*models.Package{},
		bookings: map[string]*models.Booking{},
	}
}

func (m *memStore) addPackage(p *models.Package) *models.Package {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	cp := *p
	m.packages[p.ID] = &cp
	return p
}

func (m *memStore) slots(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.packages[id].AvailableSlots
}

func (m *memStore) booking(ref string) *models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[ref]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

func (m *memStore) putBooking(b *models.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.BookingRef] = &cp
}

// ---- PackageStore ----

type fakePackageStore struct{ *memStore }

func (f fakePackageStore) List(ctx context.Context, filter models.PackageFilter) ([]*models.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Package{}
	for _, p := range f.packages {
		if filter.Featured && !p.IsFeatured {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f fakePackageStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packages[id]
	if !ok {
		return nil, models.ErrPackageNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakePackageStore) Create(ctx context.Context, pkg *models.Package) error {
	pkg.ID = uuid.New()
	f.addPackage(pkg)
	return nil
}

func (f fakePackageStore) Update(ctx context.Context, pkg *models.Package, setSlots bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.packages[pkg.ID]
	if !ok {
		return models.ErrPackageNotFound
	}
	if !setSlots {
		pkg.AvailableSlots = cur.AvailableSlots
	}
	cp := *pkg
	f.packages[pkg.ID] = &cp
	f.writes++
	return nil
}

func (f fakePackageStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.packages[id]; !ok {
		return models.ErrPackageNotFound
	}
	delete(f.packages, id)
	return nil
}

func (f fakePackageStore) ReplaceAll(ctx context.Context, pkgs []*models.Package) error {
	f.mu.Lock()
	f.packages = map[uuid.UUID]*models.Package{}
	f.mu.Unlock()
	for _, p := range pkgs {
		p.ID = uuid.Nil
		f.addPackage(p)
	}
	return nil
}

// ---- BookingStore ----

type fakeBookingStore struct {
	*memStore
	failCreate error
}

func (f fakeBookingStore) CreateWithHold(ctx context.Context, b *models.Booking, nextRef func() string) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packages[*b.PackageID]
	if !ok {
		return models.ErrPackageNotFound
	}
	if p.AvailableSlots < b.NumberOfPassengers {
		return models.ErrInsufficientAvailability
	}
	for _, exists := f.bookings[b.BookingRef]; exists; _, exists = f.bookings[b.BookingRef] {
		b.BookingRef = nextRef()
	}
	p.AvailableSlots -= b.NumberOfPassengers
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	cp := *b
	f.bookings[b.BookingRef] = &cp
	f.writes++
	return nil
}

func (f fakeBookingStore) GetByRef(ctx context.Context, ref string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[ref]
	if !ok {
		return nil, models.ErrBookingNotFound
	}
	cp := *b
	if b.PackageID != nil {
		if p, ok := f.packages[*b.PackageID]; ok {
			pc := *p
			cp.Package = &pc
		}
	}
	return &cp, nil
}

func (f fakeBookingStore) List(ctx context.Context) ([]*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Booking{}
	for _, b := range f.bookings {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeBookingStore) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var refs []string
	for ref, b := range f.bookings {
		if b.PaymentStatus == models.PaymentStatusPending && b.HoldExpired(now) {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (f fakeBookingStore) ListPendingFulfillments(ctx context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var refs []string
	for ref, b := range f.bookings {
		if b.IsPaid() && b.FulfillmentAttempts < maxAttempts && b.FulfillmentStatus == models.FulfillmentFailed {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)
	return refs, nil
}

func (f fakeBookingStore) SetPaymentIntent(ctx context.Context, ref, intentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[ref]
	if !ok || b.PaymentStatus != models.PaymentStatusPending {
		return models.ErrBookingNotPending
	}
	b.PaymentIntentID = &intentID
	return nil
}

func (f fakeBookingStore) MarkPaid(ctx context.Context, ref, txn string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[ref]
	if !ok {
		return false, models.ErrBookingNotFound
	}
	switch b.PaymentStatus {
	case models.PaymentStatusCompleted:
		if b.TransactionID != nil && *b.TransactionID != txn {
			return false, models.ErrPaymentAlreadyConfirmed
		}
		return false, nil
	case models.PaymentStatusFailed:
		p, ok := f.packages[*b.PackageID]
		if !ok {
			return false, models.ErrPackageNotFound
		}
		if p.AvailableSlots < b.NumberOfPassengers {
			return false, models.ErrInsufficientAvailability
		}
		p.AvailableSlots -= b.NumberOfPassengers
	}
	b.PaymentStatus = models.PaymentStatusCompleted
	b.TransactionID = &txn
	b.SlotsHeld = false
	b.HoldExpiresAt = nil
	f.writes++
	return true, nil
}

func (f fakeBookingStore) MarkFailedAndRelease(ctx context.Context, ref string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[ref]
	if !ok {
		return false, models.ErrBookingNotFound
	}
	if b.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	if b.SlotsHeld {
		if p, ok := f.packages[*b.PackageID]; ok {
			p.AvailableSlots += b.NumberOfPassengers
		}
	}
	b.PaymentStatus = models.PaymentStatusFailed
	b.SlotsHeld = false
	b.HoldExpiresAt = nil
	f.writes++
	return true, nil
}

func (f fakeBookingStore) CompleteTravel(ctx context.Context, ref string, confirmPayment bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[ref]
	if !ok || b.TravelStatus != models.TravelStatusPending {
		return false, nil
	}
	if !b.IsPaid() && !(confirmPayment && b.PaymentStatus == models.PaymentStatusPending) {
		return false, nil
	}
	now := time.Now()
	b.TravelStatus = models.TravelStatusCompleted
	b.TravelCompletedAt = &now
	if confirmPayment {
		b.PaymentStatus = models.PaymentStatusCompleted
		b.SlotsHeld = false
	}
	f.writes++
	return true, nil
}

func (f fakeBookingStore) MarkFulfillmentSent(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[ref]
	now := time.Now()
	b.FulfillmentStatus = models.FulfillmentSent
	b.FulfillmentAttempts++
	b.FulfillmentError = nil
	b.TicketsSentAt = &now
	return nil
}

func (f fakeBookingStore) MarkFulfillmentFailed(ctx context.Context, ref string, cause string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[ref]
	b.FulfillmentStatus = models.FulfillmentFailed
	b.FulfillmentAttempts++
	b.FulfillmentError = &cause
	return nil
}

// ---- AuditStore ----

type fakeAudits struct {
	mu     sync.Mutex
	events []models.PaymentEventType
}

func (f *fakeAudits) Record(ctx context.Context, a *models.PaymentAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, a.EventType)
	return nil
}

func (f *fakeAudits) count(t models.PaymentEventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == t {
			n++
		}
	}
	return n
}

// ---- payment.Gateway ----

type fakeGateway struct {
	mu        sync.Mutex
	intents   map[string]*payment.Intent
	created   []payment.CreateIntentParams
	event     *payment.Event
	createErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*payment.Intent{}}
}

func (g *fakeGateway) put(intent *payment.Intent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[intent.ID] = intent
}

func (g *fakeGateway) CreateIntent(ctx context.Context, p payment.CreateIntentParams) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, p)
	intent := &payment.Intent{
		ID:           "pi_" + p.BookingRef,
		ClientSecret: "pi_" + p.BookingRef + "_secret",
		Status:       payment.StatusRequiresPaymentMethod,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Metadata:     map[string]string{payment.MetadataBookingID: p.BookingRef},
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *fakeGateway) GetIntent(ctx context.Context, id string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	cp := *intent
	return &cp, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	return g.event, nil
}

// ---- mailer.Mailer ----

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// ---- JobPublisher ----

type fakePublisher struct {
	mu   sync.Mutex
	refs []string
	err  error
}

func (p *fakePublisher) PublishFulfillment(ctx context.Context, ref, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.refs = append(p.refs, ref)
	return nil
}
