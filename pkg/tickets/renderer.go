package tickets

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// PassengerKind selects the ticket template
type PassengerKind string

const (
	Adult PassengerKind = "adult"
	Child PassengerKind = "child"
)

var (
	ErrNoPassengers        = errors.New("booking has no passengers")
	ErrPassengerOutOfRange = errors.New("passenger index out of range")
)

// Data is everything printed on a ticket
type Data struct {
	BookingRef   string
	CustomerName string
	PackageTitle string
	Location     string
	TravelDate   time.Time
	Adults       int
	Children     int
	TotalAmount  float64
	Currency     string
	Locale       string
}

// Passengers returns the total number of tickets for the booking
func (d Data) Passengers() int {
	return d.Adults + d.Children
}

// KindAt returns the template used for the passenger at index (adults first)
func (d Data) KindAt(index int) PassengerKind {
	if index < d.Adults {
		return Adult
	}
	return Child
}

// Ticket is one rendered PDF
type Ticket struct {
	Index int
	Kind  PassengerKind
	Name  string
	PDF   []byte
}

// Renderer produces printable e-tickets
type Renderer struct {
	brand string
}

// NewRenderer creates a renderer printing brand in the ticket header
func NewRenderer(brand string) *Renderer {
	return &Renderer{brand: brand}
}

// RenderAll renders one ticket per passenger: adult template for each adult,
// child template for each child.
func (r *Renderer) RenderAll(d Data) ([]Ticket, error) {
	n := d.Passengers()
	if n <= 0 {
		return nil, ErrNoPassengers
	}

	out := make([]Ticket, 0, n)
	for i := 0; i < n; i++ {
		t, err := r.RenderOne(d, i)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

// RenderOne renders the ticket of passenger index (0-based, adults first)
func (r *Renderer) RenderOne(d Data, index int) (*Ticket, error) {
	if d.Passengers() <= 0 {
		return nil, ErrNoPassengers
	}
	if index < 0 || index >= d.Passengers() {
		return nil, fmt.Errorf("%w: %d of %d", ErrPassengerOutOfRange, index, d.Passengers())
	}

	kind := d.KindAt(index)
	pdfBytes, err := r.build(d, index, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to render ticket %d for %s: %w", index+1, d.BookingRef, err)
	}

	return &Ticket{
		Index: index,
		Kind:  kind,
		Name:  fmt.Sprintf("ticket-%s-%d-%s.pdf", safeFilenamePart(d.BookingRef), index+1, kind),
		PDF:   pdfBytes,
	}, nil
}

func (r *Renderer) build(d Data, index int, kind PassengerKind) ([]byte, error) {
	l := labelsFor(d.Locale)

	png, err := qrcode.Encode(d.BookingRef, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(l.title), false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// Header band: blue for adults, orange for children
	if kind == Child {
		pdf.SetFillColor(242, 140, 40)
	} else {
		pdf.SetFillColor(20, 60, 120)
	}
	pdf.Rect(0, 0, 148, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(10, 8)
	pdf.Cell(90, 8, tr(safe(r.brand, "E-TICKET")))
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(100, 8)
	pdf.CellFormat(38, 8, tr(l.kind[kind]), "", 0, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(10, 17)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%s %d / %d", l.passenger, index+1, d.Passengers())))

	pdf.SetTextColor(30, 30, 30)
	pdf.SetXY(10, 36)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(128, 7, tr(safe(d.PackageTitle, "-")), "", "", false)
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 11)
	lines := [][2]string{
		{l.bookingRef, d.BookingRef},
		{l.name, safe(d.CustomerName, "-")},
		{l.location, safe(d.Location, "-")},
		{l.date, d.TravelDate.Format("02/01/2006")},
		{l.party, fmt.Sprintf("%d %s, %d %s", d.Adults, l.adults, d.Children, l.children)},
	}
	for _, line := range lines {
		pdf.SetX(10)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(38, 7, tr(line[0]), "", 0, "", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(90, 7, tr(line[1]), "", 1, "", false, 0, "")
	}

	imgName := fmt.Sprintf("qr-%s-%d", d.BookingRef, index)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imgName, opts, bytes.NewReader(png))
	pdf.ImageOptions(imgName, 44, 110, 60, 60, false, opts, 0, "")

	pdf.SetXY(10, 175)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(128, 5, tr(l.footer), "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type labels struct {
	title      string
	passenger  string
	bookingRef string
	name       string
	location   string
	date       string
	party      string
	adults     string
	children   string
	footer     string
	kind       map[PassengerKind]string
}

var ticketLabels = map[string]labels{
	"en": {
		title:      "E-Ticket",
		passenger:  "Passenger",
		bookingRef: "Booking",
		name:       "Name",
		location:   "Meeting point",
		date:       "Date",
		party:      "Party",
		adults:     "adult(s)",
		children:   "child(ren)",
		footer:     "Valid for one passenger. Present this QR code when boarding.",
		kind:       map[PassengerKind]string{Adult: "ADULT", Child: "CHILD"},
	},
	"fr": {
		title:      "Billet électronique",
		passenger:  "Passager",
		bookingRef: "Réservation",
		name:       "Nom",
		location:   "Point de rendez-vous",
		date:       "Date",
		party:      "Groupe",
		adults:     "adulte(s)",
		children:   "enfant(s)",
		footer:     "Valable pour un passager. Présentez ce QR code à l'embarquement.",
		kind:       map[PassengerKind]string{Adult: "ADULTE", Child: "ENFANT"},
	},
}

func labelsFor(locale string) labels {
	if l, ok := ticketLabels[strings.ToLower(strings.TrimSpace(locale))]; ok {
		return l
	}
	return ticketLabels["en"]
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	s = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_").Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
