// Package report renders events to PDF.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/event-manager/internal/application"
	"github.com/jung-kurt/gofpdf/v2"
)

// ErrRender wraps any failure reported by the PDF engine.
var ErrRender = errors.New("report: render failed")

const (
	pageWidth  = 190.0
	dateLayout = "Mon 02 Jan 2006 15:04"
)

// Renderer builds PDF documents. Times are shown in Location.
type Renderer struct {
	Title    string
	Location *time.Location
	now      func() time.Time
}

// NewRenderer returns a Renderer with the given document title prefix.
func NewRenderer(title string, loc *time.Location, now func() time.Time) *Renderer {
	if strings.TrimSpace(title) == "" {
		title = "Event Manager"
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Renderer{Title: title, Location: loc, now: now}
}

type document struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (r *Renderer) newDocument(orientation, heading string) *document {
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetTitle(heading, true)
	pdf.SetCreator(r.Title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, d.tr(r.Title+" - "+heading), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", r.now().In(r.Location).Format(dateLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)
	return d
}

func (d *document) section(title string) {
	d.pdf.SetFillColor(240, 240, 240)
	d.pdf.SetFont("Arial", "B", 12)
	d.pdf.CellFormat(0, 8, d.tr(title), "1", 1, "L", true, 0, "")
	d.pdf.SetFont("Arial", "", 11)
}

func (d *document) field(label, value string) {
	if value == "" {
		value = "-"
	}
	d.pdf.SetFont("Arial", "B", 10)
	d.pdf.CellFormat(45, 7, d.tr(label), "LB", 0, "L", false, 0, "")
	d.pdf.SetFont("Arial", "", 10)
	d.pdf.CellFormat(pageWidth-45, 7, d.tr(value), "RB", 1, "L", false, 0, "")
}

func (d *document) header(widths []float64, labels ...string) {
	d.pdf.SetFont("Arial", "B", 10)
	d.pdf.SetFillColor(200, 200, 200)
	for i, label := range labels {
		ln := 0
		if i == len(labels)-1 {
			ln = 1
		}
		d.pdf.CellFormat(widths[i], 7, d.tr(label), "1", ln, "C", true, 0, "")
	}
	d.pdf.SetFont("Arial", "", 9)
}

func (d *document) row(widths []float64, aligns string, values ...string) {
	for i, value := range values {
		ln := 0
		if i == len(values)-1 {
			ln = 1
		}
		d.pdf.CellFormat(widths[i], 6, d.tr(truncate(value, int(widths[i]/2))), "1", ln, string(aligns[i]), false, 0, "")
	}
}

func (d *document) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}

// EventReport renders a single event with its client, location and kits.
func (r *Renderer) EventReport(detail application.EventDetail) ([]byte, error) {
	event := detail.Event
	d := r.newDocument("P", "Event Report")

	d.section("Event")
	d.field("Title", event.Title)
	d.field("Status", application.StatusLabel(event.Status))
	d.field("Category", event.CategoryName)
	d.field("Client", event.ClientName)
	d.field("Location", event.LocationName)
	d.field("Start", event.Start.In(r.Location).Format(dateLayout))
	d.field("End", event.End.In(r.Location).Format(dateLayout))
	d.field("Duration", formatDuration(event.End.Sub(event.Start)))
	d.pdf.Ln(5)

	d.section("Equipment")
	if len(detail.Kits) == 0 {
		d.pdf.CellFormat(0, 7, "No kits assigned.", "1", 1, "L", false, 0, "")
	}
	widths := []float64{60, 45, 40, 45}
	for _, kit := range detail.Kits {
		d.pdf.SetFont("Arial", "B", 11)
		d.pdf.CellFormat(0, 8, d.tr(fmt.Sprintf("Kit: %s (%d items)", kit.Name, len(kit.Elements))), "", 1, "L", false, 0, "")
		d.header(widths, "Element", "Type", "Serial", "Value")
		for _, element := range kit.Elements {
			d.row(widths, "LLLR",
				element.Name,
				element.TypeName,
				element.SerialNumber,
				element.ReplacementValue.StringFixed(2),
			)
		}
		d.pdf.SetFont("Arial", "B", 10)
		d.pdf.CellFormat(widths[0]+widths[1]+widths[2], 6, "Kit total", "1", 0, "R", false, 0, "")
		d.pdf.CellFormat(widths[3], 6, application.KitValue(kit).StringFixed(2), "1", 1, "R", false, 0, "")
		d.pdf.Ln(2)
	}

	d.pdf.SetFillColor(220, 235, 250)
	d.pdf.SetFont("Arial", "B", 12)
	d.pdf.CellFormat(0, 9, "Total replacement value: "+detail.TotalValue().StringFixed(2), "1", 1, "C", true, 0, "")

	if notes := strings.TrimSpace(event.Notes); notes != "" {
		d.pdf.Ln(5)
		d.section("Notes")
		d.pdf.MultiCell(0, 6, d.tr(notes), "1", "L", false)
	}

	return d.output()
}

// ScheduleReport renders a table of events. from and to describe the
// requested range and may be nil.
func (r *Renderer) ScheduleReport(events []application.Event, from, to *time.Time) ([]byte, error) {
	d := r.newDocument("L", "Event Schedule")

	d.pdf.SetFont("Arial", "", 10)
	d.pdf.CellFormat(0, 6, d.tr("Range: "+r.describeRange(from, to)), "", 1, "L", false, 0, "")
	d.pdf.CellFormat(0, 6, fmt.Sprintf("Events: %d", len(events)), "", 1, "L", false, 0, "")
	d.pdf.Ln(3)

	widths := []float64{42, 42, 70, 50, 45, 28}
	d.header(widths, "Start", "End", "Title", "Client", "Location", "Status")
	if len(events) == 0 {
		d.pdf.CellFormat(sum(widths), 7, "No events in range.", "1", 1, "C", false, 0, "")
	}
	for _, event := range events {
		d.row(widths, "LLLLLC",
			event.Start.In(r.Location).Format(dateLayout),
			event.End.In(r.Location).Format(dateLayout),
			event.Title,
			event.ClientName,
			event.LocationName,
			application.StatusLabel(event.Status),
		)
	}

	return d.output()
}

func (r *Renderer) describeRange(from, to *time.Time) string {
	const layout = "02 Jan 2006"
	switch {
	case from != nil && to != nil:
		return from.In(r.Location).Format(layout) + " to " + to.In(r.Location).Format(layout)
	case from != nil:
		return "from " + from.In(r.Location).Format(layout)
	case to != nil:
		return "until " + to.In(r.Location).Format(layout)
	default:
		return "all events"
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours >= 24 {
		return fmt.Sprintf("%dd %dh %dm", hours/24, hours%24, minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 3 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
