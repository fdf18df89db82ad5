package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/event-manager/internal/application"
	"github.com/example/event-manager/internal/metrics"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	UpdateEventStatus(ctx context.Context, principal application.Principal, eventID int64, status string) error
	GetEvent(ctx context.Context, principal application.Principal, eventID int64) (application.Event, error)
	GetEventDetail(ctx context.Context, principal application.Principal, eventID int64) (application.EventDetail, error)
	ListEvents(ctx context.Context, principal application.Principal, filter application.EventFilter) ([]application.Event, error)
	ListCategories(ctx context.Context, principal application.Principal) ([]application.Category, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID int64) error
}

type clientLister interface {
	ListClients(ctx context.Context, principal application.Principal) ([]application.Client, error)
}

type kitLister interface {
	ListKits(ctx context.Context, principal application.Principal) ([]application.Kit, error)
}

// ReportRenderer produces PDF documents for events.
type ReportRenderer interface {
	EventReport(detail application.EventDetail) ([]byte, error)
	ScheduleReport(events []application.Event, from, to *time.Time) ([]byte, error)
}

// EventLookups supplies the choices offered by the event form.
type EventLookups struct {
	Clients   clientLister
	Locations locationLister
	Kits      kitLister
}

type EventHandler struct {
	handlerBase
	service eventService
	lookups EventLookups
	reports ReportRenderer
	loc     *time.Location
}

func NewEventHandler(service eventService, lookups EventLookups, reports ReportRenderer, pages *Pages, logger *slog.Logger) *EventHandler {
	loc := time.Local
	if pages != nil {
		loc = pages.Location()
	}
	return &EventHandler{
		handlerBase: newHandlerBase("EventHandler", pages, logger),
		service:     service,
		lookups:     lookups,
		reports:     reports,
		loc:         loc,
	}
}

type eventListData struct {
	Events     []application.Event
	Categories []application.Category
	Statuses   []string
	Start      string
	End        string
	Selected   map[string]bool
	ReportURL  template.URL
}

type eventFormData struct {
	Clients    []application.Client
	Locations  []application.Location
	Categories []application.Category
	Kits       []application.Kit
	Statuses   []string
}

// List renders the filterable event list. It accepts the same filters as
// the API.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(r)
	query := r.URL.Query()
	filter := parseEventFilter(query, h.loc)

	events, err := h.service.ListEvents(r.Context(), principal, filter)
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}
	categories, err := h.service.ListCategories(r.Context(), principal)
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}

	data := eventListData{
		Events:     events,
		Categories: categories,
		Statuses:   application.EventStatuses,
		Selected:   make(map[string]bool),
		ReportURL:  withQuery("/events/report.pdf", query),
	}
	if filter.Start != nil {
		data.Start = filter.Start.In(h.loc).Format(inputDateLayout)
	}
	if filter.End != nil {
		data.End = filter.End.In(h.loc).Format(inputDateLayout)
	}
	for _, status := range filter.Statuses {
		data.Selected["status:"+status] = true
	}
	for _, id := range filter.CategoryIDs {
		data.Selected["category:"+strconv.FormatInt(id, 10)] = true
	}

	h.render(w, r, http.StatusOK, "events", page{Title: "Events", Data: data})
}

func (h *EventHandler) New(w http.ResponseWriter, r *http.Request) {
	values := map[string]string{"status": application.EventStatusBooked}
	if day := strings.TrimSpace(r.URL.Query().Get("date")); day != "" {
		if d, err := time.ParseInLocation(inputDateLayout, day, h.loc); err == nil {
			values["start"] = d.Add(9 * time.Hour).Format(inputTimeLayout)
			values["end"] = d.Add(17 * time.Hour).Format(inputTimeLayout)
		}
	}
	h.renderForm(w, r, newForm(values), 0, nil)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "Create") {
		return
	}

	f := formFromRequest(r, "kit_ids")
	input, err := h.eventInputFromForm(f)
	if err == nil {
		var event application.Event
		event, err = h.service.CreateEvent(r.Context(), application.CreateEventParams{Principal: h.principal(r), Input: input})
		if err == nil {
			h.log(r.Context(), "Create", "event_id", event.ID).InfoContext(r.Context(), "event created")
			redirect(w, r, "/events")
			return
		}
	}

	if statusForError(err) == http.StatusUnprocessableEntity {
		h.renderForm(w, r, f, 0, err)
		return
	}
	h.fail(w, r, "Create", err)
}

func (h *EventHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Edit")
	if !ok {
		return
	}

	event, err := h.service.GetEvent(r.Context(), h.principal(r), id)
	if err != nil {
		h.fail(w, r, "Edit", err)
		return
	}
	f := newForm(map[string]string{
		"title":       event.Title,
		"client_id":   idString(event.ClientID),
		"location_id": idString(event.LocationID),
		"category_id": idString(event.CategoryID),
		"start":       event.Start.In(h.loc).Format(inputTimeLayout),
		"end":         event.End.In(h.loc).Format(inputTimeLayout),
		"status":      event.Status,
		"notes":       event.Notes,
	}, event.KitIDs...)
	h.renderForm(w, r, f, id, nil)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Update")
	if !ok || !h.parseForm(w, r, "Update") {
		return
	}

	f := formFromRequest(r, "kit_ids")
	input, err := h.eventInputFromForm(f)
	if err == nil {
		_, err = h.service.UpdateEvent(r.Context(), application.UpdateEventParams{Principal: h.principal(r), EventID: id, Input: input})
		if err == nil {
			h.log(r.Context(), "Update", "event_id", id).InfoContext(r.Context(), "event updated")
			redirect(w, r, "/events")
			return
		}
	}

	if statusForError(err) == http.StatusUnprocessableEntity {
		h.renderForm(w, r, f, id, err)
		return
	}
	h.fail(w, r, "Update", err)
}

// UpdateStatus changes only the status of an event.
func (h *EventHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "UpdateStatus")
	if !ok || !h.parseForm(w, r, "UpdateStatus") {
		return
	}

	status := strings.TrimSpace(r.PostForm.Get("status"))
	if err := h.service.UpdateEventStatus(r.Context(), h.principal(r), id, status); err != nil {
		h.fail(w, r, "UpdateStatus", err)
		return
	}

	h.log(r.Context(), "UpdateStatus", "event_id", id, "status", status).InfoContext(r.Context(), "event status updated")
	redirect(w, r, "/events")
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.DeleteEvent(r.Context(), h.principal(r), id); err != nil {
		h.fail(w, r, "Delete", err)
		return
	}

	h.log(r.Context(), "Delete", "event_id", id).InfoContext(r.Context(), "event deleted")
	redirect(w, r, "/events")
}

// Report streams the single event PDF.
func (h *EventHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Report")
	if !ok {
		return
	}

	detail, err := h.service.GetEventDetail(r.Context(), h.principal(r), id)
	if err != nil {
		h.fail(w, r, "Report", err)
		return
	}

	start := time.Now()
	pdf, err := h.reports.EventReport(detail)
	metrics.ObserveReport("event", err, time.Since(start))
	if err != nil {
		h.fail(w, r, "Report", errors.Join(errReportFailed, err))
		return
	}
	writePDF(w, fmt.Sprintf("event-%d.pdf", id), pdf)
}

// ScheduleReport streams a PDF table of the events matching the query filters.
func (h *EventHandler) ScheduleReport(w http.ResponseWriter, r *http.Request) {
	filter := parseEventFilter(r.URL.Query(), h.loc)
	events, err := h.service.ListEvents(r.Context(), h.principal(r), filter)
	if err != nil {
		h.fail(w, r, "ScheduleReport", err)
		return
	}

	start := time.Now()
	pdf, err := h.reports.ScheduleReport(events, filter.Start, filter.End)
	metrics.ObserveReport("schedule", err, time.Since(start))
	if err != nil {
		h.fail(w, r, "ScheduleReport", errors.Join(errReportFailed, err))
		return
	}
	writePDF(w, "event-schedule.pdf", pdf)
}

// APIList answers GET /api/events with a JSON array, never null.
func (h *EventHandler) APIList(w http.ResponseWriter, r *http.Request) {
	filter := parseEventFilter(r.URL.Query(), h.loc)
	events, err := h.service.ListEvents(r.Context(), h.principal(r), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]calendarEventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toCalendarEventDTO(event))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *EventHandler) renderForm(w http.ResponseWriter, r *http.Request, f form, id int64, validationErr error) {
	principal := h.principal(r)
	var data eventFormData
	var err error
	if data.Clients, err = h.lookups.Clients.ListClients(r.Context(), principal); err != nil {
		h.fail(w, r, "renderForm", err)
		return
	}
	if data.Locations, err = h.lookups.Locations.ListLocations(r.Context(), principal); err != nil {
		h.fail(w, r, "renderForm", err)
		return
	}
	if data.Kits, err = h.lookups.Kits.ListKits(r.Context(), principal); err != nil {
		h.fail(w, r, "renderForm", err)
		return
	}
	if data.Categories, err = h.service.ListCategories(r.Context(), principal); err != nil {
		h.fail(w, r, "renderForm", err)
		return
	}
	data.Statuses = application.EventStatuses

	p := page{Title: "New Event", Action: "/events/new", Form: f, Data: data}
	if id != 0 {
		p.Title = "Edit Event"
		p.Action = fmt.Sprintf("/events/%d/edit", id)
		p.Editing = true
	}
	if validationErr != nil && h.formError(w, r, validationErr, "event_form", p) {
		return
	}
	h.render(w, r, http.StatusOK, "event_form", p)
}

// eventInputFromForm converts the posted form. Unparseable times are
// reported as field errors.
func (h *EventHandler) eventInputFromForm(f form) (application.EventInput, error) {
	input := application.EventInput{
		Title:      f.Get("title"),
		ClientID:   f.optionalID("client_id"),
		LocationID: f.optionalID("location_id"),
		CategoryID: f.optionalID("category_id"),
		Status:     f.Get("status"),
		Notes:      f.values["notes"],
		KitIDs:     f.selectedIDs(),
	}

	vErr := &application.ValidationError{}
	for _, field := range []string{"start", "end"} {
		raw := f.Get(field)
		if raw == "" {
			continue
		}
		t, ok := parseFormTime(raw, h.loc)
		if !ok {
			vErr.Add(field, field+" must be a valid date and time")
			continue
		}
		if field == "start" {
			input.Start = t
		} else {
			input.End = t
		}
	}
	if vErr.HasErrors() {
		return input, vErr
	}
	return input, nil
}

func parseFormTime(raw string, loc *time.Location) (time.Time, bool) {
	for _, layout := range []string{inputTimeLayout, "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// parseEventFilter reads start, end, categories, statuses and client from
// the query. Malformed values are dropped; an axis left empty does not filter.
func parseEventFilter(values url.Values, loc *time.Location) application.EventFilter {
	var filter application.EventFilter

	filter.Start = parseBound(values.Get("start"), loc)
	filter.End = parseBound(values.Get("end"), loc)

	if ids := parseIDs(parseCSV(values["categories"]...)); len(ids) > 0 {
		filter.CategoryIDs = ids
	}

	for _, status := range parseCSV(values["statuses"]...) {
		if application.ValidEventStatus(status) {
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	if id, err := strconv.ParseInt(strings.TrimSpace(values.Get("client")), 10, 64); err == nil && id > 0 {
		filter.ClientID = &id
	}

	return filter
}

func parseBound(value string, loc *time.Location) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return &ts
	}
	if ts, err := time.ParseInLocation(inputDateLayout, value, loc); err == nil {
		return &ts
	}
	return nil
}

// parseCSV accepts both repeated keys and comma separated lists.
func parseCSV(values ...string) []string {
	var result []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

type calendarEventDTO struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Status     string `json:"status"`
	CategoryID *int64 `json:"category_id"`
	ClientID   *int64 `json:"client_id"`
	ClientName string `json:"client_name"`
	Color      string `json:"color"`
	Location   string `json:"location"`
}

func toCalendarEventDTO(event application.Event) calendarEventDTO {
	color := event.ClientColor
	if color == "" {
		color = application.DefaultClientColor
	}
	return calendarEventDTO{
		ID:         event.ID,
		Title:      event.Title,
		Start:      event.Start.Format(time.RFC3339),
		End:        event.End.Format(time.RFC3339),
		Status:     event.Status,
		CategoryID: event.CategoryID,
		ClientID:   event.ClientID,
		ClientName: event.ClientName,
		Color:      color,
		Location:   event.LocationName,
	}
}

func writePDF(w http.ResponseWriter, filename string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
