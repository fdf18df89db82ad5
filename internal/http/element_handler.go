package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/event-manager/internal/application"
)

type elementService interface {
	CreateElement(ctx context.Context, params application.CreateElementParams) (application.Element, error)
	UpdateElement(ctx context.Context, params application.UpdateElementParams) (application.Element, error)
	GetElement(ctx context.Context, principal application.Principal, id int64) (application.Element, error)
	ListElements(ctx context.Context, principal application.Principal, filter application.ElementFilter) ([]application.Element, error)
	DeleteElement(ctx context.Context, principal application.Principal, id int64) error
}

type elementTypeLister interface {
	ListElementTypes(ctx context.Context, principal application.Principal) ([]application.ElementType, error)
}

type locationLister interface {
	ListLocations(ctx context.Context, principal application.Principal) ([]application.Location, error)
}

type ElementHandler struct {
	handlerBase
	service   elementService
	types     elementTypeLister
	locations locationLister
}

func NewElementHandler(service elementService, types elementTypeLister, locations locationLister, pages *Pages, logger *slog.Logger) *ElementHandler {
	return &ElementHandler{
		handlerBase: newHandlerBase("ElementHandler", pages, logger),
		service:     service,
		types:       types,
		locations:   locations,
	}
}

type elementListData struct {
	Elements []application.Element
	Types    []application.ElementType
	Statuses []string
	TypeID   int64
	Status   string
}

type elementFormData struct {
	Types     []application.ElementType
	Locations []application.Location
	Statuses  []string
}

// List shows elements, optionally narrowed by ?type= and ?status=.
func (h *ElementHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(r)
	query := r.URL.Query()

	data := elementListData{Statuses: application.ElementStatuses}
	var filter application.ElementFilter
	if id, err := strconv.ParseInt(strings.TrimSpace(query.Get("type")), 10, 64); err == nil && id > 0 {
		filter.TypeID = &id
		data.TypeID = id
	}
	if status := strings.TrimSpace(query.Get("status")); application.ValidElementStatus(status) {
		filter.Status = status
		data.Status = status
	}

	elements, err := h.service.ListElements(r.Context(), principal, filter)
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}
	types, err := h.types.ListElementTypes(r.Context(), principal)
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}
	data.Elements = elements
	data.Types = types

	h.render(w, r, http.StatusOK, "elements", page{Title: "Elements", Data: data})
}

func (h *ElementHandler) New(w http.ResponseWriter, r *http.Request) {
	f := newForm(map[string]string{"status": application.ElementStatusAvailable})
	h.renderForm(w, r, http.StatusOK, f, 0, nil)
}

func (h *ElementHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "Create") {
		return
	}

	f := formFromRequest(r, "")
	element, err := h.service.CreateElement(r.Context(), application.CreateElementParams{
		Principal: h.principal(r),
		Input:     elementInputFromForm(f),
	})
	if err != nil {
		if !h.formValidationError(w, r, err, f, 0) {
			h.fail(w, r, "Create", err)
		}
		return
	}

	h.log(r.Context(), "Create", "element_id", element.ID).InfoContext(r.Context(), "element created")
	redirect(w, r, "/elements")
}

func (h *ElementHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Edit")
	if !ok {
		return
	}

	element, err := h.service.GetElement(r.Context(), h.principal(r), id)
	if err != nil {
		h.fail(w, r, "Edit", err)
		return
	}
	f := newForm(map[string]string{
		"name":              element.Name,
		"type_id":           strconv.FormatInt(element.TypeID, 10),
		"serial_number":     element.SerialNumber,
		"status":            element.Status,
		"location_id":       idString(element.LocationID),
		"replacement_value": element.ReplacementValue.StringFixed(2),
		"notes":             element.Notes,
	})
	h.renderForm(w, r, http.StatusOK, f, id, nil)
}

func (h *ElementHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Update")
	if !ok || !h.parseForm(w, r, "Update") {
		return
	}

	f := formFromRequest(r, "")
	_, err := h.service.UpdateElement(r.Context(), application.UpdateElementParams{
		Principal: h.principal(r),
		ElementID: id,
		Input:     elementInputFromForm(f),
	})
	if err != nil {
		if !h.formValidationError(w, r, err, f, id) {
			h.fail(w, r, "Update", err)
		}
		return
	}

	h.log(r.Context(), "Update", "element_id", id).InfoContext(r.Context(), "element updated")
	redirect(w, r, "/elements")
}

func (h *ElementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.DeleteElement(r.Context(), h.principal(r), id); err != nil {
		h.fail(w, r, "Delete", err)
		return
	}

	h.log(r.Context(), "Delete", "element_id", id).InfoContext(r.Context(), "element deleted")
	redirect(w, r, "/elements")
}

func (h *ElementHandler) formValidationError(w http.ResponseWriter, r *http.Request, err error, f form, id int64) bool {
	if statusForError(err) != http.StatusUnprocessableEntity {
		return false
	}
	h.renderForm(w, r, http.StatusUnprocessableEntity, f, id, err)
	return true
}

func (h *ElementHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, f form, id int64, validationErr error) {
	principal := h.principal(r)
	types, err := h.types.ListElementTypes(r.Context(), principal)
	if err != nil {
		h.fail(w, r, "renderForm", err)
		return
	}
	locations, err := h.locations.ListLocations(r.Context(), principal)
	if err != nil {
		h.fail(w, r, "renderForm", err)
		return
	}

	p := page{Title: "New Element", Action: "/elements/new", Form: f}
	if id != 0 {
		p = page{Title: "Edit Element", Action: fmt.Sprintf("/elements/%d/edit", id), Editing: true, Form: f}
	}
	p.Data = elementFormData{Types: types, Locations: locations, Statuses: application.ElementStatuses}

	if validationErr != nil && h.formError(w, r, validationErr, "element_form", p) {
		return
	}
	h.render(w, r, status, "element_form", p)
}

func elementInputFromForm(f form) application.ElementInput {
	typeID, _ := strconv.ParseInt(f.Get("type_id"), 10, 64)
	return application.ElementInput{
		Name:             f.Get("name"),
		TypeID:           typeID,
		SerialNumber:     f.Get("serial_number"),
		Status:           f.Get("status"),
		LocationID:       f.optionalID("location_id"),
		ReplacementValue: f.Get("replacement_value"),
		Notes:            f.values["notes"],
	}
}
