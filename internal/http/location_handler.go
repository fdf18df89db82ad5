package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/event-manager/internal/application"
)

type locationService interface {
	CreateLocation(ctx context.Context, params application.CreateLocationParams) (application.Location, error)
	UpdateLocation(ctx context.Context, params application.UpdateLocationParams) (application.Location, error)
	GetLocation(ctx context.Context, principal application.Principal, locationID int64) (application.Location, error)
	ListLocations(ctx context.Context, principal application.Principal) ([]application.Location, error)
	DeleteLocation(ctx context.Context, principal application.Principal, locationID int64) error
}

type LocationHandler struct {
	handlerBase
	service locationService
}

func NewLocationHandler(service locationService, pages *Pages, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{handlerBase: newHandlerBase("LocationHandler", pages, logger), service: service}
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.ListLocations(r.Context(), h.principal(r))
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}
	h.render(w, r, http.StatusOK, "locations", page{Title: "Locations", Data: locations})
}

func (h *LocationHandler) New(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "location_form", locationFormPage(newForm(nil), 0))
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "Create") {
		return
	}

	f := formFromRequest(r, "")
	location, err := h.service.CreateLocation(r.Context(), application.CreateLocationParams{
		Principal: h.principal(r),
		Input:     locationInputFromForm(f),
	})
	if err != nil {
		if !h.formError(w, r, err, "location_form", locationFormPage(f, 0)) {
			h.fail(w, r, "Create", err)
		}
		return
	}

	h.log(r.Context(), "Create", "location_id", location.ID).InfoContext(r.Context(), "location created")
	redirect(w, r, "/locations")
}

func (h *LocationHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Edit")
	if !ok {
		return
	}

	location, err := h.service.GetLocation(r.Context(), h.principal(r), id)
	if err != nil {
		h.fail(w, r, "Edit", err)
		return
	}
	f := newForm(map[string]string{
		"name":    location.Name,
		"address": location.Address,
		"notes":   location.Notes,
	})
	h.render(w, r, http.StatusOK, "location_form", locationFormPage(f, id))
}

func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Update")
	if !ok || !h.parseForm(w, r, "Update") {
		return
	}

	f := formFromRequest(r, "")
	_, err := h.service.UpdateLocation(r.Context(), application.UpdateLocationParams{
		Principal:  h.principal(r),
		LocationID: id,
		Input:      locationInputFromForm(f),
	})
	if err != nil {
		if !h.formError(w, r, err, "location_form", locationFormPage(f, id)) {
			h.fail(w, r, "Update", err)
		}
		return
	}

	h.log(r.Context(), "Update", "location_id", id).InfoContext(r.Context(), "location updated")
	redirect(w, r, "/locations")
}

func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.DeleteLocation(r.Context(), h.principal(r), id); err != nil {
		h.fail(w, r, "Delete", err)
		return
	}

	h.log(r.Context(), "Delete", "location_id", id).InfoContext(r.Context(), "location deleted")
	redirect(w, r, "/locations")
}

func locationFormPage(f form, id int64) page {
	if id == 0 {
		return page{Title: "New Location", Action: "/locations/new", Form: f}
	}
	return page{Title: "Edit Location", Action: fmt.Sprintf("/locations/%d/edit", id), Editing: true, Form: f}
}

func locationInputFromForm(f form) application.LocationInput {
	return application.LocationInput{
		Name:    f.Get("name"),
		Address: f.Get("address"),
		Notes:   f.values["notes"],
	}
}
