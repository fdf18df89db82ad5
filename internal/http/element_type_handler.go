package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/event-manager/internal/application"
)

type elementTypeService interface {
	CreateElementType(ctx context.Context, params application.CreateElementTypeParams) (application.ElementType, error)
	UpdateElementType(ctx context.Context, params application.UpdateElementTypeParams) (application.ElementType, error)
	GetElementType(ctx context.Context, principal application.Principal, id int64) (application.ElementType, error)
	ListElementTypes(ctx context.Context, principal application.Principal) ([]application.ElementType, error)
	DeleteElementType(ctx context.Context, principal application.Principal, id int64) error
}

type ElementTypeHandler struct {
	handlerBase
	service elementTypeService
}

func NewElementTypeHandler(service elementTypeService, pages *Pages, logger *slog.Logger) *ElementTypeHandler {
	return &ElementTypeHandler{handlerBase: newHandlerBase("ElementTypeHandler", pages, logger), service: service}
}

func (h *ElementTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListElementTypes(r.Context(), h.principal(r))
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}
	h.render(w, r, http.StatusOK, "element_types", page{Title: "Element Types", Data: types})
}

func (h *ElementTypeHandler) New(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "element_type_form", elementTypeFormPage(newForm(nil), 0))
}

func (h *ElementTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "Create") {
		return
	}

	f := formFromRequest(r, "")
	elementType, err := h.service.CreateElementType(r.Context(), application.CreateElementTypeParams{
		Principal: h.principal(r),
		Input:     application.ElementTypeInput{Name: f.Get("name"), Description: f.values["description"]},
	})
	if err != nil {
		if !h.formError(w, r, err, "element_type_form", elementTypeFormPage(f, 0)) {
			h.fail(w, r, "Create", err)
		}
		return
	}

	h.log(r.Context(), "Create", "element_type_id", elementType.ID).InfoContext(r.Context(), "element type created")
	redirect(w, r, "/element-types")
}

func (h *ElementTypeHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Edit")
	if !ok {
		return
	}

	elementType, err := h.service.GetElementType(r.Context(), h.principal(r), id)
	if err != nil {
		h.fail(w, r, "Edit", err)
		return
	}
	f := newForm(map[string]string{"name": elementType.Name, "description": elementType.Description})
	h.render(w, r, http.StatusOK, "element_type_form", elementTypeFormPage(f, id))
}

func (h *ElementTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Update")
	if !ok || !h.parseForm(w, r, "Update") {
		return
	}

	f := formFromRequest(r, "")
	_, err := h.service.UpdateElementType(r.Context(), application.UpdateElementTypeParams{
		Principal:     h.principal(r),
		ElementTypeID: id,
		Input:         application.ElementTypeInput{Name: f.Get("name"), Description: f.values["description"]},
	})
	if err != nil {
		if !h.formError(w, r, err, "element_type_form", elementTypeFormPage(f, id)) {
			h.fail(w, r, "Update", err)
		}
		return
	}

	h.log(r.Context(), "Update", "element_type_id", id).InfoContext(r.Context(), "element type updated")
	redirect(w, r, "/element-types")
}

// Delete refuses with 409 while elements still reference the type.
func (h *ElementTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.DeleteElementType(r.Context(), h.principal(r), id); err != nil {
		h.fail(w, r, "Delete", err)
		return
	}

	h.log(r.Context(), "Delete", "element_type_id", id).InfoContext(r.Context(), "element type deleted")
	redirect(w, r, "/element-types")
}

func elementTypeFormPage(f form, id int64) page {
	if id == 0 {
		return page{Title: "New Element Type", Action: "/element-types/new", Form: f}
	}
	return page{Title: "Edit Element Type", Action: fmt.Sprintf("/element-types/%d/edit", id), Editing: true, Form: f}
}
