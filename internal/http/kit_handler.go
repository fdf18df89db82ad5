package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/event-manager/internal/application"
)

type kitService interface {
	CreateKit(ctx context.Context, params application.CreateKitParams) (application.Kit, error)
	UpdateKit(ctx context.Context, params application.UpdateKitParams) (application.Kit, error)
	GetKit(ctx context.Context, principal application.Principal, id int64) (application.Kit, error)
	ListKits(ctx context.Context, principal application.Principal) ([]application.Kit, error)
	DeleteKit(ctx context.Context, principal application.Principal, id int64) error
}

type elementLister interface {
	ListElements(ctx context.Context, principal application.Principal, filter application.ElementFilter) ([]application.Element, error)
}

type KitHandler struct {
	handlerBase
	service  kitService
	elements elementLister
}

func NewKitHandler(service kitService, elements elementLister, pages *Pages, logger *slog.Logger) *KitHandler {
	return &KitHandler{handlerBase: newHandlerBase("KitHandler", pages, logger), service: service, elements: elements}
}

func (h *KitHandler) List(w http.ResponseWriter, r *http.Request) {
	kits, err := h.service.ListKits(r.Context(), h.principal(r))
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}
	h.render(w, r, http.StatusOK, "kits", page{Title: "Kits", Data: kits})
}

func (h *KitHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, newForm(nil), 0, nil)
}

func (h *KitHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "Create") {
		return
	}

	f := formFromRequest(r, "element_ids")
	kit, err := h.service.CreateKit(r.Context(), application.CreateKitParams{
		Principal: h.principal(r),
		Input:     kitInputFromForm(f),
	})
	if err != nil {
		if statusForError(err) == http.StatusUnprocessableEntity {
			h.renderForm(w, r, f, 0, err)
			return
		}
		h.fail(w, r, "Create", err)
		return
	}

	h.log(r.Context(), "Create", "kit_id", kit.ID).InfoContext(r.Context(), "kit created")
	redirect(w, r, "/kits")
}

func (h *KitHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Edit")
	if !ok {
		return
	}

	kit, err := h.service.GetKit(r.Context(), h.principal(r), id)
	if err != nil {
		h.fail(w, r, "Edit", err)
		return
	}
	f := newForm(map[string]string{"name": kit.Name, "description": kit.Description}, kit.ElementIDs...)
	h.renderForm(w, r, f, id, nil)
}

func (h *KitHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Update")
	if !ok || !h.parseForm(w, r, "Update") {
		return
	}

	f := formFromRequest(r, "element_ids")
	_, err := h.service.UpdateKit(r.Context(), application.UpdateKitParams{
		Principal: h.principal(r),
		KitID:     id,
		Input:     kitInputFromForm(f),
	})
	if err != nil {
		if statusForError(err) == http.StatusUnprocessableEntity {
			h.renderForm(w, r, f, id, err)
			return
		}
		h.fail(w, r, "Update", err)
		return
	}

	h.log(r.Context(), "Update", "kit_id", id).InfoContext(r.Context(), "kit updated")
	redirect(w, r, "/kits")
}

func (h *KitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.DeleteKit(r.Context(), h.principal(r), id); err != nil {
		h.fail(w, r, "Delete", err)
		return
	}

	h.log(r.Context(), "Delete", "kit_id", id).InfoContext(r.Context(), "kit deleted")
	redirect(w, r, "/kits")
}

// renderForm loads the element choices and renders the kit form. A non-nil
// validationErr re-renders it with field errors.
func (h *KitHandler) renderForm(w http.ResponseWriter, r *http.Request, f form, id int64, validationErr error) {
	elements, err := h.elements.ListElements(r.Context(), h.principal(r), application.ElementFilter{})
	if err != nil {
		h.fail(w, r, "renderForm", err)
		return
	}

	p := page{Title: "New Kit", Action: "/kits/new", Form: f, Data: elements}
	if id != 0 {
		p = page{Title: "Edit Kit", Action: fmt.Sprintf("/kits/%d/edit", id), Editing: true, Form: f, Data: elements}
	}
	if validationErr != nil && h.formError(w, r, validationErr, "kit_form", p) {
		return
	}
	h.render(w, r, http.StatusOK, "kit_form", p)
}

func kitInputFromForm(f form) application.KitInput {
	return application.KitInput{
		Name:        f.Get("name"),
		Description: f.values["description"],
		ElementIDs:  f.selectedIDs(),
	}
}
