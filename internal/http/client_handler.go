package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/event-manager/internal/application"
)

type clientService interface {
	CreateClient(ctx context.Context, params application.CreateClientParams) (application.Client, error)
	UpdateClient(ctx context.Context, params application.UpdateClientParams) (application.Client, error)
	GetClient(ctx context.Context, principal application.Principal, clientID int64) (application.Client, error)
	ListClients(ctx context.Context, principal application.Principal) ([]application.Client, error)
	DeleteClient(ctx context.Context, principal application.Principal, clientID int64) error
}

type ClientHandler struct {
	handlerBase
	service clientService
}

func NewClientHandler(service clientService, pages *Pages, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{handlerBase: newHandlerBase("ClientHandler", pages, logger), service: service}
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.service.ListClients(r.Context(), h.principal(r))
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}
	h.render(w, r, http.StatusOK, "clients", page{Title: "Clients", Data: clients})
}

func (h *ClientHandler) New(w http.ResponseWriter, r *http.Request) {
	f := newForm(map[string]string{"color": application.DefaultClientColor})
	h.render(w, r, http.StatusOK, "client_form", clientFormPage(f, 0))
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "Create") {
		return
	}

	f := formFromRequest(r, "")
	client, err := h.service.CreateClient(r.Context(), application.CreateClientParams{
		Principal: h.principal(r),
		Input:     clientInputFromForm(f),
	})
	if err != nil {
		if !h.formError(w, r, err, "client_form", clientFormPage(f, 0)) {
			h.fail(w, r, "Create", err)
		}
		return
	}

	h.log(r.Context(), "Create", "client_id", client.ID).InfoContext(r.Context(), "client created")
	redirect(w, r, "/clients")
}

func (h *ClientHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Edit")
	if !ok {
		return
	}

	client, err := h.service.GetClient(r.Context(), h.principal(r), id)
	if err != nil {
		h.fail(w, r, "Edit", err)
		return
	}
	h.render(w, r, http.StatusOK, "client_form", clientFormPage(clientForm(client), id))
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Update")
	if !ok || !h.parseForm(w, r, "Update") {
		return
	}

	f := formFromRequest(r, "")
	_, err := h.service.UpdateClient(r.Context(), application.UpdateClientParams{
		Principal: h.principal(r),
		ClientID:  id,
		Input:     clientInputFromForm(f),
	})
	if err != nil {
		if !h.formError(w, r, err, "client_form", clientFormPage(f, id)) {
			h.fail(w, r, "Update", err)
		}
		return
	}

	h.log(r.Context(), "Update", "client_id", id).InfoContext(r.Context(), "client updated")
	redirect(w, r, "/clients")
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.DeleteClient(r.Context(), h.principal(r), id); err != nil {
		h.fail(w, r, "Delete", err)
		return
	}

	h.log(r.Context(), "Delete", "client_id", id).InfoContext(r.Context(), "client deleted")
	redirect(w, r, "/clients")
}

func clientFormPage(f form, id int64) page {
	if id == 0 {
		return page{Title: "New Client", Action: "/clients/new", Form: f}
	}
	return page{Title: "Edit Client", Action: fmt.Sprintf("/clients/%d/edit", id), Editing: true, Form: f}
}

func clientForm(c application.Client) form {
	return newForm(map[string]string{
		"name":         c.Name,
		"color":        c.Color,
		"contact_name": c.ContactName,
		"email":        c.Email,
		"phone":        c.Phone,
		"notes":        c.Notes,
	})
}

func clientInputFromForm(f form) application.ClientInput {
	return application.ClientInput{
		Name:        f.Get("name"),
		Color:       f.Get("color"),
		ContactName: f.Get("contact_name"),
		Email:       f.Get("email"),
		Phone:       f.Get("phone"),
		Notes:       f.values["notes"],
	}
}
