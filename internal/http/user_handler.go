package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/event-manager/internal/application"
)

type userService interface {
	CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error)
	UpdateUser(ctx context.Context, params application.UpdateUserParams) (application.User, error)
	GetUser(ctx context.Context, principal application.Principal, userID int64) (application.User, error)
	DeleteUser(ctx context.Context, principal application.Principal, userID int64) error
	ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error)
}

type UserHandler struct {
	handlerBase
	service userService
}

func NewUserHandler(service userService, pages *Pages, logger *slog.Logger) *UserHandler {
	return &UserHandler{handlerBase: newHandlerBase("UserHandler", pages, logger), service: service}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), h.principal(r))
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}

	h.log(r.Context(), "List", "result_count", len(users)).DebugContext(r.Context(), "users listed")
	h.render(w, r, http.StatusOK, "users", page{Title: "Users", Data: users})
}

func (h *UserHandler) New(w http.ResponseWriter, r *http.Request) {
	f := newForm(map[string]string{"role": string(application.RoleStaff)})
	h.render(w, r, http.StatusOK, "user_form", userFormPage(f, 0))
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "Create") {
		return
	}

	f := formFromRequest(r, "")
	user, err := h.service.CreateUser(r.Context(), application.CreateUserParams{
		Principal: h.principal(r),
		Input:     userInputFromRequest(r, f),
	})
	if err != nil {
		if !h.formError(w, r, err, "user_form", userFormPage(f, 0)) {
			h.fail(w, r, "Create", err)
		}
		return
	}

	h.log(r.Context(), "Create", "user_id", user.ID).InfoContext(r.Context(), "user created")
	redirect(w, r, "/users")
}

func (h *UserHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Edit")
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), h.principal(r), id)
	if err != nil {
		h.fail(w, r, "Edit", err)
		return
	}
	f := newForm(map[string]string{"username": user.Username, "role": user.Role})
	h.render(w, r, http.StatusOK, "user_form", userFormPage(f, id))
}

// Update saves username and role. A non-empty password resets it.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Update")
	if !ok || !h.parseForm(w, r, "Update") {
		return
	}

	f := formFromRequest(r, "")
	input := userInputFromRequest(r, f)
	_, err := h.service.UpdateUser(r.Context(), application.UpdateUserParams{
		Principal: h.principal(r),
		UserID:    id,
		Input:     input,
	})
	if err != nil {
		if !h.formError(w, r, err, "user_form", userFormPage(f, id)) {
			h.fail(w, r, "Update", err)
		}
		return
	}

	h.log(r.Context(), "Update", "user_id", id, "password_reset", input.Password != "").InfoContext(r.Context(), "user updated")
	redirect(w, r, "/users")
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), h.principal(r), id); err != nil {
		h.fail(w, r, "Delete", err)
		return
	}

	h.log(r.Context(), "Delete", "user_id", id).InfoContext(r.Context(), "user deleted")
	redirect(w, r, "/users")
}

func userFormPage(f form, id int64) page {
	p := page{Title: "New User", Action: "/users/new", Form: f, Data: application.Roles}
	if id != 0 {
		p.Title = "Edit User"
		p.Action = fmt.Sprintf("/users/%d/edit", id)
		p.Editing = true
	}
	return p
}

// userInputFromRequest reads the password untrimmed; it never round-trips
// into the re-rendered form.
func userInputFromRequest(r *http.Request, f form) application.UserInput {
	return application.UserInput{
		Username: f.Get("username"),
		Password: r.PostForm.Get("password"),
		Role:     application.Role(f.Get("role")),
	}
}
