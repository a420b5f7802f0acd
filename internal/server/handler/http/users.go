package http

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/phototrack-admin/internal/models"
	"github.com/atinyakov/phototrack-admin/internal/view"
)

// UserService defines the user operations required by the handlers.
type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id string) (models.User, error)
	Create(ctx context.Context, user models.User) (models.User, error)
	Update(ctx context.Context, user models.User) (models.User, error)
	Delete(ctx context.Context, id string) error
}

// UserForm is the state of the user edit page.
type UserForm struct {
	User  models.User
	IsNew bool
}

// UserHandler serves the user pages.
type UserHandler struct {
	base
	Users UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users UserService, v *view.Renderer, logger *zap.Logger) *UserHandler {
	return &UserHandler{base: base{View: v, Logger: logger}, Users: users}
}

// List renders every user.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, page *view.Page) {
	status := http.StatusOK
	users, err := h.Users.List(r.Context())
	if err != nil {
		h.apiFailure(page, "Failed to load users", err)
		status = http.StatusBadGateway
		users = []models.User{}
	}
	page.Data = users
	h.render(w, r, status, page)
}

// New renders an empty user form.
func (h *UserHandler) New(w http.ResponseWriter, r *http.Request, page *view.Page) {
	page.Data = UserForm{IsNew: true}
	h.render(w, r, http.StatusOK, page)
}

// Create stores the submitted user.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request, page *view.Page) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	user := bindUser(r)
	if _, err := h.Users.Create(r.Context(), user); err != nil {
		h.apiFailure(page, "Failed to save user", err)
		page.Data = UserForm{User: user, IsNew: true}
		h.render(w, r, http.StatusBadGateway, page)
		return
	}
	seeOther(w, r, "/users")
}

// Edit renders the form of an existing user.
func (h *UserHandler) Edit(w http.ResponseWriter, r *http.Request, page *view.Page) {
	h.renderEdit(w, r, http.StatusOK, page)
}

// Save updates the user named by the route with the submitted values.
func (h *UserHandler) Save(w http.ResponseWriter, r *http.Request, page *view.Page) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	user := bindUser(r)
	user.Uuid = chi.URLParam(r, "Uuid")
	if _, err := h.Users.Update(r.Context(), user); err != nil {
		h.apiFailure(page, "Failed to save user", err)
		page.Data = UserForm{User: user}
		h.render(w, r, http.StatusBadGateway, page)
		return
	}
	seeOther(w, r, "/users")
}

// Destroy removes the user once the deletion is confirmed.
func (h *UserHandler) Destroy(w http.ResponseWriter, r *http.Request, page *view.Page) {
	id := chi.URLParam(r, "Uuid")
	if !confirmed(r) {
		seeOther(w, r, "/user/"+url.PathEscape(id))
		return
	}
	if err := h.Users.Delete(r.Context(), id); err != nil {
		h.apiFailure(page, "Failed to delete user", err)
		h.renderEdit(w, r, http.StatusBadGateway, page)
		return
	}
	seeOther(w, r, "/users")
}

func (h *UserHandler) renderEdit(w http.ResponseWriter, r *http.Request, status int, page *view.Page) {
	id := chi.URLParam(r, "Uuid")
	user, err := h.Users.Get(r.Context(), id)
	if err != nil {
		if page.Error == "" {
			h.apiFailure(page, "Failed to load user", err)
		}
		status = http.StatusBadGateway
		user = models.User{Uuid: id}
	}
	page.Data = UserForm{User: user}
	h.render(w, r, status, page)
}

func bindUser(r *http.Request) models.User {
	return models.User{
		UserName:     r.PostFormValue("UserName"),
		FullName:     r.PostFormValue("FullName"),
		Email:        r.PostFormValue("Email"),
		Organization: r.PostFormValue("Organization"),
		Password:     r.PostFormValue("Password"),
		IsAdmin:      formBool(r, "IsAdmin"),
		IsSupervisor: formBool(r, "IsSupervisor"),
	}
}
