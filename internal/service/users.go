package service

import (
	"context"

	"github.com/atinyakov/phototrack-admin/internal/models"
)

// UserService manages PhotoTrack accounts.
type UserService struct {
	users Resource[models.User]
}

// NewUserService constructs a UserService over the users resource.
func NewUserService(users Resource[models.User]) *UserService {
	return &UserService{users: users}
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.Query(ctx, nil)
}

// Get returns the user with the given identifier.
func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	return get(ctx, s.users, id)
}

// Create stores a new user and returns it with its identifier.
func (s *UserService) Create(ctx context.Context, user models.User) (models.User, error) {
	user.Uuid = ""
	return s.users.Save(ctx, user)
}

// Update submits user under its own identifier.
func (s *UserService) Update(ctx context.Context, user models.User) (models.User, error) {
	return update(ctx, s.users, user.Uuid, user)
}

// Delete removes the user with the given identifier.
func (s *UserService) Delete(ctx context.Context, id string) error {
	return remove(ctx, s.users, id)
}
