package service

import (
	"context"

	"github.com/atinyakov/phototrack-admin/internal/models"
)

// SiteService manages PhotoTrack sites.
type SiteService struct {
	sites Resource[models.Site]
}

// NewSiteService constructs a SiteService over the sites resource.
func NewSiteService(sites Resource[models.Site]) *SiteService {
	return &SiteService{sites: sites}
}

// List returns every site.
func (s *SiteService) List(ctx context.Context) ([]models.Site, error) {
	return s.sites.Query(ctx, nil)
}

// Get returns the site with the given identifier.
func (s *SiteService) Get(ctx context.Context, id string) (models.Site, error) {
	return get(ctx, s.sites, id)
}

// Create stores a new site and returns it with its identifier.
func (s *SiteService) Create(ctx context.Context, site models.Site) (models.Site, error) {
	site.Uuid = ""
	return s.sites.Save(ctx, site)
}

// Update submits site under its own identifier.
func (s *SiteService) Update(ctx context.Context, site models.Site) (models.Site, error) {
	return update(ctx, s.sites, site.Uuid, site)
}

// Delete removes the site with the given identifier. The API drops its photos.
func (s *SiteService) Delete(ctx context.Context, id string) error {
	return remove(ctx, s.sites, id)
}
