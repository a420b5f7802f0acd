package api

import (
	"strings"

	"github.com/atinyakov/phototrack-admin/internal/models"
)

// Client groups the resources of the PhotoTrack API under one base URL.
type Client struct {
	Users      *Resource[models.User]
	Sites      *Resource[models.Site]
	Photos     *Resource[models.Photo]
	SitePhotos *Resource[models.Photo]
}

// New binds every PhotoTrack resource under baseURL, e.g. "http://host:8000".
func New(client Doer, baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	return &Client{
		Users:      NewResource[models.User](client, base+"/users/:Uuid"),
		Sites:      NewResource[models.Site](client, base+"/sites/:Uuid"),
		Photos:     NewResource[models.Photo](client, base+"/photos/:Uuid"),
		SitePhotos: NewResource[models.Photo](client, base+"/sites/:Uuid/photos"),
	}
}
