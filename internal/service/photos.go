package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/atinyakov/phototrack-admin/internal/client/api"
	"github.com/atinyakov/phototrack-admin/internal/models"
)

// ErrEmptyImage is returned when an upload carries no image data.
var ErrEmptyImage = errors.New("empty image")

// Upload is a new photo of a site.
type Upload struct {
	SiteUuid string
	Tag      string
	// Latitude and Longitude are nil when the position is unknown.
	Latitude  *float64
	Longitude *float64
	// Mime is the image content type; sniffed from Data when empty.
	Mime string
	Data []byte
}

// PhotoService manages the photos of sites.
type PhotoService struct {
	photos     Resource[models.Photo]
	sitePhotos Resource[models.Photo]
	now        func() time.Time
}

// NewPhotoService constructs a PhotoService over the photos resource and the
// read-only photos-of-site collection.
func NewPhotoService(photos, sitePhotos Resource[models.Photo]) *PhotoService {
	return &PhotoService{photos: photos, sitePhotos: sitePhotos, now: time.Now}
}

// ListBySite returns the photos of the site with the given identifier.
func (s *PhotoService) ListBySite(ctx context.Context, siteID string) ([]models.Photo, error) {
	if siteID == "" {
		return nil, ErrMissingID
	}
	return s.sitePhotos.Query(ctx, api.Params{models.IDField: siteID})
}

// Get returns the photo with the given identifier.
func (s *PhotoService) Get(ctx context.Context, id string) (models.Photo, error) {
	return get(ctx, s.photos, id)
}

// Upload stores a new photo with its image, stamped with the current time.
func (s *PhotoService) Upload(ctx context.Context, u Upload) (models.Photo, error) {
	if u.SiteUuid == "" {
		return models.Photo{}, ErrMissingID
	}
	if len(u.Data) == 0 {
		return models.Photo{}, ErrEmptyImage
	}

	mime := u.Mime
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(u.Data)
	}

	photo, err := s.photos.Save(ctx, models.Photo{
		SiteUuid:          u.SiteUuid,
		Tag:               u.Tag,
		Latitude:          u.Latitude,
		Longitude:         u.Longitude,
		SecondsSinceEpoch: strconv.FormatInt(s.now().Unix(), 10),
		ImageMime:         mime,
		ImageData:         base64.StdEncoding.EncodeToString(u.Data),
	})
	if err != nil {
		return models.Photo{}, err
	}
	photo.ImageData = ""
	return photo, nil
}

// Update submits photo under its own identifier.
func (s *PhotoService) Update(ctx context.Context, photo models.Photo) (models.Photo, error) {
	photo.ImageData = ""
	return update(ctx, s.photos, photo.Uuid, photo)
}

// Delete removes the photo with the given identifier.
func (s *PhotoService) Delete(ctx context.Context, id string) error {
	return remove(ctx, s.photos, id)
}
