package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/phototrack-admin/internal/models"
	"github.com/atinyakov/phototrack-admin/internal/service"
	"github.com/atinyakov/phototrack-admin/internal/view"
)

// DefaultMaxUpload bounds the size of an uploaded image.
const DefaultMaxUpload = 20 << 20

// formOverhead is the room left in an upload request for the multipart
// framing and the text fields next to the image.
const formOverhead = 64 << 10

var errImageTooLarge = errors.New("image too large")

// PhotoService defines the photo operations required by the handlers.
type PhotoService interface {
	ListBySite(ctx context.Context, siteID string) ([]models.Photo, error)
	Upload(ctx context.Context, u service.Upload) (models.Photo, error)
	Delete(ctx context.Context, id string) error
}

// SiteLookup fetches the site a photo page belongs to.
type SiteLookup interface {
	Get(ctx context.Context, id string) (models.Site, error)
}

// PhotoList is the state of the photos page. Site is nil when the site
// could not be loaded.
type PhotoList struct {
	SiteUuid string
	Site     *models.Site
	Photos   []models.Photo
	// CurImg is the image URL shown in the overlay viewer, if any.
	CurImg string
}

// PhotoForm is the state of the photo upload page.
type PhotoForm struct {
	SiteUuid  string
	Site      *models.Site
	Tag       string
	Latitude  string
	Longitude string
}

// PhotoHandler serves the photo pages of a site.
type PhotoHandler struct {
	base
	Photos    PhotoService
	Sites     SiteLookup
	MaxUpload int64
}

// NewPhotoHandler constructs a PhotoHandler. maxUpload <= 0 selects
// DefaultMaxUpload.
func NewPhotoHandler(photos PhotoService, sites SiteLookup, maxUpload int64, v *view.Renderer, logger *zap.Logger) *PhotoHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &PhotoHandler{
		base:      base{View: v, Logger: logger},
		Photos:    photos,
		Sites:     sites,
		MaxUpload: maxUpload,
	}
}

// List renders the photos of the site named by the route. The site and its
// photos are fetched concurrently; either may fail without affecting the other.
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request, page *view.Page) {
	h.renderList(w, r, http.StatusOK, page)
}

// New renders the upload form.
func (h *PhotoHandler) New(w http.ResponseWriter, r *http.Request, page *view.Page) {
	siteID := chi.URLParam(r, "Uuid")
	page.Data = PhotoForm{SiteUuid: siteID, Site: h.site(r.Context(), siteID)}
	h.render(w, r, http.StatusOK, page)
}

// Create uploads the submitted image as a new photo of the site.
func (h *PhotoHandler) Create(w http.ResponseWriter, r *http.Request, page *view.Page) {
	siteID := chi.URLParam(r, "Uuid")
	form := PhotoForm{SiteUuid: siteID}
	page.Data = &form

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload+formOverhead)
	if err := r.ParseMultipartForm(h.MaxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(w, r, page)
			return
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form.Tag = r.PostFormValue("Tag")
	form.Latitude = r.PostFormValue("Latitude")
	form.Longitude = r.PostFormValue("Longitude")

	upload, err := h.bindUpload(r, siteID)
	if errors.Is(err, errImageTooLarge) {
		h.tooLarge(w, r, page)
		return
	}
	if err != nil {
		page.Error = err.Error()
		h.render(w, r, http.StatusBadRequest, page)
		return
	}

	photo, err := h.Photos.Upload(r.Context(), upload)
	switch {
	case errors.Is(err, service.ErrEmptyImage):
		page.Error = "The image is empty"
		h.render(w, r, http.StatusBadRequest, page)
		return
	case err != nil:
		h.apiFailure(page, "Failed to upload photo", err)
		h.render(w, r, http.StatusBadGateway, page)
		return
	}

	h.Logger.Info("photo uploaded",
		zap.String("site", siteID),
		zap.String("photo", photo.Uuid),
		zap.String("mime", photo.ImageMime))
	seeOther(w, r, photosPath(siteID))
}

// Destroy removes a photo of the site once the deletion is confirmed.
func (h *PhotoHandler) Destroy(w http.ResponseWriter, r *http.Request, page *view.Page) {
	siteID := chi.URLParam(r, "Uuid")
	if !confirmed(r) {
		seeOther(w, r, photosPath(siteID))
		return
	}
	if err := h.Photos.Delete(r.Context(), chi.URLParam(r, "PhotoUuid")); err != nil {
		h.apiFailure(page, "Failed to delete photo", err)
		h.renderList(w, r, http.StatusBadGateway, page)
		return
	}
	seeOther(w, r, photosPath(siteID))
}

func (h *PhotoHandler) renderList(w http.ResponseWriter, r *http.Request, status int, page *view.Page) {
	siteID := chi.URLParam(r, "Uuid")
	data := PhotoList{SiteUuid: siteID, Photos: []models.Photo{}}

	var (
		site     models.Site
		photos   []models.Photo
		siteErr  error
		photoErr error
		g        errgroup.Group
	)
	g.Go(func() error {
		photos, photoErr = h.Photos.ListBySite(r.Context(), siteID)
		return nil
	})
	g.Go(func() error {
		site, siteErr = h.Sites.Get(r.Context(), siteID)
		return nil
	})
	_ = g.Wait()

	if siteErr != nil {
		h.Logger.Info("site lookup failed", zap.String("site", siteID), zap.Error(siteErr))
	} else {
		data.Site = &site
	}
	if photoErr != nil {
		if page.Error == "" {
			h.apiFailure(page, "Failed to load photos", photoErr)
		}
		status = http.StatusBadGateway
	} else if photos != nil {
		data.Photos = photos
	}

	if open := r.URL.Query().Get("open"); open != "" {
		data.CurImg = models.PhotoImageURL(page.APIPath, open)
	}

	page.Data = data
	h.render(w, r, status, page)
}

func (h *PhotoHandler) tooLarge(w http.ResponseWriter, r *http.Request, page *view.Page) {
	page.Error = fmt.Sprintf("The image exceeds %d bytes", h.MaxUpload)
	h.render(w, r, http.StatusRequestEntityTooLarge, page)
}

func (h *PhotoHandler) site(ctx context.Context, id string) *models.Site {
	site, err := h.Sites.Get(ctx, id)
	if err != nil {
		h.Logger.Info("site lookup failed", zap.String("site", id), zap.Error(err))
		return nil
	}
	return &site
}

func (h *PhotoHandler) bindUpload(r *http.Request, siteID string) (service.Upload, error) {
	upload := service.Upload{SiteUuid: siteID, Tag: r.PostFormValue("Tag")}

	var err error
	upload.Latitude, upload.Longitude, err = formCoords(r, "Latitude", "Longitude")
	if err != nil {
		return upload, err
	}

	file, header, err := r.FormFile("Image")
	if err != nil {
		return upload, errors.New("an image file is required")
	}
	defer file.Close()
	if header.Size > h.MaxUpload {
		return upload, errImageTooLarge
	}

	if upload.Data, err = io.ReadAll(file); err != nil {
		return upload, fmt.Errorf("read image: %w", err)
	}
	upload.Mime = header.Header.Get("Content-Type")
	return upload, nil
}

func photosPath(siteID string) string {
	return "/site/" + url.PathEscape(siteID) + "/photos"
}
