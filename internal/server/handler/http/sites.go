package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/phototrack-admin/internal/geocode"
	"github.com/atinyakov/phototrack-admin/internal/models"
	"github.com/atinyakov/phototrack-admin/internal/view"
)

// Site form actions.
const (
	actionSave        = "save"
	actionGeocode     = "geocode"
	actionGeocodeHere = "geocodehere"
)

// SiteService defines the site operations required by the handlers.
type SiteService interface {
	List(ctx context.Context) ([]models.Site, error)
	Get(ctx context.Context, id string) (models.Site, error)
	Create(ctx context.Context, site models.Site) (models.Site, error)
	Update(ctx context.Context, site models.Site) (models.Site, error)
	Delete(ctx context.Context, id string) error
}

// Geocoder resolves addresses and positions.
type Geocoder interface {
	GeocodeAddress(ctx context.Context, address string) (*geocode.Response, error)
	GeocodeLatLng(ctx context.Context, lat, lng float64) (*geocode.Response, error)
}

// SiteForm is the state of the site edit page. Status keeps the raw
// submitted text so an invalid value is shown back unchanged.
type SiteForm struct {
	Site   models.Site
	Status string
	IsNew  bool
}

// SiteHandler serves the site pages.
type SiteHandler struct {
	base
	Sites    SiteService
	Geocoder Geocoder
}

// NewSiteHandler constructs a SiteHandler.
func NewSiteHandler(sites SiteService, geocoder Geocoder, v *view.Renderer, logger *zap.Logger) *SiteHandler {
	return &SiteHandler{base: base{View: v, Logger: logger}, Sites: sites, Geocoder: geocoder}
}

// List renders every site.
func (h *SiteHandler) List(w http.ResponseWriter, r *http.Request, page *view.Page) {
	status := http.StatusOK
	sites, err := h.Sites.List(r.Context())
	if err != nil {
		h.apiFailure(page, "Failed to load sites", err)
		status = http.StatusBadGateway
		sites = []models.Site{}
	}
	page.Data = sites
	h.render(w, r, status, page)
}

// New renders an empty site form.
func (h *SiteHandler) New(w http.ResponseWriter, r *http.Request, page *view.Page) {
	page.Data = SiteForm{IsNew: true}
	h.render(w, r, http.StatusOK, page)
}

// Create handles the add form: it geocodes or stores the site depending on
// the submitted action.
func (h *SiteHandler) Create(w http.ResponseWriter, r *http.Request, page *view.Page) {
	h.submit(w, r, page, true)
}

// Edit renders the form of an existing site.
func (h *SiteHandler) Edit(w http.ResponseWriter, r *http.Request, page *view.Page) {
	h.renderEdit(w, r, http.StatusOK, page)
}

// Save handles the edit form of the site named by the route.
func (h *SiteHandler) Save(w http.ResponseWriter, r *http.Request, page *view.Page) {
	h.submit(w, r, page, false)
}

// Destroy removes the site once the deletion is confirmed.
func (h *SiteHandler) Destroy(w http.ResponseWriter, r *http.Request, page *view.Page) {
	id := chi.URLParam(r, "Uuid")
	if !confirmed(r) {
		seeOther(w, r, "/site/"+url.PathEscape(id))
		return
	}
	if err := h.Sites.Delete(r.Context(), id); err != nil {
		h.apiFailure(page, "Failed to delete site", err)
		h.renderEdit(w, r, http.StatusBadGateway, page)
		return
	}
	seeOther(w, r, "/sites")
}

func (h *SiteHandler) submit(w http.ResponseWriter, r *http.Request, page *view.Page, isNew bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := SiteForm{Status: r.PostFormValue("Status"), IsNew: isNew}
	site, err := bindSite(r)
	if !isNew {
		site.Uuid = chi.URLParam(r, "Uuid")
	}
	form.Site = site
	page.Data = &form
	if err != nil {
		page.Error = err.Error()
		h.render(w, r, http.StatusBadRequest, page)
		return
	}

	switch r.PostFormValue("action") {
	case actionGeocode:
		h.geocodeAddress(r.Context(), &form.Site)
		h.render(w, r, http.StatusOK, page)
		return
	case actionGeocodeHere:
		h.geocodeHere(r, &form.Site)
		h.render(w, r, http.StatusOK, page)
		return
	case "", actionSave:
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	form.Site.Status, err = models.ParseStatus(form.Status)
	if err != nil {
		page.Error = err.Error()
		h.render(w, r, http.StatusBadRequest, page)
		return
	}

	if isNew {
		_, err = h.Sites.Create(r.Context(), form.Site)
	} else {
		_, err = h.Sites.Update(r.Context(), form.Site)
	}
	if err != nil {
		h.apiFailure(page, "Failed to save site", err)
		h.render(w, r, http.StatusBadGateway, page)
		return
	}
	seeOther(w, r, "/sites")
}

// geocodeAddress replaces the coordinates of site with the first candidate
// for its address. Any failure leaves site unchanged.
func (h *SiteHandler) geocodeAddress(ctx context.Context, site *models.Site) {
	resp, err := h.Geocoder.GeocodeAddress(ctx, site.Address)
	if !h.geocoded(resp, err, zap.String("address", site.Address)) {
		return
	}
	loc := resp.First().Location
	site.Latitude = models.Coord(loc.Lat())
	site.Longitude = models.Coord(loc.Lon())
}

// geocodeHere sets the address of site from the browser position and moves
// the site there. Any failure leaves site unchanged.
func (h *SiteHandler) geocodeHere(r *http.Request, site *models.Site) {
	lat, errLat := strconv.ParseFloat(r.PostFormValue("HereLatitude"), 64)
	lng, errLng := strconv.ParseFloat(r.PostFormValue("HereLongitude"), 64)
	if errLat != nil || errLng != nil {
		h.Logger.Info("no browser position submitted")
		return
	}

	resp, err := h.Geocoder.GeocodeLatLng(r.Context(), lat, lng)
	if !h.geocoded(resp, err, zap.Float64("lat", lat), zap.Float64("lng", lng)) {
		return
	}
	site.Address = resp.First().FormattedAddress
	site.Latitude = models.Coord(lat)
	site.Longitude = models.Coord(lng)
}

func (h *SiteHandler) geocoded(resp *geocode.Response, err error, fields ...zap.Field) bool {
	if err != nil {
		h.Logger.Warn("geocode failed", append(fields, zap.Error(err))...)
		return false
	}
	if !resp.OK() {
		var status, message string
		if resp != nil {
			status, message = resp.Status, resp.ErrorMessage
		}
		h.Logger.Info("geocode returned no result",
			append(fields, zap.String("status", status), zap.String("message", message))...)
		return false
	}
	return true
}

func (h *SiteHandler) renderEdit(w http.ResponseWriter, r *http.Request, status int, page *view.Page) {
	id := chi.URLParam(r, "Uuid")
	site, err := h.Sites.Get(r.Context(), id)
	if err != nil {
		if page.Error == "" {
			h.apiFailure(page, "Failed to load site", err)
		}
		status = http.StatusBadGateway
		site = models.Site{Uuid: id}
	}
	page.Data = SiteForm{Site: site, Status: strconv.Itoa(site.Status)}
	h.render(w, r, status, page)
}

func bindSite(r *http.Request) (models.Site, error) {
	site := models.Site{
		Name:              r.PostFormValue("Name"),
		PitNumber:         r.PostFormValue("PitNumber"),
		Address:           r.PostFormValue("Address"),
		SecondsSinceEpoch: r.PostFormValue("SecondsSinceEpoch"),
	}
	var err error
	site.Latitude, site.Longitude, err = formCoords(r, "Latitude", "Longitude")
	return site, err
}
