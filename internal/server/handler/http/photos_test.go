package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/phototrack-admin/internal/models"
)

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestPhotos_ListOfUnknownSite(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.get(t, "/site/does-not-exist/photos")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.api.CallsTo(http.MethodGet, "/sites/does-not-exist/photos"), 1)
	assert.Len(t, env.api.CallsTo(http.MethodGet, "/sites/does-not-exist"), 1)
	assert.NotContains(t, body, `class="error"`)
	assert.Contains(t, body, "No photos.")
	assert.Contains(t, body, `<a href="/sites" class="active">`)
}

func TestPhotos_List(t *testing.T) {
	env := newTestEnv(t)
	siteID := env.api.AddSite(models.Site{Name: "Quarry", Address: "Rock Rd"})
	photoID := env.api.AddPhoto(models.Photo{SiteUuid: siteID, Tag: "east wall"})
	env.api.AddPhoto(models.Photo{SiteUuid: "other-site", Tag: "elsewhere"})

	rec, body := env.get(t, "/site/"+siteID+"/photos")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "Photos of Quarry")
	assert.Contains(t, body, "east wall")
	assert.NotContains(t, body, "elsewhere")
	assert.Contains(t, body, models.PhotoImageURL(testAPIPath, photoID))
	assert.Contains(t, body, models.SiteArchiveURL(testAPIPath, siteID))
	assert.NotContains(t, body, `id="viewer"`)
}

func TestPhotos_ListOpensViewer(t *testing.T) {
	env := newTestEnv(t)
	siteID := env.api.AddSite(models.Site{Name: "Quarry"})
	photoID := env.api.AddPhoto(models.Photo{SiteUuid: siteID})

	rec, body := env.get(t, "/site/"+siteID+"/photos?open="+photoID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, `id="viewer"`)
	assert.Contains(t, body, `<img src="`+models.PhotoImageURL(testAPIPath, photoID)+`" alt="photo">`)
}

func TestPhotos_ListFailures(t *testing.T) {
	t.Run("photos query fails", func(t *testing.T) {
		env := newTestEnv(t)
		siteID := env.api.AddSite(models.Site{Name: "Quarry"})
		env.api.Fail(http.MethodGet, "/sites/"+siteID+"/photos", http.StatusInternalServerError)

		rec, body := env.get(t, "/site/"+siteID+"/photos")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, body, "Failed to load photos")
		assert.Contains(t, body, "Photos of Quarry")
	})

	t.Run("site lookup fails", func(t *testing.T) {
		env := newTestEnv(t)
		siteID := env.api.AddSite(models.Site{Name: "Quarry"})
		env.api.AddPhoto(models.Photo{SiteUuid: siteID, Tag: "still listed"})
		env.api.Fail(http.MethodGet, "/sites/"+siteID, http.StatusInternalServerError)

		rec, body := env.get(t, "/site/"+siteID+"/photos")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, body, "Quarry")
		assert.Contains(t, body, "still listed")
		assert.NotContains(t, body, `class="error"`)
	})
}

func TestPhotos_New(t *testing.T) {
	env := newTestEnv(t)
	siteID := env.api.AddSite(models.Site{Name: "Quarry"})

	rec, body := env.get(t, "/site/"+siteID+"/photos/add")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "Add photo to Quarry")
	assert.Contains(t, body, `enctype="multipart/form-data"`)
}

func multipartRequest(t *testing.T, target string, fields map[string]string, mime string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="Image"; filename="photo.png"`)
		h.Set("Content-Type", mime)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPhotos_Create(t *testing.T) {
	env := newTestEnv(t)
	siteID := env.api.AddSite(models.Site{Name: "Quarry"})

	req := multipartRequest(t, "/site/"+siteID+"/photos/add",
		map[string]string{"Tag": "north face", "Latitude": "50.5", "Longitude": "5.75"},
		"application/octet-stream", pngData)
	rec, _ := env.send(t, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/site/"+siteID+"/photos", rec.Header().Get("Location"))

	calls := env.api.CallsTo(http.MethodPost, "/photos")
	require.Len(t, calls, 1)
	body := calls[0].Body
	assert.Equal(t, siteID, body["SiteUuid"])
	assert.Equal(t, "north face", body["Tag"])
	assert.Equal(t, 50.5, body["Latitude"])
	assert.Equal(t, "image/png", body["ImageMime"])
	assert.NotEmpty(t, body["SecondsSinceEpoch"])
	assert.NotContains(t, body, "Uuid")

	resp, err := env.api.Client().Get(env.api.URL + "/sites/" + siteID + "/photos")
	require.NoError(t, err)
	defer resp.Body.Close()
	var photos []models.Photo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&photos))
	require.Len(t, photos, 1)

	mime, data, ok := env.api.Image(photos[0].Uuid)
	require.True(t, ok)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, pngData, data)
}

func TestPhotos_CreateInvalid(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		image    []byte
		wantCode int
		wantMsg  string
	}{
		{name: "no file", fields: map[string]string{"Tag": "x"}, wantCode: http.StatusBadRequest, wantMsg: "an image file is required"},
		{name: "empty file", image: []byte{}, wantCode: http.StatusBadRequest, wantMsg: "The image is empty"},
		{name: "bad latitude", fields: map[string]string{"Latitude": "up"}, image: pngData, wantCode: http.StatusBadRequest, wantMsg: "invalid latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := multipartRequest(t, "/site/s1/photos/add", tt.fields, "image/png", tt.image)
			rec, body := env.send(t, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, body, tt.wantMsg)
			assert.Empty(t, env.api.CallsTo(http.MethodPost, "/photos"))
		})
	}
}

func TestPhotos_CreateTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.photos.MaxUpload = 64

	req := multipartRequest(t, "/site/s1/photos/add", nil, "image/png", bytes.Repeat([]byte("x"), 1024))
	rec, body := env.send(t, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, body, "The image exceeds 64 bytes")
	assert.Empty(t, env.api.Calls())
}

func TestPhotos_CreateFailure(t *testing.T) {
	env := newTestEnv(t)
	env.api.Fail(http.MethodPost, "/photos", http.StatusInternalServerError)

	req := multipartRequest(t, "/site/s1/photos/add", map[string]string{"Tag": "kept tag"}, "image/png", pngData)
	rec, body := env.send(t, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body, "Failed to upload photo")
	assert.Contains(t, body, `value="kept tag"`)
}

func TestPhotos_Destroy(t *testing.T) {
	env := newTestEnv(t)
	siteID := env.api.AddSite(models.Site{Name: "Quarry"})
	photoID := env.api.AddPhoto(models.Photo{SiteUuid: siteID})
	target := "/site/" + siteID + "/photos/" + photoID + "/delete"

	rec, _ := env.post(t, target, url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/site/"+siteID+"/photos", rec.Header().Get("Location"))
	assert.Empty(t, env.api.Calls())

	rec, _ = env.post(t, target, url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/site/"+siteID+"/photos", rec.Header().Get("Location"))
	assert.Len(t, env.api.Calls(), 1)
	assert.Len(t, env.api.CallsTo(http.MethodDelete, "/photos/"+photoID), 1)
	assert.Nil(t, env.api.Photo(photoID))
}

func TestPhotos_CreateWithoutPosition(t *testing.T) {
	env := newTestEnv(t)
	siteID := env.api.AddSite(models.Site{Name: "Quarry"})

	req := multipartRequest(t, "/site/"+siteID+"/photos/add",
		map[string]string{"Tag": "indoor", "Latitude": "", "Longitude": ""},
		"image/png", pngData)
	rec, _ := env.send(t, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	calls := env.api.CallsTo(http.MethodPost, "/photos")
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].Body, "Latitude")
	assert.NotContains(t, calls[0].Body, "Longitude")
}

func TestPhotos_CreateAtUploadLimit(t *testing.T) {
	env := newTestEnv(t)
	siteID := env.api.AddSite(models.Site{Name: "Quarry"})
	env.photos.MaxUpload = int64(len(pngData))

	req := multipartRequest(t, "/site/"+siteID+"/photos/add",
		map[string]string{"Tag": "exactly at the limit"}, "image/png", pngData)
	rec, _ := env.send(t, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, env.api.CallsTo(http.MethodPost, "/photos"), 1)
}
