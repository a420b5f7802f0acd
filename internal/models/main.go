// Package models defines the PhotoTrack entities exchanged with the remote API.
// Field names follow the API's JSON keys.
package models

import (
	"net/url"
	"strconv"
	"strings"
)

// IDField is the JSON key holding the server-assigned identifier of every entity.
const IDField = "Uuid"

// User represents a PhotoTrack account.
type User struct {
	// Uuid is the server-assigned identifier.
	Uuid string `json:"Uuid,omitempty"`
	// UserName is the login name.
	UserName string `json:"UserName"`
	// FullName is the display name.
	FullName string `json:"FullName"`
	// Email is the contact address.
	Email string `json:"Email"`
	// Organization the user belongs to.
	Organization string `json:"Organization"`
	// Password is stored by the API as given.
	Password string `json:"Password"`
	// IsAdmin grants administrative rights.
	IsAdmin bool `json:"IsAdmin"`
	// IsSupervisor grants supervision rights over sites.
	IsSupervisor bool `json:"IsSupervisor"`
}

// Site is a tracked location owning zero or more photos.
type Site struct {
	// Uuid is the server-assigned identifier.
	Uuid string `json:"Uuid,omitempty"`
	// Name of the site.
	Name string `json:"Name"`
	// PitNumber is the free-form pit reference.
	PitNumber string `json:"PitNumber"`
	// Address is the geocoded postal address.
	Address string `json:"Address"`
	// Latitude in decimal degrees. The API stores a position only when
	// both coordinates are sent.
	Latitude *float64 `json:"Latitude,omitempty"`
	// Longitude in decimal degrees.
	Longitude *float64 `json:"Longitude,omitempty"`
	// Status is an integer status code.
	Status int `json:"Status"`
	// SecondsSinceEpoch is the creation time as a decimal string.
	SecondsSinceEpoch string `json:"SecondsSinceEpoch,omitempty"`
	// Time is computed by the API from SecondsSinceEpoch.
	Time string `json:"Time,omitempty"`
}

// Photo is an image attached to a site.
type Photo struct {
	// Uuid is the server-assigned identifier.
	Uuid string `json:"Uuid,omitempty"`
	// SiteUuid references the owning site.
	SiteUuid string `json:"SiteUuid"`
	// Tag is a short caption.
	Tag string `json:"Tag"`
	// Latitude where the photo was taken, if known.
	Latitude *float64 `json:"Latitude,omitempty"`
	// Longitude where the photo was taken, if known.
	Longitude *float64 `json:"Longitude,omitempty"`
	// SecondsSinceEpoch is the capture time as a decimal string.
	SecondsSinceEpoch string `json:"SecondsSinceEpoch,omitempty"`
	// Time is computed by the API from SecondsSinceEpoch.
	Time string `json:"Time,omitempty"`
	// ImageMime is the content type of the stored image.
	ImageMime string `json:"ImageMime,omitempty"`
	// ImageData is the base64 image, only sent on creation.
	ImageData string `json:"ImageData,omitempty"`
}

// PhotoImageURL returns the URL under which the API serves the image of a photo.
func PhotoImageURL(apiPath, photoID string) string {
	return strings.TrimRight(apiPath, "/") + "/photos/" + url.PathEscape(photoID) + "/image"
}

// SiteArchiveURL returns the URL of the zip archive holding every photo of a site.
func SiteArchiveURL(apiPath, siteID string) string {
	return strings.TrimRight(apiPath, "/") + "/sites/" + url.PathEscape(siteID) + "/archive"
}

// Coord returns a pointer to a coordinate value.
func Coord(v float64) *float64 {
	return &v
}

// FormatCoord renders an optional coordinate; unset renders empty.
func FormatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
