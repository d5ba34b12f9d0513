package entity

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// maxURLLength defines the maximum allowed length for URLs.
	maxURLLength = 2048

	// MaxRadiusKm bounds the nearby-post search radius.
	MaxRadiusKm = 100.0

	maxLocationLength = 100
)

// ValidateURL checks that rawURL is a well-formed http or https URL with a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: "URL is malformed"}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	return nil
}

// ValidateCoordinates checks a WGS84 latitude/longitude pair.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return &ValidationError{Field: "lat", Message: "latitude must be between -90 and 90"}
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return &ValidationError{Field: "lng", Message: "longitude must be between -180 and 180"}
	}
	return nil
}

// ValidateRadius checks a search radius in kilometres.
func ValidateRadius(km float64) error {
	if math.IsNaN(km) || km <= 0 || km > MaxRadiusKm {
		return &ValidationError{
			Field:   "radius",
			Message: fmt.Sprintf("radius must be greater than 0 and at most %g km", MaxRadiusKm),
		}
	}
	return nil
}

// ValidateUserID checks that id is a UUID, the platform's user id format.
func ValidateUserID(id string) error {
	if id == "" {
		return &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	if _, err := uuid.Parse(id); err != nil {
		return &ValidationError{Field: "user_id", Message: "user id must be a UUID"}
	}
	return nil
}

// ValidateLocation checks a free-text location filter.
func ValidateLocation(location string) error {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return &ValidationError{Field: "location", Message: "location is required"}
	}
	if utf8.RuneCountInString(trimmed) > maxLocationLength {
		return &ValidationError{
			Field:   "location",
			Message: fmt.Sprintf("location must not exceed %d characters", maxLocationLength),
		}
	}
	return nil
}
