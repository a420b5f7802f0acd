package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidStatus is returned when a site status is not an integer.
var ErrInvalidStatus = errors.New("invalid site status")

// ParseStatus coerces the textual status of a site form into its integer code.
// Empty input yields 0, which is what the API stores for a missing status.
func ParseStatus(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	status, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}
