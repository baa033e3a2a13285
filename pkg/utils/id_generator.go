// Package utils provides shared helpers used across the application: distance
// math and identifier generation.
package utils

import (
	"github.com/google/uuid"
)

// GenerateID creates a new UUID v4 string for use as an entity identifier.
//
// Go Learning Note — "github.com/google/uuid":
// uuid.New() creates a random (v4) UUID. They can be generated on any
// instance without coordination, which matters here because reports, dispatch
// events and stream connections are all minted on whichever server handles
// the request.
func GenerateID() string {
	return uuid.New().String()
}
