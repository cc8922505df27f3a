package entity

import (
	"crypto/rand"
	"fmt"
)

// RandomColor returns a random hex color in uppercase "#RRGGBB" form. Used as
// the default visual marker when an entity has no color assigned.
func RandomColor() string {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		// rand.Read never fails on supported platforms
		return "#000000"
	}
	return fmt.Sprintf("#%02X%02X%02X", b[0], b[1], b[2])
}
