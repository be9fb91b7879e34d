package provider

import (
	"fmt"

	"github.com/Digital-Shane/youtube-metadata/internal/media"
)

// ValidateCapabilities checks if provider capabilities are valid and consistent
func ValidateCapabilities(caps ProviderCapabilities) error {
	if len(caps.IDKinds) == 0 {
		return fmt.Errorf("provider must support at least one identifier kind")
	}
	for _, kind := range caps.IDKinds {
		if kind == media.IDKindNone {
			return fmt.Errorf("provider lists an empty identifier kind")
		}
	}
	if caps.WarmsChannel && !caps.Supports(media.IDKindChannel) {
		return fmt.Errorf("provider warms channels but cannot fetch them")
	}
	return nil
}
