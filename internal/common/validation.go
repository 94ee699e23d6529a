package common

import (
	"fmt"
	"slices"
)

// ValidateOutputFormat checks format against the configured supported formats.
// An empty list allows every format.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 || slices.Contains(supportedFormats, format) {
		return nil
	}
	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}
