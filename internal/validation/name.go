package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var ErrNameRequired = errors.New("name is required")

// ValidateName validates an uploader display name
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return ErrNameRequired
	}

	if utf8.RuneCountInString(trimmed) > 100 {
		return errors.New("name is too long (max 100 characters)")
	}

	return nil
}
