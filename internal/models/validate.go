package models

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/quizdy/ar-server/internal/apperr"
)

// venueNameRule rejects names that cannot be used as a single path segment.
var venueNameRule = validation.By(func(value interface{}) error {
	name, _ := value.(string)
	switch {
	case strings.ContainsAny(name, `/\`+"\x00"):
		return errors.New("must not contain path separators")
	case strings.Contains(name, ".."):
		return errors.New("must not contain '..'")
	case strings.HasPrefix(name, "."):
		return errors.New("must not start with '.'")
	}
	return nil
})

// ValidateVenueName checks that name is present and safe as a file name stem.
func ValidateVenueName(name string) error {
	if err := validation.Validate(name, validation.Required, validation.Length(1, 200), venueNameRule); err != nil {
		return apperr.New(apperr.ErrValidation, "invalid venue: "+err.Error())
	}
	return nil
}
