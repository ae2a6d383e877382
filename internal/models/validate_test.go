package models

import (
	"errors"
	"testing"

	"github.com/quizdy/ar-server/internal/apperr"
)

func TestValidateVenueName(t *testing.T) {
	for _, name := range []string{"hall", "東京タワー", "Floor 2", "a.b"} {
		if err := ValidateVenueName(name); err != nil {
			t.Errorf("%q: unexpected error %v", name, err)
		}
	}
	for _, name := range []string{"", "../etc", "a/b", `a\b`, ".hidden", "x..y", "nul\x00"} {
		err := ValidateVenueName(name)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%q: err = %v, want ErrValidation", name, err)
		}
	}
}

func TestTargetInputImagePath(t *testing.T) {
	in := TargetInput{Pic: "/images/a/old.png"}
	if got := in.ImagePath(); got != "/images/a/old.png" {
		t.Errorf("pic alias = %q", got)
	}
	in.Image = "/images/a/new.png"
	if got := in.ImagePath(); got != "/images/a/new.png" {
		t.Errorf("image = %q", got)
	}
	if in.Payload() != "" {
		t.Error("payload should be empty when base64 is absent")
	}
}
