package store

import (
	"fmt"

	"github.com/nextlevelbuilder/codebot/internal/codes"
)

// ValidateCode checks that code is a single well-formed code.
func ValidateCode(code string) error {
	if !codes.IsCode(code) {
		return fmt.Errorf("invalid code %q", code)
	}
	return nil
}
