// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/restgate/internal/errors"
)

var (
	// emailRegex is a basic email validation pattern
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// nameRegex matches collection names and record ids usable as a single path segment
	nameRegex = regexp.MustCompile(`^[A-Za-z0-9_\-.]+$`)

	// maskRegex matches the three-digit numeric access mask notation
	maskRegex = regexp.MustCompile(`^[0-7]{3}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Email validates email format using regex
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// PathSegment validates that a string can be addressed as one URL path segment,
// which is required for collection names and record ids.
var PathSegment = validation.NewStringRuleWithError(
	func(s string) bool {
		return nameRegex.MatchString(s) && s != "." && s != ".."
	},
	validation.NewError("validation_path_segment", "must contain only letters, digits, '.', '_' or '-'"),
)

// AccessMaskCode validates the three-digit numeric access mask notation (e.g. "660").
var AccessMaskCode = validation.NewStringRuleWithError(
	func(s string) bool {
		return maskRegex.MatchString(s)
	},
	validation.NewError("validation_access_mask", "must be three digits between 0 and 7"),
)
