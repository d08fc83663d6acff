package validation

import (
	"regexp"

	validatorv10 "github.com/go-playground/validator/v10"
)

const maxExpiryDays = 36500

var shortIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// New returns a validator with the mapping rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// "shortid" limits caller-supplied ids to characters that are safe in a path segment.
	_ = v.RegisterValidation("shortid", func(fl validatorv10.FieldLevel) bool {
		return shortIDPattern.MatchString(fl.Field().String())
	})

	v.RegisterStructValidation(updateMappingStructValidation, UpdateMappingRequest{})

	return v
}

// updateMappingStructValidation checks the presence-tracked fields the tag
// syntax cannot reach.
func updateMappingStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(UpdateMappingRequest)

	if req.ExpiryDays.Set && req.ExpiryDays.Value != nil {
		days := *req.ExpiryDays.Value
		if days < 0 || days > maxExpiryDays {
			sl.ReportError(days, "expiryDays", "ExpiryDays", "expiry_range", "")
		}
	}
}
