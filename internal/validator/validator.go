package validator

import (
	"sync"

	"github.com/go-playground/validator/v10"

	ierr "github.com/loopbill/loopbill/internal/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateRequest validates a request struct against its `validate` tags and
// returns a marked validation error listing the failing fields.
func ValidateRequest(req interface{}) error {
	if err := getValidator().Struct(req); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return ierr.WithError(err).
				WithHint("Invalid request payload").
				Mark(ierr.ErrValidation)
		}

		details := make(map[string]interface{}, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}

		return ierr.NewError("request validation failed").
			WithHint("One or more fields are invalid").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
