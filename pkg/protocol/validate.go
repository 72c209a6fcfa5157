package protocol

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateCommand checks an outbound envelope against its struct tags and
// flattens field errors into one message for the caller.
func ValidateCommand(cmd interface{}) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("command validation failed: %w", err)
	}

	var fields []string
	for _, fieldErr := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s (%s)", fieldErr.Field(), fieldErr.Tag()))
	}
	return fmt.Errorf("invalid command: %s", strings.Join(fields, ", "))
}
