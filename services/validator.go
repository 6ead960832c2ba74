package services

import (
	"chatspace/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validateCommand(cmd any) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	return nil
}
