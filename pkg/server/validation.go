package server

import (
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	validate := validator.New()

	// Verify that the input is a positive integer.
	validate.RegisterValidation("positiveInteger", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.String:
			value, err := strconv.Atoi(fl.Field().String())
			return err == nil && value > 0
		default:
			return fl.Field().Int() > 0
		}
	})

	// Verify that the input float lies in [0,1].
	validate.RegisterValidation("probability", func(fl validator.FieldLevel) bool {
		value := fl.Field().Float()
		return value >= 0 && value <= 1
	})

	return validate
}
