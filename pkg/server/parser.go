package server

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"github.com/modelplane/modelplane/pkg/contract"
)

// HTTPRequestParser decodes and validates request payloads, turning decode
// and validation failures into typed contract errors.
type HTTPRequestParser struct {
	validator *validator.Validate
}

func NewHTTPRequestParser() *HTTPRequestParser {
	return &HTTPRequestParser{validator: NewValidator()}
}

func (p *HTTPRequestParser) ParseBody(ctx *fiber.Ctx, input interface{}) *contract.Error {
	if err := ctx.BodyParser(input); err != nil {
		switch err := err.(type) {
		case *json.UnmarshalTypeError:
			result := gjson.GetBytes(ctx.Body(), err.Field)
			value := result.Str
			if value == "" {
				value = result.Raw
			}
			return contract.NewError(
				contract.ErrorCodeValidation,
				"Invalid value %s for parameter '%s'", value, err.Field,
			)
		default:
			return contract.NewError(contract.ErrorCodeBadRequest, "%s", err.Error())
		}
	}

	if err := p.validator.Struct(input); err != nil {
		return newErrorFromValidationError(err)
	}

	return nil
}

func (p *HTTPRequestParser) ParseQuery(ctx *fiber.Ctx, input interface{}) *contract.Error {
	if err := ctx.QueryParser(input); err != nil {
		return contract.NewError(contract.ErrorCodeBadRequest, "%s", err.Error())
	}

	if err := p.validator.Struct(input); err != nil {
		return newErrorFromValidationError(err)
	}

	return nil
}

func dereference(value interface{}) interface{} {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		return v.Elem().Interface()
	}
	return value
}

func newErrorFromValidationError(err error) *contract.Error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return contract.NewError(contract.ErrorCodeInternal, "%s", err.Error())
	}

	validationErrors := make([]string, 0)
	for _, err := range errs {
		field := err.Field()
		tag := err.Tag()
		value := dereference(err.Value())
		var vErr string
		switch tag {
		case "required":
			vErr = fmt.Sprintf("Missing value for required parameter '%s'", field)
		default:
			vErr = fmt.Sprintf("Invalid value %v for parameter '%s' supplied", value, field)
		}
		validationErrors = append(validationErrors, vErr)
	}

	return contract.NewError(contract.ErrorCodeValidation, "%s", strings.Join(validationErrors, ", "))
}
