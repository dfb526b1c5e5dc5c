package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mcoot/clickergame/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode reads a JSON body into dst and validates it. An empty body decodes
// to the zero value. All failures wrap model.ErrValidation.
func Decode(r *http.Request, dst any) error {
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: invalid request body", model.ErrValidation)
		}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", model.ErrValidation, describe(verrs))
		}
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	var required []string
	var other []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			required = append(required, fe.Field())
			continue
		}
		other = append(other, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}

	var parts []string
	switch len(required) {
	case 0:
	case 1:
		parts = append(parts, required[0]+" is required")
	default:
		parts = append(parts, strings.Join(required, " and ")+" are required")
	}
	parts = append(parts, other...)
	return strings.Join(parts, "; ")
}
