package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/errdefs"
	"go.uber.org/multierr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	return v
}

// Validate checks the settings every command needs. The datasource is checked
// separately, by Datasource.Validate, since only database commands need one.
func (c *Config) Validate() error {
	return check(validate.Struct(c.Log))
}

// Validate checks that the datasource can be opened.
func (d Datasource) Validate() error {
	return check(validate.Struct(d))
}

func check(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errdefs.InvalidConfig(err)
	}

	var merged error
	for _, fe := range verrs {
		merged = multierr.Append(merged, describe(fe))
	}

	return errdefs.InvalidConfig(merged)
}

func describe(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return errors.Errorf("%s is required", fe.Field())
	case "oneof":
		return errors.Errorf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "gte":
		return errors.Errorf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return errors.Errorf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
