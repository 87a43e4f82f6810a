// Package envstruct fills configuration structs from environment variables.
package envstruct

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/myrjola/coachreports/internal/errors"
)

var (
	ErrEnvNotSet    = errors.NewSentinel("environment variable not set")
	ErrInvalidValue = errors.NewSentinel("v must be a pointer to a struct")
	ErrParse        = errors.NewSentinel("cannot parse environment variable")
)

// Populate sets the fields of the struct pointed to by v that carry an `env:"NAME"` tag.
//
// lookupEnv has the signature of [os.LookupEnv]. A field whose variable is unset falls back to its
// `envDefault:"value"` tag and without one ErrEnvNotSet is reported. Supported field kinds are string, bool,
// int and [time.Duration]. All problems are collected and returned joined.
func Populate(v any, lookupEnv func(string) (string, bool)) error {
	ptr := reflect.ValueOf(v)
	if ptr.Kind() != reflect.Pointer {
		return fmt.Errorf("%w: not pointer: %v", ErrInvalidValue, v)
	}
	target := ptr.Elem()
	if target.Kind() != reflect.Struct {
		return fmt.Errorf("%w: not struct: %v", ErrInvalidValue, v)
	}

	var problems []error
	for i := range target.NumField() {
		field := target.Type().Field(i)
		name, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}
		value := target.Field(i)
		if !value.CanSet() {
			problems = append(problems, fmt.Errorf("%w: cannot set field: %s", ErrInvalidValue, field.Name))
			continue
		}
		raw, found := lookupEnv(name)
		if !found {
			if raw, found = field.Tag.Lookup("envDefault"); !found {
				problems = append(problems, fmt.Errorf("%w: %s", ErrEnvNotSet, name))
				continue
			}
		}
		if err := assign(value, raw); err != nil {
			problems = append(problems, fmt.Errorf("field %s from %s: %w", field.Name, name, err))
		}
	}
	return errors.Join(problems...)
}

func assign(value reflect.Value, raw string) error {
	if value.Type() == reflect.TypeFor[time.Duration]() {
		if raw == "" {
			value.SetInt(0)
			return nil
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: duration %q", ErrParse, raw)
		}
		value.SetInt(int64(d))
		return nil
	}
	switch value.Kind() { //nolint:exhaustive // the remaining kinds are unsupported.
	case reflect.String:
		value.SetString(raw)
	case reflect.Bool:
		if raw == "" {
			value.SetBool(false)
			return nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: bool %q", ErrParse, raw)
		}
		value.SetBool(b)
	case reflect.Int:
		if raw == "" {
			value.SetInt(0)
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: int %q", ErrParse, raw)
		}
		value.SetInt(int64(n))
	default:
		return fmt.Errorf("%w: unsupported kind %s", ErrInvalidValue, value.Kind())
	}
	return nil
}
