package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// ErrInvalid is returned for unknown keys or values that fail validation.
var ErrInvalid = errors.New("invalid settings")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("pow2", func(fl validator.FieldLevel) bool {
			n := fl.Field().Int()
			return n > 0 && n&(n-1) == 0
		})
	})
	return validate
}

// Validate checks every field constraint.
func (s Settings) Validate() error {
	if err := validatorInstance().Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Merge decodes overrides on top of base and validates the result. Keys
// are matched case-insensitively against the mapstructure tags; any key
// that does not name a setting is rejected. Slices in overrides replace
// the base slice wholesale. base is never modified.
func Merge(base Settings, overrides map[string]any) (Settings, error) {
	out := base.Clone()
	if len(overrides) == 0 {
		if err := out.Validate(); err != nil {
			return base, err
		}
		return out, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		// Replace slices instead of overlaying them element by element.
		ZeroFields:       true,
	})
	if err != nil {
		return base, fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(overrides); err != nil {
		return base, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}
