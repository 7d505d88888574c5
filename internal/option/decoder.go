// Package option provides typed decoders for raw configuration values.
//
// A decoder validates and coerces a single raw value (as produced by the
// YAML parser) into its semantic type. Decoders are stateless and safe for
// concurrent use.
package option

import (
	"fmt"
	"slices"
	"strings"
)

// DecodeError describes a single invalid or missing configuration option.
type DecodeError struct {
	Option string // fully-qualified option name, e.g. "placement_group.zone"
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Option, e.Reason)
}

// Decoder validates one raw configuration value.
//
// present reports whether the option appeared in the configuration at all.
// A successful decode returns the coerced value, or nil when the decoder
// allows "none" and the value is absent or explicitly null.
type Decoder interface {
	Decode(name string, raw any, present bool) (any, error)
}

// String decodes a string-valued option.
type String struct {
	Default *string  // used when the option is absent; nil means required
	NoneOK  bool     // absent or null decodes to nil instead of failing
	Choices []string // when non-empty, the value must be one of these
}

func (d String) Decode(name string, raw any, present bool) (any, error) {
	if !present || raw == nil {
		if present && raw == nil && d.NoneOK {
			return nil, nil
		}
		if !present {
			if d.Default != nil {
				return *d.Default, nil
			}
			if d.NoneOK {
				return nil, nil
			}
		}
		return nil, &DecodeError{Option: name, Reason: "required option is missing"}
	}

	s, ok := raw.(string)
	if !ok {
		return nil, &DecodeError{Option: name, Reason: fmt.Sprintf("expected string, got %T", raw)}
	}
	if len(d.Choices) > 0 && !slices.Contains(d.Choices, s) {
		return nil, &DecodeError{
			Option: name,
			Reason: fmt.Sprintf("value %q not in [%s]", s, strings.Join(d.Choices, ", ")),
		}
	}
	return s, nil
}

// Int decodes an integer-valued option. YAML parsers hand integers over as
// int or int64 depending on magnitude; both are accepted.
type Int struct {
	Default *int64
	NoneOK  bool
	Min     *int64
	Max     *int64
}

func (d Int) Decode(name string, raw any, present bool) (any, error) {
	if !present || raw == nil {
		if present && raw == nil && d.NoneOK {
			return nil, nil
		}
		if !present {
			if d.Default != nil {
				return *d.Default, nil
			}
			if d.NoneOK {
				return nil, nil
			}
		}
		return nil, &DecodeError{Option: name, Reason: "required option is missing"}
	}

	var v int64
	switch n := raw.(type) {
	case int:
		v = int64(n)
	case int64:
		v = n
	default:
		return nil, &DecodeError{Option: name, Reason: fmt.Sprintf("expected integer, got %T", raw)}
	}
	if d.Min != nil && v < *d.Min {
		return nil, &DecodeError{Option: name, Reason: fmt.Sprintf("value %d below minimum %d", v, *d.Min)}
	}
	if d.Max != nil && v > *d.Max {
		return nil, &DecodeError{Option: name, Reason: fmt.Sprintf("value %d above maximum %d", v, *d.Max)}
	}
	return v, nil
}

// Bool decodes a boolean-valued option.
type Bool struct {
	Default *bool
	NoneOK  bool
}

func (d Bool) Decode(name string, raw any, present bool) (any, error) {
	if !present || raw == nil {
		if present && raw == nil && d.NoneOK {
			return nil, nil
		}
		if !present {
			if d.Default != nil {
				return *d.Default, nil
			}
			if d.NoneOK {
				return nil, nil
			}
		}
		return nil, &DecodeError{Option: name, Reason: "required option is missing"}
	}

	b, ok := raw.(bool)
	if !ok {
		return nil, &DecodeError{Option: name, Reason: fmt.Sprintf("expected bool, got %T", raw)}
	}
	return b, nil
}

// StringDefault is a convenience for building a String decoder with a default.
func StringDefault(v string) *string { return &v }

// IntDefault is a convenience for building an Int decoder with a default.
func IntDefault(v int64) *int64 { return &v }

// BoolDefault is a convenience for building a Bool decoder with a default.
func BoolDefault(v bool) *bool { return &v }
