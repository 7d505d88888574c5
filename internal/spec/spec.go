// Package spec builds immutable, validated configuration objects from raw
// config mappings.
//
// A resource kind declares its options as a decoder set; provider-specific
// code merges additional options or tighter constraints on top. Decoding is
// batch-validated: every invalid option is reported in a single aggregate
// error and no partially-decoded spec is ever returned.
package spec

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"benchswarm/internal/option"
)

// Options maps option names to their decoders.
type Options map[string]option.Decoder

// Merge returns a new decoder set containing base plus extra, with extra
// winning on name collisions. Neither argument is modified.
func Merge(base, extra Options) Options {
	merged := make(Options, len(base)+len(extra))
	maps.Copy(merged, base)
	maps.Copy(merged, extra)
	return merged
}

// ValidationError aggregates every decode failure for one component.
type ValidationError struct {
	Component string
	Errs      []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Component, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() []error { return e.Errs }

// Decode validates cfg against opts and returns the decoded values keyed by
// option name. Keys in cfg that no decoder claims are rejected. All failures
// are collected before returning, so the error lists every invalid option.
func Decode(component string, cfg map[string]any, opts Options) (map[string]any, error) {
	var errs []error

	names := make([]string, 0, len(opts))
	for name := range opts {
		names = append(names, name)
	}
	sort.Strings(names)

	decoded := make(map[string]any, len(opts))
	for _, name := range names {
		raw, present := cfg[name]
		full := component + "." + name
		v, err := opts[name].Decode(full, raw, present)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		decoded[name] = v
	}

	unknown := make([]string, 0)
	for key := range cfg {
		if _, ok := opts[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		errs = append(errs, &option.DecodeError{
			Option: component + "." + key,
			Reason: "unrecognized option",
		})
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Component: component, Errs: errs}
	}
	return decoded, nil
}

// Overrides carries runtime flag values that take precedence over config
// file entries. A nil field means the flag was not explicitly set and the
// config value wins. Passed explicitly into spec construction; there is no
// ambient global flag state.
type Overrides struct {
	PlacementStyle *string
	Zone           *string
	Image          *string
	Username       *string
}

// ApplyBase writes the overrides shared by every resource kind into cfg.
// Kind-specific override application calls this first, then layers its own
// entries on top.
func (o Overrides) ApplyBase(cfg map[string]any) {
	if o.Zone != nil {
		cfg["zone"] = *o.Zone
	}
}

// GetString pulls a decoded string out of a Decode result. The bool reports
// whether the value was present and non-none.
func GetString(decoded map[string]any, name string) (string, bool) {
	v, ok := decoded[name]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt pulls a decoded integer out of a Decode result.
func GetInt(decoded map[string]any, name string) (int64, bool) {
	v, ok := decoded[name]
	if !ok || v == nil {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}

// GetBool pulls a decoded boolean out of a Decode result.
func GetBool(decoded map[string]any, name string) (bool, bool) {
	v, ok := decoded[name]
	if !ok || v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
