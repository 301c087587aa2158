package stores

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/sitesync/go-site-settings/subsystems"
)

var errNotAnObject = errors.New("value is not a JSON object")

func toValue[T any](item T) (ldvalue.Value, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return ldvalue.Null(), err
	}
	return ldvalue.Parse(data), nil
}

func fromValue[T any](value ldvalue.Value) (T, error) {
	var ret T
	if err := json.Unmarshal([]byte(value.JSONString()), &ret); err != nil {
		return ret, err
	}
	return ret, nil
}

// mergeOverDefaults copies every top-level property of stored over the corresponding property of
// defaults, so that properties added to the defaults after a value was stored still show up.
// Nested values are replaced, not merged.
func mergeOverDefaults(defaults, stored ldvalue.Value) (ldvalue.Value, error) {
	if stored.Type() != ldvalue.ObjectType {
		return defaults, errNotAnObject
	}
	b := ldvalue.ObjectBuildWithCapacity(defaults.Count() + stored.Count())
	for _, k := range defaults.Keys(nil) {
		b.Set(k, defaults.GetByKey(k))
	}
	for _, k := range stored.Keys(nil) {
		b.Set(k, stored.GetByKey(k))
	}
	return b.Build(), nil
}

// mergeAndDecode merges a stored value over the defaults and checks that the result still decodes
// into T.
func mergeAndDecode[T any](defaults T, stored ldvalue.Value, source string) (ldvalue.Value, T, error) {
	defaultValue, err := toValue(defaults)
	if err != nil {
		return ldvalue.Null(), defaults, err
	}
	merged, err := mergeOverDefaults(defaultValue, stored)
	if err != nil {
		return defaultValue, defaults, &subsystems.MalformedPayloadError{Source: source, Err: err}
	}
	item, err := fromValue[T](merged)
	if err != nil {
		return defaultValue, defaults, &subsystems.MalformedPayloadError{Source: source, Err: err}
	}
	return merged, item, nil
}

// degradedError describes a resolution that had to fall back to a snapshot or to the defaults.
type degradedError struct {
	store    string
	fallback string
	cause    error
}

func (e degradedError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s settings resolved from %s", e.store, e.fallback)
	}
	return fmt.Sprintf("%s settings resolved from %s: %s", e.store, e.fallback, e.cause)
}

func (e degradedError) Unwrap() error {
	return e.cause
}
