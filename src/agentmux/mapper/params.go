package mapper

import (
	"encoding/json"
	"strconv"

	"github.com/agentmux/agentmux/src/agentmux/internal/errors"
	"github.com/tidwall/gjson"
)

// field returns the value stored under key when params is an object.
func field(params json.RawMessage, key string) (value gjson.Result, isObject bool) {
	root := gjson.ParseBytes(params)
	if !root.IsObject() {
		return gjson.Result{}, false
	}
	return root.Get(gjson.Escape(key)), true
}

// String returns a required string parameter.
func String(params json.RawMessage, key string) (string, error) {
	v, isObject := field(params, key)
	if !isObject {
		return "", &errors.ParamError{Key: key, Reason: errors.ParamMissing}
	}
	if v.Type != gjson.String {
		return "", &errors.ParamError{Key: key, Reason: errors.ParamMissingOrInvalid}
	}
	return v.Str, nil
}

// OptionalString returns the string under key, or false when it is absent or not a string.
func OptionalString(params json.RawMessage, key string) (string, bool) {
	v, _ := field(params, key)
	if v.Type != gjson.String {
		return "", false
	}
	return v.Str, true
}

// OptionalBool returns the boolean under key, or false when it is absent or not a boolean.
func OptionalBool(params json.RawMessage, key string) (value bool, ok bool) {
	v, _ := field(params, key)
	if !v.IsBool() {
		return false, false
	}
	return v.Bool(), true
}

// OptionalUint32 returns the unsigned integer under key. An absent key is not an error.
func OptionalUint32(params json.RawMessage, key string) (uint32, bool, error) {
	v, _ := field(params, key)
	if !v.Exists() {
		return 0, false, nil
	}
	if v.Type != gjson.Number {
		return 0, false, &errors.ParamError{Key: key, Reason: errors.ParamInvalid}
	}
	n, err := strconv.ParseUint(v.Raw, 10, 32)
	if err != nil {
		return 0, false, &errors.ParamError{Key: key, Reason: errors.ParamInvalid}
	}
	return uint32(n), true, nil
}

// OptionalStringArray returns the array of strings under key, or nil when absent.
func OptionalStringArray(params json.RawMessage, key string) ([]string, error) {
	v, _ := field(params, key)
	if !v.Exists() {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, &errors.ParamError{Key: key, Reason: errors.ParamInvalid}
	}
	items := v.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type != gjson.String {
			return nil, &errors.ParamError{Key: key, Reason: errors.ParamInvalid}
		}
		out = append(out, item.Str)
	}
	return out, nil
}

// StringArray is OptionalStringArray with the key required.
func StringArray(params json.RawMessage, key string) ([]string, error) {
	v, _ := field(params, key)
	if !v.Exists() {
		return nil, &errors.ParamError{Key: key, Reason: errors.ParamMissing}
	}
	return OptionalStringArray(params, key)
}

// OptionalValue returns the raw JSON under key, or nil when absent.
func OptionalValue(params json.RawMessage, key string) json.RawMessage {
	v, _ := field(params, key)
	if !v.Exists() {
		return nil
	}
	return json.RawMessage(v.Raw)
}

// AuthToken reads the token of an auth call: either a bare string or an object's token field.
func AuthToken(params json.RawMessage) (string, bool) {
	root := gjson.ParseBytes(params)
	switch {
	case root.Type == gjson.String:
		return root.Str, true
	case root.IsObject():
		return OptionalString(params, "token")
	default:
		return "", false
	}
}
