package reqctx

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
)

// Props is a mapping from string keys to JSON-serializable values. The
// top-level value passed to Request/Set must be an object (map), matching
// the data model in spec.md §3.
type Props map[string]interface{}

// CleanUndefined returns a deep copy of props with every key whose value is
// Go's absence-equivalent (nil) removed from maps, recursing through nested
// maps and slices. Slices preserve index positions — only object keys are
// ever dropped, an element of a slice that is nil stays nil in place.
//
// JavaScript's `undefined` has no runtime equivalent in Go; by convention
// models that want "this key is absent" pass a Go nil for that key's value,
// and CleanUndefined strips those keys exactly as the source strips
// undefined-valued keys.
func CleanUndefined(props Props) Props {
	if props == nil {
		return Props{}
	}
	out := make(Props, len(props))
	for k, v := range props {
		if v == nil {
			continue
		}
		out[k] = cleanValue(v)
	}
	return out
}

func cleanValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Props:
		return CleanUndefined(t)
	case map[string]interface{}:
		return CleanUndefined(Props(t))
	case []interface{}:
		cleaned := make([]interface{}, len(t))
		for i, e := range t {
			if e == nil {
				cleaned[i] = nil
				continue
			}
			cleaned[i] = cleanValue(e)
		}
		return cleaned
	default:
		return v
	}
}

// Sign produces a deterministic, canonical string encoding of props: keys
// are sorted lexicographically and, for each key, either the stringified
// primitive or the recursive sign of a nested object is appended. Two props
// values that are deep-equal after CleanUndefined produce identical signs.
//
// Repeated object identities encountered while recursing are skipped on
// re-encounter, guarding against cycles the way the source implementation
// does (Go maps/slices can participate in reference cycles via pointers or
// interface wrapping, though plain JSON-shaped Props rarely do).
func Sign(props Props) string {
	seen := make(map[uintptr]bool)
	return signValue(CleanUndefined(props), seen)
}

func signValue(v interface{}, seen map[uintptr]bool) string {
	switch t := v.(type) {
	case Props:
		return signObject(t, seen)
	case map[string]interface{}:
		return signObject(Props(t), seen)
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = signValue(e, seen)
		}
		return "[" + join(parts, ",") + "]"
	case nil:
		return "null"
	case string:
		return url.QueryEscape(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return url.QueryEscape(fmt.Sprintf("%v", t))
	}
}

func signObject(obj Props, seen map[uintptr]bool) string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		val := obj[k]
		if ptr, ok := identity(val); ok {
			if seen[ptr] {
				continue
			}
			seen[ptr] = true
		}
		parts = append(parts, url.QueryEscape(k)+"="+signValue(val, seen))
	}
	return join(parts, "&")
}

// identity returns a stable pointer identity for map values so
// repeated-object cycles can be detected; slices and scalars get no
// identity and are never skipped.
func identity(v interface{}) (uintptr, bool) {
	switch t := v.(type) {
	case Props:
		return mapIdentity(t), true
	case map[string]interface{}:
		return mapIdentity(t), true
	}
	return 0, false
}

func mapIdentity(m interface{}) uintptr {
	return reflect.ValueOf(m).Pointer()
}

func join(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += sep + p
	}
	return out
}

// Key computes the memoization/cache key "displayName;sign(props)" shared
// by the models layer and the cache layer.
func Key(displayName string, props Props) string {
	return displayName + ";" + Sign(props)
}
