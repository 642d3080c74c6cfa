package cache

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UnmarshalCacheValue returns a cached value as *T. The in-memory cache hands back the stored
// pointer; redis hands back the JSON string written by Set.
func UnmarshalCacheValue[T any](value interface{}) (*T, bool) {
	switch v := value.(type) {
	case *T:
		return v, v != nil
	case string:
		var out T
		if err := json.UnmarshalFromString(v, &out); err != nil {
			return nil, false
		}
		return &out, true
	default:
		return nil, false
	}
}
