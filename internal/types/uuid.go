package types

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_PAYMENT   = "pay"
	UUID_PREFIX_DUE_ALERT = "alrt"
	UUID_PREFIX_REQUEST   = "req"
)

// GenerateUUID returns a lowercase ULID
func GenerateUUID() string {
	return strings.ToLower(ulid.Make().String())
}

// GenerateUUIDWithPrefix returns prefix_<ulid>, e.g. pay_01hx...
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
