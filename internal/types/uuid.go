package types

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID prefixes keep identifiers self-describing in logs and API payloads.
const (
	UUID_PREFIX_INVOICE        = "inv"
	UUID_PREFIX_DEPOSIT        = "dep"
	UUID_PREFIX_PAYMENT_METHOD = "pm"
	UUID_PREFIX_TENANT         = "ten"
	UUID_PREFIX_REQUEST        = "req"
)

// GenerateUUID returns a lowercase ULID. ULIDs sort lexicographically by
// creation time, which keeps index pages hot on append-heavy tables.
func GenerateUUID() string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String())
}

// GenerateUUIDWithPrefix returns a prefixed ULID, e.g. inv_01h2xcejq....
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
