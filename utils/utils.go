package utils

import (
	"strconv"
	"strings"

	"github.com/gofrs/uuid"
)

// Namespace scopes every id the lending pool derives.
var Namespace = uuid.NewV5(uuid.NamespaceOID, "alphalend")

// DeriveId returns a name based uuid of the parts in the given order. Each
// part is length prefixed, so ("ab", "c") and ("a", "bc") never meet.
func DeriveId(parts ...string) uuid.UUID {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return uuid.NewV5(Namespace, b.String())
}
