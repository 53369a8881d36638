package dedup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quotefast/resilience/internal/util"
)

// Key builds a business-meaningful cache key by joining parts with ':',
// e.g. Key("rates", "CA", 25, "fixed") == "rates:CA:25:fixed".
// Parts should be scalars (strings, numbers, booleans): their %v rendering
// is stable across calls, which maps and pointers do not guarantee.
func Key(parts ...any) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "%v", p)
	}
	return b.String()
}

// KeyForCall derives a key from a function identity plus its arguments:
// KeyForCall("fetchRates", "CA", 25) == "fetchRates:CA:25".
func KeyForCall(fn string, args ...any) string {
	if len(args) == 0 {
		return fn
	}
	return fn + ":" + Key(args...)
}

// KeyFromFields extracts a named subset of fields, in the given order, so
// that irrelevant fields don't fragment the key space:
// KeyFromFields("afford", m, "province", "income") == "afford:province=CA:income=90000".
// Missing fields render as an empty value, keeping the shape positional.
func KeyFromFields(prefix string, fields map[string]any, names ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, n := range names {
		b.WriteByte(':')
		b.WriteString(n)
		b.WriteByte('=')
		if v, ok := fields[n]; ok {
			fmt.Fprintf(&b, "%v", v)
		}
	}
	return b.String()
}

// HashKey digests an arbitrary key string into a short stable form
// (fnv64a, hex). Identical input always yields the identical digest, so
// it is safe to use when no explicit business key is available.
func HashKey(s string) string {
	return strconv.FormatUint(util.Fnv64a(s), 16)
}
