package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeID turns a platform identifier into the string form used as a
// collection key. Every lookup and insert goes through it.
func NormalizeID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case int:
		return strconv.FormatInt(int64(id), 10)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case uint32:
		return strconv.FormatUint(uint64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case float64:
		if id == math.Trunc(id) && !math.IsInf(id, 0) {
			return strconv.FormatFloat(id, 'f', 0, 64)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		if n, err := id.Int64(); err == nil {
			return strconv.FormatInt(n, 10)
		}
		return id.String()
	case fmt.Stringer:
		return strings.TrimSpace(id.String())
	default:
		return strings.TrimSpace(fmt.Sprint(id))
	}
}

// LIDSuffix marks user ids that are linked identities rather than phone
// numbers.
const LIDSuffix = "@lid"

// RefKind tells how a user reference in a command argument should be matched.
type RefKind int

const (
	RefInvalid RefKind = iota
	RefID
	RefUsername
	RefPhone
)

// ParseUserRef classifies a user reference: a numeric id (optionally
// negative), a linked id "<digits>@lid", "@username", or "+phone".
func ParseUserRef(ref string) (RefKind, string) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return RefInvalid, ""
	case strings.HasPrefix(ref, "@"):
		name := strings.TrimPrefix(ref, "@")
		if name == "" {
			return RefInvalid, ""
		}
		return RefUsername, name
	case strings.HasPrefix(ref, "+"):
		digits := strings.TrimPrefix(ref, "+")
		if !isDigits(digits) {
			return RefInvalid, ""
		}
		return RefPhone, digits
	case isDigits(strings.TrimPrefix(ref, "-")):
		return RefID, ref
	case strings.HasSuffix(ref, LIDSuffix) && isDigits(strings.TrimSuffix(ref, LIDSuffix)):
		return RefID, ref
	}
	return RefInvalid, ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
