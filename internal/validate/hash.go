package validate

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// RowHash computes etl_row_hash (spec §4.3 step 4, §9 "Content hash
// algorithm"): canonicalize the coerced fields as a pipe-joined,
// lexicographically key-sorted "key=value" string (nulls as empty string),
// then take the low 32 bits of its xxhash64 digest. The pack carries no
// 32-bit xxhash implementation, so truncating the 64-bit digest is the
// closest grounded equivalent.
func RowHash(fields map[string]interface{}) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + canonicalValue(fields[k])
	}
	canonical := strings.Join(parts, "|")

	sum := xxhash.Sum64String(canonical)
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(sum))
	return out
}

func canonicalValue(v interface{}) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}
