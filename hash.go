package drift

import (
	"fmt"

	xxhash "github.com/cespare/xxhash/v2"
)

// hashRow produces a stable, type-tagged hash of an arbitrary row value. The
// type tag keeps values of different dynamic types (say int(1) and "1") from
// colliding.
func hashRow(row Row) uint64 {
	h := xxhash.New()
	hashValue(h, row)
	return h.Sum64()
}

// hashValue writes a row into the digest. The engine's own composite shapes
// are hashed field by field, and every leaf rendering is length-prefixed, so
// two rows hash alike only when their structure and contents agree.
func hashValue(h *xxhash.Digest, v interface{}) {
	switch tv := v.(type) {
	case KeyValue:
		h.WriteString("kv\x1f")
		hashValue(h, tv.Key)
		hashValue(h, tv.Value)
	case Tuple:
		h.WriteString("tuple\x1f")
		hashValue(h, tv.Left)
		hashValue(h, tv.Right)
	case []Row:
		fmt.Fprintf(h, "rows\x1f%d\x1f", len(tv))
		for _, r := range tv {
			hashValue(h, r)
		}
	default:
		s := fmt.Sprintf("%v", v)
		fmt.Fprintf(h, "%T\x1f%d\x1f%s", v, len(s), s)
	}
}

// bucketFor maps a hash onto one of n target partitions
func bucketFor(hash uint64, n int) int {
	return int(hash % uint64(n))
}

// compareKeys orders two keys of the same kind, returning <0, 0 or >0.
// Supported kinds are the signed and unsigned integers, floats, strings and
// bools; mixed kinds are a shape error.
func compareKeys(op string, a, b Row) (int, error) {
	switch av := a.(type) {
	case int:
		if bv, ok := b.(int); ok {
			return cmpInt64(int64(av), int64(bv)), nil
		}
	case int8:
		if bv, ok := b.(int8); ok {
			return cmpInt64(int64(av), int64(bv)), nil
		}
	case int16:
		if bv, ok := b.(int16); ok {
			return cmpInt64(int64(av), int64(bv)), nil
		}
	case int32:
		if bv, ok := b.(int32); ok {
			return cmpInt64(int64(av), int64(bv)), nil
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmpInt64(av, bv), nil
		}
	case uint:
		if bv, ok := b.(uint); ok {
			return cmpUint64(uint64(av), uint64(bv)), nil
		}
	case uint8:
		if bv, ok := b.(uint8); ok {
			return cmpUint64(uint64(av), uint64(bv)), nil
		}
	case uint16:
		if bv, ok := b.(uint16); ok {
			return cmpUint64(uint64(av), uint64(bv)), nil
		}
	case uint32:
		if bv, ok := b.(uint32); ok {
			return cmpUint64(uint64(av), uint64(bv)), nil
		}
	case uint64:
		if bv, ok := b.(uint64); ok {
			return cmpUint64(av, bv), nil
		}
	case float32:
		if bv, ok := b.(float32); ok {
			return cmpFloat64(float64(av), float64(bv)), nil
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmpFloat64(av, bv), nil
		}
	case string:
		if bv, ok := b.(string); ok {
			if av < bv {
				return -1, nil
			} else if av > bv {
				return 1, nil
			}
			return 0, nil
		}
	case bool:
		if bv, ok := b.(bool); ok {
			if !av && bv {
				return -1, nil
			} else if av && !bv {
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, errTypeShape(op)
}

func cmpInt64(a, b int64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func cmpUint64(a, b uint64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func cmpFloat64(a, b float64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
