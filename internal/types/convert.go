package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// numberValue keeps integral JSON numbers as int64 so IDs and counters
// survive a round trip without turning into floats.
func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}

// ToInt64 converts loosely typed IDs (JSON numbers, strings) into int64.
func ToInt64(v any) (int64, error) {
	return toInt64(v)
}
