package jsonutil

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is used for DATE columns; everything else temporal is RFC 3339.
const DateLayout = "2006-01-02"

// SafeValue converts a raw driver value into a JSON-safe scalar: decimals and
// big numbers become float64 (or int64 when integral and in range), times
// become ISO-8601 strings, byte slices become strings. NaN and infinities,
// which encoding/json rejects, become nil.
func SafeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, int64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return uintValue(uint64(x))
	case uint64:
		return uintValue(x)
	case float32:
		return finite(float64(x))
	case float64:
		return finite(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.Format(time.RFC3339Nano)
	case []byte:
		if utf8.Valid(x) {
			return string(x)
		}
		return nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return finite(f)
		}
		return x.String()
	case *big.Float:
		if x == nil {
			return nil
		}
		f, _ := x.Float64()
		return finite(f)
	case *big.Rat:
		if x == nil {
			return nil
		}
		f, _ := x.Float64()
		return finite(f)
	case *big.Int:
		if x == nil {
			return nil
		}
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return finite(f)
	case driver.Valuer:
		// sql.Null* and pgtype values
		inner, err := x.Value()
		if err != nil {
			return nil
		}
		return SafeValue(inner)
	}
	return v
}

// SafeColumnValue is SafeValue with the declared database type taken into
// account: drivers hand fixed-point decimals back as text, and DATE columns
// come back as midnight timestamps.
func SafeColumnValue(v any, databaseType string) any {
	typ := strings.ToUpper(databaseType)
	switch {
	case isDecimalType(typ):
		return DecimalToFloat(v)
	case typ == "DATE":
		switch t := v.(type) {
		case time.Time:
			return t.Format(DateLayout)
		case *time.Time:
			if t != nil {
				return t.Format(DateLayout)
			}
		}
	}
	return SafeValue(v)
}

// DecimalToFloat parses textual decimals into float64. Non-decimal input is
// passed through SafeValue unchanged.
func DecimalToFloat(v any) any {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return SafeValue(v)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return s
	}
	return finite(f)
}

func isDecimalType(typ string) bool {
	switch typ {
	case "FIXED", "NUMBER", "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}

func uintValue(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
