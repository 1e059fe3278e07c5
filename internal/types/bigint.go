package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// BigInt is an int64 column value that marshals to a JSON string so that
// values beyond the JS safe-integer range survive the wire unchanged.
// It unmarshals from either a JSON number or a JSON string.
type BigInt int64

// UnmarshalJSON implements the json.Unmarshaler interface.
func (b *BigInt) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = BigInt(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		val, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("BigInt: invalid int64 string %q: %w", s, err)
		}
		*b = BigInt(val)
		return nil
	}

	return fmt.Errorf("BigInt: unexpected type, expected number or string")
}

// MarshalJSON implements the json.Marshaler interface.
func (b BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(b), 10))
}

// Int64 converts BigInt back to int64.
func (b BigInt) Int64() int64 {
	return int64(b)
}
