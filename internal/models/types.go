package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StringList is a list of strings stored as a JSON array in a text column.
// It reads the same on postgres and sqlite.
type StringList []string

// Scan implements the sql.Scanner interface for reading from database
func (l *StringList) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}

	if len(raw) == 0 || string(raw) == "null" {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("invalid StringList value: %w", err)
	}
	*l = out
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// MarshalJSON renders a nil list as [] instead of null
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Money is a decimal(10,2) amount held as integer cents. On the wire it is
// a string with exactly two decimals ("19.99").
type Money int64

// MaxMoney is the largest value a decimal(10,2) column can hold.
const MaxMoney Money = 99999999_99

// ParseMoney parses "19.99", "19.9" or "19". More than two decimals, a sign,
// or a value above MaxMoney is rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("a valid number is required")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("a valid number is required")
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if (whole == "" && frac == "") || !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("a valid number is required")
	}
	if whole == "" {
		whole = "0"
	}
	if hasFrac && len(frac) > 2 {
		return 0, fmt.Errorf("ensure that there are no more than 2 decimal places")
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("a valid number is required")
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("a valid number is required")
	}
	if w > int64(MaxMoney/100) {
		return 0, fmt.Errorf("ensure that there are no more than 10 digits in total")
	}
	return Money(w*100 + f), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", int64(m)/100, int64(m)%100)
}

// Scan implements the sql.Scanner interface for reading from database
func (m *Money) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = 0
		return nil
	case int64:
		*m = Money(v * 100)
		return nil
	case float64:
		*m = Money(math.Round(v * 100))
		return nil
	case []byte:
		parsed, err := ParseMoney(string(v))
		*m = parsed
		return err
	case string:
		parsed, err := ParseMoney(v)
		*m = parsed
		return err
	}
	return fmt.Errorf("cannot scan %T into Money", value)
}

// Value implements the driver.Valuer interface for writing to database
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "19.99" and 19.99
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
