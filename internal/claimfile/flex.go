package claimfile

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// flexInt decodes an integer that may arrive as a JSON number, a float, a
// numeric string, or null. Unparseable values decode to zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(int(v))
	return nil
}

// flexMoney decodes a dollar amount (JSON number or string, with optional
// "$" and thousands separators) into int64 cents. Uses math.Round to avoid
// truncation bias. Unparseable values decode to zero.
type flexMoney int64

func (f *flexMoney) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexMoney(int64(math.Round(v * 100)))
	return nil
}

// DollarsToCents converts a decimal dollar string to int64 cents.
func DollarsToCents(s string) (int64, bool) {
	s = strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(s), "$"), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(v * 100)), true
}

// CentsToDollars formats int64 cents as a plain decimal string for messages.
func CentsToDollars(cents int64) string {
	return strconv.FormatFloat(float64(cents)/100, 'f', 2, 64)
}
