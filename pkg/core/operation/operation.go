/*
Package operation contains the tags naming which class of external data a query
requests.

The tag space is open: the bridge stores and passes through any Code, only the
oracle worker needs to know how to serve it.
*/
package operation

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Code is an operation tag.
type Code byte

// Known operation codes.
const (
	GetAlerts Code = iota
	GetCountries
	GetForecasts
	GetLightningSummary
	GetObservations
	GetPhrasesSummary
	GetPlacesPostalcodes
	GetSunmoonMoonphases
	GetSunmoon
)

var names = []string{
	GetAlerts:            "getAlerts",
	GetCountries:         "getCountries",
	GetForecasts:         "getForecasts",
	GetLightningSummary:  "getLightningSummary",
	GetObservations:      "getObservations",
	GetPhrasesSummary:    "getPhrasesSummary",
	GetPlacesPostalcodes: "getPlacesPostalcodes",
	GetSunmoonMoonphases: "getSunmoonMoonphases",
	GetSunmoon:           "getSunmoon",
}

// Known returns all known operation codes in ascending order.
func Known() []Code {
	res := make([]Code, len(names))
	for i := range names {
		res[i] = Code(i)
	}
	return res
}

// IsKnown tells whether c is one of the predefined operations.
func (c Code) IsKnown() bool {
	return int(c) < len(names)
}

// String implements the fmt.Stringer interface. Unknown codes are printed
// as numbers.
func (c Code) String() string {
	if c.IsKnown() {
		return names[c]
	}
	return "op#" + strconv.Itoa(int(c))
}

// FromString converts an operation name (or a decimal number) to Code.
func FromString(s string) (Code, error) {
	for i := range names {
		if names[i] == s {
			return Code(i), nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown operation %q", s)
	}
	return Code(n), nil
}

// MarshalJSON implements the json.Marshaler interface. Codes are always
// marshalled as numbers.
func (c Code) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(c))), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface, it accepts both
// numbers and operation names.
func (c *Code) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		code, err := FromString(s)
		if err != nil {
			return err
		}
		*c = code
		return nil
	}
	var n uint8
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid operation code: %w", err)
	}
	*c = Code(n)
	return nil
}
