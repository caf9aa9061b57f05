package domain

import (
	"encoding/json"
	"strconv"
)

// FlexID is a channel or user id that browsers send either as a JSON
// string ("12") or as a bare number (12). Tree snapshots always emit
// strings, but older frontends echo numbers back.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// Uint32 parses the id as an upstream handle.
func (f FlexID) Uint32() (uint32, bool) {
	if f == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(string(f), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// Int parses the id as a plain integer, for port-like fields.
func (f FlexID) Int() (int, bool) {
	if f == "" {
		return 0, false
	}
	v, err := strconv.Atoi(string(f))
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatID renders an upstream handle the way tree snapshots do.
func FormatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
