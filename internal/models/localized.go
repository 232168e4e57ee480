package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LocalizedName is a name field the NHL API sends either as a plain string
// or as {"default": "...", "fr": "..."}. Both decode to the default value.
type LocalizedName string

func (n *LocalizedName) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = LocalizedName(s)
		return nil
	}

	var obj struct {
		Default string `json:"default"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("localized name: %w", err)
	}
	*n = LocalizedName(obj.Default)
	return nil
}

func (n LocalizedName) String() string { return string(n) }

// Flag decodes booleans the stats API sends as true/false or 0/1
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return fmt.Errorf("invalid flag %s", data)
	}
	return nil
}
