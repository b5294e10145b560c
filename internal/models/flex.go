package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString decodes a JSON string, number, or null into its string form.
// Upstream APIs are inconsistent about quoting years and identifiers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*f = FlexString(fmt.Sprint(b))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported value %s: %w", string(data), err)
		}
		*f = FlexString(n.String())
		return nil
	}
}

func (f FlexString) String() string {
	return string(f)
}
