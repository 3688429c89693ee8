package entities

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func marshalJSON(value interface{}) (datatypes.JSON, error) {
	if value == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(value)
	return datatypes.JSON(bytes), err
}

func unmarshalJSON(data datatypes.JSON, into interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, into)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
