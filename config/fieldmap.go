package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Logical field names of an invitation record.
const (
	FieldOutput           = "output"
	FieldFoodType         = "food_type"
	FieldFriendMessage    = "friend_message"
	FieldEventName        = "event_name"
	FieldRestaurant       = "restaurant"
	FieldDateTime         = "date_time"
	FieldComparisonMetric = "comparison_metric"
	FieldMaxWords         = "max_words"
	FieldRestaurantRating = "restaurant_rating"
	FieldEmails           = "emails"
)

// FieldKeys lists the candidate keys for one logical field, tried in order.
// Nested names the key inside the decoded raw_body object used when no
// candidate is present on the record itself.
type FieldKeys struct {
	Keys    []string `yaml:"keys" json:"keys"`
	Nested  string   `yaml:"nested,omitempty" json:"nested,omitempty"`
	Default string   `yaml:"default,omitempty" json:"default,omitempty"`
}

// FieldMap is the complete key configuration of the transform.
type FieldMap struct {
	RawOutputKey string               `yaml:"raw_output_key" json:"raw_output_key"`
	RawBodyKey   string               `yaml:"raw_body_key" json:"raw_body_key"`
	Fields       map[string]FieldKeys `yaml:"fields" json:"fields"`
}

// DefaultFieldMap returns the canonical fallback order: the platform's
// display labels first, then camelCase, snake_case and PascalCase.
func DefaultFieldMap() *FieldMap {
	return &FieldMap{
		RawOutputKey: "raw_output",
		RawBodyKey:   "raw_body",
		Fields: map[string]FieldKeys{
			FieldOutput:           {Keys: []string{"Output", "output"}, Nested: "output"},
			FieldFoodType:         {Keys: []string{"Food Type", "foodType", "food_type", "FoodType"}, Nested: "foodType"},
			FieldFriendMessage:    {Keys: []string{"Friend Message", "friendMessage", "friend_message", "FriendMessage"}, Nested: "friend_message"},
			FieldEventName:        {Keys: []string{"Event Name", "eventName", "event_name", "EventName"}},
			FieldRestaurant:       {Keys: []string{"Restaurant", "restaurant"}},
			FieldDateTime:         {Keys: []string{"Date Time", "dateTime", "date_time", "DateTime"}},
			FieldComparisonMetric: {Keys: []string{"Comparison Metric", "comparisonMetric", "comparison_metric"}},
			FieldMaxWords:         {Keys: []string{"Max Words", "maxWords", "max_words"}},
			FieldRestaurantRating: {Keys: []string{"Restaurant Rating", "restaurantRating", "restaurant_rating"}},
			FieldEmails:           {Keys: []string{"Emails", "emails"}},
		},
	}
}

// Keys returns the entry for a logical field, or an empty entry.
func (m *FieldMap) Keys(field string) FieldKeys {
	if m == nil {
		return FieldKeys{}
	}
	return m.Fields[field]
}

// Validate checks that every configured field has at least one candidate key.
func (m *FieldMap) Validate() error {
	if m.RawOutputKey == "" || m.RawBodyKey == "" {
		return errors.New("raw_output_key and raw_body_key must be set")
	}
	for name, fk := range m.Fields {
		if len(fk.Keys) == 0 {
			return fmt.Errorf("field %q has no candidate keys", name)
		}
	}
	return nil
}

// ParseFieldMap decodes a YAML override on top of the defaults. Fields
// present in the document replace the default entry as a whole.
func ParseFieldMap(data []byte) (*FieldMap, error) {
	var override FieldMap
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&override); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode field map: %w", err)
	}

	m := DefaultFieldMap()
	if override.RawOutputKey != "" {
		m.RawOutputKey = override.RawOutputKey
	}
	if override.RawBodyKey != "" {
		m.RawBodyKey = override.RawBodyKey
	}
	for name, fk := range override.Fields {
		m.Fields[name] = fk
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
