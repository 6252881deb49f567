package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFieldMapIsValid(t *testing.T) {
	fm := DefaultFieldMap()
	require.NoError(t, fm.Validate())
	assert.Equal(t, "raw_output", fm.RawOutputKey)
	assert.Equal(t, "raw_body", fm.RawBodyKey)
	assert.Equal(t, "Food Type", fm.Keys(FieldFoodType).Keys[0])
	assert.Equal(t, "foodType", fm.Keys(FieldFoodType).Nested)
}

func TestParseFieldMap(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
		check   func(t *testing.T, fm *FieldMap)
	}{
		{
			name: "empty document keeps defaults",
			doc:  "",
			check: func(t *testing.T, fm *FieldMap) {
				assert.Equal(t, DefaultFieldMap(), fm)
			},
		},
		{
			name: "override one field",
			doc: `
raw_output_key: payload
fields:
  event_name:
    keys: ["Event", "event"]
`,
			check: func(t *testing.T, fm *FieldMap) {
				assert.Equal(t, "payload", fm.RawOutputKey)
				assert.Equal(t, "raw_body", fm.RawBodyKey)
				assert.Equal(t, []string{"Event", "event"}, fm.Keys(FieldEventName).Keys)
				assert.Equal(t, DefaultFieldMap().Keys(FieldRestaurant), fm.Keys(FieldRestaurant))
			},
		},
		{
			name:    "field without keys",
			doc:     "fields:\n  restaurant:\n    default: x\n",
			wantErr: true,
		},
		{
			name:    "unknown attribute",
			doc:     "fields:\n  restaurant:\n    aliases: [a]\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			doc:     "fields: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, err := ParseFieldMap([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, fm)
		})
	}
}

func TestKeysOnNilMap(t *testing.T) {
	var fm *FieldMap
	assert.Empty(t, fm.Keys(FieldOutput).Keys)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"FOOD_TYPE_DEFAULT", "RATING_PLACEHOLDER", "LOOSE_KEY_MATCH", "FIELD_MAP_FILE", "FIELD_MAP_S3_BUCKET"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Local Cuisine", cfg.FoodTypeDefault)
	assert.Equal(t, "Not specified", cfg.RatingPlaceholder)
	assert.True(t, cfg.LooseKeyMatch)
	assert.False(t, cfg.FieldMapFromS3())
}
