package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{
			name: "bare object",
			text: `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "object wrapped in prose and fences",
			text: "Вот результат:\n```json\n{\"a\": 1}\n```\nГотово.",
			want: `{"a": 1}`,
		},
		{
			name: "nested objects",
			text: `noise {"a": {"b": {"c": 1}}} trailing {"d": 2}`,
			want: `{"a": {"b": {"c": 1}}}`,
		},
		{
			name: "braces inside strings do not close the object",
			text: `{"step": "смешать {осторожно}", "n": 1}`,
			want: `{"step": "смешать {осторожно}", "n": 1}`,
		},
		{
			name: "escaped quote inside string",
			text: `{"a": "he said \"}\"", "b": 2}`,
			want: `{"a": "he said \"}\"", "b": 2}`,
		},
		{
			name:    "no object",
			text:    "plain text only",
			wantErr: true,
		},
		{
			name:    "unbalanced object",
			text:    `{"a": {"b": 1}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	var v map[string]interface{}
	assert.Error(t, ParseJSON(`{"a": 1}{"b": 2}`, &v))
	assert.NoError(t, ParseJSON(`{"a": 1}`, &v))
}
