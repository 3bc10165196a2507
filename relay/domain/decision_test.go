package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecision_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "reply and command", payload: `{"actions":[{"kind":"reply","content":"hi"},{"kind":"command","name":"purge","args":{"amount":"5"}}]}`},
		{name: "slash only command", payload: `{"actions":[{"kind":"command","slash":"/purge 5"}]}`},
		{name: "empty actions", payload: `{"actions":[]}`},
		{name: "unknown kind", payload: `{"actions":[{"kind":"dance"}]}`, wantErr: true},
		{name: "reply without content", payload: `{"actions":[{"kind":"reply"}]}`, wantErr: true},
		{name: "command without name or slash", payload: `{"actions":[{"kind":"command","args":{"a":"b"}}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decision
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &d))
			err := d.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStringArgs_FlattensJSONValues(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"Amount":5,"ratio":0.5,"silent":true,"user":"123","skip":null}`), &raw))

	args := StringArgs(raw)

	assert.Equal(t, "5", args.Get("amount"))
	assert.Equal(t, "0.5", args.Get("ratio"))
	assert.Equal(t, "true", args.Get("silent"))
	assert.Equal(t, "123", args.Get("user"))
	_, ok := args["skip"]
	assert.False(t, ok)

	n, ok := args.Int("amount")
	require.True(t, ok)
	assert.Equal(t, 5, n)

	_, ok = args.Int("ratio")
	assert.False(t, ok)
}
