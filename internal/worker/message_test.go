package worker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload([]byte(`{"text":"the text","message":"the reply","session":{"id":7}}`))
	require.NoError(t, err)
	assert.Equal(t, "the text", p.Text)
	assert.Equal(t, "the reply", p.Message)
}

func TestDecodePayload_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `hello`},
		{"array", `["text"]`},
		{"null", `null`},
		{"missing text", `{"message":"m"}`},
		{"missing message", `{"text":"t"}`},
		{"text not a string", `{"text":42,"message":"m"}`},
		{"message not a string", `{"text":"t","message":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePayload([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestPayloadEncode_AppendsAnnotationAndKeepsFields(t *testing.T) {
	p, err := DecodePayload([]byte(`{"text":"t","message":"reply","session":{"id":7}}`))
	require.NoError(t, err)

	body, err := p.Encode(" (checked)")
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "t", out["text"])
	assert.Equal(t, "reply (checked)", out["message"])
	assert.Equal(t, map[string]interface{}{"id": float64(7)}, out["session"])

	// encoding does not mutate the payload
	again, err := p.Encode("")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"t","message":"reply","session":{"id":7}}`, string(again))
}
