package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchemaStrictness(t *testing.T) {
	t.Parallel()

	type inner struct {
		Label string `json:"label"`
	}
	type sample struct {
		Title string  `json:"title"`
		Parts []inner `json:"parts"`
	}

	schema := GenerateSchema[sample]()

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])

	required, ok := schema["required"].([]string)
	require.True(t, ok, "required should be a []string, got %T", schema["required"])
	assert.ElementsMatch(t, []string{"title", "parts"}, required)

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)

	parts, ok := props["parts"].(map[string]interface{})
	require.True(t, ok)
	items, ok := parts["items"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, items["additionalProperties"])
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		err       error
		rateLimit bool
		server    bool
	}{
		{name: "nil", err: nil},
		{name: "status_429", err: errors.New("POST: 429 Too Many Requests"), rateLimit: true},
		{name: "rate_limit_text", err: errors.New("rate limit exceeded"), rateLimit: true},
		{name: "status_500", err: errors.New("500 Internal Server Error"), server: true},
		{name: "server_error_code", err: errors.New(`{"error": {"type": "server_error"}}`), server: true},
		{name: "auth", err: errors.New("401 Unauthorized")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.rateLimit, isRateLimitError(tc.err))
			assert.Equal(t, tc.server, isServerError(tc.err))
		})
	}
}
