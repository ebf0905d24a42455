package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type workspaceOut struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func TestExtractObjectPlainJSON(t *testing.T) {
	var out workspaceOut
	err := ExtractObject(`{"name": "Acme", "slug": "acme"}`, &out)
	require.NoError(t, err)
	require.Equal(t, "Acme", out.Name)
	require.Equal(t, "acme", out.Slug)
}

func TestExtractObjectStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"name\": \"Acme\", \"slug\": \"acme\"}\n```"

	var out workspaceOut
	require.NoError(t, ExtractObject(raw, &out))
	require.Equal(t, "acme", out.Slug)
}

func TestExtractObjectFromSurroundingText(t *testing.T) {
	raw := "Here is the workspace you asked for:\n{\"name\": \"Acme\", \"slug\": \"acme\"}\nLet me know if you need more."

	var out workspaceOut
	require.NoError(t, ExtractObject(raw, &out))
	require.Equal(t, "Acme", out.Name)
}

func TestExtractArray(t *testing.T) {
	raw := "```\n[{\"name\": \"Sprint 1\"}, {\"name\": \"Sprint 2\"}]\n```"

	var out []map[string]any
	require.NoError(t, ExtractArray(raw, &out))
	require.Len(t, out, 2)
	require.Equal(t, "Sprint 2", out[1]["name"])
}

func TestExtractObjectMalformed(t *testing.T) {
	var out workspaceOut
	err := ExtractObject("the model refused to answer", &out)
	require.Error(t, err)

	var malformed *MalformedOutputError
	require.True(t, errors.As(err, &malformed))
	require.Contains(t, malformed.Raw, "refused")
}

func TestExtractObjectTruncatedJSON(t *testing.T) {
	var out workspaceOut
	err := ExtractObject(`{"name": "Acme", "slug":`, &out)

	var malformed *MalformedOutputError
	require.True(t, errors.As(err, &malformed))
}

func TestStripFencesIdempotent(t *testing.T) {
	raw := "```json\n{\"a\": 1}\n```"
	once := StripFences(raw)
	require.Equal(t, once, StripFences(once))
	require.Equal(t, `{"a": 1}`, once)
}
