package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptySlicesEncodeAsArrays(t *testing.T) {
	data, err := json.Marshal(New(nil, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"links":[]}`, string(data))
}

func TestNew_KeepsElements(t *testing.T) {
	g := New([]any{map[string]any{"id": 1}}, []any{})
	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.Equal(t, `{"nodes":[{"id":1}],"links":[]}`, string(data))
}
