package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	_, err := Compile("$.vct")
	assert.NoError(t, err)

	_, err = Compile("$[")
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	doc := map[string]any{
		"vct": "test-vct",
		"address": map[string]any{
			"locality": "Bern",
		},
		"nationalities": []any{"CH", "FR"},
	}

	t.Run("top level key", func(t *testing.T) {
		value, err := Get("$.vct", doc)
		require.NoError(t, err)
		assert.Equal(t, "test-vct", value)
	})

	t.Run("nested key", func(t *testing.T) {
		value, err := Get("$.address.locality", doc)
		require.NoError(t, err)
		assert.Equal(t, "Bern", value)
	})

	t.Run("array index", func(t *testing.T) {
		value, err := Get("$.nationalities[1]", doc)
		require.NoError(t, err)
		assert.Equal(t, "FR", value)
	})

	t.Run("absent path", func(t *testing.T) {
		_, err := Get("$.missing", doc)
		assert.Error(t, err)
	})
}
