package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataReader(t *testing.T) {
	md := map[string]any{
		"name": "  Ana  ",
		"role": "officer",
		"app_metadata": map[string]any{
			"roles": []any{42, "", "admin"},
		},
	}

	d := DefaultMetadataReader()
	assert.Equal(t, "Ana", d.Name(md))
	assert.Equal(t, "officer", d.Role(md))
	assert.Equal(t, "", d.Name(nil))

	custom, err := NewMetadataReader("profile.display", "app_metadata.roles")
	require.NoError(t, err)
	assert.Equal(t, "", custom.Name(md))
	assert.Equal(t, "admin", custom.Role(md))
}

func TestNewMetadataReader_InvalidExpression(t *testing.T) {
	_, err := NewMetadataReader("name[", "role")
	require.Error(t, err)
	_, err = NewMetadataReader("name", "role..x")
	require.Error(t, err)
}
