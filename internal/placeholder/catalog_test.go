package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogDescribe(t *testing.T) {
	catalog := Default()

	def, err := catalog.Describe("{{aluno_nome}}")
	require.NoError(t, err)
	assert.True(t, def.Required)
	assert.Equal(t, "Nome completo do aluno", def.Description)

	def, err = catalog.Describe("{{aluno_email}}")
	require.NoError(t, err)
	assert.False(t, def.Required)
}

func TestCatalogUnknownKey(t *testing.T) {
	catalog := Default()

	assert.False(t, catalog.IsRecognized("{{nope}}"))

	_, err := catalog.Describe("{{nope}}")
	require.ErrorIs(t, err, ErrUnknownPlaceholder)
	assert.Contains(t, err.Error(), "{{nope}}")
}

func TestCatalogKeysKeepDeclarationOrder(t *testing.T) {
	catalog := NewCatalog([]Definition{
		{Key: "{{b}}", Required: true},
		{Key: "{{a}}"},
		{Key: "{{b}}", Description: "duplicate, ignored"},
	})

	assert.Equal(t, []Key{"{{b}}", "{{a}}"}, catalog.Keys())

	def, err := catalog.Describe("{{b}}")
	require.NoError(t, err)
	assert.Empty(t, def.Description)
}

func TestKeyName(t *testing.T) {
	assert.Equal(t, "aluno_nome", Key("{{aluno_nome}}").Name())
}

func TestSampleValuesCoverEveryKey(t *testing.T) {
	catalog := Default()
	samples := catalog.SampleValues()
	for _, key := range catalog.Keys() {
		assert.Contains(t, samples, key)
	}
}
