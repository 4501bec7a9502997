package contract

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vittafit/contracts/internal/lifecycle"
	"github.com/vittafit/contracts/internal/model"
	"github.com/vittafit/contracts/internal/placeholder"
	"github.com/vittafit/contracts/internal/template"
)

var testNow = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func testCatalog() *placeholder.Catalog {
	return placeholder.NewCatalog([]placeholder.Definition{
		{Key: "{{aluno_nome}}", Required: true},
		{Key: "{{valor_total}}", Required: true},
		{Key: "{{aluno_email}}", Required: false},
	})
}

func testTemplate(body string) model.ContractTemplate {
	return model.ContractTemplate{ID: uuid.New(), Name: "Padrão", Body: body}
}

func fixedAllocator(t *testing.T) (NumberAllocator, *int) {
	t.Helper()
	calls := 0
	return func() (string, error) {
		calls++
		return "CTR-2026-000001", nil
	}, &calls
}

func generateInput(tpl model.ContractTemplate, data EntityData) GenerateInput {
	return GenerateInput{
		Template:  tpl,
		Data:      data,
		StudentID: uuid.New(),
		PlanID:    uuid.New(),
		StartAt:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndAt:     time.Date(2027, 8, 31, 0, 0, 0, 0, time.UTC),
		Now:       testNow,
	}
}

func TestGenerateRendersDraft(t *testing.T) {
	tpl := testTemplate("Hello {{aluno_nome}}, total {{valor_total}}")
	alloc, calls := fixedAllocator(t)

	c, warnings, err := Generate(testCatalog(), generateInput(tpl, EntityData{
		"aluno_nome":  "Ana",
		"valor_total": "R$ 100,00",
	}), alloc)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Hello Ana, total R$ 100,00", c.Body)
	assert.Equal(t, model.ContractStatusDraft, c.Status)
	assert.Equal(t, "CTR-2026-000001", c.Number)
	assert.Equal(t, tpl.ID, c.TemplateID)
	assert.Empty(t, warnings)
	assert.Equal(t, 1, *calls)
}

func TestGenerateMissingRequiredFails(t *testing.T) {
	tpl := testTemplate("Hello {{aluno_nome}}, total {{valor_total}}")
	alloc, calls := fixedAllocator(t)

	c, _, err := Generate(testCatalog(), generateInput(tpl, EntityData{
		"aluno_nome": "Ana",
	}), alloc)
	require.ErrorIs(t, err, ErrIncompleteContract)
	assert.Contains(t, err.Error(), "{{valor_total}}")
	assert.Nil(t, c)
	assert.Zero(t, *calls, "no number may be allocated for a failed generation")
}

func TestGenerateMissingOptionalIsWarningOnly(t *testing.T) {
	tpl := testTemplate("Contato: {{aluno_email}}")
	alloc, _ := fixedAllocator(t)

	c, warnings, err := Generate(testCatalog(), generateInput(tpl, EntityData{}), alloc)
	require.NoError(t, err)
	assert.Equal(t, "Contato: ", c.Body)
	require.Len(t, warnings, 1)
	assert.Equal(t, template.WarningMissingValue, warnings[0].Kind)
}

func TestGenerateReportsUnknownPlaceholders(t *testing.T) {
	tpl := testTemplate("Oi {{aluno_nome}} {{campo_misterioso}}")
	alloc, _ := fixedAllocator(t)

	c, warnings, err := Generate(testCatalog(), generateInput(tpl, EntityData{
		"aluno_nome": "Ana",
	}), alloc)
	require.NoError(t, err)
	assert.Equal(t, "Oi Ana {{campo_misterioso}}", c.Body)
	require.Len(t, warnings, 1)
	assert.Equal(t, template.WarningUnknownPlaceholder, warnings[0].Kind)
}

func TestRegenerateReplacesDraftSnapshot(t *testing.T) {
	catalog := testCatalog()
	tpl := testTemplate("Oi {{aluno_nome}}")
	alloc, _ := fixedAllocator(t)

	c, _, err := Generate(catalog, generateInput(tpl, EntityData{"aluno_nome": "Ana"}), alloc)
	require.NoError(t, err)
	number := c.Number

	updated := testTemplate("Olá {{aluno_nome}}!")
	_, err = Regenerate(catalog, c, updated, EntityData{"aluno_nome": "Ana Clara"}, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Olá Ana Clara!", c.Body)
	assert.Equal(t, updated.ID, c.TemplateID)
	assert.Equal(t, number, c.Number, "regeneration keeps the contract number")
}

func TestRegenerateOutsideDraftFails(t *testing.T) {
	catalog := testCatalog()
	tpl := testTemplate("Oi {{aluno_nome}}")

	for _, status := range []model.ContractStatus{
		model.ContractStatusSent,
		model.ContractStatusSigned,
		model.ContractStatusActive,
		model.ContractStatusExpired,
		model.ContractStatusCancelled,
	} {
		c := &model.Contract{ID: uuid.New(), Number: "CTR-2026-000009", Status: status, Body: "original"}
		_, err := Regenerate(catalog, c, tpl, EntityData{"aluno_nome": "Ana"}, testNow)
		require.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "status %s", status)
		assert.Equal(t, "original", c.Body)
	}
}

func TestRegenerateIncompleteKeepsSnapshot(t *testing.T) {
	catalog := testCatalog()
	c := &model.Contract{ID: uuid.New(), Status: model.ContractStatusDraft, Body: "original"}

	_, err := Regenerate(catalog, c, testTemplate("{{valor_total}}"), EntityData{}, testNow)
	require.ErrorIs(t, err, ErrIncompleteContract)
	assert.Equal(t, "original", c.Body)
}

func TestBuildValuesResolvesCatalogFields(t *testing.T) {
	values := BuildValues(testCatalog(), EntityData{
		"aluno_nome": "Ana",
		"ignorado":   "x",
	})
	assert.Equal(t, template.Values{"{{aluno_nome}}": "Ana"}, values)
}
