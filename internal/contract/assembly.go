// Package contract assembles draft contracts: it derives the ValueMap
// from business entity data, renders the template and snapshots the
// result onto a new Contract. Creation is all-or-nothing; a template
// with unresolved required placeholders never produces a contract.
package contract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vittafit/contracts/internal/lifecycle"
	"github.com/vittafit/contracts/internal/model"
	"github.com/vittafit/contracts/internal/placeholder"
	"github.com/vittafit/contracts/internal/template"
)

var ErrIncompleteContract = errors.New("incomplete contract")

// EntityData maps business field names (aluno_nome, valor_total, ...) to
// already-formatted display values. Formatting happens at the caller;
// values are spliced into the contract body verbatim.
type EntityData map[string]string

// NumberAllocator supplies a unique contract number. Uniqueness is the
// storage layer's problem (transactional counter, unique constraint);
// assembly only consumes the result.
type NumberAllocator func() (string, error)

type GenerateInput struct {
	Template  model.ContractTemplate
	Data      EntityData
	StudentID uuid.UUID
	PlanID    uuid.UUID
	StartAt   time.Time
	EndAt     time.Time
	AutoRenew bool
	Now       time.Time
}

// Generate renders the template against the entity data and returns a
// new draft contract holding the immutable rendered body. Unknown
// placeholders in the template are reported through the returned
// warnings without blocking; a missing value for a required placeholder
// fails with ErrIncompleteContract and creates nothing.
func Generate(catalog *placeholder.Catalog, in GenerateInput, alloc NumberAllocator) (*model.Contract, []template.Warning, error) {
	result, err := render(catalog, in.Template.Body, in.Data)
	if err != nil {
		return nil, result.Warnings, err
	}

	number, err := alloc()
	if err != nil {
		return nil, result.Warnings, fmt.Errorf("allocate contract number: %w", err)
	}

	c := &model.Contract{
		ID:         uuid.New(),
		Number:     number,
		TemplateID: in.Template.ID,
		StudentID:  in.StudentID,
		PlanID:     in.PlanID,
		Status:     model.ContractStatusDraft,
		Body:       result.Text,
		AutoRenew:  in.AutoRenew,
		StartAt:    in.StartAt,
		EndAt:      in.EndAt,
		CreatedAt:  in.Now,
		UpdatedAt:  in.Now,
	}
	return c, result.Warnings, nil
}

// Regenerate replaces the rendered snapshot of a draft. Any other status
// fails with ErrInvalidTransition; the existing snapshot is untouched on
// failure and the contract keeps its number either way.
func Regenerate(catalog *placeholder.Catalog, c *model.Contract, tpl model.ContractTemplate, data EntityData, now time.Time) ([]template.Warning, error) {
	if c.Status != model.ContractStatusDraft {
		return nil, fmt.Errorf("%w: regenerate requires %s, contract %s is %s",
			lifecycle.ErrInvalidTransition, model.ContractStatusDraft, c.Number, c.Status)
	}
	result, err := render(catalog, tpl.Body, data)
	if err != nil {
		return result.Warnings, err
	}
	c.TemplateID = tpl.ID
	c.Body = result.Text
	c.UpdatedAt = now
	return result.Warnings, nil
}

// BuildValues resolves every catalog placeholder against entity data.
// Fields absent from the data are simply not mapped; Render reports them.
func BuildValues(catalog *placeholder.Catalog, data EntityData) template.Values {
	values := template.Values{}
	for _, key := range catalog.Keys() {
		if v, ok := data[key.Name()]; ok {
			values[key] = v
		}
	}
	return values
}

func render(catalog *placeholder.Catalog, body string, data EntityData) (template.Result, error) {
	result := template.Render(catalog, body, BuildValues(catalog, data))

	var missing []string
	for _, w := range result.Warnings {
		if w.Kind != template.WarningMissingValue {
			continue
		}
		def, err := catalog.Describe(w.Key)
		if err != nil {
			continue
		}
		if def.Required {
			missing = append(missing, string(w.Key))
		}
	}
	if len(missing) > 0 {
		return result, fmt.Errorf("%w: missing required %s", ErrIncompleteContract, strings.Join(missing, ", "))
	}
	return result, nil
}
