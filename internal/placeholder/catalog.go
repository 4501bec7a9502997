package placeholder

import (
	"errors"
	"fmt"
	"strings"
)

// Key is the literal placeholder token as it appears in template text,
// braces included, e.g. "{{aluno_nome}}".
type Key string

// Name strips the surrounding braces, yielding the business field name
// the key resolves against.
func (k Key) Name() string {
	return strings.TrimSuffix(strings.TrimPrefix(string(k), "{{"), "}}")
}

type Definition struct {
	Key         Key
	Description string
	Required    bool
	Example     string
}

var ErrUnknownPlaceholder = errors.New("unknown placeholder")

// Catalog is a fixed table of recognized placeholders, initialized once
// at load time. There is no runtime mutation.
type Catalog struct {
	defs  map[Key]Definition
	order []Key
}

func NewCatalog(defs []Definition) *Catalog {
	c := &Catalog{defs: make(map[Key]Definition, len(defs))}
	for _, d := range defs {
		if _, ok := c.defs[d.Key]; ok {
			continue
		}
		c.defs[d.Key] = d
		c.order = append(c.order, d.Key)
	}
	return c
}

func (c *Catalog) IsRecognized(key Key) bool {
	_, ok := c.defs[key]
	return ok
}

func (c *Catalog) Describe(key Key) (Definition, error) {
	d, ok := c.defs[key]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownPlaceholder, key)
	}
	return d, nil
}

// Keys returns the catalog keys in declaration order.
func (c *Catalog) Keys() []Key {
	out := make([]Key, len(c.order))
	copy(out, c.order)
	return out
}

// SampleValues maps every key to its example text, for previews.
func (c *Catalog) SampleValues() map[Key]string {
	out := make(map[Key]string, len(c.order))
	for _, k := range c.order {
		out[k] = c.defs[k].Example
	}
	return out
}

// Default is the catalog for gym membership contracts. Values arrive
// already formatted (currency, dates) in the display locale.
func Default() *Catalog {
	return NewCatalog([]Definition{
		{Key: "{{aluno_nome}}", Description: "Nome completo do aluno", Required: true, Example: "Ana Souza"},
		{Key: "{{aluno_cpf}}", Description: "CPF do aluno", Required: true, Example: "123.456.789-00"},
		{Key: "{{aluno_email}}", Description: "E-mail do aluno", Required: false, Example: "ana@example.com"},
		{Key: "{{aluno_telefone}}", Description: "Telefone do aluno", Required: false, Example: "(11) 98765-4321"},
		{Key: "{{plano_nome}}", Description: "Nome do plano contratado", Required: true, Example: "Plano Anual"},
		{Key: "{{valor_mensalidade}}", Description: "Valor da mensalidade", Required: true, Example: "R$ 120,00"},
		{Key: "{{valor_total}}", Description: "Valor total do contrato", Required: true, Example: "R$ 1.440,00"},
		{Key: "{{data_inicio}}", Description: "Data de início da vigência", Required: true, Example: "01/09/2026"},
		{Key: "{{data_fim}}", Description: "Data de fim da vigência", Required: true, Example: "31/08/2027"},
		{Key: "{{dia_vencimento}}", Description: "Dia de vencimento da mensalidade", Required: true, Example: "10"},
		{Key: "{{data_contrato}}", Description: "Data de emissão do contrato", Required: false, Example: "28/08/2026"},
	})
}
