package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vittafit/contracts/internal/model"
	"github.com/vittafit/contracts/internal/placeholder"
	"github.com/vittafit/contracts/internal/repository"
	"github.com/vittafit/contracts/internal/template"
)

type TemplateService struct {
	repo      *repository.TemplateRepository
	catalog   *placeholder.Catalog
	sanitizer *bluemonday.Policy
	log       zerolog.Logger
}

func NewTemplateService(repo *repository.TemplateRepository, catalog *placeholder.Catalog, log zerolog.Logger) *TemplateService {
	return &TemplateService{
		repo:      repo,
		catalog:   catalog,
		sanitizer: bluemonday.UGCPolicy(),
		log:       log,
	}
}

type CreateTemplateInput struct {
	Name      string
	Body      string
	Principal model.Principal
}

func (s *TemplateService) Create(ctx context.Context, in CreateTemplateInput) (*model.ContractTemplate, error) {
	if !in.Principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	tpl := &model.ContractTemplate{
		ID:   uuid.New(),
		Name: name,
		Body: s.sanitizer.Sanitize(in.Body),
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, err
	}
	s.logUnknownKeys(tpl)
	return tpl, nil
}

func (s *TemplateService) Get(ctx context.Context, id uuid.UUID) (*model.ContractTemplate, error) {
	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return tpl, nil
}

func (s *TemplateService) List(ctx context.Context) ([]model.ContractTemplate, error) {
	return s.repo.List(ctx)
}

func (s *TemplateService) UpdateBody(ctx context.Context, id uuid.UUID, body string, principal model.Principal) (*model.ContractTemplate, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl.Body = s.sanitizer.Sanitize(body)
	if err := s.repo.Save(ctx, tpl); err != nil {
		return nil, err
	}
	s.logUnknownKeys(tpl)
	return tpl, nil
}

type InsertPlaceholderInput struct {
	TemplateID uuid.UUID
	Cursor     int
	Key        string
	Principal  model.Principal
}

type InsertPlaceholderResult struct {
	Template *model.ContractTemplate
	Cursor   int
}

// InsertPlaceholder splices a catalog key into the stored template body
// at the caller's cursor and persists the result. The new cursor sits
// right after the inserted token, ready for the next edit.
func (s *TemplateService) InsertPlaceholder(ctx context.Context, in InsertPlaceholderInput) (*InsertPlaceholderResult, error) {
	if !in.Principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	tpl, err := s.Get(ctx, in.TemplateID)
	if err != nil {
		return nil, err
	}

	body, cursor, err := template.InsertAt(s.catalog, tpl.Body, in.Cursor, normalizeKey(in.Key))
	if err != nil {
		return nil, err
	}
	tpl.Body = body
	if err := s.repo.Save(ctx, tpl); err != nil {
		return nil, err
	}
	return &InsertPlaceholderResult{Template: tpl, Cursor: cursor}, nil
}

type PreviewResult struct {
	Text     string
	Warnings []template.Warning
}

// Preview renders the template with caller values over catalog samples.
// Nothing is persisted.
func (s *TemplateService) Preview(ctx context.Context, id uuid.UUID, values map[string]string) (*PreviewResult, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	overrides := template.Values{}
	for key, value := range values {
		overrides[normalizeKey(key)] = value
	}
	result := template.Preview(s.catalog, tpl.Body, overrides)
	return &PreviewResult{Text: result.Text, Warnings: result.Warnings}, nil
}

// Catalog exposes the placeholder table for the authoring UI.
func (s *TemplateService) Catalog() []placeholder.Definition {
	defs := make([]placeholder.Definition, 0)
	for _, key := range s.catalog.Keys() {
		def, err := s.catalog.Describe(key)
		if err != nil {
			continue
		}
		defs = append(defs, def)
	}
	return defs
}

func (s *TemplateService) logUnknownKeys(tpl *model.ContractTemplate) {
	for _, key := range template.PlaceholderKeys(tpl.Body) {
		if !s.catalog.IsRecognized(key) {
			s.log.Warn().
				Str("template_id", tpl.ID.String()).
				Str("key", string(key)).
				Msg("template contains unrecognized placeholder")
		}
	}
}

// normalizeKey accepts both "{{aluno_nome}}" and the bare "aluno_nome".
func normalizeKey(raw string) placeholder.Key {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{{") {
		return placeholder.Key(raw)
	}
	return placeholder.Key("{{" + raw + "}}")
}
