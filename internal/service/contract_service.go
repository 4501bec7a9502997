package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vittafit/contracts/internal/config"
	"github.com/vittafit/contracts/internal/contract"
	"github.com/vittafit/contracts/internal/excel"
	"github.com/vittafit/contracts/internal/lifecycle"
	"github.com/vittafit/contracts/internal/model"
	"github.com/vittafit/contracts/internal/pdf"
	"github.com/vittafit/contracts/internal/placeholder"
	"github.com/vittafit/contracts/internal/repository"
	"github.com/vittafit/contracts/internal/template"
)

type PDFGenerator interface {
	Generate(doc pdf.ContractDocument) ([]byte, error)
}

type ReportGenerator interface {
	Generate(report excel.ContractsReport) ([]byte, error)
}

type ContractService struct {
	contracts *repository.ContractRepository
	templates *repository.TemplateRepository
	catalog   *placeholder.Catalog
	pdf       PDFGenerator
	reports   ReportGenerator
	stripper  *bluemonday.Policy
	cfg       *config.Config
	log       zerolog.Logger
	now       func() time.Time
}

func NewContractService(
	contracts *repository.ContractRepository,
	templates *repository.TemplateRepository,
	catalog *placeholder.Catalog,
	pdfGen PDFGenerator,
	reportGen ReportGenerator,
	cfg *config.Config,
	log zerolog.Logger,
) *ContractService {
	return &ContractService{
		contracts: contracts,
		templates: templates,
		catalog:   catalog,
		pdf:       pdfGen,
		reports:   reportGen,
		stripper:  bluemonday.StrictPolicy(),
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

type GenerateContractInput struct {
	TemplateID uuid.UUID
	StudentID  uuid.UUID
	PlanID     uuid.UUID
	StartAt    time.Time
	AutoRenew  bool
	Principal  model.Principal
}

type GenerateContractResult struct {
	Contract *model.Contract
	Warnings []template.Warning
}

// Generate creates a draft contract from a template and the student/plan
// records. The end date and total derive from the plan duration; every
// value is formatted here before it reaches the substitution engine.
func (s *ContractService) Generate(ctx context.Context, in GenerateContractInput) (*GenerateContractResult, error) {
	if !in.Principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	if in.TemplateID == uuid.Nil || in.StudentID == uuid.Nil || in.PlanID == uuid.Nil {
		return nil, fmt.Errorf("%w: template_id, student_id and plan_id are required", ErrInvalidInput)
	}
	if in.StartAt.IsZero() {
		return nil, fmt.Errorf("%w: start_at is required", ErrInvalidInput)
	}

	tpl, student, plan, err := s.loadParties(ctx, in.TemplateID, in.StudentID, in.PlanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	endAt := in.StartAt.AddDate(0, plan.DurationMonths, 0)
	data := s.entityData(student, plan, in.StartAt, endAt, now)

	generated, warnings, err := contract.Generate(s.catalog, contract.GenerateInput{
		Template:  *tpl,
		Data:      data,
		StudentID: student.ID,
		PlanID:    plan.ID,
		StartAt:   in.StartAt,
		EndAt:     endAt,
		AutoRenew: in.AutoRenew,
		Now:       now,
	}, func() (string, error) {
		return s.contracts.NextNumber(ctx, s.cfg.Contracts.NumberPrefix, now.Year())
	})
	if err != nil {
		return nil, err
	}

	if err := s.contracts.Create(ctx, generated); err != nil {
		return nil, err
	}
	s.logWarnings(generated.ID, warnings)
	s.log.Info().
		Str("contract_id", generated.ID.String()).
		Str("number", generated.Number).
		Msg("contract generated")
	return &GenerateContractResult{Contract: generated, Warnings: warnings}, nil
}

// Regenerate re-renders a draft against the current template text and
// entity records, replacing the snapshot. Only drafts may be regenerated.
func (s *ContractService) Regenerate(ctx context.Context, id uuid.UUID, principal model.Principal) (*GenerateContractResult, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl, student, plan, err := s.loadParties(ctx, c.TemplateID, c.StudentID, c.PlanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	data := s.entityData(student, plan, c.StartAt, c.EndAt, now)
	warnings, err := contract.Regenerate(s.catalog, c, *tpl, data, now)
	if err != nil {
		return nil, err
	}
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, err
	}
	s.logWarnings(c.ID, warnings)
	return &GenerateContractResult{Contract: c, Warnings: warnings}, nil
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	c, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ContractService) List(ctx context.Context, status *model.ContractStatus) ([]model.Contract, error) {
	return s.contracts.List(ctx, status)
}

func (s *ContractService) History(ctx context.Context, id uuid.UUID) ([]model.StatusChange, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.contracts.ListStatusHistory(ctx, id)
}

// Send moves a draft to SENT once no required placeholder is unresolved.
func (s *ContractService) Send(ctx context.Context, id uuid.UUID, principal model.Principal) (*model.Contract, error) {
	return s.transition(ctx, id, principal, lifecycle.TriggerSend, lifecycle.Input{})
}

// Sign captures the signature reference and moves the contract to
// SIGNED, from SENT or straight from DRAFT.
func (s *ContractService) Sign(ctx context.Context, id uuid.UUID, signatureRef string, principal model.Principal) (*model.Contract, error) {
	return s.transition(ctx, id, principal, lifecycle.TriggerSign, lifecycle.Input{SignatureRef: signatureRef})
}

func (s *ContractService) Cancel(ctx context.Context, id uuid.UUID, principal model.Principal) (*model.Contract, error) {
	return s.transition(ctx, id, principal, lifecycle.TriggerCancel, lifecycle.Input{})
}

func (s *ContractService) transition(ctx context.Context, id uuid.UUID, principal model.Principal, trigger lifecycle.Trigger, in lifecycle.Input) (*model.Contract, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.Now = s.now()
	in.UnresolvedRequired = s.unresolvedRequired(c.Body)

	event, err := lifecycle.Apply(c, trigger, in)
	if err != nil {
		return nil, err
	}
	if err := s.contracts.SaveWithEvent(ctx, c, event); err != nil {
		return nil, err
	}
	s.logEvent(event)
	return c, nil
}

type SweepResult struct {
	Activated int
	Renewed   int
	Expired   int
}

// RunLifecycleSweep applies the time-driven transitions: signed
// contracts whose start date arrived become active; active contracts
// past their end date renew (auto-renew set) or expire. Individual
// failures are logged and skipped so one bad row never stalls the sweep.
func (s *ContractService) RunLifecycleSweep(ctx context.Context, principal model.Principal) (*SweepResult, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	now := s.now()
	result := &SweepResult{}

	due, err := s.contracts.ListSignedDueForActivation(ctx, now)
	if err != nil {
		return nil, err
	}
	for i := range due {
		c := &due[i]
		if s.applyAndSave(ctx, c, lifecycle.TriggerActivate, lifecycle.Input{Now: now}) {
			result.Activated++
		}
	}

	past, err := s.contracts.ListActivePastEnd(ctx, now)
	if err != nil {
		return nil, err
	}
	for i := range past {
		c := &past[i]
		if !c.AutoRenew {
			if s.applyAndSave(ctx, c, lifecycle.TriggerExpire, lifecycle.Input{Now: now}) {
				result.Expired++
			}
			continue
		}
		plan, err := s.contracts.GetPlan(ctx, c.PlanID)
		if err != nil {
			s.log.Error().Err(err).Str("contract_id", c.ID.String()).Msg("sweep: load plan failed")
			continue
		}
		in := lifecycle.Input{Now: now, NewEndAt: c.EndAt.AddDate(0, plan.DurationMonths, 0)}
		if s.applyAndSave(ctx, c, lifecycle.TriggerRenew, in) {
			result.Renewed++
		}
	}
	return result, nil
}

func (s *ContractService) applyAndSave(ctx context.Context, c *model.Contract, trigger lifecycle.Trigger, in lifecycle.Input) bool {
	event, err := lifecycle.Apply(c, trigger, in)
	if err != nil {
		s.log.Warn().Err(err).Str("contract_id", c.ID.String()).Msg("sweep: transition skipped")
		return false
	}
	if err := s.contracts.SaveWithEvent(ctx, c, event); err != nil {
		s.log.Error().Err(err).Str("contract_id", c.ID.String()).Msg("sweep: save failed")
		return false
	}
	s.logEvent(event)
	return true
}

type ExportResult struct {
	FileName string
	Content  []byte
}

// ExportPDF renders the contract's immutable body into a printable PDF.
func (s *ContractService) ExportPDF(ctx context.Context, id uuid.UUID, principal model.Principal) (*ExportResult, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student, err := s.contracts.GetStudent(ctx, c.StudentID)
	if err != nil {
		return nil, s.mapLookupErr(err)
	}
	plan, err := s.contracts.GetPlan(ctx, c.PlanID)
	if err != nil {
		return nil, s.mapLookupErr(err)
	}

	bodyText := html.UnescapeString(s.stripper.Sanitize(c.Body))
	content, err := s.pdf.Generate(pdf.ContractDocument{
		Contract: *c,
		Student:  *student,
		Plan:     *plan,
		Gym:      s.cfg.Gym,
		BodyText: bodyText,
	})
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: fmt.Sprintf("contrato-%s.pdf", c.Number),
		Content:  content,
	}, nil
}

// ExportReport builds the admin XLSX of contracts created in a period.
func (s *ContractService) ExportReport(ctx context.Context, from, to time.Time, principal model.Principal) (*ExportResult, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: period dates are required", ErrInvalidInput)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: period start must not be after period end", ErrInvalidInput)
	}

	contracts, err := s.contracts.ListCreatedBetween(ctx, from, to.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	students := map[uuid.UUID]string{}
	plans := map[uuid.UUID]string{}
	rowsByStatus := map[model.ContractStatus][]excel.ContractRow{}
	for _, c := range contracts {
		studentName, ok := students[c.StudentID]
		if !ok {
			if student, err := s.contracts.GetStudent(ctx, c.StudentID); err == nil {
				studentName = student.FullName
			}
			students[c.StudentID] = studentName
		}
		planName, ok := plans[c.PlanID]
		if !ok {
			if plan, err := s.contracts.GetPlan(ctx, c.PlanID); err == nil {
				planName = plan.Name
			}
			plans[c.PlanID] = planName
		}
		rowsByStatus[c.Status] = append(rowsByStatus[c.Status], excel.ContractRow{
			Number:      c.Number,
			StudentName: studentName,
			PlanName:    planName,
			Status:      c.Status,
			StartAt:     c.StartAt,
			EndAt:       c.EndAt,
			SignedAt:    c.SignedAt,
		})
	}

	statusOrder := []model.ContractStatus{
		model.ContractStatusDraft,
		model.ContractStatusSent,
		model.ContractStatusSigned,
		model.ContractStatusActive,
		model.ContractStatusExpired,
		model.ContractStatusCancelled,
	}
	report := excel.ContractsReport{
		PeriodStart: from,
		PeriodEnd:   to,
		Total:       len(contracts),
	}
	for _, status := range statusOrder {
		if rows, ok := rowsByStatus[status]; ok {
			report.Groups = append(report.Groups, excel.StatusGroup{Status: status, Contracts: rows})
		}
	}

	content, err := s.reports.Generate(report)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: fmt.Sprintf("contratos-%s-%s.xlsx", from.Format("20060102"), to.Format("20060102")),
		Content:  content,
	}, nil
}

func (s *ContractService) loadParties(ctx context.Context, templateID, studentID, planID uuid.UUID) (*model.ContractTemplate, *model.Student, *model.Plan, error) {
	tpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, nil, nil, s.mapLookupErr(err)
	}
	student, err := s.contracts.GetStudent(ctx, studentID)
	if err != nil {
		return nil, nil, nil, s.mapLookupErr(err)
	}
	plan, err := s.contracts.GetPlan(ctx, planID)
	if err != nil {
		return nil, nil, nil, s.mapLookupErr(err)
	}
	return tpl, student, plan, nil
}

// entityData formats every business field the catalog can resolve.
// Optional fields with no data stay absent so rendering reports them.
func (s *ContractService) entityData(student *model.Student, plan *model.Plan, startAt, endAt, now time.Time) contract.EntityData {
	total := plan.MonthlyPriceCents * int64(plan.DurationMonths)
	data := contract.EntityData{
		"aluno_nome":        student.FullName,
		"aluno_cpf":         student.CPF,
		"plano_nome":        plan.Name,
		"valor_mensalidade": formatBRL(plan.MonthlyPriceCents),
		"valor_total":       formatBRL(total),
		"data_inicio":       formatDate(startAt),
		"data_fim":          formatDate(endAt),
		"dia_vencimento":    strconv.Itoa(plan.DueDay),
		"data_contrato":     formatDate(now),
	}
	if student.Email != "" {
		data["aluno_email"] = student.Email
	}
	if student.Phone != "" {
		data["aluno_telefone"] = student.Phone
	}
	return data
}

// unresolvedRequired scans a rendered body for leftover required
// placeholders, feeding the send/sign guard.
func (s *ContractService) unresolvedRequired(body string) []placeholder.Key {
	var unresolved []placeholder.Key
	for _, key := range template.PlaceholderKeys(body) {
		def, err := s.catalog.Describe(key)
		if err != nil {
			continue
		}
		if def.Required {
			unresolved = append(unresolved, key)
		}
	}
	return unresolved
}

func (s *ContractService) logWarnings(contractID uuid.UUID, warnings []template.Warning) {
	for _, w := range warnings {
		s.log.Warn().
			Str("contract_id", contractID.String()).
			Str("kind", string(w.Kind)).
			Str("key", string(w.Key)).
			Msg("render warning")
	}
}

func (s *ContractService) logEvent(event lifecycle.Event) {
	s.log.Info().
		Str("contract_id", event.ContractID.String()).
		Str("from", string(event.From)).
		Str("to", string(event.To)).
		Str("trigger", string(event.Trigger)).
		Time("at", event.Timestamp).
		Msg("contract status changed")
}

func (s *ContractService) mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
