package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vittafit/contracts/internal/contract"
	"github.com/vittafit/contracts/internal/http/middleware"
	"github.com/vittafit/contracts/internal/lifecycle"
	"github.com/vittafit/contracts/internal/model"
	"github.com/vittafit/contracts/internal/placeholder"
	"github.com/vittafit/contracts/internal/service"
	"github.com/vittafit/contracts/internal/template"
)

type Handler struct {
	contracts *service.ContractService
	templates *service.TemplateService
	log       zerolog.Logger
}

func NewHandler(contracts *service.ContractService, templates *service.TemplateService, log zerolog.Logger) *Handler {
	return &Handler{contracts: contracts, templates: templates, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.GET("/placeholders", h.listPlaceholders)

	protected.POST("/templates", h.createTemplate)
	protected.GET("/templates", h.listTemplates)
	protected.GET("/templates/:id", h.getTemplate)
	protected.PUT("/templates/:id", h.updateTemplate)
	protected.POST("/templates/:id/placeholders", h.insertPlaceholder)
	protected.POST("/templates/:id/preview", h.previewTemplate)

	protected.POST("/contracts", h.generateContract)
	protected.GET("/contracts", h.listContracts)
	protected.GET("/contracts/:id", h.getContract)
	protected.GET("/contracts/:id/history", h.contractHistory)
	protected.POST("/contracts/:id/regenerate", h.regenerateContract)
	protected.POST("/contracts/:id/send", h.sendContract)
	protected.POST("/contracts/:id/sign", h.signContract)
	protected.POST("/contracts/:id/cancel", h.cancelContract)
	protected.GET("/contracts/:id/pdf", h.exportContractPDF)
	protected.POST("/contracts/lifecycle/run", h.runLifecycleSweep)
	protected.POST("/contracts/export", h.exportContractsReport)
}

func (h *Handler) listPlaceholders(c *gin.Context) {
	defs := h.templates.Catalog()
	out := make([]gin.H, 0, len(defs))
	for _, def := range defs {
		out = append(out, gin.H{
			"key":         string(def.Key),
			"description": def.Description,
			"required":    def.Required,
			"example":     def.Example,
		})
	}
	c.JSON(http.StatusOK, gin.H{"placeholders": out})
}

type createTemplateRequest struct {
	Name string `json:"name" binding:"required"`
	Body string `json:"body"`
}

func (h *Handler) createTemplate(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := h.templates.Create(c.Request.Context(), service.CreateTemplateInput{
		Name:      req.Name,
		Body:      req.Body,
		Principal: principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, templateResponse(tpl))
}

func (h *Handler) listTemplates(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	out := make([]gin.H, 0, len(templates))
	for i := range templates {
		out = append(out, templateResponse(&templates[i]))
	}
	c.JSON(http.StatusOK, gin.H{"templates": out})
}

func (h *Handler) getTemplate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tpl, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, templateResponse(tpl))
}

type updateTemplateRequest struct {
	Body string `json:"body"`
}

func (h *Handler) updateTemplate(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := h.templates.UpdateBody(c.Request.Context(), id, req.Body, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, templateResponse(tpl))
}

type insertPlaceholderRequest struct {
	Cursor *int   `json:"cursor" binding:"required"`
	Key    string `json:"key" binding:"required"`
}

func (h *Handler) insertPlaceholder(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req insertPlaceholderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.templates.InsertPlaceholder(c.Request.Context(), service.InsertPlaceholderInput{
		TemplateID: id,
		Cursor:     *req.Cursor,
		Key:        req.Key,
		Principal:  principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"template": templateResponse(result.Template),
		"cursor":   result.Cursor,
	})
}

type previewTemplateRequest struct {
	Values map[string]string `json:"values"`
}

func (h *Handler) previewTemplate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	// An empty body previews with catalog samples only.
	var req previewTemplateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	result, err := h.templates.Preview(c.Request.Context(), id, req.Values)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"text":     result.Text,
		"warnings": warningsResponse(result.Warnings),
	})
}

type generateContractRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
	StudentID  string `json:"student_id" binding:"required"`
	PlanID     string `json:"plan_id" binding:"required"`
	StartAt    string `json:"start_at" binding:"required"`
	AutoRenew  bool   `json:"auto_renew"`
}

func (h *Handler) generateContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	var req generateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	templateID, err := uuid.Parse(strings.TrimSpace(req.TemplateID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template_id"})
		return
	}
	studentID, err := uuid.Parse(strings.TrimSpace(req.StudentID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student_id"})
		return
	}
	planID, err := uuid.Parse(strings.TrimSpace(req.PlanID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan_id"})
		return
	}
	startAt, err := parseDate(req.StartAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_at"})
		return
	}

	result, err := h.contracts.Generate(c.Request.Context(), service.GenerateContractInput{
		TemplateID: templateID,
		StudentID:  studentID,
		PlanID:     planID,
		StartAt:    startAt,
		AutoRenew:  req.AutoRenew,
		Principal:  principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"contract": contractResponse(result.Contract),
		"warnings": warningsResponse(result.Warnings),
	})
}

func (h *Handler) listContracts(c *gin.Context) {
	var status *model.ContractStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := parseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		status = &parsed
	}
	contracts, err := h.contracts.List(c.Request.Context(), status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	out := make([]gin.H, 0, len(contracts))
	for i := range contracts {
		out = append(out, contractResponse(&contracts[i]))
	}
	c.JSON(http.StatusOK, gin.H{"contracts": out})
}

func (h *Handler) getContract(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	found, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contractResponse(found))
}

func (h *Handler) contractHistory(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	changes, err := h.contracts.History(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	out := make([]gin.H, 0, len(changes))
	for _, change := range changes {
		out = append(out, gin.H{
			"contract_id": change.ContractID,
			"from":        change.FromStatus,
			"to":          change.ToStatus,
			"trigger":     change.Trigger,
			"occurred_at": change.OccurredAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

func (h *Handler) regenerateContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	result, err := h.contracts.Regenerate(c.Request.Context(), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"contract": contractResponse(result.Contract),
		"warnings": warningsResponse(result.Warnings),
	})
}

func (h *Handler) sendContract(c *gin.Context) {
	h.applyTransition(c, func(ctx *gin.Context, id uuid.UUID, principal model.Principal) (*model.Contract, error) {
		return h.contracts.Send(ctx.Request.Context(), id, principal)
	})
}

type signContractRequest struct {
	SignatureRef string `json:"signature_ref" binding:"required"`
}

func (h *Handler) signContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req signContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.contracts.Sign(c.Request.Context(), id, req.SignatureRef, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contractResponse(updated))
}

func (h *Handler) cancelContract(c *gin.Context) {
	h.applyTransition(c, func(ctx *gin.Context, id uuid.UUID, principal model.Principal) (*model.Contract, error) {
		return h.contracts.Cancel(ctx.Request.Context(), id, principal)
	})
}

func (h *Handler) applyTransition(c *gin.Context, apply func(*gin.Context, uuid.UUID, model.Principal) (*model.Contract, error)) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	updated, err := apply(c, id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contractResponse(updated))
}

func (h *Handler) runLifecycleSweep(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	result, err := h.contracts.RunLifecycleSweep(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activated": result.Activated,
		"renewed":   result.Renewed,
		"expired":   result.Expired,
	})
}

func (h *Handler) exportContractPDF(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	result, err := h.contracts.ExportPDF(c.Request.Context(), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

type exportContractsRequest struct {
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

func (h *Handler) exportContractsReport(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	var req exportContractsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	from, err := parseDate(req.PeriodStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
		return
	}
	to, err := parseDate(req.PeriodEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
		return
	}
	result, err := h.contracts.ExportReport(c.Request.Context(), from, to, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, template.ErrCursorOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, placeholder.ErrUnknownPlaceholder), errors.Is(err, contract.ErrIncompleteContract):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func templateResponse(tpl *model.ContractTemplate) gin.H {
	return gin.H{
		"id":         tpl.ID,
		"name":       tpl.Name,
		"body":       tpl.Body,
		"created_at": tpl.CreatedAt,
		"updated_at": tpl.UpdatedAt,
	}
}

func contractResponse(c *model.Contract) gin.H {
	return gin.H{
		"id":            c.ID,
		"number":        c.Number,
		"template_id":   c.TemplateID,
		"student_id":    c.StudentID,
		"plan_id":       c.PlanID,
		"status":        c.Status,
		"body":          c.Body,
		"signature_ref": c.SignatureRef,
		"auto_renew":    c.AutoRenew,
		"start_at":      c.StartAt,
		"end_at":        c.EndAt,
		"sent_at":       c.SentAt,
		"signed_at":     c.SignedAt,
		"activated_at":  c.ActivatedAt,
		"expired_at":    c.ExpiredAt,
		"cancelled_at":  c.CancelledAt,
		"created_at":    c.CreatedAt,
	}
}

func warningsResponse(warnings []template.Warning) []gin.H {
	out := make([]gin.H, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, gin.H{"kind": w.Kind, "key": w.Key})
	}
	return out
}

func parseID(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(c.Param("id")))
}

func parseStatus(raw string) (model.ContractStatus, error) {
	status := model.ContractStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case model.ContractStatusDraft, model.ContractStatusSent, model.ContractStatusSigned,
		model.ContractStatusActive, model.ContractStatusExpired, model.ContractStatusCancelled:
		return status, nil
	default:
		return "", service.ErrInvalidInput
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
