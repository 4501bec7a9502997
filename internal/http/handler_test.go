package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vittafit/contracts/internal/auth"
	"github.com/vittafit/contracts/internal/config"
	"github.com/vittafit/contracts/internal/excel"
	"github.com/vittafit/contracts/internal/http/middleware"
	"github.com/vittafit/contracts/internal/model"
	"github.com/vittafit/contracts/internal/pdf"
	"github.com/vittafit/contracts/internal/placeholder"
	"github.com/vittafit/contracts/internal/repository"
	"github.com/vittafit/contracts/internal/service"
)

const testSecret = "test-secret"

type serverEnv struct {
	router   *gin.Engine
	token    string
	student  *model.Student
	plan     *model.Plan
	template *model.ContractTemplate
}

func setupServer(t *testing.T) *serverEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&model.Student{},
		&model.Plan{},
		&model.ContractTemplate{},
		&model.Contract{},
		&model.StatusChange{},
		&model.ContractCounter{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	student := &model.Student{ID: uuid.New(), FullName: "Ana Souza", CPF: "123.456.789-00"}
	plan := &model.Plan{ID: uuid.New(), Name: "Plano Anual", MonthlyPriceCents: 12000, DurationMonths: 12, DueDay: 10}
	tpl := &model.ContractTemplate{
		ID:   uuid.New(),
		Name: "Padrão",
		Body: "<p>Contrato de {{aluno_nome}}, total {{valor_total}}</p>",
	}
	for _, seed := range []interface{}{student, plan, tpl} {
		if err := db.Create(seed).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cfg := &config.Config{
		Environment: "test",
		Contracts:   config.ContractsConfig{NumberPrefix: "CTR"},
		Gym:         config.GymConfig{Name: "VittaFit Academia"},
	}
	log := zerolog.Nop()
	catalog := placeholder.Default()
	contractRepo := repository.NewContractRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	contractService := service.NewContractService(contractRepo, templateRepo, catalog, pdf.NewGenerator(), excel.NewGenerator(), cfg, log)
	templateService := service.NewTemplateService(templateRepo, catalog, log)

	handler := NewHandler(contractService, templateService, log)
	authMiddleware := middleware.Auth(auth.NewParser(testSecret))
	router := NewRouter(handler, authMiddleware, "test")

	return &serverEnv{
		router:   router,
		token:    signToken(t, "STAFF"),
		student:  student,
		plan:     plan,
		template: tpl,
	}
}

func signToken(t *testing.T, role string) string {
	t.Helper()
	claims := auth.Claims{
		UserID: uuid.New().String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (e *serverEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodGet, "/contracts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/contracts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthIsPublic(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateAndSignContractOverHTTP(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/contracts", env.token, gin.H{
		"template_id": env.template.ID.String(),
		"student_id":  env.student.ID.String(),
		"plan_id":     env.plan.ID.String(),
		"start_at":    "2026-09-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Contract struct {
			ID     string `json:"id"`
			Number string `json:"number"`
			Status string `json:"status"`
			Body   string `json:"body"`
		} `json:"contract"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "DRAFT", created.Contract.Status)
	assert.Regexp(t, `^CTR-\d{4}-000001$`, created.Contract.Number)
	assert.Contains(t, created.Contract.Body, "Ana Souza")

	rec = env.do(t, http.MethodPost, "/contracts/"+created.Contract.ID+"/sign", env.token, gin.H{
		"signature_ref": "sig-image-7",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var signed struct {
		Status       string  `json:"status"`
		SignatureRef *string `json:"signature_ref"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signed))
	assert.Equal(t, "SIGNED", signed.Status)
	require.NotNil(t, signed.SignatureRef)
	assert.Equal(t, "sig-image-7", *signed.SignatureRef)
}

func TestSignWithoutReferenceIsBadRequest(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/contracts/"+uuid.New().String()+"/sign", env.token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidTransitionIsConflict(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/contracts", env.token, gin.H{
		"template_id": env.template.ID.String(),
		"student_id":  env.student.ID.String(),
		"plan_id":     env.plan.ID.String(),
		"start_at":    "2026-09-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Contract struct {
			ID string `json:"id"`
		} `json:"contract"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, http.MethodPost, "/contracts/"+created.Contract.ID+"/cancel", env.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/contracts/"+created.Contract.ID+"/send", env.token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestNonStaffRoleIsForbidden(t *testing.T) {
	env := setupServer(t)
	memberToken := signToken(t, "STUDENT")

	rec := env.do(t, http.MethodPost, "/templates", memberToken, gin.H{
		"name": "Novo",
		"body": "<p>corpo</p>",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInsertUnknownPlaceholderIsUnprocessable(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/templates/"+env.template.ID.String()+"/placeholders", env.token, gin.H{
		"cursor": 0,
		"key":    "campo_misterioso",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
