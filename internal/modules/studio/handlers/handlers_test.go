package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/appconfig"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/audit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/auth"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/imagegen"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/jobs"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/payment"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/models"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/repositories"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/services"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type imageOnly struct{}

func (imageOnly) Name() string { return "fake" }

func (imageOnly) Supports(mediaType, _ string) bool { return mediaType == imagegen.MediaImage }

func (imageOnly) Generate(context.Context, imagegen.Request) (*imagegen.Result, error) {
	return &imagegen.Result{Outputs: []imagegen.Output{{URL: "https://example.com/a.png"}}}, nil
}

type testEnv struct {
	app      *fiber.App
	credits  *credit.Service
	billing  *services.BillingService
	verifier *payment.Verifier
	user     uuid.UUID
}

// fakeAuth trusts X-Test-User and X-Test-Role instead of a JWT.
func fakeAuth(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Get("X-Test-User"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization header"})
	}
	c.Locals(auth.LocalUserID, id)
	c.Locals(auth.LocalEmail, "t@example.com")
	role := c.Get("X-Test-Role")
	if role == "" {
		role = auth.RoleUser
	}
	c.Locals(auth.LocalRole, role)
	return c.Next()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t,
		&credit.Credit{}, &models.AITask{}, &models.Order{}, &models.Subscription{},
		&jobs.Job{}, &audit.AuditLog{}, &appconfig.Config{},
	)
	credits := credit.NewService(credit.NewRepository(db), credit.Options{})
	tasks := repositories.NewTaskRepo(db)
	subs := repositories.NewSubscriptionRepo(db)
	orders := repositories.NewOrderRepo(db)
	registry := imagegen.NewRegistry(imageOnly{})

	gen := services.NewGenerationService(db, credits, tasks, subs, registry, jobs.NewQueue(db), 2)
	gallery := services.NewGalleryService(tasks)
	billing := services.NewBillingService(db, credits, orders, subs, payment.NewManualGateway(""))
	admin := services.NewAdminService(db, credits, audit.NewService(db), appconfig.NewStore(db, time.Minute))
	verifier := payment.NewVerifier("whsec")

	app := fiber.New()
	RegisterRoutes(app, Handlers{
		AI:      NewAIHandler(gen),
		Gallery: NewGalleryHandler(gallery),
		Credit:  NewCreditHandler(credits),
		Billing: NewBillingHandler(billing, verifier),
		Admin:   NewAdminHandler(admin, billing, gallery),
	}, fakeAuth)

	return &testEnv{app: app, credits: credits, billing: billing, verifier: verifier, user: uuid.New()}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", e.user.String())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

const generateBody = `{"provider":"fake","media_type":"image","model":"dall-e-3","prompt":"a fox","scene":"text-to-image"}`

func TestGenerate_StatusCodes(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/ai/generate", generateBody, nil)
	assert.Equal(t, fiber.StatusPaymentRequired, status)
	assert.Equal(t, "insufficient credits", body["error"])

	_, err := env.credits.GrantCreditsForUser(context.Background(), env.user, "", 10, 0, "")
	require.NoError(t, err)

	status, body = env.do(t, http.MethodPost, "/ai/generate", generateBody, nil)
	require.Equal(t, fiber.StatusCreated, status)
	taskID := body["id"].(string)

	status, _ = env.do(t, http.MethodPost, "/ai/generate", generateBody, nil)
	assert.Equal(t, fiber.StatusCreated, status)

	status, body = env.do(t, http.MethodPost, "/ai/generate", generateBody, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "daily_limit_exceeded", body["error"])

	status, _ = env.do(t, http.MethodPost, "/ai/generate", `{"provider":"fake","media_type":"image","model":"m","prompt":"p","scene":"x"}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = env.do(t, http.MethodGet, "/ai/tasks/"+taskID, "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pending", body["status"])

	status, _ = env.do(t, http.MethodGet, "/ai/tasks/"+uuid.NewString(), "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = env.do(t, http.MethodGet, "/credits/balance", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 8, body["balance"])
	assert.EqualValues(t, 2, body["today_consumed"])

	status, body = env.do(t, http.MethodGet, "/credits?type=consume", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, body["total"])
}

func TestProtectedRoutesNeedAuth(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	status, _ := env.do(t, http.MethodGet, "/admin/configs", "", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.do(t, http.MethodGet, "/admin/configs", "", map[string]string{"X-Test-Role": auth.RoleAdmin})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestPaymentWebhook(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/orders", `{"product_id":"pack_starter"}`, nil)
	require.Equal(t, fiber.StatusCreated, status)
	orderNo := body["order"].(map[string]interface{})["order_no"].(string)

	event := `{"type":"order.paid","order_no":"` + orderNo + `"}`

	status, _ = env.do(t, http.MethodPost, "/webhooks/payment", event, map[string]string{payment.SignatureHeader: "deadbeef"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	sig := env.verifier.Sign([]byte(event))
	for i := 0; i < 2; i++ {
		status, _ = env.do(t, http.MethodPost, "/webhooks/payment", event, map[string]string{payment.SignatureHeader: sig})
		assert.Equal(t, fiber.StatusOK, status)
	}

	balance, err := env.credits.GetRemainingCredits(context.Background(), env.user)
	require.NoError(t, err)
	assert.Equal(t, 50, balance)

	missing := `{"type":"order.paid","order_no":"ord_missing"}`
	status, _ = env.do(t, http.MethodPost, "/webhooks/payment", missing, map[string]string{payment.SignatureHeader: env.verifier.Sign([]byte(missing))})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAdminGrantAndBalances(t *testing.T) {
	env := newTestEnv(t)
	admin := map[string]string{"X-Test-Role": auth.RoleAdmin}

	status, body := env.do(t, http.MethodPost, "/admin/credits/grant",
		`{"user_id":"`+env.user.String()+`","credits":25,"valid_days":30}`, admin)
	require.Equal(t, fiber.StatusCreated, status)
	creditID := body["id"].(string)

	status, body = env.do(t, http.MethodGet, "/admin/users/balances?ids="+env.user.String(), "", admin)
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 25, body[env.user.String()])

	status, _ = env.do(t, http.MethodPost, "/admin/credits/grant", `{"user_id":"`+env.user.String()+`","credits":0}`, admin)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodDelete, "/admin/credits/"+creditID, "", admin)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = env.do(t, http.MethodGet, "/admin/audit-logs?entity=credit", "", admin)
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, body["total_count"])

	status, _ = env.do(t, http.MethodGet, "/admin/users/balances", "", admin)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAdminExportCredits(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.credits.GrantCreditsForUser(context.Background(), env.user, "a@example.com", 7, 0, "gift")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/credits/export?format=csv&user_id="+env.user.String(), nil)
	req.Header.Set("X-Test-User", env.user.String())
	req.Header.Set("X-Test-Role", auth.RoleAdmin)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), ".csv")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Transaction,User,Email"))
	assert.Contains(t, lines[1], "a@example.com")

	status, _ := env.do(t, http.MethodGet, "/admin/credits/export?format=docx", "", map[string]string{"X-Test-Role": auth.RoleAdmin})
	assert.Equal(t, fiber.StatusBadRequest, status)
}
