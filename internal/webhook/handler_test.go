package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"visaflow/internal/common/logger"
	"visaflow/internal/models"
	"visaflow/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, p *Pipeline) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	NewHandler(p, 5*time.Second, logger.NewTestLogger(t)).Register(app)
	return app
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, sigHeader string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(body))
	if sigHeader != "" {
		req.Header.Set("Stripe-Signature", sigHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp, decoded
}

func TestHandlerAcknowledgesProcessedDelivery(t *testing.T) {
	mem := store.NewMemory()
	mem.Put(submittedApp())
	app := newTestApp(t, newTestPipeline(t, mem, &mockSES{}, nil))

	payload, header := signedDelivery(t, "evt_1", "app-1", 12500)
	resp, body := postWebhook(t, app, payload, header)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, string(OutcomeProcessed), body["outcome"])
}

func TestHandlerRejectsMissingSignature(t *testing.T) {
	app := newTestApp(t, newTestPipeline(t, store.NewMemory(), &mockSES{}, nil))

	resp, body := postWebhook(t, app, []byte(`{"id":"evt_1"}`), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["received"])
	assert.Equal(t, "SIGNATURE_MISSING", body["error"])
}

func TestHandlerRejectsBadSignature(t *testing.T) {
	app := newTestApp(t, newTestPipeline(t, store.NewMemory(), &mockSES{}, nil))

	resp, body := postWebhook(t, app, []byte(`{"id":"evt_1"}`), "t=1234567890,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "SIGNATURE_INVALID", body["error"])
}

func TestHandlerSignalsRetryOnStoreFailure(t *testing.T) {
	mem := store.NewMemory()
	mem.Put(submittedApp())
	failing := &hookStore{Store: mem}
	// Fail the claim by swapping in a store whose transactions break.
	p := newTestPipeline(t, brokenTxStore{failing}, &mockSES{}, nil)
	app := newTestApp(t, p)

	payload, header := signedDelivery(t, "evt_1", "app-1", 12500)
	resp, body := postWebhook(t, app, payload, header)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "STORE_UNAVAILABLE", body["error"])
}

func TestHandlerAcknowledgesDuplicate(t *testing.T) {
	mem := store.NewMemory()
	app := submittedApp()
	app.NotificationSent = true
	app.PaidPaymentEventID = "evt_1"
	mem.Put(app)

	fiberApp := newTestApp(t, newTestPipeline(t, mem, &mockSES{}, nil))
	payload, header := signedDelivery(t, "evt_1", "app-1", 12500)
	resp, body := postWebhook(t, fiberApp, payload, header)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(OutcomeDupe), body["outcome"])
}

func TestHandlerHealthz(t *testing.T) {
	app := newTestApp(t, newTestPipeline(t, store.NewMemory(), &mockSES{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// brokenTxStore fails every transaction but leaves plain reads/writes alone.
type brokenTxStore struct {
	store.Store
}

func (b brokenTxStore) UpdateTx(ctx context.Context, id string, fn func(*models.Application) (store.Mutation, error)) error {
	return assert.AnError
}
