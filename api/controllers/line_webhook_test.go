package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/linking"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
)

type fakeStoreLoader struct {
	stores map[uuid.UUID]*models.Store
}

func (f *fakeStoreLoader) GetStore(_ context.Context, storeID uuid.UUID) (*models.Store, error) {
	if store, ok := f.stores[storeID]; ok {
		return store, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeLinker struct {
	mu       sync.Mutex
	consumed []string
	err      error
}

func (f *fakeLinker) CreateCode(ctx context.Context, userID uuid.UUID) (*linking.IssuedCode, error) {
	return nil, nil
}

func (f *fakeLinker) ConsumeCode(ctx context.Context, code, lineUserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumed = append(f.consumed, code+"|"+lineUserID)
	return f.err
}

func (f *fakeLinker) Unlink(ctx context.Context, userID uuid.UUID) error { return nil }

func (f *fakeLinker) Status(ctx context.Context, userID uuid.UUID) (*linking.Status, error) {
	return nil, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.ChangeEvent
}

func (c *capturePublisher) Publish(_ context.Context, event events.ChangeEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookRequest(storeID uuid.UUID, body []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/line/"+storeID.String(), bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	rc := chi.NewRouteContext()
	rc.URLParams.Add("storeId", storeID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func strPtr(s string) *string { return &s }

func webhookStore(storeID uuid.UUID, secret string) *fakeStoreLoader {
	return &fakeStoreLoader{stores: map[uuid.UUID]*models.Store{
		storeID: {
			ID:                storeID,
			LineChannelID:     strPtr("channel"),
			LineChannelSecret: strPtr(secret),
			LineChannelToken:  strPtr("token"),
		},
	}}
}

func TestLineWebhookRejectsBadSignature(t *testing.T) {
	storeID := uuid.New()
	publisher := &capturePublisher{}
	handler := LineWebhook(webhookStore(storeID, "secret"), &fakeLinker{}, publisher, nil)

	body := []byte(`{"events":[]}`)
	resp := httptest.NewRecorder()
	handler(resp, webhookRequest(storeID, body, "not-a-signature"))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if len(publisher.events) != 0 {
		t.Fatal("no proof may be published for an unsigned delivery")
	}
}

func TestLineWebhookPublishesProofForAuthenticDelivery(t *testing.T) {
	storeID := uuid.New()
	publisher := &capturePublisher{}
	handler := LineWebhook(webhookStore(storeID, "secret"), &fakeLinker{}, publisher, nil)

	body := []byte(`{"events":[]}`)
	resp := httptest.NewRecorder()
	handler(resp, webhookRequest(storeID, body, signBody("secret", body)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one proof event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Type != enums.EventWebhookProofReceived {
		t.Fatalf("unexpected event type %s", event.Type)
	}
	if event.StoreID == nil || *event.StoreID != storeID {
		t.Fatal("proof must carry the store id")
	}
}

func TestLineWebhookConsumesLinkCodes(t *testing.T) {
	storeID := uuid.New()
	linker := &fakeLinker{}
	handler := LineWebhook(webhookStore(storeID, "secret"), linker, &capturePublisher{}, nil)

	body := []byte(`{"events":[
		{"type":"message","source":{"type":"user","userId":"U123"},"message":{"type":"text","text":" ab2cd3 "}},
		{"type":"message","source":{"type":"user","userId":"U123"},"message":{"type":"text","text":"hello there"}},
		{"type":"follow","source":{"type":"user","userId":"U123"}}
	]}`)
	resp := httptest.NewRecorder()
	handler(resp, webhookRequest(storeID, body, signBody("secret", body)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(linker.consumed) != 1 || linker.consumed[0] != "AB2CD3|U123" {
		t.Fatalf("expected normalized code consumption, got %v", linker.consumed)
	}
}

func TestLineWebhookSwallowsFailedCodeAttempts(t *testing.T) {
	storeID := uuid.New()
	linker := &fakeLinker{err: gorm.ErrRecordNotFound}
	handler := LineWebhook(webhookStore(storeID, "secret"), linker, &capturePublisher{}, nil)

	body := []byte(`{"events":[{"type":"message","source":{"type":"user","userId":"U9"},"message":{"type":"text","text":"ZZZZZZ"}}]}`)
	resp := httptest.NewRecorder()
	handler(resp, webhookRequest(storeID, body, signBody("secret", body)))

	if resp.Code != http.StatusOK {
		t.Fatalf("a bad guess must not change the response, got %d", resp.Code)
	}
}

func TestLineWebhookUnknownStore(t *testing.T) {
	handler := LineWebhook(&fakeStoreLoader{stores: map[uuid.UUID]*models.Store{}}, &fakeLinker{}, &capturePublisher{}, nil)

	storeID := uuid.New()
	body := []byte(`{}`)
	resp := httptest.NewRecorder()
	handler(resp, webhookRequest(storeID, body, signBody("secret", body)))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
