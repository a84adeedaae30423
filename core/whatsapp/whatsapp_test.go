package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/arafat-telecom/chatbot/core/ingress"
	"github.com/arafat-telecom/chatbot/core/outbound"
)

type recordingHandler struct {
	mu   sync.Mutex
	msgs []ingress.Message
	err  error
}

func (h *recordingHandler) Handle(_ context.Context, msg ingress.Message) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	if h.err != nil {
		return ingress.StatusFailed, h.err
	}
	return ingress.StatusAccepted, nil
}

const samplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "messages": [
          {"id": "wamid.1", "from": "+234 800-000-0001", "type": "text", "text": {"body": "  menu \n"}},
          {"id": "wamid.2", "from": "2348000000001", "type": "image"},
          {"id": "wamid.3", "from": "2348000000002", "type": "text", "text": {"body": "1"}}
        ]
      }
    }]
  }]
}`

func newTestRouter(t *testing.T, secret string, h Handler) http.Handler {
	t.Helper()
	wh, err := NewWebhook(WebhookOptions{VerifyToken: "verify-me", AppSecret: secret, Handler: h, BodyLimit: 4096})
	if err != nil {
		t.Fatalf("new webhook: %v", err)
	}
	r := chi.NewRouter()
	wh.Mount(r)
	return r
}

func TestNewWebhookRequiresHandlerAndToken(t *testing.T) {
	if _, err := NewWebhook(WebhookOptions{VerifyToken: "x"}); err == nil {
		t.Fatalf("expected error without handler")
	}
	if _, err := NewWebhook(WebhookOptions{Handler: &recordingHandler{}}); err == nil {
		t.Fatalf("expected error without verify token")
	}
}

func TestVerifyHandshake(t *testing.T) {
	router := newTestRouter(t, "", &recordingHandler{})

	cases := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"ok", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=1", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=1", http.StatusForbidden, ""},
		{"missing", "", http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?"+tc.query, nil))
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tc.body)
			}
		})
	}
}

func TestReceiveDecodesTextMessages(t *testing.T) {
	h := &recordingHandler{}
	router := newTestRouter(t, "", h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(samplePayload)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp["status"] != "ok" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}

	if len(h.msgs) != 2 {
		t.Fatalf("expected 2 text messages, got %d", len(h.msgs))
	}
	first := h.msgs[0]
	if first.SenderID != "2348000000001" || first.Text != "menu" || first.ID != "wamid.1" || first.Transport != "whatsapp" {
		t.Fatalf("unexpected first message %+v", first)
	}
	if h.msgs[1].SenderID != "2348000000002" || h.msgs[1].Text != "1" {
		t.Fatalf("unexpected second message %+v", h.msgs[1])
	}
}

func TestReceiveAnswersOKWhenHandlerFails(t *testing.T) {
	h := &recordingHandler{err: errors.New("sink closed")}
	router := newTestRouter(t, "", h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(samplePayload)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReceiveRejectsBadInput(t *testing.T) {
	router := newTestRouter(t, "", &recordingHandler{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed JSON: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	big := `{"object":"` + strings.Repeat("x", 5000) + `"}`
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(big)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body: status = %d", rec.Code)
	}
}

func TestReceiveChecksSignature(t *testing.T) {
	secret := "app-secret"
	h := &recordingHandler{}
	router := newTestRouter(t, secret, h)

	post := func(sig string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(samplePayload))
		if sig != "" {
			req.Header.Set("X-Hub-Signature-256", sig)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	for _, sig := range []string{"", "sha256=deadbeef", "md5=" + strings.TrimPrefix(Sign([]byte(secret), []byte(samplePayload)), "sha256="), Sign([]byte("other"), []byte(samplePayload))} {
		if code := post(sig); code != http.StatusUnauthorized {
			t.Fatalf("signature %q: status = %d, want 401", sig, code)
		}
	}
	if len(h.msgs) != 0 {
		t.Fatalf("unsigned payloads must not reach the handler")
	}
	if code := post(Sign([]byte(secret), []byte(samplePayload))); code != http.StatusOK {
		t.Fatalf("valid signature: status = %d", code)
	}
	if len(h.msgs) != 2 {
		t.Fatalf("expected 2 messages after valid signature, got %d", len(h.msgs))
	}
}

func TestClientSendText(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody sendRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.x"}]}`)
	}))
	defer srv.Close()

	c, err := NewClient(ClientOptions{BaseURL: srv.URL + "/", APIVersion: "v20.0", PhoneNumberID: "555", Token: "tok", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.SendText(context.Background(), "2348000000001", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/v20.0/555/messages" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("auth = %q", gotAuth)
	}
	want := sendRequest{MessagingProduct: "whatsapp", To: "2348000000001", Type: "text", Text: textBody{Body: "hello"}}
	if gotBody != want {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestClientSendTextReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"invalid recipient"}}`)
	}))
	defer srv.Close()

	c, _ := NewClient(ClientOptions{BaseURL: srv.URL, PhoneNumberID: "555", Token: "tok"})
	err := c.SendText(context.Background(), "1", "x")
	var apiErr *outbound.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode() != http.StatusBadRequest {
		t.Fatalf("expected APIError 400, got %v", err)
	}
	if !strings.Contains(apiErr.Body, "invalid recipient") {
		t.Fatalf("error body not kept: %q", apiErr.Body)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(ClientOptions{PhoneNumberID: "1"}); err == nil {
		t.Fatalf("expected error without token")
	}
	if _, err := NewClient(ClientOptions{Token: "t"}); err == nil {
		t.Fatalf("expected error without phone number id")
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := NormalizePhone("+234 (800) 000-0001"); got != "2348000000001" {
		t.Fatalf("NormalizePhone = %q", got)
	}
	if got := NormalizePhone("abc"); got != "" {
		t.Fatalf("NormalizePhone = %q", got)
	}
}
