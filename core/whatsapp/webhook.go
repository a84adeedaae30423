package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arafat-telecom/chatbot/core/ingress"
	"github.com/arafat-telecom/chatbot/core/logger"
)

// DefaultBodyLimit caps webhook request bodies.
const DefaultBodyLimit int64 = 1 << 20

const signatureHeader = "X-Hub-Signature-256"

// Handler receives decoded inbound messages.
type Handler interface {
	Handle(ctx context.Context, msg ingress.Message) (string, error)
}

// WebhookOptions configure a Webhook.
type WebhookOptions struct {
	VerifyToken string
	// AppSecret enables signature verification of POST bodies when set.
	AppSecret string
	BodyLimit int64
	Handler   Handler
}

// Webhook serves the Cloud API verification handshake and message notifications.
type Webhook struct {
	verifyToken string
	appSecret   []byte
	bodyLimit   int64
	handler     Handler
}

// NewWebhook validates opts and returns a Webhook.
func NewWebhook(opts WebhookOptions) (*Webhook, error) {
	if opts.Handler == nil {
		return nil, errors.New("whatsapp: webhook handler is required")
	}
	if strings.TrimSpace(opts.VerifyToken) == "" {
		return nil, errors.New("whatsapp: verify token is required")
	}
	limit := opts.BodyLimit
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	w := &Webhook{
		verifyToken: opts.VerifyToken,
		bodyLimit:   limit,
		handler:     opts.Handler,
	}
	if opts.AppSecret != "" {
		w.appSecret = []byte(opts.AppSecret)
	}
	return w, nil
}

// Mount registers GET and POST /webhook on r.
func (wh *Webhook) Mount(r chi.Router) {
	r.Get("/webhook", wh.handleVerify)
	r.Post("/webhook", wh.handleReceive)
}

func (wh *Webhook) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	if mode != "subscribe" || subtle.ConstantTimeCompare([]byte(token), []byte(wh.verifyToken)) != 1 {
		logger.Warn(r.Context(), "wa", "webhook.verify", slog.String("status", "fail"), slog.String("mode", mode))
		w.WriteHeader(http.StatusForbidden)
		return
	}
	logger.WA.Info("webhook verified", slog.String("event", "webhook.verify"), slog.String("status", "ok"))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

func (wh *Webhook) handleReceive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, wh.bodyLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if wh.appSecret != nil && !validSignature(wh.appSecret, raw, r.Header.Get(signatureHeader)) {
		logger.Warn(ctx, "wa", "webhook.signature", slog.String("status", "fail"))
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.Warn(ctx, "wa", "webhook.decode", slog.String("status", "fail"), slog.String("err", err.Error()))
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	msgs, skipped := payload.textMessages()
	failed := 0
	for _, msg := range msgs {
		// Provider redelivers on non-2xx, so per-message failures are only logged.
		if _, err := wh.handler.Handle(ctx, msg); err != nil {
			failed++
		}
	}
	logger.Info(ctx, "wa", "webhook.received",
		slog.String("status", "ok"),
		slog.Int("messages", len(msgs)),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
		slog.Duration("duration", logger.Took(start)),
	)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validSignature checks header against the hex HMAC-SHA256 of body keyed by secret.
func validSignature(secret, body []byte, header string) bool {
	algo, provided, ok := strings.Cut(strings.TrimSpace(header), "=")
	if !ok || algo != "sha256" || provided == "" {
		return false
	}
	got, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the X-Hub-Signature-256 header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
