// Package app builds the chatbot object graph from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/arafat-telecom/chatbot/core/ai"
	coreconfig "github.com/arafat-telecom/chatbot/core/config"
	"github.com/arafat-telecom/chatbot/core/conversation"
	"github.com/arafat-telecom/chatbot/core/credential"
	"github.com/arafat-telecom/chatbot/core/directory"
	"github.com/arafat-telecom/chatbot/core/httpserver"
	"github.com/arafat-telecom/chatbot/core/ingress"
	"github.com/arafat-telecom/chatbot/core/logger"
	"github.com/arafat-telecom/chatbot/core/metrics"
	"github.com/arafat-telecom/chatbot/core/netutil"
	"github.com/arafat-telecom/chatbot/core/outbound"
	"github.com/arafat-telecom/chatbot/core/session"
	"github.com/arafat-telecom/chatbot/core/telegram"
	"github.com/arafat-telecom/chatbot/core/whatsapp"
)

// Options carry the configuration and bootstrapped infrastructure.
type Options struct {
	Config *coreconfig.Config
	// DB backs the user directory; nil selects the in-memory directory.
	DB *sqlx.DB
	// OnClose runs after the dispatcher drained, typically to release DB and tracing.
	OnClose func(ctx context.Context) error
	// HTTPClient overrides the provider HTTP client, mainly for tests.
	HTTPClient *http.Client
}

// App is the running chatbot.
type App struct {
	cfg        *coreconfig.Config
	metrics    *metrics.Metrics
	store      *session.Store
	engine     *conversation.Engine
	pipeline   *ingress.Pipeline
	dispatcher *outbound.Dispatcher
	server     *httpserver.Server
	handler    http.Handler
	telegram   *telegram.Bot
	onClose    func(ctx context.Context) error
}

// New wires every component. Nothing is started until Run.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	a := &App{
		cfg:     cfg,
		metrics: metrics.New(metrics.DefaultNamespace),
		store:   session.NewStore(),
		onClose: opts.OnClose,
	}
	a.metrics.TrackSessions(metrics.DefaultNamespace, a.store.Len)

	mux, err := a.buildTransports(opts)
	if err != nil {
		return nil, err
	}
	a.dispatcher = outbound.NewDispatcher(mux, outbound.Options{
		QueueSize:    cfg.Outbound.QueueSize,
		Workers:      cfg.Outbound.Workers,
		MaxRetries:   cfg.Outbound.MaxRetries,
		RetryBackoff: millis(cfg.Outbound.RetryBackoffMS),
		MaxDuration:  millis(cfg.Outbound.MaxDurationMS),
		Observer:     a.metrics,
	})

	var dir directory.Directory = directory.NewMemory()
	if opts.DB != nil {
		dir = directory.NewSQL(opts.DB)
	}

	a.engine, err = conversation.New(conversation.Options{
		Store:               a.store,
		Directory:           dir,
		Gate:                credential.NewBcrypt(cfg.Credential.BcryptCost),
		AI:                  a.buildResponder(opts),
		Sink:                a.dispatcher,
		Recorder:            a.metrics,
		CollaboratorTimeout: cfg.CollaboratorTimeout(),
		MaxAttempts:         cfg.Conversation.MaxAttempts,
	})
	if err != nil {
		a.dispatcher.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	a.pipeline, err = ingress.New(ingress.Options{
		Engine:          a.engine,
		Sink:            a.dispatcher,
		Observer:        a.metrics,
		DedupWindow:     time.Duration(cfg.Dedup.WindowSeconds) * time.Second,
		DedupMaxEntries: cfg.Dedup.MaxEntries,
		RateInterval:    millis(cfg.RateLimit.IntervalMS),
		RateBurst:       cfg.RateLimit.Burst,
	})
	if err != nil {
		a.dispatcher.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	var mounts []httpserver.Mounter
	if cfg.WhatsAppEnabled() {
		wh, err := whatsapp.NewWebhook(whatsapp.WebhookOptions{
			VerifyToken: cfg.WhatsApp.VerifyToken,
			AppSecret:   cfg.WhatsApp.AppSecret,
			BodyLimit:   cfg.HTTP.BodyLimitBytes,
			Handler:     a.pipeline,
		})
		if err != nil {
			a.dispatcher.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		mounts = append(mounts, wh)
	}
	srvOpts := httpserver.Options{
		Listen:      cfg.HTTP.Listen,
		Port:        cfg.HTTP.Port,
		Metrics:     a.metrics.Handler(),
		Mounts:      mounts,
		ServiceName: cfg.Tracing.ServiceName,
	}
	a.server = httpserver.New(srvOpts)
	a.handler = httpserver.NewHandler(srvOpts)

	logger.Wire.Info("components wired",
		slog.String("event", "wired"),
		slog.Bool("whatsapp", cfg.WhatsAppEnabled()),
		slog.Bool("telegram", a.telegram != nil),
		slog.Bool("ai", cfg.AI.APIKey != ""),
		slog.Bool("persistent_directory", opts.DB != nil),
	)
	return a, nil
}

func (a *App) buildTransports(opts Options) (*outbound.Mux, error) {
	cfg := a.cfg
	var fallback outbound.Transport
	if cfg.WhatsAppEnabled() {
		hc := opts.HTTPClient
		if hc == nil {
			hc = netutil.NewHTTPClient(netutil.ClientOptions{})
		}
		wa, err := whatsapp.NewClient(whatsapp.ClientOptions{
			BaseURL:       cfg.WhatsApp.APIBaseURL,
			APIVersion:    cfg.WhatsApp.APIVersion,
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
			Token:         cfg.WhatsApp.Token,
			HTTPClient:    hc,
		})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		fallback = wa
	}
	mux := outbound.NewMux(fallback)

	if cfg.TelegramEnabled() {
		pollTimeout := time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second
		bot, err := telegram.New(telegram.Options{
			Token:                  cfg.Telegram.Token,
			RunMode:                cfg.Telegram.RunMode,
			LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
			Webhook: telegram.WebhookOptions{
				Listen: cfg.Webhook.Listen,
				Port:   cfg.Webhook.Port,
				URL:    cfg.Webhook.URL,
			},
			HTTPClient: netutil.NewHTTPClient(netutil.ClientOptions{
				Timeout: pollTimeout + 30*time.Second,
				Retries: cfg.Outbound.MaxRetries,
				Backoff: millis(cfg.Outbound.RetryBackoffMS),
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.telegram = bot
		mux.Handle(telegram.SenderPrefix, bot)
	}
	return mux, nil
}

func (a *App) buildResponder(opts Options) ai.Responder {
	cfg := a.cfg
	if cfg.AI.APIKey == "" {
		return ai.Unavailable{}
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = netutil.NewHTTPClient(netutil.ClientOptions{Timeout: cfg.CollaboratorTimeout()})
	}
	return ai.NewOpenAI(ai.Options{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
		HTTPClient:  hc,
	})
}

// Handler returns the HTTP surface without starting a listener.
func (a *App) Handler() http.Handler { return a.handler }

// Pipeline returns the ingress pipeline shared by every transport.
func (a *App) Pipeline() *ingress.Pipeline { return a.pipeline }

// Run serves HTTP and, when configured, polls Telegram until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Run(gctx) })
	if a.telegram != nil {
		g.Go(func() error { return a.telegram.Run(gctx, a.pipeline) })
	}
	return g.Wait()
}

// Close drains queued replies and releases infrastructure.
func (a *App) Close(ctx context.Context) error {
	start := time.Now()
	a.dispatcher.Close()
	logger.Info(ctx, "outbound", "drained",
		slog.Uint64("errors", a.dispatcher.ErrorCount()),
		slog.Uint64("inline", a.dispatcher.InlineCount()),
		slog.Int("sessions", a.store.Len()),
		slog.Duration("duration", logger.Took(start)),
	)
	if a.onClose != nil {
		return a.onClose(ctx)
	}
	return nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
