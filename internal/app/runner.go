package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jacksonchui/Social-Media-Intervention/internal/condition"
	"github.com/jacksonchui/Social-Media-Intervention/internal/config"
	"github.com/jacksonchui/Social-Media-Intervention/internal/motion"
	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

const (
	stopTimeout  = 5 * time.Second
	readyTimeout = 5 * time.Second
)

// Runner drives one session until its context is cancelled, then stops
// it and persists the log. Hub and Sink are optional.
type Runner struct {
	Manager *session.Manager
	Hub     *AlphaHub
	Sink    session.Sink

	// Alpha, when set, also receives every overlay update.
	Alpha func(AlphaMessage)

	Now          func() time.Time
	Logger       *slog.Logger
	ReadyTimeout time.Duration
}

// Run starts a session, resuming resume when it is non-nil, and blocks
// until ctx is done. The finished log is returned even when it was not
// worth saving, and the unfinished one when the session failed to stop.
func (r *Runner) Run(ctx context.Context, resume *session.Log) (session.Log, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}

	if err := r.waitReady(ctx); err != nil {
		return session.Log{}, fmt.Errorf("attitude unavailable: %w", err)
	}

	handler := func(u session.Update) {
		if u.Err != nil {
			logger.Warn("attitude sample failed", "err", u.Err)
		}
		msg := newAlphaMessage(u, now())
		if r.Hub != nil {
			r.Hub.Broadcast(msg)
		}
		if r.Alpha != nil {
			r.Alpha(msg)
		}
	}
	if err := r.Manager.Start(ctx, resume, handler); err != nil {
		return session.Log{}, err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()

	l, err := r.Manager.Stop(stopCtx)
	if err != nil {
		// The session is still running; hand back what it has recorded.
		l, _ = r.Manager.Log()
		logger.Error("session stop failed", "id", l.ID, "err", err)
		return l, err
	}
	if r.Sink == nil {
		return l, nil
	}

	err = session.Persist(stopCtx, r.Sink, l)
	switch {
	case err == nil:
		logger.Info("session saved", "id", l.ID, "periods", len(l.PeriodLogs))
	case errors.Is(err, session.ErrEmptyDuration),
		errors.Is(err, session.ErrNoPeriods),
		errors.Is(err, session.ErrNoSocialMedia):
		logger.Info("session not saved", "id", l.ID, "reason", err)
	default:
		return l, err
	}
	return l, nil
}

// waitReady retries Check while the source has not reported a first
// attitude yet.
func (r *Runner) waitReady(ctx context.Context) error {
	timeout := r.ReadyTimeout
	if timeout <= 0 {
		timeout = readyTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	retry := time.NewTicker(100 * time.Millisecond)
	defer retry.Stop()

	for {
		err := r.Manager.Check(ctx)
		if !errors.Is(err, motion.ErrReferenceFrameUnavailable) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-deadline.C:
			return err
		case <-retry.C:
		}
	}
}

// RunOptions tune RunSession.
type RunOptions struct {
	// ResumeID continues a saved session instead of starting a new one.
	ResumeID string
	Logger   *slog.Logger
}

// RunSession wires the configured attitude source, stores, MQTT publisher
// and web server around a session manager and runs one session until ctx
// is done.
func RunSession(ctx context.Context, cfg *config.Config, opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		var err error
		if logger, err = NewLogger(os.Stdout, cfg); err != nil {
			return err
		}
	}

	src, closeSrc, err := OpenAttitudeSource(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSrc(); err != nil {
			logger.Warn("close attitude source", "err", err)
		}
	}()

	var client mqtt.Client
	if cfg.MQTTPublish {
		client, err = connectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-publisher", logger)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
	}

	persist, err := OpenPersistence(ctx, cfg, client, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := persist.Close(); err != nil {
			logger.Warn("close session stores", "err", err)
		}
	}()

	var resume *session.Log
	if opts.ResumeID != "" {
		lister, err := persist.Lister()
		if err != nil {
			return err
		}
		m, err := lister.Get(ctx, opts.ResumeID)
		if err != nil {
			return fmt.Errorf("resume session %s: %w", opts.ResumeID, err)
		}
		l := session.LogFromModel(m)
		resume = &l
	}

	p := cfg.Policy()
	service := condition.New(src, p, condition.WithLogger(logger))
	manager := session.NewManager(service, p, session.WithLogger(logger))
	hub := NewAlphaHub(manager, logger)

	var srv *http.Server
	if cfg.WebServerPort != 0 {
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
			Handler:           hub.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("web server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("web server error", "err", err)
			}
		}()
	}

	runner := &Runner{Manager: manager, Hub: hub, Sink: persist, Logger: logger}
	if client != nil {
		pub := &alphaPublisher{client: client, topic: cfg.TopicAlpha, logger: logger}
		runner.Alpha = pub.publish
	}

	l, runErr := runner.Run(ctx, resume)

	hub.Close()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("web server shutdown", "err", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("session finished", "id", l.ID, "periods", len(l.PeriodLogs), "social_media", l.SocialMedia)
	return nil
}
