// Package nats publishes and tails import job transitions on a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/infrastructure/resilience"
)

const DefaultSubject = "directory.imports.transitions"

type TransitionPublisher struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	Name                 string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subject string, options Options) (*TransitionPublisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	name := options.Name
	if name == "" {
		name = "directory-console"
	}
	if subject == "" {
		subject = DefaultSubject
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &TransitionPublisher{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (p *TransitionPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// PublishJobTransition sends the transition as JSON with a core NATS publish.
// The event id is set as the Nats-Msg-Id header; a retried publish is only
// de-duplicated by the server when a JetStream stream captures the subject.
// SubscribeJobTransitions drops repeats on the receiving side.
func (p *TransitionPublisher) PublishJobTransition(ctx context.Context, transition domain.JobTransition) error {
	msg, err := encodeTransition(p.subject, transition)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := p.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if p.executor != nil {
		err = p.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return publishError(err)
	}
	return nil
}

// SubscribeJobTransitions delivers every transition published on the subject
// until ctx ends, then drains the subscription. A transition whose event id
// was already delivered in the last ten minutes is dropped.
func (p *TransitionPublisher) SubscribeJobTransitions(ctx context.Context, handler func(context.Context, domain.JobTransition) error) error {
	window := newEventWindow(defaultDedupWindow)
	sub, err := p.conn.Subscribe(p.subject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		transition, err := decodeTransition(msg.Data)
		if err != nil {
			p.logger.Warn("nats_transition_decode_failed", "error", err)
			return
		}
		if !window.first(transition.EventID) {
			p.logger.Debug("nats_transition_duplicate", "event_id", transition.EventID)
			return
		}
		if err := handler(ctx, transition); err != nil {
			p.logger.Error("nats_transition_handler_failed",
				"event_id", transition.EventID,
				"job_id", transition.JobID,
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeTransition(subject string, transition domain.JobTransition) (*nats.Msg, error) {
	data, err := json.Marshal(transition)
	if err != nil {
		return nil, fmt.Errorf("marshal job transition: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	if transition.EventID != "" {
		msg.Header.Set(nats.MsgIdHdr, transition.EventID)
	}
	return msg, nil
}

func decodeTransition(data []byte) (domain.JobTransition, error) {
	var transition domain.JobTransition
	if err := json.Unmarshal(data, &transition); err != nil {
		return domain.JobTransition{}, fmt.Errorf("unmarshal job transition: %w", err)
	}
	return transition, nil
}
