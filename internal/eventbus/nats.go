package eventbus

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/version"
)

// flushTimeout bounds the flush when the caller's context has no deadline.
const flushTimeout = 5 * time.Second

// NATSPublisher publishes run outcomes on a core NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to the configured server.
func NewNATSPublisher(cfg config.NATSConfig, logger *slog.Logger) (*NATSPublisher, error) {
	if !cfg.Enabled() {
		return nil, errors.ConfigError("NATS announcements are disabled").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(version.UserAgent()),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS connection lost", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection restored", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", cfg.URL).
			Build()
	}

	logger.Info("NATS publisher initialized",
		slog.String("url", cfg.URL),
		slog.String("subject", cfg.Subject))

	return &NATSPublisher{conn: conn, subject: cfg.Subject, logger: logger}, nil
}

// Publish sends outcome as JSON and flushes so delivery failures surface here.
func (p *NATSPublisher) Publish(ctx context.Context, outcome RunOutcome) error {
	if outcome.Timestamp.IsZero() {
		outcome.Timestamp = time.Now()
	}
	data, err := outcome.Marshal()
	if err != nil {
		return errors.InternalError("failed to marshal run outcome").WithCause(err).Build()
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return errors.NetworkError("failed to publish run outcome").
			WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.NetworkError("failed to flush run outcome").
			WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}

	p.logger.Debug("Published run outcome",
		slog.String("run_id", outcome.RunID),
		slog.String("outcome", outcome.Outcome),
		slog.String("subject", p.subject))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

// New returns a NATS publisher when cfg is enabled and a NoopPublisher otherwise.
func New(cfg config.NATSConfig, logger *slog.Logger) (Publisher, error) {
	if !cfg.Enabled() {
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(cfg, logger)
}
