package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/checklinks/internal/config"
	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
	"git.home.luguber.info/inful/checklinks/internal/logfields"
	"git.home.luguber.info/inful/checklinks/internal/report"
)

// Publisher delivers broken-link events.
type Publisher interface {
	Publish(ctx context.Context, event *BrokenLinkEvent) error
	Close() error
}

// NATSPublisher publishes events on a NATS subject, through JetStream when a
// stream is configured.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSPublisher connects to cfg.NATSURL. With cfg.Stream set, the stream
// is created (or updated) to capture cfg.Subject.
func NewNATSPublisher(ctx context.Context, cfg config.NotifyConfig) (*NATSPublisher, error) {
	if cfg.NATSURL == "" {
		return nil, errors.New("notify.nats_url is not set")
	}

	conn, err := nats.Connect(cfg.NATSURL, nats.Name("checklinks"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p := &NATSPublisher{conn: conn, subject: cfg.Subject}
	if cfg.Stream != "" {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:        cfg.Stream,
			Description: "Broken links reported by checklinks",
			Subjects:    []string{cfg.Subject},
			MaxAge:      30 * 24 * time.Hour,
			Duplicates:  time.Hour,
		}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.Stream, err)
		}
		p.js = js
	}

	slog.Info("NATS publisher initialized",
		logfields.URL(cfg.NATSURL),
		slog.String("subject", cfg.Subject),
		slog.String("stream", cfg.Stream))
	return p, nil
}

// Publish sends one event.
func (p *NATSPublisher) Publish(ctx context.Context, event *BrokenLinkEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.js != nil {
		if _, err := p.js.Publish(ctx, p.subject, data, jetstream.WithMsgID(event.ID())); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		return nil
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Flush()
	p.conn.Close()
	return err
}

// PublishReport publishes every broken occurrence of rep. Failures do not
// stop the remaining events; they are returned together as a warning-level
// notify error.
func PublishReport(ctx context.Context, p Publisher, rep *report.Report) (int, error) {
	events := EventsFromReport(rep, time.Now().UTC())

	var errs []error
	sent := 0
	for _, ev := range events {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	slog.Debug("Published broken link events",
		logfields.RunID(rep.Summary.RunID),
		logfields.Count(sent))

	if len(errs) > 0 {
		return sent, ferrors.WrapError(errors.Join(errs...), ferrors.CategoryNotify, "failed to publish broken link events").
			WithContext("failed", len(errs)).
			Warning().
			Retryable().
			Build()
	}
	return sent, nil
}
