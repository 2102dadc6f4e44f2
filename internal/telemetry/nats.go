package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"
)

const DefaultSubject = "dealgraph.telemetry"

// Subscribe feeds JSON events published on subject into l until ctx is
// done. Malformed or invalid messages are logged and dropped.
func Subscribe(ctx context.Context, nc *nats.Conn, subject string, l *Log, logger *log.Logger) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = log.Default()
	}
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		if err := l.Ingest(msg.Data); err != nil {
			logger.Warn("dropping telemetry message", "subject", msg.Subject, "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	logger.Info("telemetry subscription started", "subject", subject)
	return sub, nil
}

// Ingest decodes one JSON event and appends it.
func (l *Log) Ingest(data []byte) error {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("decoding event: %w", err)
	}
	return l.Append(e)
}

func Publish(nc *nats.Conn, subject string, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if subject == "" {
		subject = DefaultSubject
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	return nc.Publish(subject, data)
}
