package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/praxishq/praxis/internal/queue"
	"github.com/praxishq/praxis/pkg/models"
)

// Publisher mirrors status updates onto a NATS subject so external
// observers can follow orchestration progress without polling the API.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Config holds NATS publisher configuration
type Config struct {
	URL     string        // NATS server URL (e.g., "nats://localhost:4222")
	Subject string        // Subject for status events (default: "praxis.status")
	Timeout time.Duration // Connection timeout
}

// NewPublisher connects to NATS. The connection reconnects
// indefinitely; a publish on a down connection is buffered by the
// client.
func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		cfg.URL = "nats://localhost:4222"
	}
	if cfg.Subject == "" {
		cfg.Subject = "praxis.status"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("Connected to NATS at %s, publishing status to %s", cfg.URL, cfg.Subject)
	return &Publisher{conn: conn, subject: cfg.Subject}, nil
}

// Publish sends one status update as JSON
func (p *Publisher) Publish(update models.StatusUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal status update: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish status update: %w", err)
	}
	return nil
}

// Close drains the connection
func (p *Publisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}

// Tap wraps a StatusSink and mirrors every update to the publisher.
// Publish failures are logged and never block the worker.
type Tap struct {
	Sink      queue.StatusSink
	Publisher *Publisher
}

// Update forwards to the wrapped sink, then publishes
func (t *Tap) Update(level models.StatusLevel, source, message string) {
	if t.Sink != nil {
		t.Sink.Update(level, source, message)
	}
	if t.Publisher == nil {
		return
	}
	err := t.Publisher.Publish(models.StatusUpdate{
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   message,
	})
	if err != nil {
		log.Printf("Failed to publish status event: %v", err)
	}
}

// Recent delegates to the wrapped sink
func (t *Tap) Recent(n int) []models.StatusUpdate {
	if t.Sink == nil {
		return nil
	}
	return t.Sink.Recent(n)
}
