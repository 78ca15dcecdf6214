package bus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/peerpress/peerpress-api/pkg/config"
)

// Publisher fans committed paper events out to NATS for downstream consumers
// (notification pipeline, search indexer). Delivery is fire-and-forget; the
// request that produced the event never waits on it.
type Publisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

// Connect dials the NATS server and returns a publisher.
func Connect(cfg config.NATSConfig) (*Publisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("peerpress-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "paper.events"
	}

	return &Publisher{conn: conn, subjectPrefix: prefix}, nil
}

// Publish serialises the payload as JSON on a subject derived from the event
// type, e.g. "paper:new-review" becomes "<prefix>.paper.new-review".
func (p *Publisher) Publish(eventType string, payload interface{}) error {
	if p == nil || p.conn == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal bus payload: %w", err)
	}

	subject := p.subjectPrefix + "." + strings.ReplaceAll(eventType, ":", ".")
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}
