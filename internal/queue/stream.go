package queue

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/hailcast/hailcast-api/internal/config"
)

// streamMaxAge bounds how long undelivered task messages are retained.
const streamMaxAge = 24 * time.Hour

// streamDuplicateWindow is the JetStream deduplication window for
// Nats-Msg-Id tracking; publish retries inside it are dropped.
const streamDuplicateWindow = 2 * time.Minute

// Connect opens the NATS connection used for stream management.
func Connect(cfg config.QueueConfig) (*natsgo.Conn, error) {
	nc, err := natsgo.Connect(cfg.URL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// EnsureStream creates or updates the JetStream stream covering the task
// and control topics. Both the server and worker call it on startup so
// either can come up first.
func EnsureStream(ctx context.Context, nc *natsgo.Conn, cfg config.QueueConfig) error {
	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{cfg.TaskTopic, cfg.ControlTopic},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		MaxAge:     streamMaxAge,
		Duplicates: streamDuplicateWindow,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}
	return nil
}
