package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/hailcast/hailcast-api/internal/config"
)

// Publisher wraps a Watermill JetStream publisher with circuit breaker
// protection. Message UUIDs double as Nats-Msg-Id so broker-side
// deduplication absorbs publish retries.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[any]
	taskTopic      string
	controlTopic   string
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher creates a JetStream publisher from the queue configuration.
func NewPublisher(cfg config.QueueConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // stream is pre-created by EnsureStream
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "queue-publish",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
	})

	return &Publisher{
		publisher:      pub,
		circuitBreaker: breaker,
		taskTopic:      cfg.TaskTopic,
		controlTopic:   cfg.ControlTopic,
		logger:         logger,
	}, nil
}

// PublishTask publishes a task message to the task topic. The task ID is
// used as the message ID so JetStream deduplicates repeated publishes of
// the same task.
func (p *Publisher) PublishTask(ctx context.Context, taskMsg *TaskMessage) error {
	payload, err := taskMsg.Marshal()
	if err != nil {
		return fmt.Errorf("serialize task message: %w", err)
	}

	msg := message.NewMessage(taskMsg.TaskID.String(), payload)
	msg.Metadata.Set("account_id", taskMsg.AccountID.String())
	msg.Metadata.Set("model", taskMsg.Model)

	return p.publish(p.taskTopic, msg)
}

// PublishControl broadcasts a control command to all workers.
func (p *Publisher) PublishControl(ctx context.Context, ctrl *ControlMessage) error {
	payload, err := ctrl.Marshal()
	if err != nil {
		return fmt.Errorf("serialize control message: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("command", ctrl.Command)

	return p.publish(p.controlTopic, msg)
}

func (p *Publisher) publish(topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err := p.circuitBreaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(topic, msg)
	})
	return err
}

// Close shuts down the underlying publisher. Subsequent publishes fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
