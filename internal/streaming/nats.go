package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"scamguard/internal/config"
	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

// ErrNotConnected is returned when publishing while NATS is down
var ErrNotConnected = errors.New("NATS not connected")

// NATSPublisher publishes risk events and guardian alerts to NATS JetStream
type NATSPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	config config.NATSConfig
	logger *logger.Logger

	mu        sync.RWMutex
	connected bool
}

// NewNATSPublisher connects to NATS and ensures the stream exists
func NewNATSPublisher(ctx context.Context, cfg config.NATSConfig, log *logger.Logger) (*NATSPublisher, error) {
	log = log.WithComponent("nats")
	cfg = withSubjectDefaults(cfg)

	log.Info().Str("url", cfg.URL).Str("stream", cfg.StreamName).Msg("connecting to NATS")

	conn, err := nats.Connect(cfg.URL,
		nats.Name("scamguard"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, streamConfig(cfg))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	log.Info().Str("stream", stream.CachedInfo().Config.Name).Msg("NATS stream ready")

	return &NATSPublisher{
		conn:      conn,
		js:        js,
		stream:    stream,
		config:    cfg,
		logger:    log,
		connected: true,
	}, nil
}

func withSubjectDefaults(cfg config.NATSConfig) config.NATSConfig {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.StreamName == "" {
		cfg.StreamName = "SCAMGUARD"
	}
	if cfg.Subjects.GuardianAlert == "" {
		cfg.Subjects.GuardianAlert = "scamguard.alerts.guardian"
	}
	if cfg.Subjects.EventPrefix == "" {
		cfg.Subjects.EventPrefix = "scamguard.events"
	}
	return cfg
}

func streamConfig(cfg config.NATSConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Scam triage risk events and guardian alerts",
		Subjects:    []string{cfg.Subjects.GuardianAlert, cfg.Subjects.EventPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour, // weekly summaries look back 7 days
		MaxMsgs:     100000,
		MaxBytes:    100 * 1024 * 1024,
		Discard:     jetstream.DiscardOld,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	}
}

// Close closes the NATS connection
func (p *NATSPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.connected = false
	}
}

// IsConnected returns whether NATS is connected
func (p *NATSPublisher) IsConnected() bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected && p.conn != nil && p.conn.IsConnected()
}

// PublishGuardianAlert publishes an alert on the guardian subject
func (p *NATSPublisher) PublishGuardianAlert(ctx context.Context, alert *models.GuardianAlert) error {
	if err := p.publish(ctx, p.config.Subjects.GuardianAlert, NewAlertMessage(alert)); err != nil {
		return err
	}
	p.logger.Debug().
		Str("kind", string(alert.Kind)).
		Str("sender", alert.Sender).
		Msg("published guardian alert")
	return nil
}

// PublishRiskEvent publishes an audit event on <prefix>.<level>
func (p *NATSPublisher) PublishRiskEvent(ctx context.Context, e *models.RiskEvent) error {
	subject := eventSubject(p.config.Subjects.EventPrefix, e.RiskLevel)
	if err := p.publish(ctx, subject, NewRiskEventMessage(e)); err != nil {
		return err
	}
	p.logger.Debug().
		Str("subject", subject).
		Str("event_type", string(e.Type)).
		Str("sender", e.Sender).
		Msg("published risk event")
	return nil
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, msg *Message) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe creates an ephemeral consumer delivering new messages that match sub
func (p *NATSPublisher) Subscribe(ctx context.Context, sub *Subscription) (<-chan *Message, error) {
	if !p.IsConnected() {
		return nil, ErrNotConnected
	}

	consumer, err := p.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	out := make(chan *Message, 100)

	go func() {
		defer close(out)

		msgs, err := consumer.Messages()
		if err != nil {
			p.logger.Error().Err(err).Msg("failed to get messages iterator")
			return
		}
		defer msgs.Stop()

		go func() {
			<-ctx.Done()
			msgs.Stop()
		}()

		for {
			msg, err := msgs.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, jetstream.ErrMsgIteratorClosed) {
					return
				}
				p.logger.Warn().Err(err).Msg("error getting next message")
				continue
			}

			var m Message
			if err := json.Unmarshal(msg.Data(), &m); err != nil {
				p.logger.Warn().Err(err).Msg("failed to unmarshal message")
				_ = msg.Term()
				continue
			}

			if sub != nil && !sub.Matches(&m) {
				_ = msg.Ack()
				continue
			}

			select {
			case out <- &m:
				_ = msg.Ack()
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
