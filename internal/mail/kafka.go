package mail

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"muhtaref/internal/config"
)

// EventMailRequested is the type of events consumed by the mail worker.
const EventMailRequested = "mail.requested"

// MailEvent is the JSON payload published for every message.
type MailEvent struct {
	Type        string    `json:"type"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	HTMLBody    string    `json:"html_body,omitempty"`
	TextBody    string    `json:"text_body,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender hands messages to an external mail worker over kafka.
type KafkaSender struct {
	writer  messageWriter
	missing []string
	logger  *zap.Logger
}

// NewKafkaSender builds a producer for cfg. An incomplete cfg yields a sender
// whose Send always returns a ConfigError.
func NewKafkaSender(cfg config.KafkaConfig, logger *zap.Logger) *KafkaSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &KafkaSender{logger: logger.Named("mail")}
	if s.missing = cfg.Missing(); len(s.missing) > 0 {
		return s
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Topic:        cfg.MailTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	if cfg.Username != "" {
		w.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: cfg.Username, Password: cfg.Password},
			TLS:  &tls.Config{},
		}
	}
	s.writer = w
	return s
}

func newKafkaSenderWithWriter(w messageWriter, logger *zap.Logger) *KafkaSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSender{writer: w, logger: logger}
}

func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	if len(s.missing) > 0 || s.writer == nil {
		return &ConfigError{Transport: "kafka", Missing: s.missing}
	}

	payload, err := json.Marshal(MailEvent{
		Type:        EventMailRequested,
		To:          msg.To,
		Subject:     msg.Subject,
		HTMLBody:    msg.HTMLBody,
		TextBody:    msg.TextBody,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}

	s.logger.Info("mail event published", zap.String("to", msg.To))
	return nil
}

func (s *KafkaSender) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

// NewSender picks the transport named by cfg.MailTransport.
func NewSender(cfg *config.Config, logger *zap.Logger) (Sender, error) {
	switch cfg.MailTransport {
	case "", "smtp":
		return NewSMTPSender(cfg.SMTP, logger), nil
	case "kafka":
		return NewKafkaSender(cfg.Kafka, logger), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.MailTransport)
	}
}
