package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

const (
	TopicReactionCompleted = "reaction.completed"

	EventReactionCompleted = "ReactionCompleted"
	SourceService          = "archem"
)

// EventEnvelope wraps every published event.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ReactionCompletedPayload describes one executed reaction.
type ReactionCompletedPayload struct {
	RequestID       string    `json:"request_id,omitempty"`
	Reagent         string    `json:"reagent"`
	ReactionType    string    `json:"reaction_type"`
	ReactantKey     string    `json:"reactant_key,omitempty"`
	ProductKey      string    `json:"product_key,omitempty"`
	ReactantFormula string    `json:"reactant_formula"`
	ProductFormula  string    `json:"product_formula"`
	ConvertedBonds  int       `json:"converted_bonds"`
	CacheHit        bool      `json:"cache_hit"`
	CompletedAt     time.Time `json:"completed_at"`
}

// NewEventEnvelope marshals payload into a fresh envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.  An empty payload
// leaves target untouched.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

// ToMessage encodes the envelope for topic, keyed by key.
func (e *EventEnvelope) ToMessage(topic string, key string) (*Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers["trace_id"] = e.TraceID
	}
	return &Message{
		Topic:     topic,
		Key:       []byte(key),
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

// MessagePublisher is satisfied by *Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// ReactionEvents publishes reaction.completed events.
type ReactionEvents struct {
	publisher MessagePublisher
	topic     string
}

// NewReactionEvents publishes to topic, or TopicReactionCompleted when
// topic is empty.
func NewReactionEvents(p MessagePublisher, topic string) *ReactionEvents {
	if topic == "" {
		topic = TopicReactionCompleted
	}
	return &ReactionEvents{publisher: p, topic: topic}
}

// ReactionCompleted publishes payload keyed by reagent so one reagent's
// events stay ordered on a partition.
func (r *ReactionEvents) ReactionCompleted(ctx context.Context, payload ReactionCompletedPayload) error {
	if payload.CompletedAt.IsZero() {
		payload.CompletedAt = time.Now().UTC()
	}
	env, err := NewEventEnvelope(EventReactionCompleted, SourceService, payload)
	if err != nil {
		return err
	}
	env.TraceID = payload.RequestID
	msg, err := env.ToMessage(r.topic, payload.Reagent)
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, msg)
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// TopicManager creates topics on startup.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the first broker.
func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessaging, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger.Named("kafka")}, nil
}

// CreateTopic creates cfg.  An existing topic is not an error.
func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 || cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "partitions and replication factor must be > 0")
	}
	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{
			ConfigName:  "retention.ms",
			ConfigValue: strconv.FormatInt(cfg.RetentionMs, 10),
		})
	}
	if err := m.conn.CreateTopics(kCfg); err != nil {
		if strings.Contains(err.Error(), "already exists") || m.TopicExists(ctx, cfg.Name) {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeMessaging, "failed to create topic").WithDetail("topic=" + cfg.Name)
	}
	m.logger.Info("Topic created", logging.String("topic", cfg.Name))
	return nil
}

// TopicExists reports whether name has partitions.
func (m *TopicManager) TopicExists(_ context.Context, name string) bool {
	partitions, err := m.conn.ReadPartitions(name)
	return err == nil && len(partitions) > 0
}

// EnsureDefaultTopics creates the topics the service publishes to.
func (m *TopicManager) EnsureDefaultTopics(ctx context.Context) error {
	for _, t := range DefaultTopics() {
		if err := m.CreateTopic(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the broker connection.
func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// DefaultTopics lists the service's topics.
func DefaultTopics() []TopicConfig {
	return []TopicConfig{
		{Name: TopicReactionCompleted, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: 7 * 24 * 3600 * 1000},
	}
}
