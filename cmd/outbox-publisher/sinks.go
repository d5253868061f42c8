package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/config"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/redis"
)

// message is one relayed outbox row. Payload is the stored envelope.
type message struct {
	Topic      string
	Key        string
	Payload    json.RawMessage
	Attributes map[string]string
}

// sink delivers messages to whatever the Discord bot listens on.
type sink interface {
	Name() string
	Send(ctx context.Context, msg message) error
	Ping(ctx context.Context) error
	Close() error
}

type redisPublisher interface {
	redis.Publisher
	redis.Pinger
}

// redisSink publishes each message as a JSON frame on a pub/sub channel.
// Pub/sub carries no headers so the attributes travel inside the frame.
type redisSink struct {
	client redisPublisher
}

type redisFrame struct {
	Attributes map[string]string `json:"attributes"`
	Envelope   json.RawMessage   `json:"envelope"`
}

func newRedisSink(client redisPublisher) (*redisSink, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &redisSink{client: client}, nil
}

func (s *redisSink) Name() string { return config.OutboxSinkRedis }

func (s *redisSink) Send(ctx context.Context, msg message) error {
	frame, err := json.Marshal(redisFrame{Attributes: msg.Attributes, Envelope: msg.Payload})
	if err != nil {
		return fmt.Errorf("encode redis frame: %w", err)
	}
	if _, err := s.client.Publish(ctx, msg.Topic, frame); err != nil {
		return fmt.Errorf("redis publish %s: %w", msg.Topic, err)
	}
	return nil
}

func (s *redisSink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

// Close is a no-op; the redis client is owned by main.
func (s *redisSink) Close() error { return nil }

// kafkaSink writes each message to a topic keyed by aggregate id so one
// order's events stay in partition order.
type kafkaSink struct {
	producer sarama.SyncProducer
}

func newKafkaSink(cfg config.KafkaConfig) (*kafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = cfg.ClientID
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Idempotent = true
	saramaCfg.Net.MaxOpenRequests = 1
	saramaCfg.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &kafkaSink{producer: producer}, nil
}

func newKafkaSinkFromProducer(producer sarama.SyncProducer) *kafkaSink {
	return &kafkaSink{producer: producer}
}

func (s *kafkaSink) Name() string { return config.OutboxSinkKafka }

func (s *kafkaSink) Send(ctx context.Context, msg message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	headers := make([]sarama.RecordHeader, 0, len(msg.Attributes))
	for key, value := range msg.Attributes {
		headers = append(headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}
	_, _, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   msg.Topic,
		Key:     sarama.StringEncoder(msg.Key),
		Value:   sarama.ByteEncoder(msg.Payload),
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("kafka send %s: %w", msg.Topic, err)
	}
	return nil
}

// Ping has no broker round trip in sarama's producer API; a constructed
// producer already completed metadata discovery.
func (s *kafkaSink) Ping(ctx context.Context) error {
	if s.producer == nil {
		return errors.New("kafka producer not initialized")
	}
	return ctx.Err()
}

func (s *kafkaSink) Close() error {
	if s.producer == nil {
		return nil
	}
	return s.producer.Close()
}

// topicFor picks the destination configured for the selected sink.
func topicFor(cfg *config.Config) string {
	if strings.EqualFold(strings.TrimSpace(cfg.Outbox.Sink), config.OutboxSinkKafka) {
		return cfg.Kafka.Topic
	}
	return cfg.Outbox.Channel
}
