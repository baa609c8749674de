//go:build integration

package testutil

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/segmentio/kafka-go"
)

var reTopicUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// NewTopic — создаёт уникальный топик с partitions партициями и ждёт его в метаданных.
// Возвращает имя топика и имя consumer group для него.
func (e *KafkaEnv) NewTopic(ctx context.Context, name string, partitions int) (topic, group string, err error) {
	topic = reTopicUnsafe.ReplaceAllString(fmt.Sprintf("%s-%s-%s", e.Prefix, name, UniqSuffix()), "-")
	group = topic + "-group"

	client := &kafka.Client{Addr: kafka.TCP(e.Brokers...), Timeout: 10 * time.Second}

	resp, err := client.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{Topic: topic, NumPartitions: partitions, ReplicationFactor: 1}},
	})
	if err != nil {
		return "", "", fmt.Errorf("create topic %q: %w", topic, err)
	}
	if topicErr := resp.Errors[topic]; topicErr != nil && !errors.Is(topicErr, kafka.TopicAlreadyExists) {
		return "", "", fmt.Errorf("create topic %q: %w", topic, topicErr)
	}

	return topic, group, waitTopic(ctx, client, topic, partitions)
}

// waitTopic — опрос метаданных, пока у топика не появятся все партиции.
func waitTopic(ctx context.Context, client *kafka.Client, topic string, partitions int) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	var lastErr error
	for {
		md, err := client.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{topic}})
		switch {
		case err != nil:
			lastErr = err
		case len(md.Topics) == 1 && md.Topics[0].Error == nil && len(md.Topics[0].Partitions) == partitions:
			return nil
		case len(md.Topics) == 1:
			lastErr = md.Topics[0].Error
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("topic %q not ready: %w", topic, errors.Join(ctx.Err(), lastErr))
		case <-tick.C:
		}
	}
}

// Publish — синхронная запись сообщений в топик (ключ определяет партицию).
func (e *KafkaEnv) Publish(ctx context.Context, topic string, msgs ...kafka.Message) error {
	w := &kafka.Writer{
		Addr:         kafka.TCP(e.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	defer w.Close()
	return w.WriteMessages(ctx, msgs...)
}
