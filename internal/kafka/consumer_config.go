package kafka

import (
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ConsumerConfig — параметры чтения топика команд смены статуса.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset string        // first|last (регистр и пробелы не важны), по умолчанию last
	MaxWait     time.Duration // ожидание новых данных в одном fetch; 0 — значение kafka-go

	ProcessTimeout time.Duration // предел обработки одной команды
	RetryInitial   time.Duration // стартовая пауза после ошибки
	RetryMax       time.Duration // потолок паузы
}

// Validate — без брокеров, топика или группы консьюмер не стартует.
// Без GroupID kafka-go не умеет коммитить оффсеты.
func (c *ConsumerConfig) Validate() error {
	var errs []error
	if len(c.Brokers) == 0 || strings.TrimSpace(c.Brokers[0]) == "" {
		errs = append(errs, errors.New("brokers are required"))
	}
	if strings.TrimSpace(c.Topic) == "" {
		errs = append(errs, errors.New("topic is required"))
	}
	if strings.TrimSpace(c.GroupID) == "" {
		errs = append(errs, errors.New("group id is required"))
	}
	if c.RetryMax > 0 && c.RetryInitial > c.RetryMax {
		errs = append(errs, errors.New("retry initial must not exceed retry max"))
	}
	return errors.Join(errs...)
}

// ReaderConfig — kafka.ReaderConfig с ручным коммитом оффсетов.
func (c *ConsumerConfig) ReaderConfig() kafka.ReaderConfig {
	rc := kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		MaxWait:        c.MaxWait,
		CommitInterval: 0,
		StartOffset:    kafka.LastOffset,
	}
	if strings.EqualFold(strings.TrimSpace(c.StartOffset), "first") {
		rc.StartOffset = kafka.FirstOffset
	}
	return rc
}
