package kafka

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/agrostore/internal/ports"
	"github.com/Gunvolt24/agrostore/pkg/metrics"
)

var _ ports.MessageConsumer = (*Consumer)(nil)

// reader — минимальный контракт над kafka.Reader (подменяется моками в тестах).
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
	Close() error
}

// messageApplier — разбор команды и смена статуса через цепочку попыток.
type messageApplier interface {
	ApplyFromMessage(ctx context.Context, raw []byte) error
}

// Consumer — читает команды смены статуса из Kafka и применяет их по одной.
type Consumer struct {
	reader         reader
	service        messageApplier
	log            ports.Logger
	processTimeout time.Duration
	retryInitial   time.Duration
	retryMax       time.Duration
	rnd            *rand.Rand
	closeOnce      sync.Once
}

// NewConsumer — нулевые интервалы заменяются значениями по умолчанию.
func NewConsumer(cfg *ConsumerConfig, service messageApplier, log ports.Logger) *Consumer {
	return newConsumer(kafka.NewReader(cfg.ReaderConfig()), cfg, service, log)
}

func newConsumer(r reader, cfg *ConsumerConfig, service messageApplier, log ports.Logger) *Consumer {
	return &Consumer{
		reader:         r,
		service:        service,
		log:            log,
		processTimeout: orDefault(cfg.ProcessTimeout, 10*time.Second),
		retryInitial:   orDefault(cfg.RetryInitial, time.Second),
		retryMax:       orDefault(cfg.RetryMax, 30*time.Second),
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run — цикл до отмены ctx: сообщение читается без авто-коммита, применяется и только затем коммитится.
// Постоянная ошибка команды (невалидна, заказа нет, статус отклонён) тоже коммитится.
// Временная ошибка повторяется на том же сообщении; при остановке оно остаётся некоммиченным
// и будет доставлено заново (at-least-once).
func (c *Consumer) Run(ctx context.Context) error {
	rc := c.reader.Config()
	c.log.Infof(ctx, "kafka consumer started topic=%s group_id=%s brokers=%v", rc.Topic, rc.GroupID, rc.Brokers)

	for {
		msg, err := c.fetch(ctx)
		if err != nil {
			return err
		}
		metrics.KafkaMessagesConsumed.WithLabelValues(rc.Topic).Inc()

		if !c.apply(ctx, rc.Topic, &msg) {
			return ctx.Err()
		}
		c.commitSafely(ctx, &msg)
	}
}

// fetch — следующее сообщение; ошибки брокера повторяются с паузой.
func (c *Consumer) fetch(ctx context.Context) (kafka.Message, error) {
	bo := c.newBackoff()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err == nil {
			return msg, nil
		}
		if ctx.Err() != nil {
			return kafka.Message{}, ctx.Err()
		}
		pause := bo.next()
		c.log.Warnf(ctx, "fetch failed: %v (will retry in %s)", err, pause)
		if !sleepCtx(ctx, pause) {
			return kafka.Message{}, ctx.Err()
		}
	}
}

// apply — обработка одного сообщения до итога; false — ctx отменён раньше.
// Следующий оффсет не читается, пока текущий не применён: иначе его коммит накрыл бы неудачную команду.
func (c *Consumer) apply(ctx context.Context, topic string, msg *kafka.Message) bool {
	bo := c.newBackoff()
	for attempt := 1; ; attempt++ {
		if c.handleMessage(ctx, topic, msg, attempt) {
			return true
		}
		if !sleepCtx(ctx, bo.next()) {
			return false
		}
	}
}

// Close — закрывает reader; повторные вызовы ничего не делают.
func (c *Consumer) Close() (retErr error) {
	c.closeOnce.Do(func() {
		retErr = c.reader.Close()
	})
	return retErr
}
