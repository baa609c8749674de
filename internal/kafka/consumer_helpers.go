package kafka

import (
	"context"
	"math/rand"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/agrostore/internal/usecase"
	"github.com/Gunvolt24/agrostore/pkg/ctxmeta"
	"github.com/Gunvolt24/agrostore/pkg/metrics"
)

// handleMessage — одна попытка применить команду; true — оффсет можно коммитить.
// Ключ сообщения — order_id: команды одного заказа идут через одну партицию по порядку.
func (c *Consumer) handleMessage(ctx context.Context, topic string, msg *kafka.Message, attempt int) bool {
	ctx = ctxmeta.WithSource(ctx, ctxmeta.SourceKafka)
	if len(msg.Key) > 0 {
		ctx = ctxmeta.WithOrderID(ctx, string(msg.Key))
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, c.processTimeout)
	err := c.service.ApplyFromMessage(ctxTimeout, msg.Value)
	cancel()

	switch {
	case err == nil:
		metrics.KafkaMessagesProcessed.WithLabelValues(topic).Inc()
		return true
	case usecase.IsPermanent(err):
		metrics.KafkaMessagesFailed.WithLabelValues(topic).Inc()
		c.log.Warnf(ctx, "status command rejected partition=%d offset=%d: %v (skipped)", msg.Partition, msg.Offset, err)
		return true
	default:
		metrics.KafkaMessagesFailed.WithLabelValues(topic).Inc()
		c.log.Warnf(ctx, "status command failed partition=%d offset=%d attempt=%d: %v (not committed)",
			msg.Partition, msg.Offset, attempt, err)
		return false
	}
}

// commitSafely — ошибка коммита только логируется: сообщение придёт повторно, а команда идемпотентна.
func (c *Consumer) commitSafely(ctx context.Context, msg *kafka.Message) {
	if err := c.reader.CommitMessages(ctx, *msg); err != nil {
		c.log.Warnf(ctx, "commit failed partition=%d offset=%d: %v", msg.Partition, msg.Offset, err)
	}
}

// backoff — удваивающаяся пауза с потолком и equal jitter.
type backoff struct {
	cur time.Duration
	max time.Duration
	rnd *rand.Rand
}

func (c *Consumer) newBackoff() *backoff {
	return &backoff{cur: c.retryInitial, max: c.retryMax, rnd: c.rnd}
}

// next — текущая пауза с джиттером; база для следующего вызова удваивается до max.
func (b *backoff) next() time.Duration {
	d := equalJitter(b.rnd, b.cur)
	b.cur = min(b.cur*2, b.max)
	return d
}

// equalJitter — половина задержки фиксирована, вторая половина случайна: [d/2, d].
func equalJitter(rnd *rand.Rand, d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rnd.Int63n(int64(d-half)+1))
}

// sleepCtx — false, если ctx отменён раньше окончания паузы.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func orDefault(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
