package metrics_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/Gunvolt24/agrostore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustRegister_IsIdempotent(t *testing.T) {
	// Должно выполняться без паники даже при повторном вызове.
	t.Helper()
	metrics.MustRegister()
	metrics.MustRegister()
}

func TestKafkaCounters_Inc(t *testing.T) {
	metrics.MustRegister()

	beforeConsumed := testutil.ToFloat64(metrics.KafkaMessagesConsumed.WithLabelValues("order-status-commands"))
	beforeProcessed := testutil.ToFloat64(metrics.KafkaMessagesProcessed.WithLabelValues("order-status-commands"))
	beforeFailed := testutil.ToFloat64(metrics.KafkaMessagesFailed.WithLabelValues("order-status-commands"))

	metrics.KafkaMessagesConsumed.WithLabelValues("order-status-commands").Inc()
	metrics.KafkaMessagesProcessed.WithLabelValues("order-status-commands").Inc()
	metrics.KafkaMessagesFailed.WithLabelValues("order-status-commands").Inc()

	if got := testutil.ToFloat64(metrics.KafkaMessagesConsumed.WithLabelValues("order-status-commands")); got != beforeConsumed+1 {
		t.Fatalf("KafkaMessagesConsumed: got=%v want=%v", got, beforeConsumed+1)
	}
	if got := testutil.ToFloat64(metrics.KafkaMessagesProcessed.WithLabelValues("order-status-commands")); got != beforeProcessed+1 {
		t.Fatalf("KafkaMessagesProcessed: got=%v want=%v", got, beforeProcessed+1)
	}
	if got := testutil.ToFloat64(metrics.KafkaMessagesFailed.WithLabelValues("order-status-commands")); got != beforeFailed+1 {
		t.Fatalf("KafkaMessagesFailed: got=%v want=%v", got, beforeFailed+1)
	}
}

func TestCacheOps_CountersByLabel(t *testing.T) {
	metrics.MustRegister()

	hitBefore := testutil.ToFloat64(metrics.CacheOps.WithLabelValues("hit"))
	missBefore := testutil.ToFloat64(metrics.CacheOps.WithLabelValues("miss"))

	metrics.CacheOps.WithLabelValues("hit").Inc()
	metrics.CacheOps.WithLabelValues("hit").Inc()

	if got := testutil.ToFloat64(metrics.CacheOps.WithLabelValues("hit")); got != hitBefore+2 {
		t.Fatalf("CacheOps(hit): got=%v want=%v", got, hitBefore+2)
	}
	if got := testutil.ToFloat64(metrics.CacheOps.WithLabelValues("miss")); got != missBefore {
		t.Fatalf("CacheOps(miss): got=%v want=%v", got, missBefore)
	}
}

func TestCacheSize_GaugeSet(t *testing.T) {
	metrics.MustRegister()

	cur := testutil.ToFloat64(metrics.CacheSize)

	metrics.CacheSize.Set(cur + 5)
	if got := testutil.ToFloat64(metrics.CacheSize); got != cur+5 {
		t.Fatalf("CacheSize after +5: got=%v want=%v", got, cur+5)
	}

	metrics.CacheSize.Set(cur) // вернуть как было
	if got := testutil.ToFloat64(metrics.CacheSize); got != cur {
		t.Fatalf("CacheSize restore: got=%v want=%v", got, cur)
	}
}

func TestOrderStatusUpdates_ByStrategyAndOutcome(t *testing.T) {
	metrics.MustRegister()

	before := testutil.ToFloat64(metrics.OrderStatusUpdates.WithLabelValues("procedure", "ok"))
	primaryBefore := testutil.ToFloat64(metrics.OrderStatusUpdates.WithLabelValues("primary", "ok"))

	metrics.OrderStatusUpdates.WithLabelValues("procedure", "ok").Inc()

	if got := testutil.ToFloat64(metrics.OrderStatusUpdates.WithLabelValues("procedure", "ok")); got != before+1 {
		t.Fatalf("OrderStatusUpdates(procedure,ok): got=%v want=%v", got, before+1)
	}
	if got := testutil.ToFloat64(metrics.OrderStatusUpdates.WithLabelValues("primary", "ok")); got != primaryBefore {
		t.Fatalf("OrderStatusUpdates(primary,ok) must not change: got=%v want=%v", got, primaryBefore)
	}
}

func TestOrderStatusAttemptDuration_Observe(t *testing.T) {
	metrics.MustRegister()

	before := testutil.CollectAndCount(metrics.OrderStatusAttemptDuration)
	// уникальная метка — новая серия даже при -count>1
	metrics.OrderStatusAttemptDuration.WithLabelValues(fmt.Sprintf("test-%d", time.Now().UnixNano())).Observe(0.01)
	if got := testutil.CollectAndCount(metrics.OrderStatusAttemptDuration); got != before+1 {
		t.Fatalf("histogram series: got=%d want=%d", got, before+1)
	}
}
