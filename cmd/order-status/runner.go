package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/pkg/ctxmeta"
	"github.com/Gunvolt24/agrostore/pkg/validate"
)

// statusUpdater — смена статуса через ту же цепочку попыток, что и у HTTP/Kafka.
type statusUpdater interface {
	UpdateStatus(ctx context.Context, orderID string, status domain.Status) (*domain.UpdateResult, error)
}

// resultLine — одна строка отчёта (JSONL) на каждую команду входа.
type resultLine struct {
	Line     int           `json:"line"`
	OrderID  string        `json:"order_id,omitempty"`
	Status   domain.Status `json:"status,omitempty"`
	Valid    bool          `json:"valid"`
	Applied  bool          `json:"applied"`
	Strategy string        `json:"strategy,omitempty"`
	Attempts []attemptLine `json:"attempts,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type attemptLine struct {
	Strategy   string  `json:"strategy"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// runner — применяет провалидированные команды и пишет отчёт.
type runner struct {
	updater statusUpdater // nil — только проверка (dry-run)
	out     *json.Encoder

	applied int
	failed  int
}

func newRunner(updater statusUpdater, w io.Writer) *runner {
	return &runner{updater: updater, out: json.NewEncoder(w)}
}

func (r *runner) handle(ctx context.Context, rec validate.Record) error {
	line := resultLine{Line: rec.Line, Valid: rec.Err == nil}
	if rec.Err != nil {
		line.Error = rec.Err.Error()
		return r.out.Encode(line)
	}

	line.OrderID = rec.Command.OrderID
	line.Status = rec.Command.Status
	if r.updater == nil {
		return r.out.Encode(line)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx = ctxmeta.WithSource(ctx, ctxmeta.SourceCLI)
	res, err := r.updater.UpdateStatus(ctx, rec.Command.OrderID, rec.Command.Status)
	if res != nil {
		for _, a := range res.Attempts {
			al := attemptLine{Strategy: string(a.Strategy), DurationMS: float64(a.Duration.Microseconds()) / 1000}
			if a.Err != nil {
				al.Error = a.Err.Error()
			}
			line.Attempts = append(line.Attempts, al)
		}
	}
	if err != nil {
		r.failed++
		line.Error = err.Error()
		return r.out.Encode(line)
	}

	r.applied++
	line.Applied = true
	line.Strategy = string(res.Strategy)
	return r.out.Encode(line)
}
