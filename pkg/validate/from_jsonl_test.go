package validate

import (
	"context"
	"strings"
	"testing"
)

func TestProcessJSONLStream_Mixed(t *testing.T) {
	input := strings.Join([]string{
		`{"order_id":"o-1","status":"shipped"}`,
		`{"order_id":"o-2"}`, // нет статуса
		``,                   // пустая строка — пропуск
		`garbage`,
		`{"order_id":"o-3","status":"delivered"}`,
	}, "\n")

	var got []Record
	res, err := ProcessJSONLStream(context.Background(), NewCommandValidator(), strings.NewReader(input), collect(&got))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid != 2 || res.Invalid != 2 {
		t.Fatalf("unexpected counters: %+v", res)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 records (empty line skipped), got %d", len(got))
	}
	// номера строк — по исходному файлу
	if got[2].Line != 4 || got[3].Line != 5 || got[3].Command.OrderID != "o-3" {
		t.Fatalf("unexpected line numbers: %+v", got)
	}
}

func TestProcessJSONLStream_LargeLine(t *testing.T) {
	bigID := strings.Repeat("X", 200_000) // > 64KB, но валидатор отбракует по длине
	input := `{"order_id":"` + bigID + `","status":"shipped"}` + "\n"

	res, err := ProcessJSONLStream(context.Background(), NewCommandValidator(), strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("scanner must accept long lines: %v", err)
	}
	if res.Valid != 0 || res.Invalid != 1 {
		t.Fatalf("unexpected counters: %+v", res)
	}
}

func TestProcessJSONLStream_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ProcessJSONLStream(ctx, NewCommandValidator(), strings.NewReader(`{"order_id":"o","status":"s"}`), nil)
	if err == nil {
		t.Fatalf("expected context error")
	}
}
