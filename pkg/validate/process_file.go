package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/internal/ports"
)

// InputFormat допустимые значения.
type InputFormat string

const (
	FormatAuto  InputFormat = "auto"
	FormatJSON  InputFormat = "json"
	FormatJSONL InputFormat = "jsonl"
)

// Record — одна команда из входа: либо Command, либо Err (обёрнутый ErrInvalidCommand).
type Record struct {
	Line    int
	Command *domain.StatusCommand
	Err     error
}

// RecordHandler — обработчик записи; ошибка прерывает обработку входа.
type RecordHandler func(ctx context.Context, rec Record) error

// Result — статистика валидации входа.
type Result struct {
	Valid   int
	Invalid int
}

func (r Result) String() string {
	return fmt.Sprintf("%d valid / %d invalid", r.Valid, r.Invalid)
}

func (r *Result) dispatch(ctx context.Context, handle RecordHandler, rec Record) error {
	if rec.Err != nil {
		r.Invalid++
	} else {
		r.Valid++
	}
	if handle == nil {
		return nil
	}
	return handle(ctx, rec)
}

// DetectFormat — формат по расширению; по умолчанию JSON.
func DetectFormat(path string) InputFormat {
	if strings.ToLower(filepath.Ext(path)) == ".jsonl" {
		return FormatJSONL
	}
	return FormatJSON
}

// ProcessFile — открывает файл и обрабатывает его как JSON или JSONL (auto — по расширению).
func ProcessFile(ctx context.Context, validator ports.CommandValidator, filePath string, format InputFormat, handle RecordHandler) (Result, error) {
	if format == FormatAuto {
		format = DetectFormat(filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return ProcessReader(ctx, validator, file, format, handle)
}

// ProcessReader — то же для произвольного reader’а (stdin); auto трактуется как JSONL.
func ProcessReader(ctx context.Context, validator ports.CommandValidator, ir io.Reader, format InputFormat, handle RecordHandler) (Result, error) {
	switch format {
	case FormatJSON:
		raw, err := io.ReadAll(ir)
		if err != nil {
			return Result{}, fmt.Errorf("read input: %w", err)
		}
		return ProcessJSON(ctx, validator, raw, handle)

	case FormatJSONL, FormatAuto:
		return ProcessJSONLStream(ctx, validator, ir, handle)

	default:
		return Result{}, fmt.Errorf("unsupported format: %s", format)
	}
}
