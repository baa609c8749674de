package validate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Gunvolt24/agrostore/internal/ports"
)

// ProcessJSONLStream — читает JSONL из reader’а, валидирует каждую строку и передаёт её в handle.
// Невалидные строки не прерывают обработку; пустые строки пропускаются.
func ProcessJSONLStream(ctx context.Context, validator ports.CommandValidator, ir io.Reader, handle RecordHandler) (Result, error) {
	var res Result

	scanner := bufio.NewScanner(ir)
	// запас на большие строки
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return res, err
		}

		lineBytes := bytes.TrimSpace(scanner.Bytes())
		if len(lineBytes) == 0 {
			continue
		}

		cmd, err := CommandFromJSON(ctx, validator, lineBytes)
		if err := res.dispatch(ctx, handle, Record{Line: line, Command: cmd, Err: err}); err != nil {
			return res, err
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan: %w", err)
	}
	return res, nil
}
