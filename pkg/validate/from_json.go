package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/internal/ports"
)

// CommandFromJSON — строгий разбор одной команды и её валидация.
// Неизвестные поля и данные после объекта — ошибка; любая ошибка оборачивает ErrInvalidCommand.
func CommandFromJSON(ctx context.Context, validator ports.CommandValidator, raw []byte) (*domain.StatusCommand, error) {
	var cmd domain.StatusCommand
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrInvalidCommand, err)
	}
	// гарантируем отсутствие данных после объекта
	if err := dec.Decode(new(struct{})); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: invalid json: trailing data", ErrInvalidCommand)
	}
	if err := validator.Validate(ctx, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// ProcessJSON — документ JSON: один объект-команда или массив команд.
// Каждый элемент массива проверяется отдельно и передаётся в handle (Line — номер элемента с 1).
func ProcessJSON(ctx context.Context, validator ports.CommandValidator, raw []byte, handle RecordHandler) (Result, error) {
	var res Result

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		cmd, err := CommandFromJSON(ctx, validator, trimmed)
		err = res.dispatch(ctx, handle, Record{Line: 1, Command: cmd, Err: err})
		return res, err
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		res.Invalid++
		return res, fmt.Errorf("%w: invalid json array: %v", ErrInvalidCommand, err)
	}

	for i, elem := range elems {
		cmd, err := CommandFromJSON(ctx, validator, elem)
		if err := res.dispatch(ctx, handle, Record{Line: i + 1, Command: cmd, Err: err}); err != nil {
			return res, err
		}
	}
	return res, nil
}
