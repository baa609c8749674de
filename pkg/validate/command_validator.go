package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/internal/ports"
)

// Проверка, что CommandValidator удовлетворяет интерфейсу порта.
var _ ports.CommandValidator = (*CommandValidator)(nil)

// ErrInvalidCommand — базовая (sentinel error) ошибка валидации команды.
var ErrInvalidCommand = errors.New("status command validation failed")

// maxOrderIDLen — верхняя граница длины id; дальше это заведомо мусор.
// Длину статуса не ограничиваем: любое неизвестное значение отклоняет хранилище.
const maxOrderIDLen = 256

// CommandValidator — проверка команды смены статуса.
// Статус не сверяется с перечнем: допустимые значения знает хранилище (CHECK).
type CommandValidator struct{}

// NewCommandValidator — конструктор CommandValidator.
// Возвращает ErrInvalidCommand (с обёрнутой причиной) при любой проблеме.
func NewCommandValidator() *CommandValidator { return &CommandValidator{} }

// Validate — нормализует (обрезает пробелы) и проверяет поля команды.
func (v *CommandValidator) Validate(_ context.Context, cmd *domain.StatusCommand) error {
	if cmd == nil {
		return fmt.Errorf("%w: команда не может быть nil", ErrInvalidCommand)
	}

	cmd.OrderID = strings.TrimSpace(cmd.OrderID)
	cmd.Status = domain.Status(strings.TrimSpace(string(cmd.Status)))

	if cmd.OrderID == "" {
		return fmt.Errorf("%w: order_id обязателен", ErrInvalidCommand)
	}
	if cmd.Status == "" {
		return fmt.Errorf("%w: status обязателен", ErrInvalidCommand)
	}
	if utf8.RuneCountInString(cmd.OrderID) > maxOrderIDLen {
		return fmt.Errorf("%w: order_id длиннее %d символов", ErrInvalidCommand, maxOrderIDLen)
	}
	return nil
}
