package domain

import (
	"errors"
	"time"
)

var (
	// ErrOrderNotFound — заказ с таким идентификатором отсутствует.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusRejected — хранилище отклонило значение статуса (нарушение ограничения).
	ErrStatusRejected = errors.New("status rejected by store")
	// ErrUpdateFailed — все попытки обновления статуса завершились ошибкой.
	ErrUpdateFailed = errors.New("order status update failed")
)

// StatusCommand — команда смены статуса (HTTP, Kafka, CLI).
type StatusCommand struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
}

// UpdateStrategy — способ, которым была выполнена (или предпринята) попытка обновления.
type UpdateStrategy string

const (
	// StrategyPrimary — прямой UPDATE с сервисными правами.
	StrategyPrimary UpdateStrategy = "primary"
	// StrategyProcedure — вызов хранимой процедуры.
	StrategyProcedure UpdateStrategy = "procedure"
	// StrategyRaw — UPDATE с пользовательскими правами (подчиняется RLS).
	StrategyRaw UpdateStrategy = "raw"
)

// Attempt — одна попытка из цепочки.
type Attempt struct {
	Strategy UpdateStrategy `json:"strategy"`
	Err      error          `json:"-"`
	Duration time.Duration  `json:"duration"`
}

// UpdateResult — итог смены статуса; живёт в пределах одного запроса.
type UpdateResult struct {
	OrderID  string         `json:"order_id"`
	Status   Status         `json:"status"`
	OK       bool           `json:"ok"`
	Strategy UpdateStrategy `json:"strategy,omitempty"`
	Order    *Order         `json:"order,omitempty"` // nil, если сработавший способ не вернул запись
	Attempts []Attempt      `json:"attempts"`
	Err      error          `json:"-"`
}

// FallbackUsed — true, если успех получен не основным способом.
func (r *UpdateResult) FallbackUsed() bool {
	return r != nil && r.OK && r.Strategy != StrategyPrimary
}
