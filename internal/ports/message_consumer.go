package ports

import "context"

// MessageConsumer — фоновый обработчик входящих команд (Kafka).
type MessageConsumer interface {
	Run(ctx context.Context) error
	Close() error
}
