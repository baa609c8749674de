package ports

import "context"

// Logger — минимальный контракт логгера для внешних слоёв.
// Debugf предназначен для полных параметров и ответов хранилища: в проде уровень debug выключается конфигурацией.
type Logger interface {
	Debugf(ctx context.Context, format string, args ...any) // Debugf — отладочные сообщения (payload).
	Infof(ctx context.Context, format string, args ...any)  // Infof — информационные сообщения.
	Warnf(ctx context.Context, format string, args ...any)  // Warnf — предупреждения.
	Errorf(ctx context.Context, format string, args ...any) // Errorf — ошибки.
}
