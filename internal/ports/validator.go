package ports

import (
	"context"

	"github.com/Gunvolt24/agrostore/internal/domain"
)

type CommandValidator interface {
	Validate(ctx context.Context, cmd *domain.StatusCommand) error
}
