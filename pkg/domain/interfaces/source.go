package interfaces

import (
	"context"

	"github.com/mnemo-lab/mnemo/pkg/domain/model"
)

// Source fetches member messages from an external system. Implementations
// return types.ErrSourceUnavailable when the system is unreachable and
// types.ErrSourceAuth when credentials are rejected.
type Source interface {
	// Fetch returns up to limit message records. Truncation at limit is
	// deterministic (source order, capped).
	Fetch(ctx context.Context, limit int) ([]*model.MessageRecord, error)
}
