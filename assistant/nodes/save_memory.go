package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
)

// SaveMemory snapshots the session store back to the blob store. Persistence
// failures are logged, not surfaced: the user already has their answer and
// memory loss degrades the next turn, it does not break this one.
func SaveMemory(ctx context.Context, in *GraphState, blobs contractx.BlobStore) (*GraphState, error) {
	if in == nil || in.Store == nil {
		return nil, fmt.Errorf("%w: memory store is required", contractx.ErrValidation)
	}

	if err := in.Store.Save(ctx, blobs); err != nil {
		log.Warn().Err(err).Str("session_id", in.SessionID).Msg("failed to persist memory snapshot")
	}
	return in, nil
}
