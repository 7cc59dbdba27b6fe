package nodes

import (
	"context"
	"fmt"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	"github.com/wilfredeveloper/mypa/assistant/memory"
)

// LoadMemory restores the session's entity store from its snapshot. A
// missing or corrupt snapshot yields a fresh store; this node cannot fail
// the pipeline over persistence.
func LoadMemory(ctx context.Context, in *GraphState, blobs contractx.BlobStore, opts ...memory.StoreOption) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Store = memory.Load(ctx, blobs, in.SessionID, opts...)
	in.Store.CleanupExpired()
	return in, nil
}
