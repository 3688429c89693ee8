// Package memory holds process-local repositories for STORAGE_BACKEND=memory and tests. Values are
// copied on the way in and out so callers never share state with the store.
package memory

import (
	"context"

	"brainstorm-api/internal/utils/platformerrors"
)

func notFound(ctx context.Context, what, id string) error {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
		what+" not found", nil, "", map[string]any{"id": id})
}

func conflict(ctx context.Context, what, id string) error {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
		what+" already exists", nil, "", map[string]any{"id": id})
}

func cloneMetadata(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
