package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/formulary-lab/rxquery/pkg/utils/logging"
)

// Close closes a cache file or response body and logs the failure
// instead of dropping it. A nil closer is a no-op.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Write writes a serialized response and logs the failure instead of
// dropping it. A nil writer is a no-op.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Error("Failed to write", slog.Any("error", err))
	}
}
