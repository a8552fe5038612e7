package errutil_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/formulary-lab/rxquery/pkg/utils/errutil"
	"github.com/formulary-lab/rxquery/pkg/utils/logging"
)

func loggerContext() (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return logging.With(context.Background(), logger), &buf
}

func TestHandle(t *testing.T) {
	ctx, buf := loggerContext()

	src := goerr.New("cache unreadable", goerr.V("path", "data/parsed/formulary.json"))
	got := errutil.Handle(ctx, src, "failed to run app")

	// The error flows through unchanged
	gt.Bool(t, got == src).True()

	out := buf.String()
	gt.Bool(t, strings.Contains(out, "failed to run app")).True()
	gt.Bool(t, strings.Contains(out, "cache unreadable")).True()
	gt.Bool(t, strings.Contains(out, "data/parsed/formulary.json")).True()
}

func TestHandleNil(t *testing.T) {
	ctx, buf := loggerContext()

	gt.NoError(t, errutil.Handle(ctx, nil, "should not log"))
	gt.Value(t, buf.Len()).Equal(0)
}

func TestHandlePlainError(t *testing.T) {
	ctx, buf := loggerContext()

	src := context.DeadlineExceeded
	got := errutil.Handle(ctx, src, "timed out")

	gt.Bool(t, got == src).True()
	gt.Bool(t, strings.Contains(buf.String(), "timed out")).True()
}
