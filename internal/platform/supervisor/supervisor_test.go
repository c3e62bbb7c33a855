package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/suture/v4"
)

func TestSanitizeError(t *testing.T) {
	live := context.Background()
	dead, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, SanitizeError(live, nil))

	plain := errors.New("boom")
	assert.Same(t, plain, SanitizeError(live, plain))

	err := SanitizeError(live, fmt.Errorf("dial: %w", context.Canceled))
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.Canceled)

	err = SanitizeError(live, fmt.Errorf("%w: %w", suture.ErrDoNotRestart, context.DeadlineExceeded))
	assert.ErrorIs(t, err, suture.ErrDoNotRestart)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)

	assert.ErrorIs(t, SanitizeError(dead, plain), context.Canceled)
}

func TestAdd_restarts_failing_service(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	super := New("test", log)

	var runs atomic.Int32
	serving := make(chan struct{})
	svc := NewServiceFunc("flaky", func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			return errors.New("first run fails")
		}
		close(serving)
		<-ctx.Done()
		return ctx.Err()
	})
	assert.Equal(t, "flaky", svc.String())
	Add(super, svc)

	ctx, cancel := context.WithCancel(context.Background())
	errC := super.ServeBackground(ctx)

	select {
	case <-serving:
	case <-time.After(5 * time.Second):
		t.Fatal("service was not restarted")
	}
	assert.EqualValues(t, 2, runs.Load())
	cancel()
	<-errC
}
