// Package eventloop runs closures one at a time on a single goroutine.
package eventloop

import (
	"context"
	"errors"
	"fmt"
)

// ErrPanicked is returned by Do when the closure panicked.
var ErrPanicked = errors.New("eventloop: operation panicked")

// Loop serialises work submitted from many goroutines.
type Loop struct {
	name string
	work chan func()
}

func New(name string) *Loop {
	return &Loop{
		name: name,
		work: make(chan func()),
	}
}

func (l *Loop) String() string {
	return l.name
}

// Serve runs submitted closures until ctx is done. A panicking closure
// stops Serve; calling it again resumes the loop.
func (l *Loop) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.work:
			fn()
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to finish. It fails
// without running fn when ctx ends first. A panic in fn is reported as
// ErrPanicked and then raised again on the loop goroutine, stopping Serve.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan any, 1)
	task := func() {
		defer func() {
			r := recover()
			finished <- r
			if r != nil {
				panic(r)
			}
		}()
		fn()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.work <- task:
	}
	if r := <-finished; r != nil {
		return fmt.Errorf("%w: %v", ErrPanicked, r)
	}
	return nil
}
