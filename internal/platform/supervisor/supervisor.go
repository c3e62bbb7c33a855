// Package supervisor builds the suture tree the daemon runs under.
package supervisor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/thejerf/suture/v4"
)

// New returns a supervisor that reports its events to log.
func New(name string, log *slog.Logger) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook: EventHook(log),
	})
}

func EventHook(log *slog.Logger) suture.EventHook {
	return func(ei suture.Event) {
		switch e := ei.(type) {
		case suture.EventStopTimeout:
			log.Warn("service failed to terminate in a timely manner",
				slog.String("supervisor", e.SupervisorName),
				slog.String("service", e.ServiceName))
		case suture.EventServicePanic:
			log.Error("service panicked",
				slog.String("supervisor", e.SupervisorName),
				slog.String("service", e.ServiceName),
				slog.String("panic", e.PanicMsg),
				slog.String("stacktrace", e.Stacktrace))
		case suture.EventServiceTerminate:
			log.Error("service failed",
				slog.Any("error", e.Err),
				slog.String("supervisor", e.SupervisorName),
				slog.String("service", e.ServiceName),
				slog.Bool("restarting", e.Restarting))
		case suture.EventBackoff:
			log.Debug("too many service failures, entering backoff", slog.String("supervisor", e.SupervisorName))
		case suture.EventResume:
			log.Debug("exiting backoff", slog.String("supervisor", e.SupervisorName))
		default:
			log.Warn("unknown supervisor event", slog.Int("type", int(e.Type())), slog.String("event", e.String()))
		}
	}
}

// Service is a suture service that names itself in logs.
type Service interface {
	String() string
	suture.Service
}

func Add(super *suture.Supervisor, service Service) suture.ServiceToken {
	return super.Add(sanitizeService{Service: service})
}

type sanitizeService struct {
	Service
}

func (s sanitizeService) Serve(ctx context.Context) error {
	return SanitizeError(ctx, s.Service.Serve(ctx))
}

// SanitizeError keeps a stray context error from a still running tree
// from being read as a shutdown request, which would stop suture from
// restarting the service.
func SanitizeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var errs []error
	if errors.Is(err, suture.ErrDoNotRestart) {
		errs = append(errs, suture.ErrDoNotRestart)
	}
	if errors.Is(err, suture.ErrTerminateSupervisorTree) {
		errs = append(errs, suture.ErrTerminateSupervisorTree)
	}
	errs = append(errs, errors.New(err.Error()))
	return errors.Join(errs...)
}

type ServiceFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func NewServiceFunc(name string, fn func(ctx context.Context) error) ServiceFunc {
	return ServiceFunc{name: name, fn: fn}
}

func (s ServiceFunc) String() string {
	return s.name
}

func (s ServiceFunc) Serve(ctx context.Context) error {
	return s.fn(ctx)
}
