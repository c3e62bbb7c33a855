package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"videooutputd/internal/aspect"
	"videooutputd/internal/hal"
	"videooutputd/internal/platform/config"
	"videooutputd/internal/platform/eventloop"
	"videooutputd/internal/platform/logger"
	"videooutputd/internal/platform/metrics"
	"videooutputd/internal/platform/ratelimit"
	"videooutputd/internal/platform/supervisor"
	"videooutputd/internal/subscription"
	"videooutputd/internal/videooutput"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
)

type Options struct {
	Debug            bool   `doc:"enable debug logging"`
	Host             string `doc:"host to listen on"`
	Port             int    `doc:"port to listen on" default:"8080"`
	LogFormat        string `doc:"log format: json, text or console" default:"json"`
	Platform         string `doc:"plane description file, built-in dual window panel when empty"`
	Settings         string `doc:"aspect ratio settings file" default:"aspect-ratio.yaml"`
	NegativePosition bool   `doc:"clip display windows hanging off screen instead of rejecting them"`
	RateLimit        int    `doc:"requests per minute per client address, 0 disables" default:"600"`
}

func main() {
	_ = config.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		rt := config.LoadRuntime()
		if options.Debug {
			rt.LogLevel = "debug"
		}
		base := logger.New(rt.LogLevel, options.LogFormat)
		slog.SetDefault(base)

		OnServe(hooks, func(ctx context.Context) error {
			return run(ctx, base, options, rt)
		})
	})

	cli.Run()
}

func run(ctx context.Context, log *slog.Logger, options *Options, rt config.Runtime) error {
	planes, err := config.LoadPlatform(options.Platform)
	if err != nil {
		return err
	}
	settingsFile := config.NewSettingsFile(options.Settings)
	settings, err := settingsFile.Load()
	if err != nil {
		return err
	}

	met := metrics.New()
	hub := subscription.NewHub[videooutput.Status]()
	svc := videooutput.NewService(hal.NewSim(planes, log), log, videooutput.Options{
		NegativePosition: options.NegativePosition,
		Settings:         settings,
		Store:            settingsFile,
		Notifier: videooutput.NotifierFunc(func(st videooutput.Status) {
			met.SetConnectedSinks(st.ConnectedSinks())
			hub.Notify(st)
		}),
	})
	loop := eventloop.New("video-output")
	h := videooutput.NewHandler(svc, loop, hub, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Handle("/metrics", met.Handler(nil))
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(options.RateLimit, time.Minute))
		h.Routes(r)
	})

	watcher := config.NewSettingsWatcher(settingsFile, log, func(s aspect.Settings) {
		var applyErr error
		if err := loop.Do(ctx, func() { applyErr = svc.ApplySettings(s) }); err != nil {
			applyErr = err
		}
		met.ObserveSettingsReload(applyErr == nil)
		if applyErr != nil {
			log.Error("settings reload rejected", slog.String("error", applyErr.Error()))
		}
	})

	addr := net.JoinHostPort(options.Host, strconv.Itoa(options.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	super := supervisor.New("videooutputd", log)
	supervisor.Add(super, loop)
	supervisor.Add(super, supervisor.NewServiceFunc("http", func(ctx context.Context) error {
		return serveHTTP(ctx, srv, rt.ShutdownTimeout)
	}))
	if rt.WatchSettings {
		supervisor.Add(super, watcher)
	}

	log.Info("server starting",
		slog.String("addr", addr),
		slog.Int("planes", len(planes)),
		slog.String("settings", settingsFile.Path()),
		slog.Bool("negative_position", options.NegativePosition),
		slog.Bool("settings_watch", rt.WatchSettings))

	return super.Serve(ctx)
}

// serveHTTP runs srv until ctx is done, then drains open connections for at
// most shutdownTimeout.
func serveHTTP(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errC := make(chan error, 1)
	go func() { errC <- srv.ListenAndServe() }()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errC; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func OnServe(hooks humacli.Hooks, serveFn func(ctx context.Context) error) {
	stopC := make(chan struct{})
	hooks.OnStart(func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errC := make(chan error, 1)

		go func() { errC <- serveFn(ctx) }()

		select {
		case <-stopC:
			cancel()
		case err := <-errC:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Fatal(err)
			}
			return
		}

		<-errC
		<-stopC
	})
	hooks.OnStop(func() {
		stopC <- struct{}{}
		stopC <- struct{}{}
	})
}
