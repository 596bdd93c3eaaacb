package main

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/tuncerburak97/vitrin/internal/config"
	"github.com/tuncerburak97/vitrin/internal/metrics"
	"github.com/tuncerburak97/vitrin/internal/pages"
	"github.com/tuncerburak97/vitrin/internal/pathfilter"
	"github.com/tuncerburak97/vitrin/internal/proxy"
	"github.com/tuncerburak97/vitrin/internal/ratelimit"
	"github.com/tuncerburak97/vitrin/internal/requestlog"
)

// server bundles the fiber app with the resources that need closing on
// shutdown.
type server struct {
	app     *fiber.App
	closers []io.Closer
}

func (s *server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newServer wires the request logger in front of either the built-in pages or
// the configured upstream. Request records go to requestOut.
func newServer(cfg *config.Config, logger *zerolog.Logger, requestOut io.Writer) (*server, error) {
	s := &server{}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsCollector := metrics.NewMetricsCollector(cfg.Metrics.Namespace, "vitrin", reg)

	mode := requestlog.ModeDevelopment
	if cfg.Production() {
		mode = requestlog.ModeProduction
	}
	sink := requestlog.NewWriterSink(requestOut, mode)
	if cfg.Log.Async {
		async := requestlog.NewAsyncSink(sink, cfg.Log.Workers, cfg.Log.Buffer, metricsCollector)
		s.closers = append(s.closers, async)
		sink = async
	}

	filterCfg := cfg.Filter
	if cfg.Metrics.Enabled {
		// Scrapes are not page requests.
		filterCfg.ExcludePrefixes = append(
			append([]string(nil), cfg.Filter.ExcludePrefixes...),
			strings.TrimPrefix(cfg.Metrics.Path, "/"),
		)
	}
	filter := pathfilter.New(filterCfg)
	requestLogger := requestlog.New(requestlog.Config{
		Sink:     sink,
		Observer: metricsCollector,
		Next:     filter.Skip,
	})

	s.app = fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		DisableStartupMessage: true,
	})
	s.app.Use(fiberrecover.New())
	s.app.Use(requestLogger.Handler())

	if cfg.Metrics.Enabled {
		s.app.Get(cfg.Metrics.Path, metrics.Handler(reg))
	}

	if cfg.RateLimit.Enabled {
		store, err := ratelimit.NewStore(&cfg.RateLimit)
		if err != nil {
			s.Close()
			return nil, err
		}
		rateLimiter := ratelimit.NewService(&cfg.RateLimit, store)
		s.closers = append(s.closers, rateLimiter)
		s.app.Use(ratelimit.Middleware(rateLimiter, metricsCollector))
	}

	if cfg.Upstream.Target != "" {
		proxyHandler, err := proxy.NewProxyHandler(&cfg.Upstream, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.app.All("/*", proxyHandler.Handle)
		logger.Info().Str("target", cfg.Upstream.Target).Msg("Forwarding pages to upstream")
	} else if err := pages.Register(s.app, cfg.Pages); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}
