// Package proxy forwards page requests to an external renderer.
package proxy

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberproxy "github.com/gofiber/fiber/v2/middleware/proxy"
	"github.com/rs/zerolog"
	"github.com/tuncerburak97/vitrin/internal/config"
	"github.com/valyala/fasthttp"
)

type ProxyHandler struct {
	target string
	client *fasthttp.Client
	logger *zerolog.Logger
}

func NewProxyHandler(cfg *config.UpstreamConfig, logger *zerolog.Logger) (*ProxyHandler, error) {
	target, err := url.Parse(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("parse upstream target: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" || target.Host == "" {
		return nil, fmt.Errorf("upstream target must be an absolute http(s) url: %q", cfg.Target)
	}

	client := &fasthttp.Client{
		MaxConnsPerHost:          cfg.MaxConnsPerHost,
		ReadTimeout:              cfg.Timeout,
		WriteTimeout:             cfg.Timeout,
		NoDefaultUserAgentHeader: true,
		DisablePathNormalizing:   true,
	}

	return &ProxyHandler{
		target: strings.TrimSuffix(cfg.Target, "/"),
		client: client,
		logger: logger,
	}, nil
}

// Handle forwards the request as received, including its query string, and
// copies the upstream response back.
func (h *ProxyHandler) Handle(c *fiber.Ctx) error {
	targetURL := h.target + c.OriginalURL()

	if err := fiberproxy.Do(c, targetURL, h.client); err != nil {
		h.logger.Error().
			Err(err).
			Str("method", c.Method()).
			Str("target_url", targetURL).
			Msg("Failed to reach upstream")
		return fiber.NewError(fiber.StatusBadGateway, "upstream unavailable")
	}
	return nil
}
