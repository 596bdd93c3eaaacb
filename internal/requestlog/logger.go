package requestlog

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/tuncerburak97/vitrin/internal/model"
)

// Request is the inbound request as seen by the logger.
type Request interface {
	HeaderGetter
	Method() string
	URL() string
	Path() string
	// Query is the raw query string without the leading "?".
	Query() string
}

// Response is the pass-through response the logger annotates.
type Response interface {
	StatusCode() int
	SetHeader(key, value string)
}

// Observer receives per-request measurements, typically a metrics collector.
type Observer interface {
	ObserveRequest(method, status string, duration time.Duration)
}

// Config holds the logger's collaborators.
type Config struct {
	// Sink receives exactly one entry per intercepted request. Required.
	Sink Sink
	// Observer is optional.
	Observer Observer
	// Next skips the logger for requests it returns true for.
	Next func(c *fiber.Ctx) bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Logger emits one entry per intercepted request.
type Logger struct {
	sink     Sink
	observer Observer
	next     func(c *fiber.Ctx) bool
	now      func() time.Time
}

// New builds a Logger from cfg. A nil Sink discards entries.
func New(cfg Config) *Logger {
	l := &Logger{
		sink:     cfg.Sink,
		observer: cfg.Observer,
		next:     cfg.Next,
		now:      cfg.Now,
	}
	if l.sink == nil {
		l.sink = SinkFunc(func(*model.LogEntry) {})
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// Intercept annotates resp with the elapsed time header and emits one entry
// describing req. The header and the entry's ResponseTime come from two
// separate clock reads and may differ slightly.
func (l *Logger) Intercept(req Request, resp Response) *model.LogEntry {
	start := l.now()

	path := req.Path()
	if q := req.Query(); q != "" {
		path += "?" + q
	}

	resp.SetHeader(HeaderXResponseTime, l.elapsed(start))

	entry := &model.LogEntry{
		Timestamp:    start,
		ClientIP:     ClientIP(req),
		Method:       req.Method(),
		Path:         path,
		URL:          req.URL(),
		Status:       resp.StatusCode(),
		ResponseTime: l.elapsed(start),
		UserAgent:    headerOrDash(req, HeaderUserAgent),
		Referer:      headerOrDash(req, HeaderReferer),
	}
	l.sink.Emit(entry)

	if l.observer != nil {
		l.observer.ObserveRequest(entry.Method, strconv.Itoa(entry.Status), l.now().Sub(start))
	}
	return entry
}

func (l *Logger) elapsed(start time.Time) string {
	return strconv.FormatInt(l.now().Sub(start).Milliseconds(), 10) + "ms"
}

// Handler returns the fiber middleware. The request always continues to the
// next handler unchanged.
func (l *Logger) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l.next != nil && l.next(c) {
			return c.Next()
		}
		l.Intercept(FiberRequest(c), fiberResponse{c: c})
		return c.Next()
	}
}

// FiberRequest exposes c as a Request. Returned strings are copies and stay
// valid after the handler returns.
func FiberRequest(c *fiber.Ctx) Request {
	return fiberRequest{c: c}
}

type fiberRequest struct {
	c *fiber.Ctx
}

func (r fiberRequest) Method() string { return utils.CopyString(r.c.Method()) }
func (r fiberRequest) URL() string    { return r.c.BaseURL() + utils.CopyString(r.c.OriginalURL()) }
func (r fiberRequest) Path() string   { return utils.CopyString(r.c.Path()) }
func (r fiberRequest) Query() string  { return string(r.c.Request().URI().QueryString()) }

func (r fiberRequest) Header(name string) string {
	return utils.CopyString(r.c.Get(name))
}

type fiberResponse struct {
	c *fiber.Ctx
}

func (r fiberResponse) StatusCode() int { return r.c.Response().StatusCode() }

func (r fiberResponse) SetHeader(key, value string) { r.c.Set(key, value) }
