package requestlog

import "strings"

// Headers consulted by the request logger. Lookups are case-insensitive.
const (
	HeaderXRealIP         = "X-Real-IP"
	HeaderXForwardedFor   = "X-Forwarded-For"
	HeaderCFConnectingIP  = "CF-Connecting-IP"
	HeaderXClientIP       = "X-Client-IP"
	HeaderUserAgent       = "User-Agent"
	HeaderReferer         = "Referer"
	HeaderXResponseTime   = "X-Response-Time"
	UnknownIP             = "unknown"
	missingHeaderSentinel = "-"
)

// HeaderGetter returns the value of a request header, or "" when absent.
type HeaderGetter interface {
	Header(name string) string
}

// HeaderFunc adapts a lookup function such as http.Header.Get.
type HeaderFunc func(name string) string

func (f HeaderFunc) Header(name string) string { return f(name) }

// ClientIP resolves the client address from proxy headers, in order:
// X-Real-IP, first hop of X-Forwarded-For, CF-Connecting-IP, X-Client-IP.
// Values are not validated. Returns UnknownIP when none is usable.
func ClientIP(h HeaderGetter) string {
	if ip := h.Header(HeaderXRealIP); ip != "" {
		return ip
	}
	if fwd := h.Header(HeaderXForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := h.Header(HeaderCFConnectingIP); ip != "" {
		return ip
	}
	if ip := h.Header(HeaderXClientIP); ip != "" {
		return ip
	}
	return UnknownIP
}

func headerOrDash(h HeaderGetter, name string) string {
	if v := h.Header(name); v != "" {
		return v
	}
	return missingHeaderSentinel
}
