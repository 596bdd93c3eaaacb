// Package pathfilter decides which request paths the request logger sees.
package pathfilter

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tuncerburak97/vitrin/internal/config"
)

// Filter excludes paths whose remainder after the leading "/" starts with
// one of the configured prefixes, or that end in one of the configured
// extensions. Matching is case-sensitive.
type Filter struct {
	prefixes []string
	suffixes []string
}

func New(cfg config.FilterConfig) *Filter {
	f := &Filter{}
	for _, p := range cfg.ExcludePrefixes {
		p = strings.TrimPrefix(p, "/")
		if p != "" {
			f.prefixes = append(f.prefixes, p)
		}
	}
	for _, ext := range cfg.ExcludeExtensions {
		ext = strings.TrimPrefix(ext, ".")
		if ext != "" {
			f.suffixes = append(f.suffixes, "."+ext)
		}
	}
	return f
}

// Eligible reports whether path should be intercepted by the request logger.
func (f *Filter) Eligible(path string) bool {
	rest := strings.TrimPrefix(path, "/")
	for _, p := range f.prefixes {
		if strings.HasPrefix(rest, p) {
			return false
		}
	}
	for _, s := range f.suffixes {
		if strings.HasSuffix(rest, s) {
			return false
		}
	}
	return true
}

// Skip follows fiber's Next convention: true means bypass the middleware.
func (f *Filter) Skip(c *fiber.Ctx) bool {
	return !f.Eligible(c.Path())
}
