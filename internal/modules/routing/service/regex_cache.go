package service

import (
	"log/slog"
	"regexp"
	"sync"
)

// RegexCache compiles filter patterns case-insensitively and keeps them
// for the life of the process, keyed by the raw pattern text. The
// pattern space is bounded by operator-authored configs, so the cache
// never evicts.
//
// Reads vastly outnumber writes. Two goroutines racing on the first use
// of a pattern may both compile it; the second store is harmless. A
// pattern that fails to compile is never cached.
type RegexCache struct {
	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
	log      *slog.Logger
}

// NewRegexCache creates an empty pattern cache.
func NewRegexCache() *RegexCache {
	return &RegexCache{
		patterns: make(map[string]*regexp.Regexp),
		log:      slog.Default(),
	}
}

// Get returns the compiled case-insensitive pattern, or nil when the
// pattern does not compile.
func (c *RegexCache) Get(pattern string) *regexp.Regexp {
	c.mu.RLock()
	re, ok := c.patterns[pattern]
	c.mu.RUnlock()
	if ok {
		return re
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		c.log.Error("Invalid regex pattern", "pattern", pattern, "error", err)
		return nil
	}

	c.mu.Lock()
	c.patterns[pattern] = re
	c.mu.Unlock()
	return re
}
