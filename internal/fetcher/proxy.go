package fetcher

import (
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/IshaanNene/newsgoat/internal/config"
)

// ProxyManager rotates outbound requests over a fixed proxy list.
type ProxyManager struct {
	proxies  []*url.URL
	rotation string
	index    atomic.Int64
	mu       sync.Mutex
	rng      *rand.Rand
	logger   *slog.Logger
}

// NewProxyManager creates a new ProxyManager from configuration.
// Unparseable entries are logged and skipped.
func NewProxyManager(cfg *config.ProxyConfig, logger *slog.Logger) *ProxyManager {
	pm := &ProxyManager{
		proxies:  make([]*url.URL, 0, len(cfg.URLs)),
		rotation: cfg.Rotation,
		rng:      rand.New(rand.NewSource(rand.Int63())),
		logger:   logger.With("component", "proxy_manager"),
	}

	for _, rawURL := range cfg.URLs {
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			pm.logger.Warn("invalid proxy URL", "url", rawURL, "error", err)
			continue
		}
		pm.proxies = append(pm.proxies, u)
	}

	pm.logger.Info("proxy manager initialized", "count", len(pm.proxies), "rotation", cfg.Rotation)
	return pm
}

// ProxyFunc returns an http.Transport-compatible proxy function.
func (pm *ProxyManager) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return pm.Next(), nil
	}
}

// Next returns the next proxy URL, or nil for a direct connection.
func (pm *ProxyManager) Next() *url.URL {
	if len(pm.proxies) == 0 {
		return nil
	}
	if pm.rotation == "random" {
		pm.mu.Lock()
		defer pm.mu.Unlock()
		return pm.proxies[pm.rng.Intn(len(pm.proxies))]
	}
	idx := (pm.index.Add(1) - 1) % int64(len(pm.proxies))
	return pm.proxies[idx]
}

// Count returns the number of usable proxies.
func (pm *ProxyManager) Count() int {
	return len(pm.proxies)
}
