// Package geocode translates free-text addresses to coordinates and back
// through pluggable providers. Provider failures are reported inside the
// Result rather than as a separate error return.
package geocode

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Default request timeout for a single provider call. Each address is
// attempted exactly once per invocation; there is no retry or backoff.
const requestTimeout = 10 * time.Second

// Result is the outcome of a geocode or reverse-geocode call.
type Result struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
	Success          bool    `json:"success"`
	Err              string  `json:"error,omitempty"`
}

func failure(format string, args ...interface{}) Result {
	return Result{Success: false, Err: fmt.Sprintf(format, args...)}
}

// Provider converts between addresses and coordinates.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) Result
	Reverse(ctx context.Context, lat, lng float64) Result
}

// Registry maps provider names to implementations. Unknown names resolve
// to the default provider, matching the permissive behavior of the
// request-level "service" parameter.
type Registry struct {
	mu          sync.RWMutex
	providers   map[string]Provider
	defaultName string
}

// NewRegistry returns an empty registry whose Get falls back to defaultName.
func NewRegistry(defaultName string) *Registry {
	return &Registry{providers: make(map[string]Provider), defaultName: defaultName}
}

// Register adds or replaces a provider under its own name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get resolves name to a provider; empty or unknown names resolve to the default.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name != "" {
		if p, ok := r.providers[name]; ok {
			return p
		}
	}
	return r.providers[r.defaultName]
}

// Names lists registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	return names
}

// Config carries the geocoding settings; construct the service with it
// instead of reading ambient global state so fakes can be injected in tests.
type Config struct {
	DefaultProvider string
	GoogleAPIKey    string
	UserAgent       string
	CacheTTL        time.Duration
}

// Service fronts the provider registry with a success-result cache.
type Service struct {
	registry  *Registry
	cache     *cache.Cache
	cacheHits int64
	cacheMiss int64

	defaultProvider string
	googleEnabled   bool
}

// NewService builds a Service with the nominatim and google providers
// registered. Without an API key the google name stays registered but
// resolves to nominatim, with a logged warning, so callers never fail on
// provider selection alone.
func NewService(cfg Config) *Service {
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = "nominatim"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "carewell_hospital_directory"
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	registry := NewRegistry(cfg.DefaultProvider)
	nominatim := NewNominatim(cfg.UserAgent)
	registry.Register(nominatim)

	googleEnabled := cfg.GoogleAPIKey != ""
	if googleEnabled {
		registry.Register(NewGoogle(cfg.GoogleAPIKey))
	} else {
		log.Printf("geocode: Google Maps API key not configured, \"google\" requests fall back to nominatim")
	}

	return &Service{
		registry:        registry,
		cache:           cache.New(ttl, time.Hour),
		defaultProvider: cfg.DefaultProvider,
		googleEnabled:   googleEnabled,
	}
}

// Registry exposes the underlying registry so tests can install fake providers.
func (s *Service) Registry() *Registry {
	return s.registry
}

// DefaultProvider returns the provider name used when a request names none.
func (s *Service) DefaultProvider() string {
	return s.defaultProvider
}

// GoogleAvailable reports whether the paid provider is configured.
func (s *Service) GoogleAvailable() bool {
	return s.googleEnabled
}

// Geocode converts an address into coordinates using the named provider.
func (s *Service) Geocode(ctx context.Context, provider, address string) Result {
	p := s.registry.Get(provider)
	if p == nil {
		return failure("no geocoding provider registered")
	}

	key := fmt.Sprintf("%s|geo|%s", p.Name(), address)
	if v, ok := s.cache.Get(key); ok {
		atomic.AddInt64(&s.cacheHits, 1)
		if r, ok := v.(Result); ok {
			return r
		}
	}
	atomic.AddInt64(&s.cacheMiss, 1)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	result := p.Geocode(ctx, address)
	if result.Success {
		s.cache.Set(key, result, cache.DefaultExpiration)
	}
	return result
}

// Reverse converts coordinates into an address using the named provider.
func (s *Service) Reverse(ctx context.Context, provider string, lat, lng float64) Result {
	p := s.registry.Get(provider)
	if p == nil {
		return failure("no geocoding provider registered")
	}

	key := fmt.Sprintf("%s|rev|%.7f,%.7f", p.Name(), lat, lng)
	if v, ok := s.cache.Get(key); ok {
		atomic.AddInt64(&s.cacheHits, 1)
		if r, ok := v.(Result); ok {
			return r
		}
	}
	atomic.AddInt64(&s.cacheMiss, 1)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	result := p.Reverse(ctx, lat, lng)
	if result.Success {
		s.cache.Set(key, result, cache.DefaultExpiration)
	}
	return result
}

// CacheMetrics returns cache hits, misses, and current entry count.
func (s *Service) CacheMetrics() (hits int64, misses int64, size int) {
	return atomic.LoadInt64(&s.cacheHits), atomic.LoadInt64(&s.cacheMiss), s.cache.ItemCount()
}
