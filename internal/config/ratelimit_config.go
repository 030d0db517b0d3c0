package config

import (
	"net/netip"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type RateLimitConfig interface {
	IsRateLimitEnabled() bool
	GetRateLimitRequests() int
	GetRateLimitRequestsFor(group string) int
	GetRateLimitWindow() time.Duration
	GetRateLimitRedisAddr() string
	GetTrustedProxies() []netip.Prefix
}

type RateLimit struct {
	Enabled        bool           `env:"AUTH_RATE_LIMIT_ENABLED"        envDefault:"true"`
	Requests       int            `env:"AUTH_RATE_LIMIT_REQUESTS"       envDefault:"20"`
	GroupRequests  map[string]int `env:"AUTH_RATE_LIMIT_GROUP_REQUESTS" envSeparator:"," envKeyValSeparator:":"`
	WindowSeconds  int            `env:"AUTH_RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	RedisAddr      string         `env:"AUTH_RATE_LIMIT_REDIS_ADDR"`
	TrustedProxies []string       `env:"TRUSTED_PROXIES"                envSeparator:","`

	trustedPrefixes []netip.Prefix
}

var _ RateLimitConfig = RateLimit{}

func (r RateLimit) IsRateLimitEnabled() bool {
	return r.Enabled
}

func (r RateLimit) GetRateLimitRequests() int {
	return r.Requests
}

// GetRateLimitRequestsFor returns the group's override from AUTH_RATE_LIMIT_GROUP_REQUESTS
// (for example "login:5,signup:3"), or the default budget.
func (r RateLimit) GetRateLimitRequestsFor(group string) int {
	for name, requests := range r.GroupRequests {
		if strings.EqualFold(strings.TrimSpace(name), group) {
			return max(requests, 1)
		}
	}
	return r.Requests
}

func (r RateLimit) GetRateLimitWindow() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// GetRateLimitRedisAddr returns the redis address for shared counters. Empty keeps counters
// in process memory.
func (r RateLimit) GetRateLimitRedisAddr() string {
	return r.RedisAddr
}

// GetTrustedProxies returns the peers whose X-Forwarded-For header is believed. Empty means
// the connection address is always the client.
func (r RateLimit) GetTrustedProxies() []netip.Prefix {
	return r.trustedPrefixes
}

// parseTrustedProxies accepts CIDRs and bare addresses.
func (r *RateLimit) parseTrustedProxies() error {
	r.trustedPrefixes = nil
	for _, raw := range r.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return errors.Wrapf(err, "TRUSTED_PROXIES entry %q", raw)
			}
			r.trustedPrefixes = append(r.trustedPrefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return errors.Wrapf(err, "TRUSTED_PROXIES entry %q", raw)
		}
		r.trustedPrefixes = append(r.trustedPrefixes, prefix.Masked())
	}
	return nil
}
