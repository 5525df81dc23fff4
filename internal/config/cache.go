package config

import "time"

// ProductCacheConfig controls the Redis read-through cache in front of the
// catalog store.  Entries live for TTL plus up to Jitter so that products
// loaded together do not expire together.
type ProductCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Jitter  time.Duration
	Prefix  string
}

// LoadProductCacheConfig reads PRODUCT_CACHE_* variables.
func LoadProductCacheConfig() ProductCacheConfig {
	c := ProductCacheConfig{
		Enabled: envBool("PRODUCT_CACHE_ENABLED", true),
		TTL:     envDur("PRODUCT_CACHE_TTL", 10*time.Minute),
		Jitter:  envDur("PRODUCT_CACHE_JITTER", 2*time.Minute),
		Prefix:  envStr("PRODUCT_CACHE_PREFIX", "product"),
	}
	if c.TTL <= 0 {
		c.TTL = 10 * time.Minute
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	return c
}

// ResponseCacheConfig controls the Redis cache for public GET responses
// such as catalog searches.  Bodies larger than MaxBodyBytes are served
// but not stored.
type ResponseCacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadResponseCacheConfig reads RESPONSE_CACHE_* variables.
func LoadResponseCacheConfig() ResponseCacheConfig {
	c := ResponseCacheConfig{
		Enabled:      envBool("RESPONSE_CACHE_ENABLED", true),
		TTL:          envDur("RESPONSE_CACHE_TTL", time.Minute),
		Prefix:       envStr("RESPONSE_CACHE_PREFIX", "resp"),
		MaxBodyBytes: envInt("RESPONSE_CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if c.TTL <= 0 {
		c.TTL = time.Minute
	}
	return c
}
