package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_BOOL", "YES")
	t.Setenv("CFG_INT", "abc")
	t.Setenv("CFG_DUR", "90s")

	assert.True(t, envBool("CFG_BOOL", false))
	assert.Equal(t, 7, envInt("CFG_INT", 7), "unparsable ints fall back to the default")
	assert.Equal(t, 90*time.Second, envDur("CFG_DUR", time.Second))
	assert.Equal(t, "fallback", envStr("CFG_MISSING", "fallback"))
}

func TestRateLimitNormalize(t *testing.T) {
	c := RateLimitConfig{Capacity: 0, RefillTokens: 0, RefillInterval: 0, TTL: time.Second}.normalize()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, time.Second, c.RefillInterval)
	assert.Equal(t, 5*time.Second, c.TTL)
}

func TestCacheMethodsUpperCased(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	c := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Methods)
}

func TestStorageEnabled(t *testing.T) {
	assert.False(t, StorageConfig{Endpoint: "oss-ap-southeast-1.aliyuncs.com"}.Enabled())
	assert.True(t, StorageConfig{Endpoint: "e", AccessKeyID: "a", AccessKeySecret: "s", Bucket: "b"}.Enabled())
}
