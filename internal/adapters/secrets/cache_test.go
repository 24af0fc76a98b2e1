package secrets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kevin07696/stkpush-service/internal/domain/ports"
)

func TestSecretCache(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cache := newSecretCache(true, time.Minute)
	cache.now = func() time.Time { return now }

	cache.set("k", &ports.Secret{Value: "v"})
	assert.Equal(t, "v", cache.get("k").Value)

	now = now.Add(2 * time.Minute)
	assert.Nil(t, cache.get("k"), "expired entries are dropped")
	assert.NotContains(t, cache.entries, "k")

	cache.set("k", &ports.Secret{Value: "v2"})
	assert.Equal(t, "v2", cache.get("k").Value, "a refreshed entry is served again")

	disabled := newSecretCache(false, time.Minute)
	disabled.set("k", &ports.Secret{Value: "v"})
	assert.Nil(t, disabled.get("k"))
}
