package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgeguard-ai/edgeguard/internal/extractor"
)

func TestNilCacheAlwaysMisses(t *testing.T) {
	var c *ExtractionCache
	ctx := context.Background()

	res, ok := c.Get(ctx, "content")
	assert.False(t, ok)
	assert.Nil(t, res)

	// Set and Close on a nil cache are no-ops.
	c.Set(ctx, "content", &extractor.Result{Summary: "x"})
	assert.NoError(t, c.Close())
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := New(nil, 0)
	ctx := context.Background()

	c.Set(ctx, "content", &extractor.Result{Summary: "x"})
	_, ok := c.Get(ctx, "content")
	assert.False(t, ok)
}

func TestContentKeyStableAndPrefixed(t *testing.T) {
	k1 := contentKey("same content")
	k2 := contentKey("same content")
	k3 := contentKey("different content")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.True(t, strings.HasPrefix(k1, keyPrefix))
	// 8 digest bytes hex-encoded.
	assert.Len(t, strings.TrimPrefix(k1, keyPrefix), 16)
}
