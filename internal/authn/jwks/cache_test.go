package jwks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGet(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("kid-1", "key-value")
	assert.Equal(t, "key-value", c.Get("kid-1"))
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := NewCache(time.Millisecond)
	c.Set("kid-1", "key-value")
	time.Sleep(5 * time.Millisecond)
	assert.Nil(t, c.Get("kid-1"))
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("kid-1", "v")
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCache_MissingKeyReturnsNil(t *testing.T) {
	c := NewCache(time.Minute)
	assert.Nil(t, c.Get("nope"))
}
