package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow_WithinBurst(t *testing.T) {
	krl := New(1, 3)
	defer krl.Stop()

	assert.True(t, krl.Allow("1.2.3.4"))
	assert.True(t, krl.Allow("1.2.3.4"))
	assert.True(t, krl.Allow("1.2.3.4"))
}

func TestAllow_ExhaustsBurst(t *testing.T) {
	krl := New(0.001, 2)
	defer krl.Stop()

	assert.True(t, krl.Allow("1.2.3.4"))
	assert.True(t, krl.Allow("1.2.3.4"))
	assert.False(t, krl.Allow("1.2.3.4"))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	krl := New(0.001, 1)
	defer krl.Stop()

	assert.True(t, krl.Allow("1.2.3.4"))
	assert.False(t, krl.Allow("1.2.3.4"))

	// A different client is unaffected.
	assert.True(t, krl.Allow("5.6.7.8"))
}
