package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Headless)
	assert.Equal(t, 1366, cfg.ViewportWidth)
	assert.Equal(t, 900, cfg.ViewportHeight)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout())
}

func TestNavigationTimeoutZeroMeansDefault(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout())

	cfg.NavigationTimeoutMs = 1500
	assert.Equal(t, 1500*time.Millisecond, cfg.NavigationTimeout())
}
