package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultQueueOptionsAppliesConfigDefaults(t *testing.T) {
	cfg := &Config{
		DefaultMessageLimit:     100,
		DefaultMessageSizeLimit: 4096,
		DefaultAckTimeout:       15 * time.Second,
	}

	opts := cfg.DefaultQueueOptions()

	assert.Equal(t, 100, opts.MessageLimit)
	assert.Equal(t, 4096, opts.MessageSizeLimit)
	assert.Equal(t, 15*time.Second, opts.AckTimeout)
}
