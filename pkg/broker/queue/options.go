package queue

import "time"

// AutoDestroy is the queue auto-destroy policy.
type AutoDestroy int

const (
	AutoDestroyDisabled AutoDestroy = iota
	AutoDestroyNoConsumers
	AutoDestroyNoMessages
	AutoDestroyEmpty
)

// Options configures one Queue. The env tags let cleanenv apply the same
// defaults at the broker-wide config layer; per-queue values are usually
// set from header overrides rather than process environment.
type Options struct {
	MessageLimit         int           `env:"QUEUE_MESSAGE_LIMIT" env-default:"0"`
	MessageSizeLimit     int           `env:"QUEUE_MESSAGE_SIZE_LIMIT" env-default:"0"`
	MessageTimeout       time.Duration `env:"QUEUE_MESSAGE_TIMEOUT" env-default:"0"`
	AckTimeout           time.Duration `env:"QUEUE_ACK_TIMEOUT" env-default:"30s"`
	PutBackDelay         time.Duration `env:"QUEUE_PUT_BACK_DELAY" env-default:"0"`
	DelayBetweenMessages time.Duration `env:"QUEUE_DELAY_BETWEEN_MESSAGES" env-default:"0"`
	AutoDestroy          AutoDestroy   `env:"-"`
	SerialisedAcks       bool          `env:"QUEUE_SERIALISED_ACKS" env-default:"false"`
}

// DefaultOptions returns the zero-config defaults (no limits, 30s ack
// timeout, never auto-destroy).
func DefaultOptions() Options {
	return Options{AckTimeout: 30 * time.Second}
}
