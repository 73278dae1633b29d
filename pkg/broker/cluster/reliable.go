package cluster

import (
	"context"
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/concurrency/distlock"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/resilience"
)

// ReliableConfig configures a ReliableCoordinator.
type ReliableConfig struct {
	CircuitBreakerThreshold int64
	CircuitBreakerTimeout   time.Duration
	RetryMaxAttempts        int
	RetryBackoff            time.Duration
	LeadershipTTL           time.Duration
}

// DefaultReliableConfig returns sensible defaults, matching the shape of
// pkg/messaging.ResilientBrokerConfig.
func DefaultReliableConfig() ReliableConfig {
	return ReliableConfig{
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        3,
		RetryBackoff:            100 * time.Millisecond,
		LeadershipTTL:           10 * time.Second,
	}
}

// Transport is the replication link a ReliableCoordinator drives; a real
// deployment supplies one backed by gRPC/NATS/whatever inter-broker
// transport the cluster uses. This package provides the seam, not an
// implementation of the wire protocol itself.
type Transport interface {
	SendQueueMessage(ctx context.Context, queue string, m *message.QueueMessage) error
	SendPutBack(ctx context.Context, queue string, m *message.QueueMessage) error
	SendMessageRemoval(ctx context.Context, queue string, messageID string) error
	SendQueueUpdated(ctx context.Context, queue string) error
	SendQueueRemoved(ctx context.Context, queue string) error
}

// ReliableCoordinator wraps a Transport with a circuit breaker and retry,
// the same composition pkg/messaging.ResilientBroker applies to Producer
// calls, and uses a distlock.Locker to decide this node's NodeState: the
// holder of the "leader" lock is Main, everyone else is Replica.
type ReliableCoordinator struct {
	transport Transport
	cb        *resilience.CircuitBreaker
	retryCfg  resilience.RetryConfig
	locker    distlock.Locker
	lock      distlock.Lock
	ttl       time.Duration
}

// NewReliableCoordinator builds a ReliableCoordinator. locker may be a
// distlock/adapters/memory.Adapter for a single-process demo or a
// distlock/adapters/redis.Adapter for a real multi-node cluster.
func NewReliableCoordinator(transport Transport, locker distlock.Locker, cfg ReliableConfig) *ReliableCoordinator {
	return &ReliableCoordinator{
		transport: transport,
		locker:    locker,
		ttl:       cfg.LeadershipTTL,
		cb: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "cluster-coordinator",
			FailureThreshold: cfg.CircuitBreakerThreshold,
			SuccessThreshold: 2,
			Timeout:          cfg.CircuitBreakerTimeout,
		}),
		retryCfg: resilience.RetryConfig{
			MaxAttempts:    cfg.RetryMaxAttempts,
			InitialBackoff: cfg.RetryBackoff,
			MaxBackoff:     5 * time.Second,
			Multiplier:     2.0,
		},
	}
}

// TryBecomeLeader attempts to acquire the cluster leadership lock, making
// this node Main on success.
func (c *ReliableCoordinator) TryBecomeLeader(ctx context.Context) (bool, error) {
	if c.lock == nil {
		c.lock = c.locker.NewLock("broker-cluster-leader", c.ttl)
	}
	return c.lock.Acquire(ctx)
}

func (c *ReliableCoordinator) execute(ctx context.Context, fn resilience.Executor) error {
	op := fn
	if c.cb != nil {
		inner := op
		op = func(ctx context.Context) error { return c.cb.Execute(ctx, inner) }
	}
	if c.retryCfg.MaxAttempts > 0 {
		return resilience.Retry(ctx, c.retryCfg, op)
	}
	return op(ctx)
}

func (c *ReliableCoordinator) SendQueueMessage(ctx context.Context, queue string, m *message.QueueMessage) error {
	return c.execute(ctx, func(ctx context.Context) error { return c.transport.SendQueueMessage(ctx, queue, m) })
}

func (c *ReliableCoordinator) SendPutBack(ctx context.Context, queue string, m *message.QueueMessage) error {
	return c.execute(ctx, func(ctx context.Context) error { return c.transport.SendPutBack(ctx, queue, m) })
}

func (c *ReliableCoordinator) SendMessageRemoval(ctx context.Context, queue string, messageID string) error {
	return c.execute(ctx, func(ctx context.Context) error { return c.transport.SendMessageRemoval(ctx, queue, messageID) })
}

func (c *ReliableCoordinator) SendQueueUpdated(ctx context.Context, queue string) error {
	return c.execute(ctx, func(ctx context.Context) error { return c.transport.SendQueueUpdated(ctx, queue) })
}

func (c *ReliableCoordinator) SendQueueRemoved(ctx context.Context, queue string) error {
	return c.execute(ctx, func(ctx context.Context) error { return c.transport.SendQueueRemoved(ctx, queue) })
}

func (c *ReliableCoordinator) CheckSync(ctx context.Context, queue string) error {
	return errors.New(errors.CodeNotImplemented, "cluster CheckSync algorithm is not specified", nil)
}

func (c *ReliableCoordinator) State() NodeState {
	if c.lock != nil && c.lock.IsHeld() {
		return StateMain
	}
	return StateReplica
}

func (c *ReliableCoordinator) Mode() Mode { return ModeReliable }
