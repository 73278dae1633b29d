// Package cluster defines the ClusterCoordinator contract the queue
// state machine calls at well-defined replication points, plus a
// standalone no-op and a resilience-wrapped reliable implementation.
package cluster

import (
	"context"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

// NodeState is this broker node's role in the cluster.
type NodeState int

const (
	StateMain NodeState = iota
	StateSuccessor
	StateReplica
)

// Mode is the cluster operating mode.
type Mode int

const (
	ModeStandalone Mode = iota
	ModeReliable
)

// Coordinator is the ClusterCoordinator contract: the core never
// implements replication itself, it only calls these hooks at well-known
// points (push, put-back, removal, queue CRUD). A SendQueueMessage error
// aborts the local push; errors from the other hooks are logged and the
// local operation goes ahead.
type Coordinator interface {
	SendQueueMessage(ctx context.Context, queue string, m *message.QueueMessage) error
	SendPutBack(ctx context.Context, queue string, m *message.QueueMessage) error
	SendMessageRemoval(ctx context.Context, queue string, messageID string) error
	SendQueueUpdated(ctx context.Context, queue string) error
	SendQueueRemoved(ctx context.Context, queue string) error

	// CheckSync is deliberately left unspecified: the sync algorithm
	// itself is out of scope here; implementations stub it as needed.
	CheckSync(ctx context.Context, queue string) error

	State() NodeState
	Mode() Mode
}

// Standalone is the no-op Coordinator for a broker running without
// cluster replication: every Send* call is a success no-op and this node
// is always Main.
type Standalone struct{}

func (Standalone) SendQueueMessage(ctx context.Context, queue string, m *message.QueueMessage) error {
	return nil
}
func (Standalone) SendPutBack(ctx context.Context, queue string, m *message.QueueMessage) error {
	return nil
}
func (Standalone) SendMessageRemoval(ctx context.Context, queue string, messageID string) error {
	return nil
}
func (Standalone) SendQueueUpdated(ctx context.Context, queue string) error { return nil }
func (Standalone) SendQueueRemoved(ctx context.Context, queue string) error { return nil }
func (Standalone) CheckSync(ctx context.Context, queue string) error {
	return errors.New(errors.CodeNotImplemented, "cluster sync is not implemented in standalone mode", nil)
}
func (Standalone) State() NodeState { return StateMain }
func (Standalone) Mode() Mode       { return ModeStandalone }
