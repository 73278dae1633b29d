// Package dispatch implements the Dispatcher: decode an inbound frame's
// contentType, route it to the queue/router/channel subsystem it names,
// and apply the authorization hooks the operation requires.
package dispatch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/auth"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/cluster"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/queue"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/registry"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/router"
	"github.com/chris-alexander-pop/system-design-library/pkg/concurrency"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
)

// Deps are the collaborators a Dispatcher routes into.
type Deps struct {
	Queues   *registry.Queues
	Routers  *registry.Routers
	Channels *registry.Channels
	Clients  *registry.Clients
	Cluster  cluster.Coordinator
	Admin    auth.AdminAuthorizer
	Client   auth.ClientAuthorizer

	DefaultQueueOptions queue.Options

	WorkerPoolSize int
	QueueDepth     int
}

// Dispatcher is the single entry point a transport front-end calls with
// each decoded inbound frame.
type Dispatcher struct {
	deps   Deps
	pool   *concurrency.WorkerPool
	tracer trace.Tracer
}

// New builds and starts a Dispatcher's worker pool, bounding inbound frame
// handling so a slow delivery-handler callback cannot starve the accept
// loop.
func New(ctx context.Context, deps Deps) *Dispatcher {
	if deps.Admin == nil {
		deps.Admin = auth.AllowAll{}
	}
	if deps.Client == nil {
		deps.Client = auth.AllowAll{}
	}
	if deps.Cluster == nil {
		deps.Cluster = cluster.Standalone{}
	}
	if deps.WorkerPoolSize <= 0 {
		deps.WorkerPoolSize = 32
	}
	if deps.QueueDepth <= 0 {
		deps.QueueDepth = 1024
	}
	d := &Dispatcher{
		deps:   deps,
		pool:   concurrency.NewWorkerPool(deps.WorkerPoolSize, deps.QueueDepth),
		tracer: otel.Tracer("pkg/broker/dispatch"),
	}
	d.pool.Start(ctx)
	return d
}

// Stop drains the worker pool, waiting for in-flight dispatches to finish.
func (d *Dispatcher) Stop() { d.pool.Stop() }

type outcome struct {
	result message.Result
	err    error
}

// Dispatch decodes m's contentType and routes it to the matching
// operation, running on the bounded worker pool. It blocks until that
// operation completes or ctx is cancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	out := make(chan outcome, 1)
	d.pool.Submit(func(taskCtx context.Context) {
		res, err := d.handle(taskCtx, sender, m)
		out <- outcome{res, err}
	})
	select {
	case o := <-out:
		return o.result, o.err
	case <-ctx.Done():
		return message.ResultError, ctx.Err()
	}
}

func (d *Dispatcher) handle(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	ct := message.ContentType(m.ContentType)
	ctx, span := d.tracer.Start(ctx, "dispatch.Handle", trace.WithAttributes(
		attribute.Int("broker.content_type", int(ct)),
		attribute.String("broker.target", m.Target),
	))
	defer span.End()

	res, err := d.route(ctx, sender, ct, m)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.L().ErrorContext(ctx, "dispatch failed", "content_type", ct, "target", m.Target, "error", err)
	} else {
		span.SetStatus(codes.Ok, res.String())
	}
	return res, err
}

func (d *Dispatcher) route(ctx context.Context, sender *client.Client, ct message.ContentType, m *message.Message) (message.Result, error) {
	if ct.IsAdminOp() {
		return d.routeAdmin(ctx, sender, ct, m)
	}
	return d.routeApplication(ctx, sender, m)
}

func (d *Dispatcher) routeApplication(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	switch m.Kind {
	case message.KindDirectMessage:
		return d.forwardDirect(ctx, sender, m)
	case message.KindAck, message.KindNack:
		return d.acknowledge(ctx, sender, m)
	default: // KindQueueMessage and anything else targets a queue by name
		return d.pushToQueue(ctx, sender, m)
	}
}

func (d *Dispatcher) routeAdmin(ctx context.Context, sender *client.Client, ct message.ContentType, m *message.Message) (message.Result, error) {
	switch ct {
	case message.ContentTypeQueueSubscribe:
		return d.subscribeQueue(ctx, sender, m)
	case message.ContentTypeQueueUnsubscribe:
		return d.unsubscribeQueue(sender, m)
	case message.ContentTypeCreateQueue:
		return d.createQueue(ctx, sender, m)
	case message.ContentTypeRemoveQueue:
		return d.removeQueue(ctx, sender, m)
	case message.ContentTypeUpdateQueue:
		return d.updateQueue(ctx, sender, m)
	case message.ContentTypeClearMessages:
		return d.clearMessages(ctx, sender, m)
	case message.ContentTypePublish:
		return d.publishToRouter(ctx, sender, m)
	case message.ContentTypeCreateRouter:
		return d.createRouter(ctx, sender, m)
	case message.ContentTypeRemoveRouter:
		return d.removeRouter(ctx, sender, m)
	case message.ContentTypeAddBinding:
		return d.addBinding(ctx, sender, m)
	case message.ContentTypeRemoveBinding:
		return d.removeBinding(ctx, sender, m)
	case message.ContentTypeCreateChannel:
		return d.createChannel(ctx, sender, m)
	case message.ContentTypeRemoveChannel:
		return d.removeChannel(ctx, sender, m)
	case message.ContentTypeChannelSubscribe:
		return d.subscribeChannel(ctx, sender, m)
	case message.ContentTypeChannelUnsubscribe:
		return d.unsubscribeChannel(sender, m)
	case message.ContentTypeChannelPush:
		return d.pushChannel(ctx, sender, m)
	default:
		return message.ResultError, nil
	}
}

func (d *Dispatcher) authorizeAdmin(ctx context.Context, sender *client.Client, op string) bool {
	return d.deps.Admin.AuthorizeAdmin(ctx, refOf(sender), op)
}

func (d *Dispatcher) authorizeClient(ctx context.Context, sender *client.Client, target string) bool {
	return d.deps.Client.AuthorizeClient(ctx, refOf(sender), target)
}

func refOf(c *client.Client) message.ClientRef {
	if c == nil {
		return message.ClientRef{}
	}
	return c.Ref
}

func (d *Dispatcher) notifyQueueUpdated(ctx context.Context, name string) {
	if err := d.deps.Cluster.SendQueueUpdated(ctx, name); err != nil {
		logger.L().Warn("dispatch: cluster notify failed", "queue", name, "error", err)
	}
}

// queueTargetResolver adapts registry.Queues.Get to the
// router.QueueBinding late-binding signature.
func (d *Dispatcher) queueTargetResolver() func(string) (router.QueueTarget, bool) {
	return func(name string) (router.QueueTarget, bool) {
		qq, ok := d.deps.Queues.Get(name)
		if !ok {
			return nil, false
		}
		return qq, true
	}
}
