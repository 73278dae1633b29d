// Package queue implements the per-queue push/acknowledge pipeline and
// lifecycle, composed with the pluggable strategies of pkg/broker/strategy.
package queue

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/cluster"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/handler"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/store"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/strategy"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/tracker"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/events"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
)

const (
	watchdogInterval    = 5 * time.Second
	ackRetryFirstDelay  = time.Millisecond
	ackRetrySecondDelay = 3 * time.Millisecond
)

// Deps are the collaborators a Queue needs constructed, kept together so
// the registry has one thing to build per queue.
type Deps struct {
	IDGen    message.IDGenerator
	Handlers *handler.Registry
	Cluster  cluster.Coordinator
	EventBus events.Bus
}

// Queue owns one named message store, tracker, consumer set and strategy.
type Queue struct {
	name    string
	topic   string
	qType   Type
	options Options

	deps Deps

	store   *store.MessageStore
	tracker *tracker.Tracker

	mu              sync.Mutex // serialises status transitions, init, sync-wait
	status          Status
	state           strategy.Strategy
	deliveryHandler handler.DeliveryHandler
	ackSem          chan struct{} // non-nil and size-1 when SerialisedAcks is set

	clientsMu sync.RWMutex
	order     []message.ClientRef
	clients   map[message.ClientRef]*QueueClient

	producerMu      sync.Mutex
	producerClients map[*message.QueueMessage]*client.Client

	triggering int32 // reentrancy flag for trigger(), guarded by mu

	watchdogStop chan struct{}
	destroyed    bool
}

// New constructs a Queue bound to qType's strategy, in NotInitialized
// status.
func New(name string, qType Type, opts Options, deps Deps) *Queue {
	if deps.IDGen == nil {
		deps.IDGen = message.NewUUIDGenerator()
	}
	if deps.Cluster == nil {
		deps.Cluster = cluster.Standalone{}
	}
	if deps.Handlers == nil {
		deps.Handlers = handler.NewRegistry()
	}
	q := &Queue{
		name:            name,
		qType:           qType,
		options:         opts,
		deps:            deps,
		store:           store.New(),
		tracker:         tracker.New(),
		clients:         make(map[message.ClientRef]*QueueClient),
		producerClients: make(map[*message.QueueMessage]*client.Client),
		status:          StatusNotInitialized,
	}
	q.state = strategyFor(qType)
	if opts.SerialisedAcks {
		q.ackSem = make(chan struct{}, 1)
	}
	return q
}

func strategyFor(t Type) strategy.Strategy {
	switch t {
	case TypeRoundRobin:
		return strategy.NewRoundRobin()
	case TypePull:
		return strategy.Pull{}
	default:
		return strategy.Push{}
	}
}

func (q *Queue) Name() string   { return q.name }
func (q *Queue) Topic() string  { return q.topic }
func (q *Queue) Type() Type     { return q.qType }
func (q *Queue) Status() Status { q.mu.Lock(); defer q.mu.Unlock(); return q.status }

// Options returns a copy of the queue's current options.
func (q *Queue) Options() Options {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.options
}

// SetOptions replaces the queue's options. Per the resolved UpdateQueue
// open question, this is not retroactive: messages already enqueued keep
// the deadline they were assigned under the old MessageTimeout; only
// subsequent pushes see the new options.
func (q *Queue) SetOptions(opts Options) {
	q.mu.Lock()
	q.options = opts
	q.mu.Unlock()
}

// Join registers c as a subscriber of this queue, returning its QueueClient.
// There is exactly one QueueClient per (queue, client) pair.
func (q *Queue) Join(c *client.Client) *QueueClient {
	q.clientsMu.Lock()
	defer q.clientsMu.Unlock()
	if existing, ok := q.clients[c.Ref]; ok {
		return existing
	}
	qc := newQueueClient(q, c, time.Now())
	q.clients[c.Ref] = qc
	q.order = append(q.order, c.Ref)
	return qc
}

// Leave synchronously removes ref's back-references from this queue.
func (q *Queue) Leave(ref message.ClientRef) {
	q.clientsMu.Lock()
	defer q.clientsMu.Unlock()
	if _, ok := q.clients[ref]; !ok {
		return
	}
	delete(q.clients, ref)
	for i, r := range q.order {
		if r == ref {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

func (q *Queue) ClientCount() int {
	q.clientsMu.RLock()
	defer q.clientsMu.RUnlock()
	return len(q.order)
}

// ---- strategy.Host ----

func (q *Queue) Slots() []strategy.ConsumerSlot {
	q.clientsMu.RLock()
	defer q.clientsMu.RUnlock()
	out := make([]strategy.ConsumerSlot, 0, len(q.order))
	for _, ref := range q.order {
		out = append(out, q.clients[ref])
	}
	return out
}

func (q *Queue) CanReceive(m *message.QueueMessage, slot strategy.ConsumerSlot) bool {
	if !slot.Eligible(time.Now()) {
		return false
	}
	return q.deliveryHandler.CanConsumerReceive(m, slot.Client())
}

func (q *Queue) Track(d *tracker.MessageDelivery) {
	q.tracker.Track(d, q.onDeliveryTimeout)
}

func (q *Queue) onDeliveryTimeout(d *tracker.MessageDelivery) {
	q.clearProcessing(d.Receiver)
	decision := q.deliveryHandler.MessageTimedOut(d.QueueMessage, d.Receiver)
	q.applyDecision(decision, d.QueueMessage, false, 0)
	q.releaseAckSem()
	go q.trigger(context.Background())
}

// releaseAckSem drains one permit without blocking, a no-op when
// SerialisedAcks is off or nothing is currently held.
func (q *Queue) releaseAckSem() {
	if q.ackSem == nil {
		return
	}
	select {
	case <-q.ackSem:
	default:
	}
}

func (q *Queue) clearProcessing(ref message.ClientRef) {
	q.clientsMu.RLock()
	qc, ok := q.clients[ref]
	q.clientsMu.RUnlock()
	if ok {
		qc.clearProcessing()
	}
}

func (q *Queue) ApplyDecision(m *message.QueueMessage, d message.Decision) bool {
	return q.applyDecision(d, m, false, 0)
}

func (q *Queue) BeginSend(m *message.QueueMessage, receiver message.ClientRef) bool {
	q.clientsMu.RLock()
	qc, ok := q.clients[receiver]
	q.clientsMu.RUnlock()
	if ok {
		qc.setCurrent(m)
	}
	d := q.deliveryHandler.BeginSend(m, receiver)
	return q.applyDecision(d, m, false, 0)
}

func (q *Queue) EndSend(m *message.QueueMessage, receiver message.ClientRef) bool {
	d := q.deliveryHandler.EndSend(m, receiver)
	return q.applyDecision(d, m, false, 0)
}

func (q *Queue) ConsumerReceiveFailed(m *message.QueueMessage, receiver message.ClientRef, cause error) bool {
	q.clearProcessing(receiver)
	d := q.deliveryHandler.ConsumerReceiveFailed(m, receiver, cause)
	return q.applyDecision(d, m, false, 0)
}

func (q *Queue) PutBackFresh(m *message.QueueMessage) {
	q.store.Put(m)
}

func (q *Queue) AckTimeout() time.Duration { return q.options.AckTimeout }
func (q *Queue) Now() time.Time            { return time.Now() }

// TakeMatching implements strategy.Host for the Pull strategy, matching the
// Filter header's glob pattern against each candidate's Filter header.
func (q *Queue) TakeMatching(filter string, limit int) []*message.QueueMessage {
	if limit <= 0 {
		limit = 1
	}
	var out []*message.QueueMessage
	for len(out) < limit {
		m := q.store.FindAndRemove(func(qm *message.QueueMessage) bool {
			return matchesFilter(qm, filter)
		})
		if m == nil {
			break
		}
		out = append(out, m)
	}
	return out
}

func matchesFilter(qm *message.QueueMessage, filter string) bool {
	if filter == "" {
		return true
	}
	v, ok := qm.Message.Headers.Get(message.HeaderFilter)
	if !ok {
		return false
	}
	ok2, err := filepath.Match(filter, v)
	return err == nil && ok2
}

// Push runs the producer-facing pipeline described.
func (q *Queue) Push(ctx context.Context, m *message.Message, source message.ClientRef, sourceClient *client.Client) (res message.Result, err error) {
	qm := message.NewQueueMessage(m, source, time.Now())
	if sourceClient != nil {
		q.producerMu.Lock()
		q.producerClients[qm] = sourceClient
		q.producerMu.Unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			q.handleException(qm, errorsFromRecover(r))
			res, err = message.ResultError, errorsFromRecover(r)
		}
	}()

	q.mu.Lock()
	if q.status == StatusNotInitialized {
		q.initializeLocked(m)
	}
	status := q.status
	q.mu.Unlock()

	if status == StatusOnlyConsume || status == StatusPaused {
		return message.ResultStatusNotSupported, nil
	}
	if status == StatusDestroyed {
		return message.ResultNotFound, nil
	}

	if q.options.MessageLimit > 0 && q.store.CountAll() >= q.options.MessageLimit {
		return message.ResultLimitExceeded, nil
	}
	if q.options.MessageSizeLimit > 0 && len(m.Payload) > q.options.MessageSizeLimit {
		return message.ResultLimitExceeded, nil
	}

	message.StripInternalHeaders(m)

	if ackMode := ackModeOf(m); !m.WaitResponse {
		m.WaitResponse = ackMode != message.AcknowledgeNone
	}

	if m.ID == "" {
		m.ID = q.deps.IDGen.NewID()
	}
	if q.options.MessageTimeout > 0 {
		qm.Deadline = message.Deadline(time.Now(), q.options.MessageTimeout)
	}

	if status == StatusSyncing {
		// Sync holds q.mu for its duration; acquiring and releasing it here
		// blocks this push until the sync completes.
		q.mu.Lock()
		q.mu.Unlock()
	}

	if q.deps.Cluster.State() == cluster.StateMain {
		if cerr := q.deps.Cluster.SendQueueMessage(ctx, q.name, qm); cerr != nil {
			return message.ResultError, cerr
		}
	}

	decision := q.deliveryHandler.ReceivedFromProducer(qm)
	allowed := q.applyDecision(decision, qm, false, 0)

	if q.deps.EventBus != nil {
		go q.publishEvent(context.Background(), "broker.queue.produced", qm)
	}

	if allowed && !qm.IsRemoved {
		if q.deps.EventBus != nil {
			go q.publishEvent(context.Background(), "broker.queue.push", qm)
		}
		if q.qType == TypePush {
			// Push broadcasts to whoever is connected right now rather than
			// draining through the store.
			go q.state.Push(context.Background(), q, qm)
		} else {
			q.store.Put(qm)
			go q.trigger(context.Background())
		}
	}

	return message.ResultSuccess, nil
}

func ackModeOf(m *message.Message) message.AcknowledgeMode {
	v, _ := m.Headers.Get(message.HeaderAcknowledge)
	return message.ParseAcknowledgeMode(v)
}

// initializeLocked resolves the delivery handler and transitions the queue
// out of NotInitialized on first push; caller must hold q.mu.
func (q *Queue) initializeLocked(m *message.Message) {
	headerName, _ := m.Headers.Get(message.HeaderDeliveryHandler)
	if topic, ok := m.Headers.Get(message.HeaderQueueTopic); ok {
		q.topic = topic
	}
	if v, ok := m.Headers.Get(message.HeaderMessageTimeout); ok {
		if secs, perr := strconv.Atoi(v); perr == nil {
			q.options.MessageTimeout = time.Duration(secs) * time.Second
		}
	}
	if v, ok := m.Headers.Get(message.HeaderAckTimeout); ok {
		if secs, perr := strconv.Atoi(v); perr == nil {
			q.options.AckTimeout = time.Duration(secs) * time.Second
		}
	}
	if v, ok := m.Headers.Get(message.HeaderPutBackDelay); ok {
		if ms, perr := strconv.Atoi(v); perr == nil {
			q.options.PutBackDelay = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := m.Headers.Get(message.HeaderDelayBetweenMessages); ok {
		if ms, perr := strconv.Atoi(v); perr == nil {
			q.options.DelayBetweenMessages = time.Duration(ms) * time.Millisecond
		}
	}

	ctx := handler.BuildContext{
		QueueName:   q.name,
		Topic:       q.topic,
		InitHeaders: flattenInitHeaders(m),
	}
	h, herr := q.deps.Handlers.Build(headerName, ctx)
	if herr != nil {
		h, _ = q.deps.Handlers.Build(handler.DefaultFactoryName, ctx)
	}
	q.deliveryHandler = h
	q.status = StatusRunning
	q.startWatchdog()
}

func flattenInitHeaders(m *message.Message) map[string]string {
	stripped := &message.Message{Headers: m.Headers.Clone()}
	message.StripInternalHeaders(stripped)
	out := make(map[string]string, len(stripped.Headers.Keys()))
	for _, k := range stripped.Headers.Keys() {
		v, _ := stripped.Headers.Get(k)
		out[k] = v
	}
	return out
}

// Acknowledge runs the consumer ack/nack pipeline described.
func (q *Queue) Acknowledge(ctx context.Context, from message.ClientRef, ackMessage *message.Message) error {
	delivery, ok := q.tracker.FindAndRemove(from, ackMessage.ID)
	if !ok {
		time.Sleep(ackRetryFirstDelay)
		delivery, ok = q.tracker.FindAndRemove(from, ackMessage.ID)
	}
	if !ok {
		time.Sleep(ackRetrySecondDelay)
		delivery, ok = q.tracker.FindAndRemove(from, ackMessage.ID)
	}
	if !ok || delivery.Acknowledge == tracker.AcknowledgeTimeout {
		return nil
	}

	success := !ackMessage.Headers.Has(message.HeaderNackReason)
	if success {
		delivery.Acknowledge = tracker.AcknowledgeReceived
	} else {
		delivery.Acknowledge = tracker.AcknowledgeFailed
	}

	q.clearProcessing(from)

	decision := q.deliveryHandler.AcknowledgeReceived(delivery.QueueMessage, from, success)
	q.applyDecision(decision, delivery.QueueMessage, true, 0)

	q.releaseAckSem()

	if q.deps.EventBus != nil {
		eventType := "broker.queue.ack"
		if !success {
			eventType = "broker.queue.nack"
		}
		go q.publishEvent(context.Background(), eventType, delivery.QueueMessage)
	}

	go q.trigger(context.Background())
	return nil
}

// applyDecision folds decision into the pipeline.
func (q *Queue) applyDecision(d message.Decision, qm *message.QueueMessage, customAck bool, forceDelay time.Duration) bool {
	if d.Save && !qm.IsSaved {
		if err := q.deliveryHandler.SaveMessage(qm); err == nil {
			qm.MarkSaved()
		} else {
			logger.L().Error("queue: save message failed", "queue", q.name, "message_id", qm.Message.ID, "error", err)
		}
	}

	if d.Transmission != message.TransmissionNone && !qm.IsProducerAckSent {
		q.sendProducerTransmission(qm, d.Transmission)
	}

	switch {
	case d.PutBack != message.PutBackNo:
		q.putBack(qm, d.PutBack, forceDelay)
	case d.Delete:
		qm.MarkRemoved()
		q.deliveryHandler.MessageDequeued(qm)
		if cerr := q.deps.Cluster.SendMessageRemoval(context.Background(), q.name, qm.Message.ID); cerr != nil {
			logger.L().Warn("queue: cluster removal notify failed", "queue", q.name, "error", cerr)
		}
		q.producerMu.Lock()
		delete(q.producerClients, qm)
		q.producerMu.Unlock()
	}

	return !d.Interrupt
}

func (q *Queue) sendProducerTransmission(qm *message.QueueMessage, t message.Transmission) {
	q.producerMu.Lock()
	producer, ok := q.producerClients[qm]
	q.producerMu.Unlock()
	if !ok || !producer.Connected() {
		return
	}
	kind := message.KindAck
	if t == message.TransmissionFailed {
		kind = message.KindNack
	}
	_ = producer.Send(&message.Message{ID: qm.Message.ID, Kind: kind, Headers: message.NewHeaders()})
	qm.IsProducerAckSent = true

	q.producerMu.Lock()
	delete(q.producerClients, qm)
	q.producerMu.Unlock()
}

// putBack implements the design.
func (q *Queue) putBack(qm *message.QueueMessage, kind message.PutBack, forceDelay time.Duration) {
	qm.Message.HighPriority = kind == message.PutBackPriority
	qm.Decision.PutBack = kind

	var delay time.Duration
	if kind == message.PutBackPriority {
		delay = q.options.PutBackDelay
	} else {
		delay = q.options.PutBackDelay
		if forceDelay > delay {
			delay = forceDelay
		}
	}

	reinsert := func() {
		q.store.PutFront(qm)
		if cerr := q.deps.Cluster.SendPutBack(context.Background(), q.name, qm); cerr != nil {
			logger.L().Warn("queue: cluster put-back notify failed", "queue", q.name, "error", cerr)
		}
		go q.trigger(context.Background())
	}

	if delay <= 0 {
		reinsert()
		return
	}
	go func() {
		time.Sleep(delay)
		reinsert()
	}()
}

func (q *Queue) handleException(qm *message.QueueMessage, cause error) {
	decision := q.deliveryHandler.ExceptionThrown(qm, cause)
	q.applyDecision(decision, qm, false, time.Second)
	if !qm.IsInQueue && !qm.IsSent && !decision.Delete {
		go func() {
			time.Sleep(time.Second)
			q.store.Put(qm)
		}()
	}
}

func errorsFromRecover(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errors.New(errors.CodeInternal, "panic recovered in queue pipeline", nil)
}

// trigger drains the store while the bound strategy supports triggering,
// guarded so at most one drain runs per queue at a time.
func (q *Queue) trigger(ctx context.Context) {
	if !q.state.TriggerSupported() {
		return
	}
	if !q.beginTrigger() {
		return
	}
	defer q.endTrigger()

	for {
		if q.ClientCount() == 0 {
			break
		}
		qm := q.store.GetNext(true, false)
		if qm == nil {
			break
		}
		if q.ackSem != nil {
			q.ackSem <- struct{}{} // at most one in-flight delivery per permit
		}
		res := q.state.Push(ctx, q, qm)
		if res == message.ResultNoConsumers {
			q.releaseAckSem()
			break
		}
		if q.options.DelayBetweenMessages > 0 {
			time.Sleep(q.options.DelayBetweenMessages)
		}
	}

	q.checkAutoDestroy()
}

func (q *Queue) beginTrigger() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.triggering != 0 {
		return false
	}
	q.triggering = 1
	return true
}

func (q *Queue) endTrigger() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.triggering = 0
}

func (q *Queue) startWatchdog() {
	q.watchdogStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(watchdogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				q.trigger(context.Background())
			case <-q.watchdogStop:
				return
			}
		}
	}()
}

// checkAutoDestroy reports whether the queue's AutoDestroy condition
// currently holds. trigger calls it after each drain but does not act on
// the result: the queue is not destroyed or unregistered automatically.
func (q *Queue) checkAutoDestroy() bool {
	switch q.options.AutoDestroy {
	case AutoDestroyNoConsumers:
		return q.ClientCount() == 0
	case AutoDestroyNoMessages:
		return q.store.CountAll() == 0 && q.tracker.PendingCount() == 0
	case AutoDestroyEmpty:
		return q.ClientCount() == 0 && q.store.CountAll() == 0 && q.tracker.PendingCount() == 0
	default:
		return false
	}
}

// Destroy transitions the queue to Destroyed and releases
// its background resources.
func (q *Queue) Destroy() {
	q.mu.Lock()
	if q.destroyed {
		q.mu.Unlock()
		return
	}
	q.destroyed = true
	q.status = StatusDestroyed
	q.mu.Unlock()

	if q.watchdogStop != nil {
		close(q.watchdogStop)
	}
	q.tracker.Destroy()
}

// SetStatus transitions the queue's strategy via setStatus. Returns false
// if the incoming strategy's OnEnter vetoes with DenyAndStay.
func (q *Queue) SetStatus(next strategy.Strategy) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	prev := q.state
	prev.OnLeave(next)
	verdict := next.OnEnter(prev)
	if verdict == strategy.DenyAndStay {
		return false
	}
	q.state = next
	if verdict == strategy.AllowAndTrigger {
		go q.trigger(context.Background())
	}
	return true
}

// Pause/Resume/OnlyConsume toggle the lifecycle statuses a running queue
// may move between.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.status == StatusRunning {
		q.status = StatusPaused
	}
}

func (q *Queue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.status == StatusPaused || q.status == StatusOnlyConsume {
		q.status = StatusRunning
	}
}

func (q *Queue) SetOnlyConsume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.status == StatusRunning {
		q.status = StatusOnlyConsume
	}
}

// ClearMessages drops messages from the store: clearPriority clears the
// priority sequence, clearRegular clears the regular one.
func (q *Queue) ClearMessages(clearPriority, clearRegular bool) {
	if clearPriority {
		q.store.ClearPriority()
	}
	if clearRegular {
		q.store.ClearRegular()
	}
}

// Sync puts the queue into Syncing status for the duration of a cluster
// sync check, serialising pushes on the queue lock.
func (q *Queue) Sync(ctx context.Context) error {
	q.mu.Lock()
	if q.status != StatusRunning {
		q.mu.Unlock()
		return errors.New(errors.CodeInvalidArgument, "queue must be Running to sync", nil)
	}
	q.status = StatusSyncing
	defer func() {
		q.status = StatusRunning
		q.mu.Unlock()
	}()
	return q.deps.Cluster.CheckSync(ctx, q.name)
}

func (q *Queue) publishEvent(ctx context.Context, eventType string, qm *message.QueueMessage) {
	_ = q.deps.EventBus.Publish(ctx, "queue."+q.name, events.Event{
		ID:        qm.Message.ID,
		Type:      eventType,
		Source:    q.name,
		Timestamp: time.Now(),
		Payload:   qm.Message.ID,
	})
}
