package dispatch

import (
	"context"
	"strconv"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/router"
)

// publishToRouter resolves the target router and forwards to it, mapping
// RouterPublishResult onto the common Result enum.
func (d *Dispatcher) publishToRouter(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeClient(ctx, sender, m.Target) {
		return message.ResultUnauthorized, nil
	}
	rr, ok := d.deps.Routers.Get(m.Target)
	if !ok {
		return message.ResultNotFound, nil
	}
	switch rr.Publish(ctx, sender, m) {
	case message.PublishDisabled:
		return message.ResultDisabled, nil
	case message.PublishNoBindings:
		return message.ResultNoBindings, nil
	case message.PublishNoReceivers:
		return message.ResultNoReceivers, nil
	default:
		return message.ResultSuccess, nil
	}
}

func (d *Dispatcher) createRouter(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeAdmin(ctx, sender, "CreateRouter") {
		return message.ResultUnauthorized, nil
	}
	method, _ := router.ParseMethod(firstHeader(m, message.HeaderRouteMethod))
	if _, err := d.deps.Routers.Create(m.Target, method); err != nil {
		return message.ResultDuplicate, err
	}
	return message.ResultSuccess, nil
}

func (d *Dispatcher) removeRouter(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeAdmin(ctx, sender, "RemoveRouter") {
		return message.ResultUnauthorized, nil
	}
	if !d.deps.Routers.Remove(m.Target) {
		return message.ResultNotFound, nil
	}
	return message.ResultSuccess, nil
}

func (d *Dispatcher) addBinding(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeAdmin(ctx, sender, "AddBinding") {
		return message.ResultUnauthorized, nil
	}
	rr, ok := d.deps.Routers.Get(m.Target)
	if !ok {
		return message.ResultNotFound, nil
	}

	name := firstHeader(m, message.HeaderBindingName)
	priority := parseInt32(firstHeader(m, message.HeaderBindingPriority))
	interaction := router.ParseInteraction(firstHeader(m, message.HeaderInteraction))
	target := firstHeader(m, message.HeaderBindingTarget)
	method, _ := router.ParseMethod(firstHeader(m, message.HeaderRouteMethod))

	var binding router.Binding
	if firstHeader(m, message.HeaderBindingKind) == "Direct" {
		binding = router.NewDirectBinding(name, priority, interaction, method, target, d.deps.Clients, nil)
	} else {
		qb := router.NewQueueBinding(name, priority, interaction, target, d.queueTargetResolver())
		if v, ok := m.Headers.Get(message.HeaderBindingContentType); ok {
			if ct, err := strconv.ParseUint(v, 10, 16); err == nil {
				qb.SetContentType(uint16(ct))
			}
		}
		binding = qb
	}

	rr.AddBinding(binding)
	d.deps.Routers.Save()
	return message.ResultSuccess, nil
}

func (d *Dispatcher) removeBinding(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeAdmin(ctx, sender, "RemoveBinding") {
		return message.ResultUnauthorized, nil
	}
	rr, ok := d.deps.Routers.Get(m.Target)
	if !ok {
		return message.ResultNotFound, nil
	}
	if !rr.RemoveBinding(firstHeader(m, message.HeaderBindingName)) {
		return message.ResultNotFound, nil
	}
	d.deps.Routers.Save()
	return message.ResultSuccess, nil
}

func parseInt32(v string) int32 {
	n, _ := strconv.ParseInt(v, 10, 32)
	return int32(n)
}
