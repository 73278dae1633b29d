package dispatch

import (
	"context"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// forwardDirect resolves the addressed client, checks permission, and
// forwards m verbatim.
func (d *Dispatcher) forwardDirect(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeClient(ctx, sender, m.Target) {
		return message.ResultUnauthorized, nil
	}
	target, ok := d.deps.Clients.ByID(m.Target)
	if !ok {
		return message.ResultNotFound, nil
	}
	if err := target.Send(m); err != nil {
		return message.ResultError, err
	}
	return message.ResultSuccess, nil
}
