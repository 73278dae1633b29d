// Package auth defines the boolean-returning authorization guard hooks the
// dispatcher runs before admin-scoped and per-entity operations, plus a
// handful of reference implementations.
package auth

import (
	"context"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// AdminAuthorizer gates admin-scoped dispatcher operations (create/remove
// queue, router/binding CRUD, ...). All configured hooks must authorize
// for the operation to proceed.
type AdminAuthorizer interface {
	AuthorizeAdmin(ctx context.Context, client message.ClientRef, operation string) bool
}

// ClientAuthorizer gates per-entity operations (subscribe to a queue or
// channel, publish to a router, ...). All configured hooks must authorize
// for the operation to proceed.
type ClientAuthorizer interface {
	AuthorizeClient(ctx context.Context, client message.ClientRef, target string) bool
}

// AllowAll authorizes every request; the reference implementation for a
// broker run with authorization disabled.
type AllowAll struct{}

func (AllowAll) AuthorizeAdmin(ctx context.Context, client message.ClientRef, operation string) bool {
	return true
}

func (AllowAll) AuthorizeClient(ctx context.Context, client message.ClientRef, target string) bool {
	return true
}

// Denylist denies access to a configured set of client ids, authorizing
// everyone else. Useful as a reference for wiring a real ACL/IAM backend
// behind the same two-method contract.
type Denylist struct {
	Denied map[string]struct{}
}

func NewDenylist(ids ...string) *Denylist {
	d := &Denylist{Denied: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		d.Denied[id] = struct{}{}
	}
	return d
}

func (d *Denylist) AuthorizeAdmin(ctx context.Context, client message.ClientRef, operation string) bool {
	_, denied := d.Denied[client.ID]
	return !denied
}

func (d *Denylist) AuthorizeClient(ctx context.Context, client message.ClientRef, target string) bool {
	_, denied := d.Denied[client.ID]
	return !denied
}

// Chain combines multiple authorizers; every one of them must authorize
// for the aggregate to authorize.
type Chain struct {
	Admins  []AdminAuthorizer
	Clients []ClientAuthorizer
}

func (c Chain) AuthorizeAdmin(ctx context.Context, client message.ClientRef, operation string) bool {
	for _, a := range c.Admins {
		if !a.AuthorizeAdmin(ctx, client, operation) {
			return false
		}
	}
	return true
}

func (c Chain) AuthorizeClient(ctx context.Context, client message.ClientRef, target string) bool {
	for _, a := range c.Clients {
		if !a.AuthorizeClient(ctx, client, target) {
			return false
		}
	}
	return true
}
