package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/channel"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/persist"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/queue"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/router"
)

func TestValidateNameRejectsForbiddenCharacters(t *testing.T) {
	assert.NoError(t, ValidateName("orders"))
	assert.Error(t, ValidateName("has space"))
	assert.Error(t, ValidateName("star*"))
	assert.Error(t, ValidateName("semi;colon"))
	assert.Error(t, ValidateName(""))
}

func TestQueuesCreateRejectsDuplicateNameCaseInsensitively(t *testing.T) {
	qs := NewQueues(queue.Deps{}, nil)

	_, err := qs.Create("Orders", "", queue.TypeRoundRobin, queue.DefaultOptions())
	require.NoError(t, err)

	_, err = qs.Create("orders", "", queue.TypeRoundRobin, queue.DefaultOptions())
	assert.Error(t, err)
}

func TestQueuesRemoveDestroysAndUnregisters(t *testing.T) {
	qs := NewQueues(queue.Deps{}, nil)
	qq, err := qs.Create("orders", "", queue.TypeRoundRobin, queue.DefaultOptions())
	require.NoError(t, err)

	ok := qs.Remove("Orders")

	assert.True(t, ok)
	assert.Equal(t, queue.StatusDestroyed, qq.Status())
	_, found := qs.Get("orders")
	assert.False(t, found)
}

func TestQueuesListAppliesGlobFilter(t *testing.T) {
	qs := NewQueues(queue.Deps{}, nil)
	qs.Create("orders-eu", "", queue.TypeRoundRobin, queue.DefaultOptions())
	qs.Create("orders-us", "", queue.TypeRoundRobin, queue.DefaultOptions())
	qs.Create("events", "", queue.TypeRoundRobin, queue.DefaultOptions())

	got := qs.List("orders-*")

	require.Len(t, got, 2)
	assert.Equal(t, "orders-eu", got[0].Name())
	assert.Equal(t, "orders-us", got[1].Name())
}

func TestQueuesCreatePersistsToQueuesFile(t *testing.T) {
	dir := t.TempDir()
	store := persist.New("", filepath.Join(dir, "queues.json"))
	qs := NewQueues(queue.Deps{}, store)

	_, err := qs.Create("orders", "east", queue.TypePull, queue.DefaultOptions())
	require.NoError(t, err)

	loaded := store.LoadQueues()
	require.Len(t, loaded, 1)
	assert.Equal(t, "orders", loaded[0].Name)
	assert.Equal(t, "Pull", loaded[0].Type)
}

func TestRoutersCreateAndRemove(t *testing.T) {
	rs := NewRouters(nil)

	rr, err := rs.Create("orders-router", router.Distribute)
	require.NoError(t, err)
	require.NotNil(t, rr)

	_, found := rs.Get("Orders-Router")
	assert.True(t, found)

	assert.True(t, rs.Remove("orders-router"))
	assert.False(t, rs.Remove("orders-router"))
}

func TestChannelsCreateRejectsDuplicate(t *testing.T) {
	cs := NewChannels()

	_, err := cs.Create("events", "", channel.DefaultOptions(), nil, channel.Hooks{})
	require.NoError(t, err)

	_, err = cs.Create("events", "", channel.DefaultOptions(), nil, channel.Hooks{})
	assert.Error(t, err)
}

func TestClientsDisconnectFiresHooksSynchronously(t *testing.T) {
	cs := NewClients()
	cl := &client.Client{Ref: message.ClientRef{ID: "c1", Type: "worker"}}
	cs.Add(cl)

	var removed message.ClientRef
	cs.OnDisconnect(func(ref message.ClientRef) { removed = ref })

	cs.Disconnect(cl.Ref)

	assert.Equal(t, "c1", removed.ID)
	_, found := cs.ByID("c1")
	assert.False(t, found)
}

func TestClientsByTypeAndByName(t *testing.T) {
	cs := NewClients()
	cs.Add(&client.Client{Ref: message.ClientRef{ID: "c1", Type: "worker", Name: "alice"}})
	cs.Add(&client.Client{Ref: message.ClientRef{ID: "c2", Type: "worker", Name: "bob"}})
	cs.Add(&client.Client{Ref: message.ClientRef{ID: "c3", Type: "admin", Name: "alice"}})

	assert.Len(t, cs.ByType("worker"), 2)
	assert.Len(t, cs.ByName("alice"), 2)
}
