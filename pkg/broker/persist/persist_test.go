package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadRoutersRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "routers.json"), "")

	defs := []RouterDef{{
		Name:      "orders-router",
		Method:    "Distribute",
		IsEnabled: true,
		Bindings: []BindingDef{
			{Name: "b1", Type: "QueueBinding", Target: "orders", Priority: 10, Interaction: "None", Method: "Distribute"},
		},
	}}
	s.SaveRouters(defs)

	loaded := s.LoadRouters()
	require.Len(t, loaded, 1)
	assert.Equal(t, "orders-router", loaded[0].Name)
	require.Len(t, loaded[0].Bindings, 1)
	assert.Equal(t, "orders", loaded[0].Bindings[0].Target)
}

func TestLoadQueuesReturnsNilWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	s := New("", filepath.Join(dir, "missing-queues.json"))

	loaded := s.LoadQueues()

	assert.Nil(t, loaded)
}

func TestLoadReturnsNilWhenPathUnset(t *testing.T) {
	s := New("", "")

	assert.Nil(t, s.LoadRouters())
	assert.Nil(t, s.LoadQueues())
}

func TestSaveIsNoOpWhenPathUnset(t *testing.T) {
	s := New("", "")

	s.SaveQueues([]QueueDef{{Name: "x"}})
}
