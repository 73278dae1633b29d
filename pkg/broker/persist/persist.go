// Package persist implements best-effort JSON configuration persistence:
// a routers file and a queues file, each a JSON array of definitions,
// rewritten on every mutation. Failures are logged, never propagated.
package persist

import (
	"encoding/json"
	"os"

	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
)

// BindingDef mirrors one entry of a RouterDef's bindings array.
type BindingDef struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Target      string `json:"target"`
	Priority    int32  `json:"priority"`
	Interaction string `json:"interaction"`
	Method      string `json:"method"`
	ContentType uint16 `json:"contentType,omitempty"`
}

// RouterDef is one entry of the routers file.
type RouterDef struct {
	Name      string       `json:"name"`
	Method    string       `json:"method"`
	IsEnabled bool         `json:"isEnabled"`
	Bindings  []BindingDef `json:"bindings"`
}

// QueueDef is one entry of the queues file.
type QueueDef struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Topic     string `json:"topic,omitempty"`
	IsEnabled bool   `json:"isEnabled"`
}

// Store owns the two configuration file paths and loads/saves them as
// plain JSON arrays.
type Store struct {
	RoutersPath string
	QueuesPath  string
}

// New builds a Store pointed at the given file paths. Either may be empty,
// in which case Load/Save for that file is a no-op.
func New(routersPath, queuesPath string) *Store {
	return &Store{RoutersPath: routersPath, QueuesPath: queuesPath}
}

// LoadRouters reads the routers file, returning an empty slice if the path
// is unset or the file does not yet exist.
func (s *Store) LoadRouters() []RouterDef {
	var defs []RouterDef
	if !readJSON(s.RoutersPath, &defs) {
		return nil
	}
	return defs
}

// LoadQueues reads the queues file, returning an empty slice if the path is
// unset or the file does not yet exist.
func (s *Store) LoadQueues() []QueueDef {
	var defs []QueueDef
	if !readJSON(s.QueuesPath, &defs) {
		return nil
	}
	return defs
}

// SaveRouters rewrites the routers file. Failure is logged, not returned.
func (s *Store) SaveRouters(defs []RouterDef) {
	writeJSON(s.RoutersPath, defs)
}

// SaveQueues rewrites the queues file. Failure is logged, not returned.
func (s *Store) SaveQueues(defs []QueueDef) {
	writeJSON(s.QueuesPath, defs)
}

func readJSON(path string, out interface{}) bool {
	if path == "" {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.L().Warn("persist: read failed", "path", path, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.L().Warn("persist: unmarshal failed", "path", path, "error", err)
		return false
	}
	return true
}

func writeJSON(path string, v interface{}) {
	if path == "" {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.L().Warn("persist: marshal failed", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.L().Warn("persist: write failed", "path", path, "error", err)
	}
}
