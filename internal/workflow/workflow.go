package workflow

import (
	"context"
	"sort"
	"sync"

	"github.com/jhlee-dev/rudder/internal/llm"
	"github.com/jhlee-dev/rudder/internal/tools"
)

// Deps are the collaborators a workflow may use.
type Deps struct {
	Client  llm.Client
	Invoker tools.Invoker
}

// Workflow handles a specialized request pattern end to end, bypassing
// plan generation.
type Workflow interface {
	Name() string
	Run(ctx context.Context, deps Deps, message string) (string, error)
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Workflow)
)

func Register(w Workflow) {
	mu.Lock()
	defer mu.Unlock()
	registry[w.Name()] = w
}

func Get(name string) Workflow {
	mu.RLock()
	defer mu.RUnlock()
	return registry[name]
}

func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(&CodeModification{})
	Register(&Research{})
}
