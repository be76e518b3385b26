package logregistry

import (
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/monitor"
)

// Registry is the config-backed log registry: a fixed alias→path map
// loaded at startup (the MONITOR_LOG_FILES setting).
type Registry struct {
	files map[string]string
}

var _ monitor.LogRegistry = (*Registry)(nil)

func New(conf *core.Config) *Registry {
	files := make(map[string]string, len(conf.Monitor.LogFiles))
	for alias, path := range conf.Monitor.LogFiles {
		files[alias] = path
	}
	return &Registry{files: files}
}

// NewFromMap builds a registry from an explicit map; used by tests and
// embedded setups.
func NewFromMap(files map[string]string) *Registry {
	cp := make(map[string]string, len(files))
	for alias, path := range files {
		cp[alias] = path
	}
	return &Registry{files: cp}
}

func (r *Registry) Resolve(alias string) (string, bool) {
	path, ok := r.files[alias]
	return path, ok
}

func (r *Registry) Aliases() []string {
	aliases := make([]string, 0, len(r.files))
	for alias := range r.files {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
