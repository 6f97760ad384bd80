package engine

import (
	"log/slog"
	"strings"
)

// Factory builds an engine, or reports why the capability is missing.
type Factory func() (Engine, error)

// Entry is one configured engine and whether it can be used.
type Entry struct {
	Name    string
	Engine  Engine
	Present bool
	Reason  string
}

// Registry is the set of engines resolved once at startup, in configured order.
type Registry struct {
	entries []Entry
}

// Resolve builds every engine named in enabled using factories.
// Unknown names and failing factories are kept as absent entries with a reason.
func Resolve(enabled []string, factories map[string]Factory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{}
	seen := map[string]bool{}
	for _, raw := range enabled {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		entry := Entry{Name: name}
		factory, ok := factories[name]
		switch {
		case !ok:
			entry.Reason = "unknown engine"
		default:
			eng, err := factory()
			if err != nil {
				entry.Reason = err.Error()
			} else if eng == nil {
				entry.Reason = "factory returned no engine"
			} else {
				entry.Engine = eng
				entry.Present = true
			}
		}
		if entry.Present {
			logger.Info("engine.registry.present", "engine", name, "profiles", len(entry.Engine.Profiles()))
		} else {
			logger.Warn("engine.registry.absent", "engine", name, "reason", entry.Reason)
		}
		r.entries = append(r.entries, entry)
	}
	return r
}

// NewStaticRegistry wraps already built engines, all present.
func NewStaticRegistry(engines ...Engine) *Registry {
	r := &Registry{}
	for _, e := range engines {
		r.entries = append(r.entries, Entry{Name: e.Name(), Engine: e, Present: true})
	}
	return r
}

// Entries returns every configured engine, present or not.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Available returns the present engines in configured order.
func (r *Registry) Available() []Engine {
	var out []Engine
	for _, e := range r.entries {
		if e.Present {
			out = append(out, e.Engine)
		}
	}
	return out
}

func (r *Registry) Get(name string) (Engine, bool) {
	for _, e := range r.entries {
		if e.Present && e.Name == name {
			return e.Engine, true
		}
	}
	return nil, false
}
