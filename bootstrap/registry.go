package bootstrap

import (
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/worldtree/errors"
)

type registered struct {
	version *semver.Version
	module  *Module
}

// Registry holds the runtime modules compiled into this binary, keyed by
// name with any number of versions each
type Registry struct {
	mu      sync.RWMutex
	modules map[string][]registered
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string][]registered)}
}

// Register adds module under name at version
func (r *Registry) Register(name, version string, module *Module) error {
	if name == "" || module == nil {
		return errors.NewInvalidRequestError("register: name and module are required")
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(err, "invalid version %s for %s", version, name)
	}
	name = ModuleName(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.modules[name] {
		if e.version.Equal(v) {
			return errors.Newf("module already registered: %s@%s", name, v)
		}
	}
	r.modules[name] = append(r.modules[name], registered{version: v, module: module})
	sort.Slice(r.modules[name], func(i, j int) bool {
		return r.modules[name][i].version.GreaterThan(r.modules[name][j].version)
	})
	return nil
}

// Resolve returns the highest registered version satisfying spec, written
// as "name" or "name@constraint" (npm scopes are ignored: "@automerge/x@1"
// resolves x)
func (r *Registry) Resolve(spec string) (*Module, string, error) {
	name, constraint := SplitSpec(spec)
	if constraint == "" {
		constraint = "*"
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, "", errors.Wrapf(err, "invalid version constraint %s", constraint)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	entries, ok := r.modules[name]
	if !ok {
		return nil, "", errors.Wrapf(errors.ErrNotFound, "module %s", name)
	}
	for _, e := range entries {
		if c.Check(e.version) {
			return e.module, e.version.String(), nil
		}
	}
	return nil, "", errors.Wrapf(errors.ErrNotFound, "no version of %s matches %s", name, constraint)
}

// List returns "name@version" for every registration, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, entries := range r.modules {
		for _, e := range entries {
			out = append(out, name+"@"+e.version.String())
		}
	}
	sort.Strings(out)
	return out
}

// ModuleName drops an npm scope: "@automerge/automerge-repo" -> "automerge-repo"
func ModuleName(name string) string {
	if strings.HasPrefix(name, "@") {
		if i := strings.Index(name, "/"); i >= 0 {
			return name[i+1:]
		}
	}
	return name
}

// SplitSpec splits "name@constraint" into its parts, respecting a leading
// scope "@"
func SplitSpec(spec string) (name, constraint string) {
	at := strings.LastIndex(spec, "@")
	if at <= 0 {
		return ModuleName(spec), ""
	}
	return ModuleName(spec[:at]), spec[at+1:]
}
