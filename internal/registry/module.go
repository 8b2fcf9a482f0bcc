// Package registry discovers, parses, and resolves modules: user-authored
// Lua recipes living under <modules_root>/<author>/<name>.lua, grounded
// on original_source/src/engine/mod.rs's Engine.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ScriptExt is the fixed extension recognized for module files.
const ScriptExt = ".lua"

// Module is a user-authored reconnaissance recipe with declared metadata
// and a script body.
type Module struct {
	Name        string
	Author      string
	Description string
	Version     string
	Argument    Argument
	ScriptBody  string
	Path        string
}

// Canonical returns the long-form "author/name" reference.
func (m *Module) Canonical() string {
	return m.Author + "/" + m.Name
}

// LoadError is returned when a module file cannot be parsed or loaded; it
// carries the offending path.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("registry: failed to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// AmbiguousModuleError is returned by Get when a short-name reference
// matches more than one module.
type AmbiguousModuleError struct {
	Name      string
	Canonical []string
}

func (e *AmbiguousModuleError) Error() string {
	return fmt.Sprintf("registry: %q is ambiguous, matches %s", e.Name, strings.Join(e.Canonical, ", "))
}

// Registry discovers modules on disk and resolves references to them.
// Reload replaces the internal map atomically, so lookups never observe
// a partially-rebuilt registry.
type Registry struct {
	root string

	mu      sync.RWMutex
	modules map[string][]*Module
}

// New builds a Registry rooted at root and performs an initial load.
func New(root string) (*Registry, error) {
	r := &Registry{root: root}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload scans the module directory fresh and atomically replaces the
// registry's contents. A bad module fails the whole reload with a
// path-annotated LoadError; the previous registry is left untouched.
func (r *Registry) Reload() error {
	fresh := make(map[string][]*Module)

	authorEntries, err := os.ReadDir(r.root)
	if err != nil {
		return &LoadError{Path: r.root, Err: err}
	}

	for _, authorEntry := range authorEntries {
		if !authorEntry.IsDir() {
			continue
		}
		author := authorEntry.Name()
		authorDir := filepath.Join(r.root, author)

		moduleEntries, err := os.ReadDir(authorDir)
		if err != nil {
			return &LoadError{Path: authorDir, Err: err}
		}

		for _, me := range moduleEntries {
			if !strings.HasSuffix(me.Name(), ScriptExt) {
				continue
			}
			name := strings.TrimSuffix(me.Name(), ScriptExt)
			path := filepath.Join(authorDir, me.Name())

			mod, err := loadModule(path, author, name)
			if err != nil {
				return &LoadError{Path: path, Err: err}
			}

			for _, key := range [2]string{name, author + "/" + name} {
				fresh[key] = append(fresh[key], mod)
			}
		}
	}

	r.mu.Lock()
	r.modules = fresh
	r.mu.Unlock()
	return nil
}

func loadModule(path, author, name string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module: %w", err)
	}
	code := string(data)

	meta, err := ParseMetadata(code)
	if err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}

	return &Module{
		Name:        name,
		Author:      author,
		Description: meta.Description,
		Version:     meta.Version,
		Argument:    meta.Argument,
		ScriptBody:  code,
		Path:        path,
	}, nil
}

// Get resolves a reference (either "author/name" or bare "name") to the
// unique matching module, failing with AmbiguousModuleError if a bare
// name matches more than one author's module.
func (r *Registry) Get(reference string) (*Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules, ok := r.modules[reference]
	if !ok || len(modules) == 0 {
		return nil, fmt.Errorf("registry: module not found: %q", reference)
	}
	if len(modules) != 1 {
		canon := make([]string, len(modules))
		for i, m := range modules {
			canon[i] = m.Canonical()
		}
		return nil, &AmbiguousModuleError{Name: reference, Canonical: canon}
	}
	return modules[0], nil
}

// List returns every unique module exactly once, enumerating only the
// long-form ("author/name") keys so a module with an unambiguous short
// name isn't counted twice.
func (r *Registry) List() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Module
	for key, mods := range r.modules {
		if strings.Contains(key, "/") {
			out = append(out, mods...)
		}
	}
	return out
}

// Variants returns the set of reference strings (short or long form) that
// resolve unambiguously — i.e. map to exactly one module.
func (r *Registry) Variants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for key, mods := range r.modules {
		if len(mods) == 1 {
			out = append(out, key)
		}
	}
	return out
}
