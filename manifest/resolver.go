package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ResolvedDep represents a dependency that has been resolved to a local path.
type ResolvedDep struct {
	Name      string    // dependency name
	LocalPath string    // local filesystem path
	Manifest  *Manifest // the dependency's own manifest (may be nil)
}

// TheoryPaths returns the dependency's theory files. A dependency without
// its own manifest contributes theory.toml from its directory.
func (d ResolvedDep) TheoryPaths() []string {
	if d.Manifest != nil {
		return d.Manifest.TheoryPaths()
	}
	return []string{filepath.Join(d.LocalPath, "theory.toml")}
}

// Resolver manages dependency resolution.
type Resolver struct {
	manifest *Manifest
}

// NewResolver creates a new dependency resolver.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve resolves all dependencies and returns them in load order
// (topologically sorted: dependencies before dependents). Siblings are
// visited in name order so the result is stable.
func (r *Resolver) Resolve() ([]ResolvedDep, error) {
	st := &resolveState{
		resolved: make(map[string]*ResolvedDep),
		visiting: map[string]bool{r.manifest.Dir: true},
	}
	if err := st.resolveAll(r.manifest, nil); err != nil {
		return nil, err
	}
	return st.order, nil
}

// TheoryFiles returns every theory file to load: dependencies first, then
// the project's own theories.
func (r *Resolver) TheoryFiles() ([]string, error) {
	deps, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	var files []string
	for _, d := range deps {
		files = append(files, d.TheoryPaths()...)
	}
	return append(files, r.manifest.TheoryPaths()...), nil
}

type resolveState struct {
	resolved map[string]*ResolvedDep
	visiting map[string]bool // keyed by absolute path
	order    []ResolvedDep
}

// resolveAll resolves the dependencies of owner recursively.
func (st *resolveState) resolveAll(owner *Manifest, chain []string) error {
	names := make([]string, 0, len(owner.Dependencies))
	for name := range owner.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rd, err := resolveOne(owner, name, owner.Dependencies[name])
		if err != nil {
			return fmt.Errorf("resolving %s: %w", name, err)
		}

		if prev, ok := st.resolved[name]; ok {
			if prev.LocalPath != rd.LocalPath {
				return fmt.Errorf("dependency %q resolves to both %s and %s", name, prev.LocalPath, rd.LocalPath)
			}
			continue // already resolved
		}
		if st.visiting[rd.LocalPath] {
			return fmt.Errorf("dependency cycle: %v -> %s", chain, name)
		}

		if rd.Manifest != nil && len(rd.Manifest.Dependencies) > 0 {
			st.visiting[rd.LocalPath] = true
			err := st.resolveAll(rd.Manifest, append(chain, name))
			delete(st.visiting, rd.LocalPath)
			if err != nil {
				return err
			}
		}

		st.resolved[name] = rd
		st.order = append(st.order, *rd)
	}
	return nil
}

// resolveOne resolves a single dependency relative to its owner.
func resolveOne(owner *Manifest, name string, dep Dependency) (*ResolvedDep, error) {
	if dep.Path == "" {
		return nil, fmt.Errorf("dependency %q has no path specified", name)
	}

	localPath := dep.Path
	if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(owner.Dir, localPath)
	}
	localPath, err := filepath.Abs(localPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
	}

	// Verify it exists
	if _, err := os.Stat(localPath); err != nil {
		return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
	}

	var depManifest *Manifest
	if _, err := os.Stat(filepath.Join(localPath, FileName)); err == nil {
		depManifest, err = Load(localPath)
		if err != nil {
			return nil, err
		}
	}

	return &ResolvedDep{
		Name:      name,
		LocalPath: localPath,
		Manifest:  depManifest,
	}, nil
}
