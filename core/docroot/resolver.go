// Package docroot maps request paths onto the filesystem while keeping every
// result inside the configured document root.
package docroot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrEscape means the resolved path landed outside the document root.
	ErrEscape = errors.New("path escapes document root")
)

// Resolver joins request paths under a canonical document root.
type Resolver struct {
	root string
}

// New canonicalizes root and verifies it is an existing directory. The root
// is resolved once here so that per-request checks compare against a stable
// canonical prefix.
func New(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("docroot: %w", err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("docroot: %w", err)
	}
	st, err := os.Stat(canon)
	if err != nil {
		return nil, fmt.Errorf("docroot: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("docroot: %s is not a directory", canon)
	}
	return &Resolver{root: canon}, nil
}

// Root returns the canonical document root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve maps a request path to an absolute filesystem path contained in
// the root. The lexical containment check runs before any filesystem access,
// so a target that does not exist yet still cannot name anything outside the
// root; symlinks inside the root are then resolved and re-checked.
func (r *Resolver) Resolve(reqPath string) (string, error) {
	rel := strings.TrimPrefix(reqPath, "/")
	if rel == "" {
		rel = "index.html"
	}

	joined := filepath.Join(r.root, rel)
	if !r.contains(joined) {
		return "", ErrEscape
	}

	canon, err := filepath.EvalSymlinks(joined)
	if err != nil {
		// Missing target: hand back the lexically contained join so the
		// caller's stat turns it into a 404.
		return joined, nil
	}
	if !r.contains(canon) {
		return "", ErrEscape
	}
	return canon, nil
}

// contains is a separator-aware prefix check against the canonical root.
func (r *Resolver) contains(p string) bool {
	return p == r.root || strings.HasPrefix(p, r.root+string(filepath.Separator))
}
