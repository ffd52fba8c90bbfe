// Package locator maps logical model names to model files on disk.
//
// A model is available locally when {modelsDir}/{name}/*.{ext} matches at least
// one file. Nothing is cached: every call reads the filesystem again, so models
// dropped into the directory are picked up without a restart.
package locator

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Resolved is a logical model name paired with its artifact, if one exists.
type Resolved struct {
	Name         string
	ArtifactPath string
}

// Local reports whether an artifact was found.
func (r Resolved) Local() bool {
	return r.ArtifactPath != ""
}

type Locator struct {
	fs  afero.Fs
	dir string
	ext string
}

func New(fs afero.Fs, modelsDir, ext string) *Locator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Locator{
		fs:  fs,
		dir: modelsDir,
		ext: strings.TrimPrefix(ext, "."),
	}
}

// Resolve returns the artifact for name. When several files match, the
// lexicographically first one wins.
func (l *Locator) Resolve(name string) (string, bool) {
	if !validName(name) || l.dir == "" {
		return "", false
	}
	matches, err := afero.Glob(l.fs, l.pattern(name))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}

func (l *Locator) IsAvailableLocally(name string) bool {
	_, ok := l.Resolve(name)
	return ok
}

func (l *Locator) Lookup(name string) Resolved {
	path, _ := l.Resolve(name)
	return Resolved{Name: name, ArtifactPath: path}
}

// List returns the sorted names of every locally available model.
func (l *Locator) List() []string {
	if l.dir == "" {
		return nil
	}
	entries, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && l.IsAvailableLocally(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func (l *Locator) pattern(name string) string {
	return filepath.Join(escapeMeta(l.dir), escapeMeta(name), "*."+escapeMeta(l.ext))
}

// validName rejects names that would escape the models directory.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func escapeMeta(s string) string {
	if !strings.ContainsAny(s, `*?[\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
