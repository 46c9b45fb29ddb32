package skills

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/skillet-ai/skillet/pkg/logger"
)

// definitionPattern matches skill definition files inside a skill directory.
const definitionPattern = "**/*.{yaml,yml}"

// Catalog is the process-wide cache of skill definitions. It is populated
// once at startup and only changes through an explicit Reload (or the
// optional Watch mode); concurrent runs read from it without locking
// individual definitions.
type Catalog struct {
	mu     sync.RWMutex
	dirs   []string
	skills map[string]*Definition
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog) error

// WithDirs sets the directories scanned for skill definitions.
func WithDirs(dirs ...string) CatalogOption {
	return func(c *Catalog) error {
		c.dirs = append(c.dirs, dirs...)
		return nil
	}
}

// WithDefaultDirs adds the default skill directories: repo-local
// ./.skillet/skills (highest precedence) and user-global ~/.skillet/skills.
func WithDefaultDirs() CatalogOption {
	return func(c *Catalog) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		c.dirs = append(c.dirs,
			"./.skillet/skills",
			filepath.Join(homeDir, ".skillet", "skills"),
		)
		return nil
	}
}

// NewCatalog creates a catalog and performs the initial load.
func NewCatalog(opts ...CatalogOption) (*Catalog, error) {
	c := &Catalog{skills: make(map[string]*Definition)}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload rescans the configured directories and atomically replaces the
// cached definitions. A definition that fails validation is skipped with a
// warning rather than poisoning the whole catalog.
func (c *Catalog) Reload() error {
	loaded := make(map[string]*Definition)

	for _, dir := range c.dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		paths, err := doublestar.Glob(os.DirFS(dir), definitionPattern)
		if err != nil {
			return errors.Wrapf(err, "scan skill directory %q", dir)
		}
		sort.Strings(paths)
		for _, rel := range paths {
			path := filepath.Join(dir, rel)
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "read skill file %q", path)
			}
			def, err := Parse(data)
			if err != nil {
				logger.L.WithError(err).WithField("path", path).Warn("skipping invalid skill definition")
				continue
			}
			// Earlier directories take precedence over later ones.
			if _, exists := loaded[def.Name]; exists {
				logger.L.WithField("skill", def.Name).WithField("path", path).Debug("skill shadowed by earlier directory")
				continue
			}
			loaded[def.Name] = def
		}
	}

	c.mu.Lock()
	c.skills = loaded
	c.mu.Unlock()
	return nil
}

// Get returns the named skill definition.
func (c *Catalog) Get(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.skills[name]
	return def, ok
}

// List returns all definitions sorted by name.
func (c *Catalog) List() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	defs := make([]*Definition, 0, len(c.skills))
	for _, def := range c.skills {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Len returns the number of cached definitions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.skills)
}

// Watch reloads the catalog whenever a definition file changes, until the
// context is cancelled. Events are debounced so editors that write files in
// multiple operations trigger a single reload.
func (c *Catalog) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create filesystem watcher")
	}
	defer watcher.Close()

	watching := false
	for _, dir := range c.dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "watch skill directory %q", dir)
		}
		watching = true
	}
	if !watching {
		return errors.New("no skill directories exist to watch")
	}

	log := logger.G(ctx)
	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerCh = timer.C
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("skill watcher error")
		case <-timerCh:
			if err := c.Reload(); err != nil {
				log.WithError(err).Error("failed to reload skill catalog")
			} else {
				log.WithField("skills", c.Len()).Info("skill catalog reloaded")
			}
		}
	}
}
