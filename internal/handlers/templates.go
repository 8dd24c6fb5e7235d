package handlers

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vorokhovskii-creator/felix-hub/internal/i18n"
	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

const layoutFile = "base.html"

// TemplateCache holds parsed page templates. Each page is parsed together
// with base.html and every partial whose name starts with "_".
type TemplateCache struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
	funcs template.FuncMap
	fsys  fs.FS
}

// NewTemplateCache creates a cache whose asset links carry version.
func NewTemplateCache(version string) *TemplateCache {
	return &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: template.FuncMap{
			"t":   i18n.T,
			"dir": i18n.Dir,
			"asset": func(p string) string {
				return "/static/" + strings.TrimPrefix(p, "/") + "?v=" + version
			},
			"statusLabel": func(lang string, s models.Status) string {
				return i18n.T(lang, "status."+string(s))
			},
			"statuses":  func() []models.Status { return models.Statuses },
			"languages": func() []string { return i18n.Supported },
		},
	}
}

// Load parses every page in fsys, replacing the cache only when all of
// them parse.
func (tc *TemplateCache) Load(fsys fs.FS) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return err
	}
	var partials []string
	for _, f := range files {
		if strings.HasPrefix(f, "_") {
			partials = append(partials, f)
		}
	}

	cache := make(map[string]*template.Template, len(files))
	for _, name := range files {
		if name == layoutFile || strings.HasPrefix(name, "_") {
			continue
		}
		patterns := append([]string{layoutFile}, partials...)
		patterns = append(patterns, name)
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFS(fsys, patterns...)
		if err != nil {
			slog.Error("Failed to parse template", "file", name, "error", err)
			return fmt.Errorf("parse %s: %w", name, err)
		}
		cache[name] = tmpl
		slog.Debug("Cached template", "name", name)
	}
	if len(cache) == 0 {
		return fmt.Errorf("no page templates found")
	}
	tc.cache = cache
	tc.fsys = fsys
	return nil
}

func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}

// Watch reloads the templates whenever an .html file in dir changes, until
// ctx is done. Parse errors keep the previous templates.
func (tc *TemplateCache) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}
	slog.Info("Watching templates for changes", "dir", dir)

	go func() {
		defer w.Close()
		// Editors fire several events per save.
		const debounce = 100 * time.Millisecond
		var timer <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if path.Ext(ev.Name) != ".html" {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					timer = time.After(debounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("Template watcher error", "error", err)
			case <-timer:
				timer = nil
				tc.mu.RLock()
				fsys := tc.fsys
				tc.mu.RUnlock()
				if err := tc.Load(fsys); err != nil {
					slog.Error("Template reload failed", "error", err)
					continue
				}
				slog.Info("Templates reloaded")
			}
		}
	}()
	return nil
}
