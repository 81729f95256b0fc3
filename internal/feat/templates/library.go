package templates

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/validation"
)

// DefaultFile is the embedded template library inside the assets filesystem.
const DefaultFile = "assets/seed/templates.yaml"

// Source says where the library is read from.
type Source struct {
	// FS and Name locate the built-in library.
	FS   fs.FS
	Name string
	// Path, when set, is a file on disk read instead of the built-in library.
	Path string
	// Watch reloads Path whenever it changes.
	Watch bool
}

// library holds the parsed templates and optionally keeps them in sync with a file.
type library struct {
	mu        sync.RWMutex
	templates []FormTemplate

	src     Source
	watcher *fsnotify.Watcher
	done    chan struct{}
	log     logger.Logger
}

func newLibrary(src Source, log logger.Logger) *library {
	return &library{src: src, log: log}
}

func (l *library) read() ([]byte, error) {
	if l.src.Path != "" {
		return os.ReadFile(l.src.Path)
	}
	if l.src.FS == nil {
		return nil, fmt.Errorf("no template source configured")
	}
	return fs.ReadFile(l.src.FS, l.src.Name)
}

func (l *library) load() error {
	data, err := l.read()
	if err != nil {
		return fmt.Errorf("cannot read templates: %w", err)
	}
	list, err := ParseLibrary(data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.templates = list
	l.mu.Unlock()
	return nil
}

func (l *library) start(ctx context.Context) error {
	if err := l.load(); err != nil {
		return err
	}
	if !l.src.Watch || l.src.Path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create template watcher: %w", err)
	}
	// Watch the directory: editors often replace the file instead of writing it
	if err := w.Add(filepath.Dir(l.src.Path)); err != nil {
		w.Close()
		return fmt.Errorf("cannot watch templates: %w", err)
	}
	l.watcher = w
	l.done = make(chan struct{})
	go l.watch()
	return nil
}

func (l *library) watch() {
	defer close(l.done)
	target := filepath.Clean(l.src.Path)

	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			l.reload()

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.log.Warnf("Template watcher error: %v", err)
		}
	}
}

// reload swaps in the file's templates, keeping the current ones on failure.
func (l *library) reload() {
	if err := l.load(); err != nil {
		l.log.Errorf("cannot reload templates, keeping previous library: %v", err)
		return
	}
	l.log.Infof("Reloaded templates from %s", l.src.Path)
}

func (l *library) stop() error {
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	<-l.done
	l.watcher = nil
	return err
}

func (l *library) all() []FormTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]FormTemplate, len(l.templates))
	for i, t := range l.templates {
		out[i] = t.Clone()
	}
	return out
}

// ParseLibrary decodes a non-empty YAML list of templates. Ids must be present
// and unique, and every embedded form must pass the form structural checks.
func ParseLibrary(data []byte) ([]FormTemplate, error) {
	var list []FormTemplate
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("cannot parse templates: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("template library is empty")
	}

	var errs validation.ValidationErrors
	seen := make(map[string]bool, len(list))
	for i, t := range list {
		path := fmt.Sprintf("templates[%d]", i)
		if t.ID == "" {
			errs.Add(path+".id", "required", "is required")
		} else if seen[t.ID] {
			errs.Add(path+".id", "unique", fmt.Sprintf("duplicate template id %q", t.ID))
		}
		seen[t.ID] = true

		if err := validateDraft(t.Form); err != nil {
			verrs, ok := validation.As(err)
			if !ok {
				return nil, err
			}
			for _, ve := range verrs {
				ve.Field = path + ".form." + ve.Field
				errs = append(errs, ve)
			}
		}
	}
	if err := errs.OrNil(); err != nil {
		return nil, fmt.Errorf("invalid templates: %w", err)
	}
	return list, nil
}

// validateDraft checks a template form the way it will be checked on instantiation.
func validateDraft(d forms.FormDraft) error {
	f := forms.Form{ID: "template", Title: d.Title, Questions: d.Questions}
	if f.Title == "" {
		f.Title = forms.DefaultTitle
	}
	if d.Settings != nil {
		f.Settings = *d.Settings
	}
	return forms.Validate(&f)
}
