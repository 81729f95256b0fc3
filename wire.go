package main

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/formkit/internal/feat/analytics"
	"github.com/cliossg/formkit/internal/feat/flow"
	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/internal/feat/responses"
	"github.com/cliossg/formkit/internal/feat/templates"
	"github.com/cliossg/formkit/pkg/cl/config"
	"github.com/cliossg/formkit/pkg/cl/database"
	"github.com/cliossg/formkit/pkg/cl/kv"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/metrics"
)

// stack holds the wired services. Components lists everything with a
// lifecycle in start order.
type stack struct {
	cfg *config.Config
	log logger.Logger

	metrics   *metrics.Metrics
	forms     forms.Service
	responses responses.Service
	templates templates.Service
	flow      flow.Service
	analytics analytics.Service
	guard     *responses.Guard
	metadata  *responses.MetadataReader

	storage    []any
	components []any
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
}

func wire(cfg *config.Config, log logger.Logger) (*stack, error) {
	s := &stack{cfg: cfg, log: log}

	var db *database.Database
	if cfg.Store.Backend == "" || cfg.Store.Backend == config.BackendSQLite {
		db = database.New(assetsFS, cfg, log)
		db.SetMigrationPath("assets/migrations/sqlite")
		s.storage = append(s.storage, db)
	}
	store, err := kv.New(cfg.Store, db, log)
	if err != nil {
		return nil, err
	}
	s.storage = append(s.storage, store)

	var rec metrics.Recorder = metrics.NewNoop()
	if cfg.Metrics.Enabled {
		s.metrics = metrics.New(log)
		rec = s.metrics
	}

	seed, err := loadSeed(cfg)
	if err != nil {
		log.Errorf("cannot load seed forms, starting without them: %v", err)
	}

	s.forms = forms.NewService(store, seed, rec, log.With("feature", "forms"))
	s.responses = responses.NewService(store, s.forms, rec, log.With("feature", "responses"))
	s.templates = templates.NewService(templates.Source{
		FS:    assetsFS,
		Name:  templates.DefaultFile,
		Path:  cfg.Templates.Path,
		Watch: cfg.Templates.Watch,
	}, s.forms, log.With("feature", "templates"))
	s.flow = flow.NewService(s.forms, s.responses, cfg.SessionTTL(), log.With("feature", "flow"))
	s.analytics = analytics.NewService(s.forms, s.responses, s.flow, log.With("feature", "analytics"))
	s.guard = responses.NewGuard(cfg.Responses, log)
	s.metadata = responses.NewMetadataReader(cfg.Responses, log)

	s.components = append(s.components, s.storage...)
	if s.metrics != nil {
		s.components = append(s.components, s.metrics)
	}
	s.components = append(s.components,
		s.forms,
		s.responses,
		s.templates,
		s.flow,
		s.guard,
		forms.NewHandler(s.forms, log),
		responses.NewHandler(s.responses, s.forms, s.metadata, s.guard.Middleware, log),
		templates.NewHandler(s.templates, log),
		flow.NewHandler(s.flow, s.metadata, s.guard, log),
		analytics.NewHandler(s.analytics, log),
	)
	return s, nil
}

// loadSeed reads the configured seed file, or the built-in one.
func loadSeed(cfg *config.Config) ([]forms.Form, error) {
	var fsys fs.FS = assetsFS
	name := forms.DefaultSeedFile
	if p := cfg.Forms.SeedPath; p != "" {
		fsys = os.DirFS(filepath.Dir(p))
		name = filepath.Base(p)
	}
	return forms.LoadSeed(fsys, name)
}

// middleware installs request metrics when enabled.
func (s *stack) middleware(r chi.Router) {
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
}
