package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/cliossg/formkit/internal/feat/responses"
	"github.com/cliossg/formkit/internal/feat/templates"
	"github.com/cliossg/formkit/pkg/cl/app"
	"github.com/cliossg/formkit/pkg/cl/config"
	"github.com/cliossg/formkit/pkg/cl/middleware"
)

var (
	exportFormID   string
	exportOut      string
	templatesCat   string
	templatesQuery string

	rootCmd = &cobra.Command{
		Use:           "formkit",
		Short:         "Build forms, collect responses and review the results",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write a form's responses as CSV",
		RunE:  runExport,
	}

	templatesCmd = &cobra.Command{
		Use:   "templates",
		Short: "List the form template library",
		RunE:  runTemplates,
	}
)

func init() {
	exportCmd.Flags().StringVar(&exportFormID, "form", "", "form id to export")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	_ = exportCmd.MarkFlagRequired("form")

	templatesCmd.Flags().StringVar(&templatesCat, "category", "", "only templates in this category")
	templatesCmd.Flags().StringVar(&templatesQuery, "q", "", "match title or description")

	rootCmd.AddCommand(serveCmd, exportCmd, templatesCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(cfg)

	log.Infof("Starting formkit [%s mode]", cfg.Env)
	log.Infof("Store backend: %s", cfg.Store.Backend)

	s, err := wire(cfg, log)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	middleware.DefaultStack(router, log)
	s.middleware(router)

	starts, stops, registrars := app.Setup(ctx, router, s.components...)
	if err := app.Start(ctx, log, starts, stops, registrars, router); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	srv := app.NewServer(router, cfg.Server.Addr)
	errCh := make(chan error, 1)
	go func() { errCh <- app.Serve(srv) }()
	log.Infof("Server listening on %s", cfg.Server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err = <-errCh:
		log.Errorf("server failed: %v", err)
	}

	app.Shutdown(srv, cfg.ShutdownTimeout(), log, stops)
	log.Info("Server stopped")
	return err
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg := config.Load()
	log := newLogger(cfg)

	s, err := wire(cfg, log)
	if err != nil {
		return err
	}

	comps := append(append([]any{}, s.storage...), s.forms, s.responses)
	starts, stops, _ := app.Setup(ctx, nil, comps...)
	if err := app.Start(ctx, log, starts, stops, nil, nil); err != nil {
		return err
	}
	defer app.Stop(ctx, log, stops)

	form, err := s.forms.GetForm(ctx, exportFormID)
	if err != nil {
		return fmt.Errorf("cannot export form %s: %w", exportFormID, err)
	}
	list, err := s.responses.List(ctx, form.ID)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("cannot create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}

	if err := responses.WriteCSV(w, form, list); err != nil {
		return err
	}
	log.Infof("Exported %d responses for form %s", len(list), form.ID)
	return nil
}

func runTemplates(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg := config.Load()
	log := newLogger(cfg)

	svc := templates.NewService(templates.Source{
		FS:   assetsFS,
		Name: templates.DefaultFile,
		Path: cfg.Templates.Path,
	}, nil, log)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop(ctx)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tQUESTIONS\tTITLE")
	for _, t := range svc.Search(ctx, templatesQuery, templatesCat) {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.ID, t.Category, len(t.Form.Questions), t.Title)
	}
	return tw.Flush()
}
