package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gofestat/app"
	"gofestat/domain/core"
	"gofestat/domain/stats"
	"gofestat/internal/errors"
	"gofestat/ports"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

const indexRunLimit = 100

// App is the read-only HTML viewer for stored runs
type App struct {
	router    *chi.Mux
	repo      ports.RunRepository
	templates *template.Template
	port      string
}

// Config holds UI application configuration
type Config struct {
	Port string
}

// NewApp creates a new UI application over repo
func NewApp(config Config, repo ports.RunRepository) (*App, error) {
	if repo == nil {
		return nil, errors.ConfigInvalid("the report viewer needs a run repository")
	}

	funcMap := template.FuncMap{
		"shortID": func(id string) string {
			if len(id) > 8 {
				return id[:8]
			}
			return id
		},
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	port := config.Port
	if port == "" {
		port = "8081"
	}

	a := &App{
		router:    chi.NewRouter(),
		repo:      repo,
		templates: templates,
		port:      port,
	}

	a.setupMiddleware()
	a.setupRoutes()

	return a, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/runs/{id}", a.handleRun)
	a.router.Get("/runs/{id}/report.md", a.handleRunMarkdown)
}

// Handler exposes the router, mostly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Start starts the HTTP server
func (a *App) Start() error {
	addr := ":" + a.port
	log.Printf("Starting Fe-statistic report viewer on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := a.repo.List(r.Context(), indexRunLimit)
	if err != nil {
		a.handleError(w, err)
		return
	}
	a.renderTemplate(w, "index.html", map[string]interface{}{"Runs": runs})
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.loadRun(r)
	if err != nil {
		a.handleError(w, err)
		return
	}
	_, html := app.RenderReport(run)
	a.renderTemplate(w, "run.html", map[string]interface{}{
		"Run":    run,
		"Report": template.HTML(html),
	})
}

func (a *App) handleRunMarkdown(w http.ResponseWriter, r *http.Request) {
	run, err := a.loadRun(r)
	if err != nil {
		a.handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if _, err := w.Write([]byte(app.ReportMarkdown(run))); err != nil {
		log.Printf("[UI] Error writing report: %v", err)
	}
}

func (a *App) loadRun(r *http.Request) (*stats.FeRun, error) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	return a.repo.Get(r.Context(), id)
}

// renderTemplate renders to a buffer first so a failing template never
// leaves a half-written page
func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		log.Printf("[UI] Template error for %s: %v", templateName, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[UI] Error writing template response: %v", err)
	}
}

func (a *App) handleError(w http.ResponseWriter, err error) {
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.CodeInvalidInput:
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("[UI] Request failed: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
