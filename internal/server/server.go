package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/punchout/dashboard/internal/app"
	"github.com/punchout/dashboard/internal/bootstrap"
	"github.com/punchout/dashboard/internal/database"
	"github.com/punchout/dashboard/internal/environments"
	"github.com/punchout/dashboard/internal/punchout"
)

//go:embed templates/*.html
var templatesFS embed.FS

const trendDays = 14

type Server struct {
	app       *bootstrap.App
	templates map[string]*template.Template
}

func NewServer(a *bootstrap.App) *Server {
	templates := make(map[string]*template.Template)

	// Each page defines "content" and is parsed together with the layout
	pages := []string{
		"dashboard.html",
	}
	for _, page := range pages {
		t := template.Must(template.ParseFS(templatesFS, "templates/layout.html", "templates/"+page))
		templates[page] = t
	}

	return &Server{
		app:       a,
		templates: templates,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleDashboard)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/customers", s.handleCustomersAPI)

		r.Get("/environments", s.handleEnvironmentsAPI)
		r.Put("/environments/{name}", s.handleUpdateEnvironmentAPI)
		r.Post("/environments/{name}/enable", s.handleToggleEnvironmentAPI(true))
		r.Post("/environments/{name}/disable", s.handleToggleEnvironmentAPI(false))

		r.Get("/cxml-templates/environment/{env}", s.handleListTemplatesAPI)
		r.Post("/cxml-templates", s.handleSaveTemplateAPI)

		r.Route("/punchout-tests", func(r chi.Router) {
			r.Post("/execute", s.handleExecuteAPI)
			r.Post("/preview", s.handlePreviewAPI)
			r.Delete("/executions/{customerId}", s.handleCancelAPI)
			r.Get("/last/{customerId}", s.handleLastResultAPI)
			r.Get("/", s.handleListTestsAPI)
			r.Get("/{id}", s.handleGetTestAPI)
			r.Get("/{id}/bundle", s.handleBundleAPI)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	trend, err := s.app.DB.GetOutcomeTrend(ctx, trendDays)
	if err != nil {
		log.Printf("Error getting outcome trend: %v", err)
	}

	runs, runsErr := s.app.DB.ListTestRuns(ctx, database.ListOptions{Limit: 20})
	if runsErr != nil {
		log.Printf("Error listing test runs: %v", runsErr)
	}

	data := map[string]interface{}{
		"TrendDays":        trendDays,
		"SuccessRate":      0,
		"TotalRuns":        0,
		"AvgDuration":      0,
		"Sparkline":        template.HTML(""),
		"SuccessRateChart": template.HTML(""),
		"DurationChart":    template.HTML(""),
		"OutcomeChart":     template.HTML(""),
		"RecentRuns":       runs,
		"Environments":     s.app.Environments.List(),
		"Error":            nil,
	}

	if err != nil || runsErr != nil {
		data["Error"] = "Could not load test history"
	}

	if len(trend) > 0 {
		var total, succeeded int
		var duration float64
		for _, dp := range trend {
			total += dp.Total
			succeeded += dp.Succeeded
			duration += dp.AvgDurationMs * float64(dp.Total)
		}
		if total > 0 {
			data["SuccessRate"] = int(math.Round(float64(succeeded) / float64(total) * 100))
			data["AvgDuration"] = int(math.Round(duration / float64(total)))
		}
		data["TotalRuns"] = total
		data["SuccessRateChart"] = template.HTML(s.app.Charts.SuccessRateChart(trend))
		data["DurationChart"] = template.HTML(s.app.Charts.DurationChart(trend))
		data["OutcomeChart"] = template.HTML(s.app.Charts.OutcomeChart(trend))
	}

	if len(runs) > 1 {
		// oldest first
		values := make([]float64, len(runs))
		for i, run := range runs {
			values[len(runs)-1-i] = float64(run.DurationMs)
		}
		data["Sparkline"] = template.HTML(s.app.Charts.Sparkline(values))
	}

	s.render(w, "dashboard.html", data)
}

func (s *Server) handleCustomersAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Customers.List())
}

func (s *Server) handleEnvironmentsAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Environments.List())
}

func (s *Server) handleUpdateEnvironmentAPI(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req environments.UpdateEnvironmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	env, err := s.app.Environments.Upsert(name, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleToggleEnvironmentAPI(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		if err := s.app.Environments.SetEnabled(name, enabled); err != nil {
			if errors.Is(err, environments.ErrEnvironmentNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Printf("Environment %s enabled=%t", name, enabled)

		env, err := s.app.Environments.Get(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, env)
	}
}

func (s *Server) handleListTemplatesAPI(w http.ResponseWriter, r *http.Request) {
	env := chi.URLParam(r, "env")

	templates, err := s.app.Backend.ListTemplates(r.Context(), env)
	if err != nil {
		log.Printf("Error listing templates for %s: %v", env, err)
		http.Error(w, "Failed to load templates", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleSaveTemplateAPI(w http.ResponseWriter, r *http.Request) {
	var tpl app.CxmlTemplate
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if tpl.TemplateName == "" || tpl.Environment == "" || tpl.Body == "" {
		http.Error(w, "templateName, environment and cxmlTemplate are required", http.StatusBadRequest)
		return
	}

	saved, err := s.app.Backend.SaveTemplate(r.Context(), tpl)
	if err != nil {
		log.Printf("Error saving template %s: %v", tpl.TemplateName, err)
		http.Error(w, "Failed to save template", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

type testRequest struct {
	CustomerID  string `json:"customerId"`
	Environment string `json:"environment"`
}

func (s *Server) decodeTestRequest(w http.ResponseWriter, r *http.Request) (app.CustomerProfile, string, bool) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return app.CustomerProfile{}, "", false
	}
	if req.CustomerID == "" || req.Environment == "" {
		http.Error(w, "customerId and environment are required", http.StatusBadRequest)
		return app.CustomerProfile{}, "", false
	}

	customer, err := s.app.Customers.Get(req.CustomerID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Customer %s not found", req.CustomerID), http.StatusNotFound)
		return app.CustomerProfile{}, "", false
	}
	return customer, req.Environment, true
}

func (s *Server) handleExecuteAPI(w http.ResponseWriter, r *http.Request) {
	customer, env, ok := s.decodeTestRequest(w, r)
	if !ok {
		return
	}

	// A client disconnect does not abort the test; DELETE on the execution does.
	result, err := s.app.Executor.Execute(context.WithoutCancel(r.Context()), customer, env)
	if err != nil {
		writeExecutionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePreviewAPI(w http.ResponseWriter, r *http.Request) {
	customer, env, ok := s.decodeTestRequest(w, r)
	if !ok {
		return
	}

	preview, err := s.app.Executor.Preview(r.Context(), customer, env)
	if err != nil {
		writeExecutionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func writeExecutionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, punchout.ErrAlreadyExecuting):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, environments.ErrEnvironmentDisabled), errors.Is(err, punchout.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Execution error: %v", err)
		http.Error(w, "Failed to execute test", http.StatusInternalServerError)
	}
}

func (s *Server) handleCancelAPI(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerId")
	if !s.app.Executor.Cancel(customerID) {
		http.Error(w, "No execution in progress", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLastResultAPI(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerId")
	result, _ := s.app.Executor.LastResult(customerID)

	writeJSON(w, http.StatusOK, struct {
		State  app.ExecutionState       `json:"state"`
		Result *app.TestExecutionResult `json:"result"`
	}{
		State:  s.app.Executor.State(customerID),
		Result: result,
	})
}

func (s *Server) handleListTestsAPI(w http.ResponseWriter, r *http.Request) {
	opts := database.ListOptions{
		CustomerID:  r.URL.Query().Get("customerId"),
		Environment: r.URL.Query().Get("environment"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		opts.Limit = limit
	}

	runs, err := s.app.DB.ListTestRuns(r.Context(), opts)
	if err != nil {
		log.Printf("Error listing test runs: %v", err)
		http.Error(w, "Failed to load test runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*app.TestExecutionResult, bool) {
	id := chi.URLParam(r, "id")
	run, err := s.app.DB.GetTestRun(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Test run not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Printf("Error loading test run %s: %v", id, err)
		http.Error(w, "Failed to load test run", http.StatusInternalServerError)
		return nil, false
	}
	return run, true
}

func (s *Server) handleGetTestAPI(w http.ResponseWriter, r *http.Request) {
	if run, ok := s.loadRun(w, r); ok {
		writeJSON(w, http.StatusOK, run)
	}
}

func (s *Server) handleBundleAPI(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	path, err := s.app.Artifacts.Bundle(run)
	if err != nil {
		log.Printf("Error building bundle for %s: %v", run.ID, err)
		http.Error(w, "Failed to build bundle", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="punchout-test-%s.zip"`, run.ID))
	http.ServeFile(w, r, path)
}

func (s *Server) render(w http.ResponseWriter, page string, data interface{}) {
	t, ok := s.templates[page]
	if !ok {
		log.Printf("Template not found: %s", page)
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
