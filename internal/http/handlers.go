package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"souzoku/internal/core"
	"souzoku/internal/log"
	"souzoku/internal/metrics"
	"souzoku/internal/services"
)

// indexData feeds the input form
type indexData struct {
	DefaultChildren int
	MaxChildren     int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	data := indexData{DefaultChildren: core.DefaultChildren, MaxChildren: core.MaxChildren}
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err.Error(), log.FieldOperation, log.OpRender)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleSimulate renders the result partial for the htmx form.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx := services.WithSource(r.Context(), metrics.SourceWeb)
	logger := log.FromContext(ctx)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		logger.WarnContext(ctx, "Parse form error", log.FieldError, err.Error(), log.FieldOperation, log.OpParse)
		BadRequestError("リクエストの形式が正しくありません").Write(w)
		return
	}

	sim, err := s.service.SimulateRaw(ctx, parser.RawInput())
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			UnprocessableEntityError(userMessage(err)).Write(w)
			return
		}
		logger.ErrorContext(ctx, "Simulation failed", log.FieldError, err.Error())
		InternalServerError("計算に失敗しました").Write(w)
		return
	}

	if s.templates == nil {
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "result.html", sim); err != nil {
		logger.ErrorContext(ctx, "Result template execution failed",
			log.FieldError, err.Error(), log.FieldOperation, log.OpRender)
		InternalServerError("結果の表示に失敗しました").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerSimulationCompleted(sim.TotalTax, sim.HasSecondary).
		BodyHTML(buf.Bytes()).
		Write(w)
}

type apiError struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// handleAPISimulate accepts JSON (or a form) and returns the Simulation as JSON.
func (s *Server) handleAPISimulate(w http.ResponseWriter, r *http.Request) {
	ctx := services.WithSource(r.Context(), metrics.SourceAPI)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "malformed request body"})
		return
	}

	sim, err := s.service.SimulateRaw(ctx, parser.RawInput())
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			resp := apiError{Error: err.Error()}
			var fe *core.FieldError
			if errors.As(err, &fe) {
				resp.Field = fe.Field
			}
			writeJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
		log.FromContext(ctx).ErrorContext(ctx, "Simulation failed", log.FieldError, err.Error())
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether templates and the simulation service are usable
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	code := http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{"active_clients": s.limiter.ActiveClients(), "status": "ok"},
	}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}
	if s.service == nil {
		checks["simulation"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["simulation"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
