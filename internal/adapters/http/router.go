package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/edgarqa/edgarqa/internal/core/domain"
	"github.com/edgarqa/edgarqa/internal/core/ports"
	"github.com/edgarqa/edgarqa/internal/observability/metrics"
)

type Router struct {
	answerer ports.QuestionAnswerer
	admin    ports.IndexAdmin
	metrics  *metrics.HTTPServerMetrics
	service  string
}

func NewRouter(
	answerer ports.QuestionAnswerer,
	admin ports.IndexAdmin,
	m *metrics.HTTPServerMetrics,
	service string,
) *Router {
	return &Router{
		answerer: answerer,
		admin:    admin,
		metrics:  m,
		service:  service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.ask)
	mux.HandleFunc("/v1/reindex", rt.reindex)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return observe(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.Question
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.answerer.Ask(r.Context(), req)
	if err != nil {
		slog.Warn("question_failed",
			"request_id", RequestIDFromContext(r.Context()),
			"ticker", req.TickerHint,
			"error", err,
		)
		rt.recordQuestion("error", nil, time.Since(start))
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	outcome := "answered"
	if answer.Abstained {
		outcome = "abstained"
	}
	rt.recordQuestion(outcome, answer, time.Since(start))
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) reindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// A body is optional; an empty reason still triggers a rebuild.
	_ = json.NewDecoder(r.Body).Decode(&req)
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "manual"
	}

	if err := rt.admin.RequestReindex(r.Context(), reason); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reindex requested"})
}

func (rt *Router) recordQuestion(outcome string, answer *domain.Answer, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	var (
		score      float64
		evidence   int
		planSource string
	)
	if answer != nil {
		score = answer.Faithfulness
		evidence = answer.Evidence
		planSource = string(answer.PlanSource)
	}
	rt.metrics.RecordQuestion(rt.service, outcome, planSource, score, evidence, duration)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
