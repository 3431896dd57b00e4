package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Check probes one dependency for readiness.
type Check func(ctx context.Context) error

type HealthHandler struct {
	critical map[string]Check
	optional map[string]Check
	env      string
	version  string
}

// NewHealthHandler takes critical checks (a failure makes the service
// unready) and optional ones (a failure only degrades it).
func NewHealthHandler(critical, optional map[string]Check, env, version string) *HealthHandler {
	return &HealthHandler{
		critical: critical,
		optional: optional,
		env:      env,
		version:  version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "ok"

	for _, name := range sortedNames(h.critical) {
		if probe(ctx, h.critical[name]) {
			deps[name] = "ok"
			continue
		}
		deps[name] = "down"
		status = "error"
	}

	for _, name := range sortedNames(h.optional) {
		if probe(ctx, h.optional[name]) {
			deps[name] = "ok"
			continue
		}
		deps[name] = "down"
		if status == "ok" {
			status = "degraded"
		}
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}

func probe(ctx context.Context, check Check) bool {
	checkCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return check(checkCtx) == nil
}

func sortedNames(m map[string]Check) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
