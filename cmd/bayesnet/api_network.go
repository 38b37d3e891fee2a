package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/CTAG07/bayesnet/pkg/bayes"
)

// NetworkAPI holds the dependencies for the network and inference handlers.
type NetworkAPI struct {
	sampler      *Sampler
	defaultSteps int
	historyLimit int
	logger       *slog.Logger
}

// MCMCRequest is the body of POST /api/mcmc. A steps value of 0 uses the
// configured default.
type MCMCRequest struct {
	Evidence bayes.Evidence `json:"evidence"`
	Query    []string       `json:"query"`
	Steps    int            `json:"steps"`
}

// NewNetworkAPI creates a new instance of the NetworkAPI.
func NewNetworkAPI(sampler *Sampler, defaultSteps, historyLimit int, logger *slog.Logger) *NetworkAPI {
	return &NetworkAPI{
		sampler:      sampler,
		defaultSteps: defaultSteps,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// RegisterRoutes sets up the routing for the network, mcmc and history endpoints.
func (a *NetworkAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/network", a.handleNetwork)
	mux.HandleFunc("/api/network/stats", a.handleStats)
	mux.HandleFunc("/api/network/blanket/", a.handleBlanket)
	mux.HandleFunc("/api/mcmc", a.handleMCMC)
	mux.HandleFunc("/api/history", a.handleHistory)
}

// handleNetwork returns the loaded network in its definition format.
func (a *NetworkAPI) handleNetwork(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	respondWithJSON(w, http.StatusOK, a.sampler.Network().Definition())
}

func (a *NetworkAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	s, err := a.sampler.Network().Stats()
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

// handleBlanket returns the Markov blanket of the variable named in the path.
func (a *NetworkAPI) handleBlanket(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/network/blanket/")
	if name == "" || strings.Contains(name, "/") {
		respondWithError(w, http.StatusBadRequest, "A single variable name is required")
		return
	}
	blanket, err := a.sampler.Network().MarkovBlanket(name)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"variable": name,
		"blanket":  blanket,
	})
}

// handleMCMC runs one estimate and returns the recorded run.
func (a *NetworkAPI) handleMCMC(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req MCMCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if len(req.Query) == 0 {
		respondWithError(w, http.StatusBadRequest, "At least one query variable is required")
		return
	}
	if req.Steps == 0 {
		req.Steps = a.defaultSteps
	}

	run, err := a.sampler.Run(r.Context(), req.Evidence, req.Query, req.Steps)
	if err != nil {
		switch {
		case errors.Is(err, bayes.ErrUnknownVariable), errors.Is(err, bayes.ErrInvalidSteps), errors.Is(err, bayes.ErrNoSupport):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			a.logger.Error("MCMC request failed", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("MCMC failed: %v", err))
		}
		return
	}
	respondWithJSON(w, http.StatusOK, run)
}

// handleHistory returns the most recent runs, newest first.
func (a *NetworkAPI) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	h := a.sampler.History()
	if h == nil {
		respondWithError(w, http.StatusNotFound, errDisabled.Error())
		return
	}

	limit := a.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.Recent(r.Context(), limit)
	if err != nil {
		a.logger.Error("Failed to read run history", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, runs)
}
