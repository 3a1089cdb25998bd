package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/metacache/epoch"
	"github.com/jonwraymond/metacache/metacache"
	"github.com/jonwraymond/metacache/observe"
)

type handlers struct {
	cache  *metacache.Cache
	logger observe.Logger
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "admin request failed",
			observe.F("path", r.URL.Path), observe.F("status", status), observe.F("error", err))
	}
	writeError(w, status, err)
}

func (h *handlers) objectByBusinessKey(w http.ResponseWriter, r *http.Request) {
	d, err := h.cache.ObjectByBusinessKey(r.Context(), chi.URLParam(r, "businessKey"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handlers) objectByTable(w http.ResponseWriter, r *http.Request) {
	d, err := h.cache.ObjectByTableName(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handlers) elementByColumn(w http.ResponseWriter, r *http.Request) {
	e, err := h.cache.ElementByColumn(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "column"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *handlers) children(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := h.cache.ObjectByBusinessKey(ctx, chi.URLParam(r, "businessKey"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	children, err := h.cache.Children(ctx, d)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]metacache.ChildSummary, 0, len(children))
	for _, c := range children {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b metacache.ChildSummary) int {
		return strings.Compare(a.BusinessKey, b.BusinessKey)
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}

func (h *handlers) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) clearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.ClearAll(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toggleRequest is the body of PUT /v1/cache/enabled.
type toggleRequest struct {
	Enabled           *bool `json:"enabled"`
	DictionaryEnabled *bool `json:"dictionary_enabled"`
}

func (h *handlers) toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.fail(w, r, fmt.Errorf("%w: body: %v", metacache.ErrInvalidArgument, err))
		return
	}
	if req.Enabled == nil && req.DictionaryEnabled == nil {
		h.fail(w, r, fmt.Errorf("%w: body sets neither enabled nor dictionary_enabled", metacache.ErrInvalidArgument))
		return
	}

	if req.Enabled != nil {
		h.cache.SetEnabled(*req.Enabled)
	}
	if req.DictionaryEnabled != nil {
		h.cache.SetDictionaryEnabled(*req.DictionaryEnabled)
	}
	h.logger.Info(r.Context(), "cache toggled",
		observe.F("enabled", h.cache.Enabled()), observe.F("dictionary_enabled", h.cache.DictionaryEnabled()))
	writeJSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}

// bumpResponse is the body returned by POST /v1/epoch/bump.
type bumpResponse struct {
	Generation string `json:"generation"`
}

func (h *handlers) bump(w http.ResponseWriter, r *http.Request) {
	b, ok := h.cache.Epoch().(epoch.Bumper)
	if !ok {
		h.fail(w, r, ErrEpochNotBumpable)
		return
	}
	gen, err := b.Bump(r.Context())
	if err != nil {
		h.fail(w, r, errors.Join(metacache.ErrDataAccess, err))
		return
	}
	h.logger.Info(r.Context(), "epoch bumped", observe.F("generation", gen))
	writeJSON(w, http.StatusOK, bumpResponse{Generation: gen})
}
