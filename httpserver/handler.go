package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/signet-registry/api"
	"github.com/ruteri/signet-registry/interfaces"
	"github.com/ruteri/signet-registry/registry"
)

// OperationRecorder receives the outcome of every relayed operation.
type OperationRecorder interface {
	RecordOperation(registry, operation string, took time.Duration, err error)
}

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Handler serves the relay API of the hosted registries.
// Only the signature family is exposed: HTTP carries no authenticated caller
// that the direct family could trust.
type Handler struct {
	registries   map[string]*registry.Registry
	recorder     OperationRecorder
	maxBodyBytes int64
	log          *slog.Logger
}

// NewHandler creates a new HTTP request handler serving the given registries by name.
// recorder may be nil.
func NewHandler(registries []*registry.Registry, recorder OperationRecorder, log *slog.Logger) *Handler {
	byName := make(map[string]*registry.Registry, len(registries))
	for _, reg := range registries {
		byName[reg.Name()] = reg
	}

	return &Handler{
		registries:   byName,
		recorder:     recorder,
		maxBodyBytes: api.DefaultMaxBodyBytes,
		log:          log,
	}
}

// SetMaxBodyBytes overrides the request body limit.
func (h *Handler) SetMaxBodyBytes(limit int64) {
	if limit > 0 {
		h.maxBodyBytes = limit
	}
}

// HandleOwnerOf handles GET /api/registry/{registry}/owner/{key}.
func (h *Handler) HandleOwnerOf(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registryFor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var key interfaces.Identifier
	if err := key.UnmarshalText([]byte(chi.URLParam(r, "key"))); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid key: %v", api.ErrMalformedRequest, err))
		return
	}

	owner, err := reg.OwnerOf(r.Context(), key)
	if err != nil {
		h.log.Error("Failed to read owner", "registry", reg.Name(), "err", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, &api.OwnerResponse{Key: key, Owner: owner})
}

// HandleNonceOf handles GET /api/registry/{registry}/nonce/{identity}.
func (h *Handler) HandleNonceOf(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registryFor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var identity interfaces.Identity
	if err := identity.UnmarshalText([]byte(chi.URLParam(r, "identity"))); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid identity: %v", api.ErrMalformedRequest, err))
		return
	}

	nonce, err := reg.NonceOf(r.Context(), identity)
	if err != nil {
		h.log.Error("Failed to read nonce", "registry", reg.Name(), "err", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, &api.NonceResponse{Identity: identity, Nonce: nonce})
}

// HandleDigest handles POST /api/registry/{registry}/digest.
func (h *Handler) HandleDigest(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registryFor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req api.ActionRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	action, err := req.Action()
	if err != nil {
		h.writeError(w, err)
		return
	}

	digest, err := reg.Digest(action)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, &api.DigestResponse{Digest: digest, Scheme: reg.Scheme().Name()})
}

// HandleOperation returns the handler of POST /api/registry/{registry}/{op}.
func (h *Handler) HandleOperation(op interfaces.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reg, err := h.registryFor(r)
		if err != nil {
			h.writeError(w, err)
			return
		}

		var req api.SignedActionRequest
		if err := h.decodeBody(w, r, &req); err != nil {
			h.writeError(w, err)
			return
		}

		action, err := req.Action(op)
		if err != nil {
			h.writeError(w, err)
			return
		}

		start := time.Now()
		outcome, err := reg.ApplySigned(r.Context(), action, req.Signature)
		if h.recorder != nil {
			h.recorder.RecordOperation(reg.Name(), op.String(), time.Since(start), err)
		}
		if err != nil {
			if api.StatusForError(err) == http.StatusInternalServerError {
				h.log.Error("Failed to apply operation",
					slog.String("registry", reg.Name()),
					slog.String("operation", op.String()),
					"err", err)
			}
			h.writeError(w, err)
			return
		}

		h.log.Info("Relayed registry operation",
			slog.String("registry", reg.Name()),
			slog.String("operation", op.String()),
			slog.String("key", action.Key.String()),
			slog.String("owner", action.Owner.String()),
			slog.Uint64("nonce", action.Nonce))

		h.writeJSON(w, http.StatusOK, &api.ActionResponse{Key: outcome.Key, Owner: outcome.Owner, Nonce: outcome.Nonce})
	}
}

func (h *Handler) registryFor(r *http.Request) (*registry.Registry, error) {
	name := chi.URLParam(r, "registry")
	reg, ok := h.registries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", api.ErrUnknownRegistry, name)
	}
	return reg, nil
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: err}
		}
		return fmt.Errorf("%w: failed to read request body: %v", api.ErrMalformedRequest, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", api.ErrMalformedRequest, err)
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := api.StatusForError(err)
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		status = reqErr.StatusCode
	}
	h.writeJSON(w, status, &api.ErrorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
