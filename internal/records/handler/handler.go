// Package handler exposes the record download/assignment endpoint and
// orchestrates the transition: authorize, fetch, compute the next revision,
// respond, then persist and index off the request path.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"civreg/internal/auth"
	"civreg/internal/fhir"
	"civreg/internal/records/metrics"
	"civreg/internal/records/transitions"
	"civreg/internal/search"
	"civreg/internal/users"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/httputil"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/requestcontext"
)

// RecordGateway fetches and persists record bundles in the system of record.
type RecordGateway interface {
	FetchRecord(ctx context.Context, id, token string, includeHistory bool) (*fhir.Bundle, error)
	Persist(ctx context.Context, bundle *fhir.Bundle, token string) error
}

// Indexer propagates a state change to the search index.
type Indexer interface {
	IndexForAssignment(ctx context.Context, taskOnly *fhir.Bundle, token, eventTag string) error
}

// ActorResolver resolves the acting identity from a token subject.
type ActorResolver interface {
	GetUser(ctx context.Context, subject, token string) (*users.User, error)
	GetSystem(ctx context.Context, subject, token string) (*users.System, error)
}

// Handler wires the download endpoint to its collaborators.
type Handler struct {
	verifier *auth.Verifier
	records  RecordGateway
	actors   ActorResolver
	index    Indexer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// background tracks detached persist/index work. Once spawned it runs to
	// completion or failure; callers cannot observe or cancel it. Drain is for
	// tests and shutdown only.
	background sync.WaitGroup
}

// New constructs a records handler with its dependencies.
func New(verifier *auth.Verifier, records RecordGateway, actors ActorResolver, index Indexer, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		verifier: verifier,
		records:  records,
		actors:   actors,
		index:    index,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Register mounts record endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/records/download", h.HandleDownload)
}

// Drain waits for detached persist/index work to finish.
func (h *Handler) Drain() {
	h.background.Wait()
}

type downloadRequest struct {
	ID string `json:"id"`
}

// HandleDownload handles POST /records/download.
//
// The response is deliberately not gated on persistence: once the next
// revision is computed the full record goes back to the caller, and the
// task-only write plus index propagation run detached. A success response
// therefore means "transition computed", not "durably recorded everywhere".
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := h.now()

	var req downloadRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.ID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "record id is required"))
		return
	}

	token, err := auth.TokenFromHeader(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Task history is fetched rather than the task only.
	record, err := h.records.FetchRecord(ctx, req.ID, token, true)
	if err != nil {
		httputil.WriteError(w, h.translateFetchError(ctx, req.ID, requestID, err))
		return
	}

	task, _, err := fhir.TaskFromBundle(record)
	if err != nil {
		h.logger.ErrorContext(ctx, "record has no task, this should never happen",
			"request_id", requestID,
			"record_id", req.ID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "record is missing its task", err))
		return
	}
	status, ok := fhir.StatusFromTask(task)
	if !ok {
		h.logger.ErrorContext(ctx, "task has no business status, this should never happen",
			"request_id", requestID,
			"record_id", req.ID,
			"task_id", task.ID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "record status is undecidable"))
		return
	}

	actor, err := h.resolveActor(ctx, claims, token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	annotation := auth.DecideAnnotation(claims.Scope, status)

	downloaded, err := transitions.ToDownloaded(record, actor, annotation, h.now())
	if err != nil {
		h.logger.ErrorContext(ctx, "download transition failed",
			"request_id", requestID,
			"record_id", req.ID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "transition failed", err))
		return
	}

	h.metrics.IncrementDownload(annotationLabel(annotation))
	h.metrics.ObserveDownloadLatency(h.now().Sub(start))
	h.logger.InfoContext(ctx, "record downloaded",
		"request_id", requestID,
		"record_id", req.ID,
		"status", string(status),
		"annotation", annotationLabel(annotation),
		"duration_ms", h.now().Sub(start).Milliseconds(),
	)

	// Storing the downloaded state is slow, so the record goes back to the
	// caller first and the writes happen off the request path.
	httputil.WriteJSON(w, http.StatusOK, downloaded.Full)

	h.persistAndIndex(ctx, downloaded.TaskOnly, token, req.ID, requestID)
}

// persistAndIndex schedules the task-only write and the index event as one
// detached unit of work. Persist failure skips indexing; failures on either
// stage are logged exactly once and never reach the caller.
func (h *Handler) persistAndIndex(reqCtx context.Context, taskOnly *fhir.Bundle, token, recordID, requestID string) {
	ctx := context.WithoutCancel(reqCtx)
	h.background.Add(1)
	go func() {
		defer h.background.Done()
		if err := h.records.Persist(ctx, taskOnly, token); err != nil {
			h.metrics.IncrementPostResponseFailure("persist")
			h.logger.ErrorContext(ctx, "record persistence failed after response",
				"request_id", requestID,
				"record_id", recordID,
				"error", err,
			)
			return
		}
		if err := h.index.IndexForAssignment(ctx, taskOnly, token, search.EventAssigned); err != nil {
			h.metrics.IncrementPostResponseFailure("index")
			h.logger.ErrorContext(ctx, "index propagation failed after response",
				"request_id", requestID,
				"record_id", recordID,
				"error", err,
			)
		}
	}()
}

// resolveActor picks the System variant for recordsearch tokens and the User
// variant otherwise. Exactly one variant resolves per request.
func (h *Handler) resolveActor(ctx context.Context, claims *auth.Claims, token string) (users.Actor, error) {
	subject := claims.Subject
	if auth.HasScope(claims.Scope, auth.ScopeRecordSearch) {
		system, err := h.actors.GetSystem(ctx, subject, token)
		if err != nil {
			return nil, h.translateActorError(err, "system")
		}
		return *system, nil
	}
	user, err := h.actors.GetUser(ctx, subject, token)
	if err != nil {
		return nil, h.translateActorError(err, "user")
	}
	return *user, nil
}

func (h *Handler) translateFetchError(ctx context.Context, recordID, requestID string, err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	h.logger.ErrorContext(ctx, "record fetch failed",
		"request_id", requestID,
		"record_id", recordID,
		"error", err,
	)
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(dErrors.CodeUnavailable, "record store unavailable", err)
	}
	return dErrors.Wrap(dErrors.CodeInternal, "record fetch failed", err)
}

func (h *Handler) translateActorError(err error, kind string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeUnauthorized, kind+" not found for token subject")
	}
	return dErrors.Wrap(dErrors.CodeUnavailable, "user management unavailable", err)
}

func annotationLabel(annotation fhir.ExtensionURL) string {
	if annotation == fhir.ExtensionRegDownloaded {
		return "downloaded"
	}
	return "assigned"
}
