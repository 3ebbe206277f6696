package notes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"example.com/notes-api/internal/stringsx"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	store Store
}

// Store is an abstraction over the notes storage.
// It allows unit-testing handlers without a real database.
type Store interface {
	List(ctx context.Context) ([]Note, error)
	Get(ctx context.Context, id string) (Note, error)
	Create(ctx context.Context, title, content string) (Note, error)
	Update(ctx context.Context, id, title, content string) (Note, error)
	Delete(ctx context.Context, id string) (int64, error)
	Search(ctx context.Context, query string) ([]Note, error)
}

func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// Routes returns the notes collection router. It is meant to be mounted, for
// example under /api/notes.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Post("/", h.create)
	// Registered before /{id} so "search" is never taken for an id.
	r.Get("/search", h.search)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update)
		r.Delete("/", h.delete)
	})

	return r
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		fail(w, r, "list", err)
		return
	}
	items = nonNil(items)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(items),
		"data":    items,
	})
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if stringsx.IsEmpty(q) {
		writeError(w, http.StatusBadRequest, msgMissingQuery)
		return
	}

	items, err := h.store.Search(r.Context(), q)
	if err != nil {
		fail(w, r, "search", err)
		return
	}
	items = nonNil(items)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"query":   q,
		"count":   len(items),
		"data":    items,
	})
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    n,
	})
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	n, err := h.store.Create(r.Context(), in.Title, in.Content)
	if err != nil {
		fail(w, r, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "note created successfully",
		"data":    n,
	})
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	if _, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), in.Title, in.Content); err != nil {
		fail(w, r, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "note updated successfully",
	})
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, "delete", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "note deleted successfully",
	})
}

var errTrailingData = errors.New("unexpected data after JSON value")

// decodeInput reads and validates a create/update body. On failure it has
// already written the 4xx response. An empty body decodes as {}.
func decodeInput(w http.ResponseWriter, r *http.Request) (NoteInput, bool) {
	var in NoteInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(&in)
	switch {
	case err == nil:
		err = expectEOF(dec)
	case errors.Is(err, io.EOF):
		err = nil
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return NoteInput{}, false
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return NoteInput{}, false
	}
	if err := in.Validate(); err != nil {
		fail(w, r, "validate", err)
		return NoteInput{}, false
	}
	return in, true
}

// expectEOF fails unless the body holds nothing but whitespace after the
// first JSON value.
func expectEOF(dec *json.Decoder) error {
	var extra json.RawMessage
	err := dec.Decode(&extra)
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errTrailingData
	}
	return err
}

var failureMessages = map[string]string{
	"list":   "failed to fetch notes",
	"search": "failed to search notes",
	"get":    "failed to fetch note",
	"create": "failed to create note",
	"update": "failed to update note",
	"delete": "failed to delete note",
}

// fail maps a store outcome onto a status code. Only validation and not-found
// messages reach the client.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("notes request failed")
		msg, ok := failureMessages[op]
		if !ok {
			msg = "internal server error"
		}
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func nonNil(items []Note) []Note {
	if items == nil {
		return []Note{}
	}
	return items
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
