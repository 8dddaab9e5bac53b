package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trailheadapp/trailhead-server/internal/errors"
	"github.com/trailheadapp/trailhead-server/internal/store"
)

// resource is the capability set the generic handlers are written against.
// Every resource service satisfies it through its CRUD core; services may
// override individual operations (users disable Create, for example).
type resource[T any] interface {
	Create(ctx context.Context, doc *T) error
	Get(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, id string, patch map[string]any) (*T, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q store.ListQuery) ([]*T, error)
}

// scopeFunc narrows a collection read, e.g. reviews nested under a tour.
type scopeFunc func(r *http.Request, q store.ListQuery) store.ListQuery

// decodeJSON decodes a request body, translating failures into 400s.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Validation("Invalid JSON body").WithCause(err)
	}
	return nil
}

// createOne handles POST /{collection}.
func createOne[T any](s *Server, res resource[T], kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc := new(T)
		if err := decodeJSON(r, doc); err != nil {
			s.translator.HandleError(w, err)
			return
		}
		if err := res.Create(r.Context(), doc); err != nil {
			s.translator.HandleError(w, err)
			return
		}
		s.respondCreated(w, kind, doc)
	}
}

// readOne handles GET /{collection}/{id}.
func readOne[T any](s *Server, res resource[T], kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := res.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.translator.HandleError(w, err)
			return
		}
		s.respondOne(w, kind, doc, nil)
	}
}

// updateOne handles PATCH /{collection}/{id}. The body is a partial JSON
// object merged onto the stored document.
func updateOne[T any](s *Server, res resource[T], kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patch := map[string]any{}
		if err := decodeJSON(r, &patch); err != nil {
			s.translator.HandleError(w, err)
			return
		}
		doc, err := res.Update(r.Context(), chi.URLParam(r, "id"), patch)
		if err != nil {
			s.translator.HandleError(w, err)
			return
		}
		s.respondOne(w, kind, doc, nil)
	}
}

// deleteOne handles DELETE /{collection}/{id} with an empty 204.
func deleteOne[T any](s *Server, res resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := res.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			s.translator.HandleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// getAll handles GET /{collection} through the full query shaper pipeline.
// scope, when set, pins extra conditions before user filters apply.
func getAll[T any](s *Server, res resource[T], plural string, scope scopeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := store.ParseListQuery(r.URL.Query())
		if scope != nil {
			q = scope(r, q)
		}

		docs, err := res.List(r.Context(), q)
		if err != nil {
			s.translator.HandleError(w, err)
			return
		}
		respondList(s, w, plural, docs, q.Fields)
	}
}
