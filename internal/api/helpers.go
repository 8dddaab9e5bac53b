package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	apperrors "github.com/trailheadapp/trailhead-server/internal/errors"
	"github.com/trailheadapp/trailhead-server/internal/http/response"
)

// project renders a document for the envelope. With an explicit field list
// only those fields survive; the default projection drops the internal
// version counter.
func project(doc any, fields []string) any {
	raw, err := json.Marshal(doc)
	if err != nil {
		return doc
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return doc
	}

	if len(fields) == 0 {
		delete(m, "version")
		return m
	}

	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		keep[f] = true
	}
	for k := range m {
		if !keep[k] {
			delete(m, k)
		}
	}
	return m
}

// projectAll applies the projection to every element of a list.
func projectAll[T any](docs []*T, fields []string) []any {
	out := make([]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, project(d, fields))
	}
	return out
}

func (s *Server) respondOne(w http.ResponseWriter, kind string, doc any, fields []string) {
	response.Success(w, map[string]any{kind: project(doc, fields)}, s.logger)
}

func (s *Server) respondCreated(w http.ResponseWriter, kind string, doc any) {
	response.Created(w, map[string]any{kind: project(doc, nil)}, s.logger)
}

func respondList[T any](s *Server, w http.ResponseWriter, plural string, docs []*T, fields []string) {
	response.List(w, len(docs), map[string]any{plural: projectAll(docs, fields)}, s.logger)
}

// urlID returns the {id} route parameter.
func urlID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(contentType string) bool {
	return strings.HasPrefix(contentType, "multipart/form-data")
}

// formFileBytes reads one uploaded file from a parsed multipart form.
// A missing file is not an error.
func formFileBytes(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperrors.Validationf("Invalid %s upload", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.Validationf("Invalid %s upload", field).WithCause(err)
	}
	return data, nil
}

func readAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

// setSessionCookie attaches the session token as an http-only cookie.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.auth.SessionDuration()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie overwrites the session cookie with a short-lived dummy.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// respondWithToken writes an auth envelope: token beside the user payload,
// and the same token as a cookie.
func (s *Server) respondWithToken(w http.ResponseWriter, status int, token string, user *domain.User) {
	s.setSessionCookie(w, token)
	response.WithToken(w, status, token, map[string]any{"user": project(user, nil)}, s.logger)
}
