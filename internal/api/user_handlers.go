package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/trailheadapp/trailhead-server/internal/errors"
)

// maxPhotoBytes bounds a single uploaded image.
const maxPhotoBytes = 10 << 20 // 10 MB

// handleGetMe returns the logged-in user's own profile.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	s.respondOne(w, "user", currentUser(r.Context()), nil)
}

// handleUpdateMe updates the logged-in user's profile. Accepts either a JSON
// body or a multipart form carrying a "photo" file next to the text fields.
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	patch, photo, err := parseProfileForm(r)
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}

	if len(photo) > 0 {
		if user, err = s.users.SetMyPhoto(r.Context(), user, photo); err != nil {
			s.translator.HandleError(w, err)
			return
		}
	}

	updated, err := s.users.UpdateMe(r.Context(), user, patch)
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	s.respondOne(w, "user", updated, nil)
}

// handleDeleteMe deactivates the account.
func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeleteMe(r.Context(), currentUser(r.Context())); err != nil {
		s.translator.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminUpdateUser is the admin PATCH on any user.
func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	patch := map[string]any{}
	if err := decodeJSON(r, &patch); err != nil {
		s.translator.HandleError(w, err)
		return
	}

	updated, err := s.users.AdminUpdate(r.Context(), urlID(r), patch)
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	s.respondOne(w, "user", updated, nil)
}

// parseProfileForm extracts the profile patch and optional photo upload from
// either a JSON or multipart request.
func parseProfileForm(r *http.Request) (map[string]any, []byte, error) {
	contentType := r.Header.Get("Content-Type")

	if !isMultipart(contentType) {
		patch := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			if err == io.EOF {
				return patch, nil, nil
			}
			return nil, nil, errors.Validation("Invalid JSON body").WithCause(err)
		}
		return patch, nil, nil
	}

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		return nil, nil, errors.Validation("Invalid multipart form").WithCause(err)
	}

	patch := map[string]any{}
	for _, field := range []string{"name", "email", "password", "password_confirm"} {
		if v := r.FormValue(field); v != "" {
			patch[field] = v
		}
	}

	photo, err := formFileBytes(r, "photo")
	if err != nil {
		return nil, nil, err
	}
	return patch, photo, nil
}
