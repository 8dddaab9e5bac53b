package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/store"
)

//go:embed templates/*.html
var templates embed.FS

// pages holds one parsed template set per rendered page, each page template
// layered over the shared base layout.
var pages = func() map[string]*template.Template {
	out := make(map[string]*template.Template)
	for _, name := range []string{"overview", "tour", "login", "account", "error"} {
		out[name] = template.Must(template.ParseFS(templates,
			"templates/base.html", "templates/"+name+".html"))
	}
	return out
}()

// viewData is the payload every page template renders from. Only the fields
// a page uses are populated.
type viewData struct {
	Title   string
	User    *domain.User
	Tours   []*domain.Tour
	Tour    *domain.Tour
	Reviews []*domain.Review
	Message string
}

// render executes a page template. Template failures surface as a plain 500
// since the error page itself may be the one failing.
func (s *Server) render(w http.ResponseWriter, page string, data viewData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages[page].ExecuteTemplate(w, "base", data); err != nil {
		s.logger.Error("Failed to render page", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// renderError shows the styled error page with the given status.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := viewData{Title: "Something went wrong!", User: currentUser(r.Context()), Message: message}
	if err := pages["error"].ExecuteTemplate(w, "base", data); err != nil {
		s.logger.Error("Failed to render error page", "error", err)
	}
}

// maxPageReviews bounds how many reviews the rendered tour page shows.
const maxPageReviews = 1000

// handleOverviewPage renders the landing page with every visible tour.
// GET /
func (s *Server) handleOverviewPage(w http.ResponseWriter, r *http.Request) {
	tours, err := s.tours.ListVisible(r.Context())
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not load tours. Please try again later.")
		return
	}
	s.render(w, "overview", viewData{
		Title: "All Tours",
		User:  currentUser(r.Context()),
		Tours: tours,
	})
}

// handleTourPage renders one tour with its reviews.
// GET /tour/{slug}
func (s *Server) handleTourPage(w http.ResponseWriter, r *http.Request) {
	tour, err := s.tours.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "There is no tour with that name.")
		return
	}

	reviews, err := s.reviews.ListForTour(r.Context(), tour.ID, store.ListQuery{Page: store.DefaultPage, Limit: maxPageReviews})
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not load reviews. Please try again later.")
		return
	}

	s.render(w, "tour", viewData{
		Title:   tour.Name + " Tour",
		User:    currentUser(r.Context()),
		Tour:    tour,
		Reviews: reviews,
	})
}

// handleLoginPage renders the login form. A logged-in visitor is sent home.
// GET /login
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if currentUser(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, "login", viewData{Title: "Log into your account"})
}

// handleAccountPage renders the account settings page.
// GET /me
func (s *Server) handleAccountPage(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.render(w, "account", viewData{Title: "Your account", User: user})
}

// handleSubmitUserData takes the no-JavaScript account form post and
// re-renders the account page with the saved values.
// POST /submit-user-data
func (s *Server) handleSubmitUserData(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if isMultipart(r.Header.Get("Content-Type")) {
		if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
			s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
			return
		}
		photo, err := formFileBytes(r, "photo")
		if err != nil {
			s.renderError(w, r, http.StatusBadRequest, "Invalid photo upload.")
			return
		}
		if len(photo) > 0 {
			if user, err = s.users.SetMyPhoto(r.Context(), user, photo); err != nil {
				s.renderError(w, r, http.StatusBadRequest, "Could not save your photo.")
				return
			}
		}
	} else if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}

	patch := map[string]any{}
	for _, field := range []string{"name", "email"} {
		if v := r.FormValue(field); v != "" {
			patch[field] = v
		}
	}

	updated, err := s.users.UpdateMe(r.Context(), user, patch)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not save your settings.")
		return
	}
	s.render(w, "account", viewData{Title: "Your account", User: updated})
}
