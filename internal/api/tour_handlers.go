package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/errors"
	"github.com/trailheadapp/trailhead-server/internal/geo"
	"github.com/trailheadapp/trailhead-server/internal/http/response"
	"github.com/trailheadapp/trailhead-server/internal/search"
)

// maxTourImageBytes bounds a single multipart tour image upload request.
const maxTourImageBytes = 30 << 20 // 30 MB

// maxGalleryImages caps the gallery uploads accepted per request.
const maxGalleryImages = 3

// aliasTopTours rewrites the query string into the canned "top 5 cheap"
// listing before the generic collection handler runs.
func aliasTopTours(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := url.Values{}
		q.Set("limit", "5")
		q.Set("sort", "-ratings_average,price")
		q.Set("fields", "name,price,ratings_average,summary,difficulty")
		r.URL.RawQuery = q.Encode()
		next.ServeHTTP(w, r)
	})
}

// handleTourStats serves the per-difficulty aggregate.
func (s *Server) handleTourStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tours.Stats(r.Context())
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	response.Success(w, map[string]any{"stats": stats}, s.logger)
}

// handleMonthlyPlan serves the busiest-month breakdown for one year.
func (s *Server) handleMonthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		s.translator.HandleError(w, errors.Validationf("Invalid year: %s", chi.URLParam(r, "year")))
		return
	}

	plan, err := s.tours.MonthlyPlan(r.Context(), year)
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	response.List(w, len(plan), map[string]any{"plan": plan}, s.logger)
}

// handleToursWithin lists tours starting inside a radius around a point.
// Route shape: /tours-within/{distance}/center/{latlng}/unit/{unit}.
func (s *Server) handleToursWithin(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseLatLng(chi.URLParam(r, "latlng"))
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	distance, err := strconv.ParseFloat(chi.URLParam(r, "distance"), 64)
	if err != nil {
		s.translator.HandleError(w, errors.Validation("Distance must be a number"))
		return
	}

	tours, err := s.tours.ToursWithin(r.Context(), lat, lng, distance, geo.Unit(chi.URLParam(r, "unit")))
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	respondList(s, w, "tours", tours, nil)
}

// handleDistances lists every tour with its distance from a point, nearest
// first.
func (s *Server) handleDistances(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseLatLng(chi.URLParam(r, "latlng"))
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}

	distances, err := s.tours.Distances(r.Context(), lat, lng, geo.Unit(chi.URLParam(r, "unit")))
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	response.List(w, len(distances), map[string]any{"distances": distances}, s.logger)
}

// handleSearchTours runs the full-text query from ?q= with optional
// difficulty, limit, and offset parameters.
func (s *Server) handleSearchTours(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	params := search.Params{
		Query:      strings.TrimSpace(qs.Get("q")),
		Difficulty: qs.Get("difficulty"),
	}
	if v, err := strconv.Atoi(qs.Get("limit")); err == nil {
		params.Limit = v
	}
	if v, err := strconv.Atoi(qs.Get("offset")); err == nil {
		params.Offset = v
	}

	result, err := s.tours.Search(r.Context(), params)
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	response.List(w, len(result.Hits), map[string]any{"search": result}, s.logger)
}

// handleUpdateTour patches a tour. A multipart body carries image uploads
// (imageCover plus up to three gallery images); anything else is treated as
// a JSON patch on the document.
func (s *Server) handleUpdateTour(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r.Header.Get("Content-Type")) {
		updateOne[domain.Tour](s, s.tours, "tour")(w, r)
		return
	}

	if err := r.ParseMultipartForm(maxTourImageBytes); err != nil {
		s.translator.HandleError(w, errors.Validation("Invalid multipart form").WithCause(err))
		return
	}

	cover, err := formFileBytes(r, "imageCover")
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}

	gallery, err := formGalleryBytes(r)
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}

	tour, err := s.tours.AttachImages(r.Context(), urlID(r), cover, gallery)
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}

	// Text fields riding alongside the uploads patch the document the same
	// way a JSON body would.
	if patch := formValuePatch(r); len(patch) > 0 {
		tour, err = s.tours.Update(r.Context(), urlID(r), patch)
		if err != nil {
			s.translator.HandleError(w, err)
			return
		}
	}
	s.respondOne(w, "tour", tour, nil)
}

// formValuePatch converts the text fields of a multipart form into a patch.
// Numeric and boolean strings take their typed value so the merge behaves
// like a decoded JSON body.
func formValuePatch(r *http.Request) map[string]any {
	if r.MultipartForm == nil {
		return nil
	}
	patch := make(map[string]any, len(r.MultipartForm.Value))
	for field, vals := range r.MultipartForm.Value {
		if len(vals) == 0 {
			continue
		}
		raw := vals[0]
		switch raw {
		case "true":
			patch[field] = true
		case "false":
			patch[field] = false
		default:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				patch[field] = f
			} else {
				patch[field] = raw
			}
		}
	}
	return patch
}

// formGalleryBytes reads the "images" multipart field, which may repeat.
func formGalleryBytes(r *http.Request) ([][]byte, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File["images"]
	if len(files) > maxGalleryImages {
		return nil, errors.Validationf("At most %d gallery images may be uploaded at once", maxGalleryImages)
	}

	gallery := make([][]byte, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return nil, errors.Validation("Invalid images upload").WithCause(err)
		}
		data, err := readAllAndClose(file)
		if err != nil {
			return nil, errors.Validation("Invalid images upload").WithCause(err)
		}
		gallery = append(gallery, data)
	}
	return gallery, nil
}

// parseLatLng splits a "lat,lng" route segment into coordinates.
func parseLatLng(raw string) (lat, lng float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, errLatLngFormat()
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lngErr != nil {
		return 0, 0, errLatLngFormat()
	}
	return lat, lng, nil
}

func errLatLngFormat() error {
	return errors.Validation("Please provide latitude and longitude in the format lat,lng.")
}
