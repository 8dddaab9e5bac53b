package api

import (
	"net/http"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/http/response"
)

// action names a guarded capability. Routes are authorized against the
// policy table below rather than inline role lists, so the whole permission
// surface is readable in one place.
type action string

const (
	actionManageTours     action = "tours:manage"
	actionViewMonthlyPlan action = "tours:monthly-plan"
	actionManageUsers     action = "users:manage"
	actionCreateReview    action = "reviews:create"
	actionModerateReviews action = "reviews:moderate"
)

// policy maps each action to the roles allowed to perform it.
var policy = map[action][]domain.Role{
	actionManageTours:     {domain.RoleAdmin, domain.RoleLeadGuide},
	actionViewMonthlyPlan: {domain.RoleAdmin, domain.RoleLeadGuide, domain.RoleGuide},
	actionManageUsers:     {domain.RoleAdmin},
	actionCreateReview:    {domain.RoleUser},
	actionModerateReviews: {domain.RoleUser, domain.RoleAdmin},
}

// allowed reports whether the role may perform the action.
func allowed(a action, role domain.Role) bool {
	for _, r := range policy[a] {
		if r == role {
			return true
		}
	}
	return false
}

// allow is the single authorization guard. It must run after protect, which
// guarantees a user is attached.
func (s *Server) allow(a action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r.Context())
			if user == nil {
				response.Unauthorized(w, "You are not logged in! Please log in to get access.", s.logger)
				return
			}
			if !allowed(a, user.Role) {
				response.Forbidden(w, "You do not have permission to perform this action", s.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
