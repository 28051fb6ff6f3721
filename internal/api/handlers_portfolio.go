package api

import (
	"net/http"
	"strconv"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/portfolio"
)

// requestUser returns the user the auth middleware resolved
func requestUser(r *http.Request) string {
	user, _ := UserFromContext(r.Context())
	return user
}

// handleGetPortfolio handles GET /api/portfolio
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.dashboard.Portfolio(r.Context(), requestUser(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// handleSavePortfolio handles POST /api/portfolio
func (s *Server) handleSavePortfolio(w http.ResponseWriter, r *http.Request) {
	var body models.PortfolioData
	if err := parseJSONBody(w, r, &body); err != nil {
		respondServiceError(w, r, err)
		return
	}

	if err := s.dashboard.SavePortfolio(r.Context(), requestUser(r), &body); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleGetOverview handles GET /api/portfolio/overview?limit=&strict=
func (s *Server) handleGetOverview(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := portfolio.DefaultLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondServiceError(w, r, apperrors.NewInvalidParameterError("limit", "must be an integer"))
			return
		}
		limit = n
	}

	strict := false
	if raw := query.Get("strict"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			respondServiceError(w, r, apperrors.NewInvalidParameterError("strict", "must be a boolean"))
			return
		}
		strict = b
	}

	overview, err := s.dashboard.Overview(r.Context(), requestUser(r), limit, strict)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}
