package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/pcbuild-assess/internal/auth/middleware"
	"github.com/mind-engage/pcbuild-assess/internal/lifecycle"
	"github.com/mind-engage/pcbuild-assess/internal/rbac"
	"github.com/mind-engage/pcbuild-assess/internal/results"
)

// MountAssessments registers the assessment API on r. r must already carry
// the JWT middleware so subject and role are on the context.
func MountAssessments(r chi.Router, ctl *lifecycle.Controller, agg *results.Aggregator) {
	r.With(rbac.Require(rbac.PermAssessmentCreate)).Post("/assessments", CreateAssessmentHandler(ctl))
	r.With(rbac.Require(rbac.PermAssessmentView)).Get("/assessments", ListAssessmentsHandler(ctl))

	r.Route("/assessments/{id}", func(ar chi.Router) {
		ar.With(rbac.Require(rbac.PermAssessmentView)).Get("/", GetAssessmentHandler(ctl))
		ar.With(rbac.Require(rbac.PermAssessmentDelete)).Delete("/", DeleteAssessmentHandler(ctl))

		ar.With(rbac.Require(rbac.PermAssessmentEdit)).Post("/items", AddItemHandler(ctl))
		ar.With(rbac.Require(rbac.PermAssessmentEdit)).Put("/items/{index}", ReplaceItemHandler(ctl))
		ar.With(rbac.Require(rbac.PermAssessmentEdit)).Delete("/items/{index}", RemoveItemHandler(ctl))
		ar.With(rbac.Require(rbac.PermAssessmentEdit)).Post("/items/{index}/move", MoveItemHandler(ctl))
		ar.With(rbac.Require(rbac.PermAssessmentEdit)).Put("/constraints", SetConstraintsHandler(ctl))
		ar.With(rbac.Require(rbac.PermAssessmentDeploy)).Post("/deploy", DeployHandler(ctl))

		ar.With(rbac.Require(rbac.PermSubmit)).Put("/submission", SubmitHandler(ctl))
		ar.Route("/submissions/{participantID}", func(sr chi.Router) {
			sr.With(rbac.RequireOwnerOr(rbac.PermSubmissionViewOwn, rbac.PermSubmissionViewAll, ownsParticipantPath)).Get("/", GetSubmissionHandler(ctl))
			sr.With(rbac.Require(rbac.PermGrade)).Post("/grades", GradeHandler(ctl))
			sr.With(rbac.Require(rbac.PermGrade)).Get("/readiness", ReadinessHandler(ctl))
			sr.With(rbac.RequireOwnerOr(rbac.PermResultsViewOwn, rbac.PermResultsViewAll, ownsParticipantPath)).Get("/summary", ParticipantSummaryHandler(ctl))
		})
		ar.With(rbac.Require(rbac.PermResultsViewAll)).Get("/summary", AssessmentSummaryHandler(agg))
	})
}

// ownsParticipantPath is true when the caller is the participant named in
// the path.
func ownsParticipantPath(r *http.Request) bool {
	return chi.URLParam(r, "participantID") == authmw.SubjectFromContext(r.Context())
}

// HealthHandler always answers 200 once the process is serving.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
}

// ReadyHandler answers 503 while check fails, e.g. the database is down.
func ReadyHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeFail(w, http.StatusServiceUnavailable, "not_ready", err.Error())
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
