package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/pcbuild-assess/internal/assessment"
	authmw "github.com/mind-engage/pcbuild-assess/internal/auth/middleware"
	"github.com/mind-engage/pcbuild-assess/internal/lifecycle"
	"github.com/mind-engage/pcbuild-assess/internal/results"
)

// submitReq keys answers by address: "2" for slot 0, "2.1" for memory slots.
type submitReq struct {
	Answers assessment.Answers `json:"answers" validate:"required"`
}

type gradeReq struct {
	Marks map[int]bool `json:"marks" validate:"required,min=1"` // item index -> correct
}

// PUT /assessments/{id}/submission
func SubmitHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitReq
		if !decode(w, r, &req) {
			return
		}
		sub, err := ctl.SubmitAnswers(r.Context(), chi.URLParam(r, "id"), authmw.SubjectFromContext(r.Context()), req.Answers)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// GET /assessments/{id}/submissions/{participantID}
func GetSubmissionHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := ctl.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if _, ok := viewFor(r, a); !ok {
			notFound(w)
			return
		}
		pid := chi.URLParam(r, "participantID")
		sub, ok := a.Submissions[pid]
		if !ok {
			writeFail(w, http.StatusNotFound, string(assessment.KindNoSubmission), "no submission for "+pid)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// POST /assessments/{id}/submissions/{participantID}/grades
func GradeHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gradeReq
		if !decode(w, r, &req) {
			return
		}
		sub, err := ctl.GradeItems(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "participantID"),
			req.Marks, authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// GET /assessments/{id}/submissions/{participantID}/readiness
func ReadinessHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rd, err := ctl.FinalizeGrading(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "participantID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rd)
	}
}

// GET /assessments/{id}/submissions/{participantID}/summary
func ParticipantSummaryHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := ctl.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if _, ok := viewFor(r, a); !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, results.Summarize(a, chi.URLParam(r, "participantID")))
	}
}

// GET /assessments/{id}/summary
func AssessmentSummaryHandler(agg *results.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := agg.AssessmentSummary(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
