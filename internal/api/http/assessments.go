package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/pcbuild-assess/internal/assessment"
	authmw "github.com/mind-engage/pcbuild-assess/internal/auth/middleware"
	"github.com/mind-engage/pcbuild-assess/internal/lifecycle"
	"github.com/mind-engage/pcbuild-assess/internal/rbac"
	"github.com/mind-engage/pcbuild-assess/internal/store"
)

type createAssessmentReq struct {
	Type        string            `json:"type" validate:"required"`
	Title       string            `json:"title" validate:"max=200"`
	Constraints json.RawMessage   `json:"constraints,omitempty"`
	Items       []assessment.Item `json:"items,omitempty" validate:"max=500"`
}

type moveItemReq struct {
	To *int `json:"to" validate:"required,gte=0"`
}

// viewFor applies visibility rules: drafts exist only for their author, never
// for participants, and participants never see answer keys or other submissions.
func viewFor(r *http.Request, a assessment.Assessment) (assessment.Assessment, bool) {
	sub, role := authmw.Identity(r.Context())
	if !a.Deployed() && (role == authmw.RoleParticipant || !isAuthor(a, sub)) {
		return assessment.Assessment{}, false
	}
	if role == authmw.RoleParticipant {
		return a.ParticipantView(sub), true
	}
	return a, true
}

// isAuthor is true for the recorded author, or for any facilitator when no
// author was recorded (e.g. CLI imports without -author).
func isAuthor(a assessment.Assessment, sub string) bool {
	return a.AuthorID == "" || a.AuthorID == sub
}

// loadOwned fetches the assessment for an authoring operation. Drafts of
// other facilitators are reported as missing.
func loadOwned(w http.ResponseWriter, r *http.Request, ctl *lifecycle.Controller) (assessment.Assessment, bool) {
	a, err := ctl.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return a, false
	}
	if !a.Deployed() && !isAuthor(a, authmw.SubjectFromContext(r.Context())) {
		notFound(w)
		return a, false
	}
	return a, true
}

func itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "bad_request", "item index must be an integer")
		return 0, false
	}
	return idx, true
}

// POST /assessments
func CreateAssessmentHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAssessmentReq
		if !decode(w, r, &req) {
			return
		}
		t, ok := assessment.ParseType(req.Type)
		if !ok {
			writeFail(w, http.StatusUnprocessableEntity, string(assessment.KindInvalidItem), "unknown assessment type "+strconv.Quote(req.Type))
			return
		}
		a, err := ctl.Create(r.Context(), store.NewAssessment{
			Type:        t,
			Title:       strings.TrimSpace(req.Title),
			AuthorID:    authmw.SubjectFromContext(r.Context()),
			Constraints: req.Constraints,
			Items:       req.Items,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// GET /assessments?type=quiz
func ListAssessmentsHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types := assessment.Types
		if q := strings.TrimSpace(r.URL.Query().Get("type")); q != "" {
			t, ok := assessment.ParseType(q)
			if !ok {
				writeFail(w, http.StatusBadRequest, "bad_request", "unknown type "+strconv.Quote(q))
				return
			}
			types = []assessment.Type{t}
		}
		out := []assessment.Assessment{}
		for _, t := range types {
			list, err := ctl.ListByType(r.Context(), t)
			if err != nil {
				writeError(w, err)
				return
			}
			for _, a := range list {
				if v, ok := viewFor(r, a); ok {
					out = append(out, v)
				}
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /assessments/{id}
func GetAssessmentHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := ctl.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		v, ok := viewFor(r, a)
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// POST /assessments/{id}/items
func AddItemHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwned(w, r, ctl)
		if !ok {
			return
		}
		var it assessment.Item
		if !decode(w, r, &it) {
			return
		}
		out, err := ctl.AddItem(r.Context(), a.ID, it)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// PUT /assessments/{id}/items/{index}
func ReplaceItemHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwned(w, r, ctl)
		if !ok {
			return
		}
		idx, ok := itemIndex(w, r)
		if !ok {
			return
		}
		var it assessment.Item
		if !decode(w, r, &it) {
			return
		}
		out, err := ctl.ReplaceItem(r.Context(), a.ID, idx, it)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DELETE /assessments/{id}/items/{index}
func RemoveItemHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwned(w, r, ctl)
		if !ok {
			return
		}
		idx, ok := itemIndex(w, r)
		if !ok {
			return
		}
		out, err := ctl.RemoveItem(r.Context(), a.ID, idx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /assessments/{id}/items/{index}/move  {"to": 0}
func MoveItemHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwned(w, r, ctl)
		if !ok {
			return
		}
		idx, ok := itemIndex(w, r)
		if !ok {
			return
		}
		var req moveItemReq
		if !decode(w, r, &req) {
			return
		}
		out, err := ctl.MoveItem(r.Context(), a.ID, idx, *req.To)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// PUT /assessments/{id}/constraints  (body is the constraints object)
func SetConstraintsHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwned(w, r, ctl)
		if !ok {
			return
		}
		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeFail(w, http.StatusBadRequest, "bad_request", "bad json: "+err.Error())
			return
		}
		out, err := ctl.SetConstraints(r.Context(), a.ID, raw)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /assessments/{id}/deploy
func DeployHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwned(w, r, ctl)
		if !ok {
			return
		}
		out, err := ctl.Deploy(r.Context(), a.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DELETE /assessments/{id}  (author only)
func DeleteAssessmentHandler(ctl *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwned(w, r, ctl)
		if !ok {
			return
		}
		if sub := authmw.SubjectFromContext(r.Context()); !isAuthor(a, sub) && !rbac.Can(r.Context(), rbac.PermOverride) {
			forbidden(w)
			return
		}
		if err := ctl.Delete(r.Context(), a.ID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
