package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/pcbuild-assess/internal/assessment"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// errorBody lets the presentation layer branch on kind instead of message.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var statusByKind = map[assessment.Kind]int{
	assessment.KindNotFound:            http.StatusNotFound,
	assessment.KindInvalidState:        http.StatusConflict,
	assessment.KindAlreadyDeployed:     http.StatusConflict,
	assessment.KindInvalidItem:         http.StatusUnprocessableEntity,
	assessment.KindNotDeployed:         http.StatusConflict,
	assessment.KindNoSubmission:        http.StatusNotFound,
	assessment.KindNotManuallyGradable: http.StatusConflict,
	assessment.KindStorageUnavailable:  http.StatusServiceUnavailable,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFail(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorBody{Error: kind, Message: msg})
}

// writeError renders an engine error with the status for its kind.
func writeError(w http.ResponseWriter, err error) {
	var e *assessment.Error
	if !errors.As(err, &e) {
		writeFail(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	status, ok := statusByKind[e.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	msg := e.Msg
	if e.Kind == assessment.KindStorageUnavailable {
		msg = "storage unavailable, try again"
	}
	writeFail(w, status, string(e.Kind), msg)
}

func notFound(w http.ResponseWriter) {
	writeFail(w, http.StatusNotFound, string(assessment.KindNotFound), "assessment not found")
}

func forbidden(w http.ResponseWriter) {
	writeFail(w, http.StatusForbidden, "forbidden", "forbidden")
}

// decode reads a JSON body into dst and runs struct validation.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeFail(w, http.StatusBadRequest, "bad_request", "bad json: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeFail(w, http.StatusBadRequest, "bad_request", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
