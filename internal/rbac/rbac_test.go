package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"facilitator", PermAssessmentCreate, true},
		{"facilitator", PermAssessmentDelete, true},
		{"facilitator", PermGrade, true},
		{"facilitator", PermSubmit, false},
		{"facilitator", PermOverride, false},
		{"participant", PermAssessmentView, true},
		{"participant", PermAssessmentEdit, false},
		{"participant", PermGrade, false},
		{"participant", PermResultsViewAll, false},
		{"admin", PermOverride, true},
		{"admin", "anything:at-all", true},
		{"", PermAssessmentView, false},
		{"guest", PermAssessmentView, false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCustomPolicyPatterns(t *testing.T) {
	c := NewChecker(Policy{"reviewer": {"results:*", "submission:view-all"}})
	if !c.Has("reviewer", PermResultsViewOwn) || !c.Has("reviewer", PermResultsViewAll) {
		t.Errorf("prefix pattern should cover the scope")
	}
	if c.Has("reviewer", "submission:view-own") {
		t.Errorf("exact pattern matched a different permission")
	}
	if c.Has("facilitator", PermGrade) {
		t.Errorf("custom policy should not fall back to the default")
	}
}

func serve(h http.Handler, role, path string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(WithRole(req.Context(), role))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

var noContent = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestRequire(t *testing.T) {
	h := Require(PermGrade)(noContent)
	for role, want := range map[string]int{"facilitator": http.StatusNoContent, "participant": http.StatusForbidden, "": http.StatusForbidden} {
		if got := serve(h, role, "/"); got != want {
			t.Errorf("role %q: status %d, want %d", role, got, want)
		}
	}
	if !Can(WithRole(context.Background(), "participant"), PermResultsViewOwn) {
		t.Errorf("Can should read role from context")
	}
}

func TestRequireOwnerOr(t *testing.T) {
	ownsMe := func(r *http.Request) bool { return r.URL.Path == "/me" }
	h := RequireOwnerOr(PermResultsViewOwn, PermResultsViewAll, ownsMe)(noContent)
	cases := []struct {
		role, path string
		want       int
	}{
		{"participant", "/me", http.StatusNoContent},
		{"participant", "/someone-else", http.StatusForbidden},
		{"facilitator", "/someone-else", http.StatusNoContent},
		{"", "/me", http.StatusForbidden},
	}
	for _, tc := range cases {
		if got := serve(h, tc.role, tc.path); got != tc.want {
			t.Errorf("%s %s: status %d, want %d", tc.role, tc.path, got, tc.want)
		}
	}
}
