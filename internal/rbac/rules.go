package rbac

const (
	PermAssessmentCreate = "assessment:create"
	PermAssessmentView   = "assessment:view"
	PermAssessmentEdit   = "assessment:edit"
	PermAssessmentDeploy = "assessment:deploy"
	PermAssessmentDelete = "assessment:delete_own"

	PermSubmit            = "submission:submit"
	PermSubmissionViewOwn = "submission:view-own"
	PermSubmissionViewAll = "submission:view-all"
	PermGrade             = "submission:grade"

	PermResultsViewOwn = "results:view-own"
	PermResultsViewAll = "results:view-all"

	// PermOverride lets a role act on records authored by someone else.
	PermOverride = "admin:override"
)

// DefaultPolicy: facilitators author and grade; participants take deployed
// assessments and see their own results.
var DefaultPolicy = Policy{
	"participant": {
		PermAssessmentView,
		PermSubmit,
		PermSubmissionViewOwn,
		PermResultsViewOwn,
	},
	"facilitator": {
		"assessment:*",
		PermSubmissionViewAll,
		PermGrade,
		PermResultsViewAll,
	},
	"admin": {"*"},
}
