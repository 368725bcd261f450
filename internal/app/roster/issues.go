// internal/app/roster/issues.go
package roster

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Issue codes shared by every roster kind. Blocking codes abort a commit
// unconditionally; advisory codes abort only when the caller did not set
// IgnoreWarnings.
const (
	CodeVersionMismatch = "VERSION_MISMATCH"

	CodeUnknownFamily       = "UNKNOWN_FAMILY"
	CodeUnknownTent         = "UNKNOWN_TENT"
	CodeUnknownSpace        = "UNKNOWN_SPACE"
	CodeUnknownRegistration = "UNKNOWN_REGISTRATION"
	CodeWrongRetreat        = "WRONG_RETREAT"

	CodeFamilyLocked = "FAMILY_LOCKED"
	CodeTentLocked   = "TENT_LOCKED"
	CodeSpaceLocked  = "SPACE_LOCKED"

	CodeCapacityExceeded = "CAPACITY_EXCEEDED"
	CodeWrongCategory    = "WRONG_CATEGORY"
	CodeInvalidMember    = "INVALID_MEMBER"

	CodeDuplicateRegistration = "DUPLICATE_REGISTRATION"
	CodeDuplicatedMember      = "DUPLICATED_MEMBER"
	CodeDuplicateLeader       = "DUPLICATE_LEADER"
	CodeDuplicateName         = "DUPLICATE_NAME"
	CodeDuplicateNumber       = "DUPLICATE_NUMBER"
	CodeDuplicateColor        = "DUPLICATE_COLOR"
	CodeInvalidColor          = "INVALID_COLOR"

	CodeInvalidPadrinho       = "INVALID_PADRINHO"
	CodeInvalidPadrinhoGender = "INVALID_PADRINHO_GENDER"
	CodePadrinhoConflict      = "PADRINHO_CONFLICT"
	CodeTooManyPadrinhos      = "TOO_MANY_PADRINHOS"

	CodeBelowMinimum       = "BELOW_MINIMUM"
	CodeMissingCoordinator = "MISSING_COORDINATOR"
	CodeMissingVice        = "MISSING_VICE"
	CodeSameCity           = "SAME_CITY"
	CodeMissingGodparents  = "MISSING_GODPARENTS"
)

// Issue is one validation finding. Whether it blocks a commit depends on
// which list (errors vs. warnings) the validator placed it in; the struct
// itself carries enough context for the caller to render the conflict.
type Issue struct {
	Code           string               `json:"code"`
	Message        string               `json:"message"`
	GroupID        *primitive.ObjectID  `json:"group_id,omitempty"`
	ParticipantIDs []primitive.ObjectID `json:"participant_ids,omitempty"`
}

// NewIssue builds an issue with a formatted message.
func NewIssue(code, format string, args ...any) Issue {
	return Issue{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithGroup attaches the offending group id.
func (i Issue) WithGroup(id primitive.ObjectID) Issue {
	i.GroupID = &id
	return i
}

// WithParticipants attaches the offending participant ids.
func (i Issue) WithParticipants(ids ...primitive.ObjectID) Issue {
	i.ParticipantIDs = append(i.ParticipantIDs, ids...)
	return i
}

// VersionMismatch builds the soft conflict issue carrying the stored version
// so the caller can re-fetch and resubmit.
func VersionMismatch(current int64) Issue {
	return NewIssue(CodeVersionMismatch, "submitted version is stale; current version is %d", current)
}
