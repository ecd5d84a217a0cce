package task

// AssigneeEveryone is the sentinel stored in the assignee column when a task
// is visible to every registered user. It is never a user identity, so store
// filters must match it literally instead of as an identity.
const AssigneeEveryone = "all"

// Assignee type values as persisted in the assignee_type column.
const (
	VisibilityPrivate  = "private"
	VisibilityShared   = "user"
	VisibilityEveryone = "all"
)

// Visibility is the tagged form of the assignee/assignee_type column pair.
type Visibility struct {
	Kind   string
	UserID string // set only when Kind == VisibilityShared
}

// Private returns a visibility readable by the creator only.
func Private() Visibility {
	return Visibility{Kind: VisibilityPrivate}
}

// SharedWith returns a visibility shared with a single user.
func SharedWith(userID string) Visibility {
	return Visibility{Kind: VisibilityShared, UserID: userID}
}

// Everyone returns a visibility readable by all registered users.
func Everyone() Visibility {
	return Visibility{Kind: VisibilityEveryone}
}

// Normalize coerces degenerate shapes to private: sharing with nobody, or
// with the creator themselves.
func (v Visibility) Normalize(createdBy string) Visibility {
	switch v.Kind {
	case VisibilityShared:
		if v.UserID == "" || v.UserID == createdBy {
			return Private()
		}
		return v
	case VisibilityEveryone:
		return Everyone()
	default:
		return Private()
	}
}

// Visibility decodes the legacy two-field shape into the tagged form.
func (t *Task) Visibility() Visibility {
	switch t.AssigneeType {
	case VisibilityEveryone:
		return Everyone()
	case VisibilityShared:
		if t.Assignee == "" || t.Assignee == AssigneeEveryone || t.Assignee == t.CreatedBy {
			return Private()
		}
		return SharedWith(t.Assignee)
	default:
		return Private()
	}
}

// SetVisibility encodes the tagged form into the legacy two-field shape.
func (t *Task) SetVisibility(v Visibility) {
	v = v.Normalize(t.CreatedBy)
	switch v.Kind {
	case VisibilityEveryone:
		t.Assignee = AssigneeEveryone
		t.AssigneeType = VisibilityEveryone
	case VisibilityShared:
		t.Assignee = v.UserID
		t.AssigneeType = VisibilityShared
	default:
		t.Assignee = ""
		t.AssigneeType = VisibilityPrivate
	}
}
