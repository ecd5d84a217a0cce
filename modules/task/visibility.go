package task

import (
	"context"

	"gorm.io/gorm"

	domain "github.com/example/team-taskboard/domain/task"
)

// Directory is the user-directory collaborator. It is consulted only when a
// task is visible to everyone.
type Directory interface {
	AllUserIDs(ctx context.Context) ([]string, error)
}

// Recipients returns the set of user ids permitted to see the task. The
// creator is always included.
func Recipients(ctx context.Context, t *domain.Task, dir Directory) ([]string, error) {
	switch v := t.Visibility(); v.Kind {
	case domain.VisibilityEveryone:
		ids, err := dir.AllUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		return appendUnique(ids, t.CreatedBy), nil
	case domain.VisibilityShared:
		return []string{t.CreatedBy, v.UserID}, nil
	default:
		return []string{t.CreatedBy}, nil
	}
}

// CanRead reports whether userID may view the task. Tasks visible to
// everyone short-circuit without consulting the directory.
func CanRead(t *domain.Task, userID string) bool {
	switch v := t.Visibility(); v.Kind {
	case domain.VisibilityEveryone:
		return true
	case domain.VisibilityShared:
		return userID == t.CreatedBy || userID == v.UserID
	default:
		return userID == t.CreatedBy
	}
}

// CanDelete reports whether userID may delete the task. Deletion is
// creator-exclusive regardless of sharing.
func CanDelete(t *domain.Task, userID string) bool {
	return userID == t.CreatedBy
}

// VisibleTo is a query scope matching every task userID may read. The
// everyone sentinel is matched literally, never as an identity.
func VisibleTo(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"created_by = ? OR assignee = ? OR assignee = ?",
			userID, userID, domain.AssigneeEveryone,
		)
	}
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
