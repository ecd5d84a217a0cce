package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	domain "github.com/example/team-taskboard/domain/task"
)

// Repository is the task store adapter. Every operation that derives from a
// caller identity applies the visibility scope, so an inaccessible task is
// indistinguishable from a missing one. Mutations run as a single
// transaction per task id; concurrent field patches are last-write-wins.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new task repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert persists a new task.
func (r *Repository) Insert(t *domain.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrTitleRequired
	}
	t.Title = strings.TrimSpace(t.Title)
	if err := r.db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// FindVisibleTo returns all tasks userID may read, most recently created
// first.
func (r *Repository) FindVisibleTo(userID string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.Scopes(VisibleTo(userID)).
		Preload("Comments").
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	return tasks, nil
}

// FindOneVisibleTo returns a single task if userID may read it.
func (r *Repository) FindOneVisibleTo(userID, taskID string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.Scopes(VisibleTo(userID)).
		Preload("Comments").
		First(&t, "id = ?", taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

// UpdateFields merges the non-nil patch fields over the stored task and
// refreshes updated_at. createdBy and id are never touched.
func (r *Repository) UpdateFields(taskID, userID string, patch Patch) (*domain.Task, error) {
	var t domain.Task
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(VisibleTo(userID)).
			Preload("Comments").
			First(&t, "id = ?", taskID).Error; err != nil {
			return err
		}
		if err := applyPatch(&t, patch); err != nil {
			return err
		}
		t.UpdatedAt = time.Now()
		return tx.Omit("Comments").Save(&t).Error
	})
	if err != nil {
		return nil, translateStoreError(err, "failed to update task")
	}
	return &t, nil
}

// SetStatus updates only the status field.
func (r *Repository) SetStatus(taskID, userID, status string) (*domain.Task, error) {
	if !domain.ValidStatus(status) {
		return nil, ErrBadStatus
	}
	return r.UpdateFields(taskID, userID, Patch{Status: &status})
}

// AppendComment appends a comment authored by userID and returns the task
// including the new comment.
func (r *Repository) AppendComment(taskID, userID, text string) (*domain.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	var t domain.Task
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(VisibleTo(userID)).
			Preload("Comments").
			First(&t, "id = ?", taskID).Error; err != nil {
			return err
		}
		comment := domain.Comment{
			TaskID:    t.ID,
			Author:    userID,
			Text:      text,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		t.Comments = append(t.Comments, comment)
		t.UpdatedAt = time.Now()
		return tx.Omit("Comments").Save(&t).Error
	})
	if err != nil {
		return nil, translateStoreError(err, "failed to add comment")
	}
	return &t, nil
}

// Delete removes a task permanently. Only the creator may delete; a task the
// caller cannot read reports not found, never forbidden.
func (r *Repository) Delete(taskID, userID string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(VisibleTo(userID)).
			First(&t, "id = ?", taskID).Error; err != nil {
			return err
		}
		if !CanDelete(&t, userID) {
			return ErrForbidden
		}
		if err := tx.Where("task_id = ?", t.ID).
			Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Task{}, "id = ?", t.ID).Error
	})
	if err != nil {
		return nil, translateStoreError(err, "failed to delete task")
	}
	return &t, nil
}

// applyPatch merges non-nil patch fields into t.
func applyPatch(t *domain.Task, patch Patch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return ErrTitleRequired
		}
		t.Title = title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		if !domain.ValidStatus(*patch.Status) {
			return ErrBadStatus
		}
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !domain.ValidPriority(*patch.Priority) {
			return ErrBadPriority
		}
		t.Priority = *patch.Priority
	}
	if patch.Deadline != nil {
		t.Deadline = patch.Deadline
	}
	if patch.Tags != nil {
		t.Tags = *patch.Tags
	}
	if patch.Visibility != nil {
		t.SetVisibility(*patch.Visibility)
	}
	return nil
}

// translateStoreError maps gorm errors to the package taxonomy, keeping
// validation and access errors intact and wrapping everything else.
func translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrBadStatus),
		errors.Is(err, ErrBadPriority),
		errors.Is(err, ErrEmptyComment):
		return err
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
