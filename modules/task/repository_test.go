package task

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/team-taskboard/domain/task"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&domain.Task{}, &domain.Comment{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// insertTask persists a task created by createdBy with the given visibility.
func insertTask(t *testing.T, repo *Repository, createdBy, title string, vis domain.Visibility) *domain.Task {
	t.Helper()

	task := &domain.Task{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    domain.StatusTodo,
		Priority:  domain.PriorityMedium,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	task.SetVisibility(vis)
	if err := repo.Insert(task); err != nil {
		t.Fatalf("Insert() unexpected error: %v", err)
	}
	return task
}

func TestRepository_Insert(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := &domain.Task{
		ID:        uuid.New().String(),
		Title:     "  Draft the release notes  ",
		Status:    domain.StatusTodo,
		Priority:  domain.PriorityHigh,
		CreatedBy: "alice",
	}
	if err := repo.Insert(task); err != nil {
		t.Fatalf("Insert() unexpected error: %v", err)
	}
	if task.Title != "Draft the release notes" {
		t.Errorf("Title = %q, want trimmed", task.Title)
	}

	blank := &domain.Task{ID: uuid.New().String(), Title: "   ", CreatedBy: "alice"}
	if err := repo.Insert(blank); !errors.Is(err, ErrTitleRequired) {
		t.Errorf("Insert() blank title error = %v, want ErrTitleRequired", err)
	}
}

func TestRepository_FindVisibleTo(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	insertTask(t, repo, "alice", "Private to alice", domain.Private())
	insertTask(t, repo, "alice", "Shared with bob", domain.SharedWith("bob"))
	insertTask(t, repo, "carol", "Visible to all", domain.Everyone())
	insertTask(t, repo, "carol", "Private to carol", domain.Private())

	tests := []struct {
		userID string
		want   int
	}{
		{"alice", 3}, // own private, own shared, everyone
		{"bob", 2},   // shared with bob, everyone
		{"carol", 2}, // own private, everyone
		{"dave", 1},  // everyone only
	}

	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			tasks, err := repo.FindVisibleTo(tt.userID)
			if err != nil {
				t.Fatalf("FindVisibleTo() unexpected error: %v", err)
			}
			if len(tasks) != tt.want {
				t.Errorf("FindVisibleTo(%q) returned %d tasks, want %d", tt.userID, len(tasks), tt.want)
			}
		})
	}
}

func TestRepository_FindVisibleTo_SentinelNotAnIdentity(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	insertTask(t, repo, "alice", "Shared with bob", domain.SharedWith("bob"))

	// A hypothetical user literally named "all" must not gain access to
	// shared tasks through the assignee column.
	tasks, err := repo.FindVisibleTo("all")
	if err != nil {
		t.Fatalf("FindVisibleTo() unexpected error: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("FindVisibleTo(\"all\") returned %d tasks, want 0", len(tasks))
	}
}

func TestRepository_FindOneVisibleTo(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := insertTask(t, repo, "alice", "Shared with bob", domain.SharedWith("bob"))

	got, err := repo.FindOneVisibleTo("bob", task.ID)
	if err != nil {
		t.Fatalf("FindOneVisibleTo() unexpected error: %v", err)
	}
	if got.ID != task.ID {
		t.Errorf("FindOneVisibleTo() ID = %q, want %q", got.ID, task.ID)
	}

	// An inaccessible task and a missing task are both reported not found,
	// so a caller cannot probe for existence.
	if _, err := repo.FindOneVisibleTo("carol", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindOneVisibleTo() inaccessible error = %v, want ErrNotFound", err)
	}
	if _, err := repo.FindOneVisibleTo("bob", "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindOneVisibleTo() missing error = %v, want ErrNotFound", err)
	}
}

func TestRepository_UpdateFields(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := insertTask(t, repo, "alice", "Original title", domain.Private())

	title := "Updated title"
	status := domain.StatusDone
	tags := []string{"release", "urgent"}
	updated, err := repo.UpdateFields(task.ID, "alice", Patch{
		Title:  &title,
		Status: &status,
		Tags:   &tags,
	})
	if err != nil {
		t.Fatalf("UpdateFields() unexpected error: %v", err)
	}
	if updated.Title != title {
		t.Errorf("Title = %q, want %q", updated.Title, title)
	}
	if updated.Status != domain.StatusDone {
		t.Errorf("Status = %q, want %q", updated.Status, domain.StatusDone)
	}
	if len(updated.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 entries", updated.Tags)
	}
	if updated.Priority != domain.PriorityMedium {
		t.Errorf("Priority = %q, want untouched %q", updated.Priority, domain.PriorityMedium)
	}
}

func TestRepository_UpdateFields_InvalidStatusLeavesTaskUntouched(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := insertTask(t, repo, "alice", "Original title", domain.Private())

	bad := "done-ish"
	title := "Should not stick"
	if _, err := repo.UpdateFields(task.ID, "alice", Patch{Title: &title, Status: &bad}); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("UpdateFields() error = %v, want ErrBadStatus", err)
	}

	stored, err := repo.FindOneVisibleTo("alice", task.ID)
	if err != nil {
		t.Fatalf("FindOneVisibleTo() unexpected error: %v", err)
	}
	if stored.Title != "Original title" {
		t.Errorf("Title = %q, want unchanged", stored.Title)
	}
	if stored.Status != domain.StatusTodo {
		t.Errorf("Status = %q, want unchanged %q", stored.Status, domain.StatusTodo)
	}
}

func TestRepository_UpdateFields_VisibilityChange(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := insertTask(t, repo, "alice", "Reassignable", domain.SharedWith("bob"))

	vis := domain.SharedWith("carol")
	updated, err := repo.UpdateFields(task.ID, "alice", Patch{Visibility: &vis})
	if err != nil {
		t.Fatalf("UpdateFields() unexpected error: %v", err)
	}
	if updated.Assignee != "carol" || updated.AssigneeType != domain.VisibilityShared {
		t.Errorf("assignee pair = (%q, %q), want (carol, user)", updated.Assignee, updated.AssigneeType)
	}

	// bob lost access
	if _, err := repo.FindOneVisibleTo("bob", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindOneVisibleTo(bob) error = %v, want ErrNotFound", err)
	}
	// carol gained it
	if _, err := repo.FindOneVisibleTo("carol", task.ID); err != nil {
		t.Errorf("FindOneVisibleTo(carol) unexpected error: %v", err)
	}
}

func TestRepository_SetStatus(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := insertTask(t, repo, "alice", "Status flips", domain.SharedWith("bob"))

	// Any reader may flip status, not only the creator.
	updated, err := repo.SetStatus(task.ID, "bob", domain.StatusInProgress)
	if err != nil {
		t.Fatalf("SetStatus() unexpected error: %v", err)
	}
	if updated.Status != domain.StatusInProgress {
		t.Errorf("Status = %q, want %q", updated.Status, domain.StatusInProgress)
	}

	if _, err := repo.SetStatus(task.ID, "bob", "paused"); !errors.Is(err, ErrBadStatus) {
		t.Errorf("SetStatus() invalid error = %v, want ErrBadStatus", err)
	}
}

func TestRepository_AppendComment(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := insertTask(t, repo, "alice", "Discussable", domain.SharedWith("bob"))

	got, err := repo.AppendComment(task.ID, "bob", "Looks good to me")
	if err != nil {
		t.Fatalf("AppendComment() unexpected error: %v", err)
	}
	if len(got.Comments) != 1 {
		t.Fatalf("Comments = %d entries, want 1", len(got.Comments))
	}
	if got.Comments[0].Author != "bob" {
		t.Errorf("comment Author = %q, want bob", got.Comments[0].Author)
	}

	got, err = repo.AppendComment(task.ID, "alice", "Merging now")
	if err != nil {
		t.Fatalf("AppendComment() unexpected error: %v", err)
	}
	if len(got.Comments) != 2 {
		t.Errorf("Comments = %d entries, want 2", len(got.Comments))
	}

	if _, err := repo.AppendComment(task.ID, "bob", "   "); !errors.Is(err, ErrEmptyComment) {
		t.Errorf("AppendComment() blank error = %v, want ErrEmptyComment", err)
	}
	if _, err := repo.AppendComment(task.ID, "carol", "sneaky"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendComment() inaccessible error = %v, want ErrNotFound", err)
	}
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	task := insertTask(t, repo, "alice", "Deletable", domain.SharedWith("bob"))
	if _, err := repo.AppendComment(task.ID, "bob", "about to vanish"); err != nil {
		t.Fatalf("AppendComment() unexpected error: %v", err)
	}

	// A reader who is not the creator gets forbidden, not not-found.
	if _, err := repo.Delete(task.ID, "bob"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Delete() by non-creator error = %v, want ErrForbidden", err)
	}

	// A non-reader cannot learn the task exists.
	if _, err := repo.Delete(task.ID, "carol"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete() by non-reader error = %v, want ErrNotFound", err)
	}

	deleted, err := repo.Delete(task.ID, "alice")
	if err != nil {
		t.Fatalf("Delete() by creator unexpected error: %v", err)
	}
	if deleted.ID != task.ID {
		t.Errorf("Delete() returned ID %q, want %q", deleted.ID, task.ID)
	}

	if _, err := repo.FindOneVisibleTo("alice", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindOneVisibleTo() after delete error = %v, want ErrNotFound", err)
	}

	var count int64
	repo.db.Model(&domain.Comment{}).Where("task_id = ?", task.ID).Count(&count)
	if count != 0 {
		t.Errorf("comments remaining after delete = %d, want 0", count)
	}
}
