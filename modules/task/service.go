package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	domain "github.com/example/team-taskboard/domain/task"
	"github.com/example/team-taskboard/events"
	"github.com/example/team-taskboard/modules/cache"
)

// Publisher delivers task change events to the fan-out layer. Publishing
// runs only after the mutation has committed and is best-effort: a failed
// publish is logged, never rolled back.
type Publisher interface {
	PublishTaskChanged(ctx context.Context, event events.TaskChangedEvent) error
}

// ListCache caches per-user task lists. Optional; a nil cache disables it.
type ListCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Service orchestrates task operations: validate, persist, recompute the
// recipient set, fan out.
type Service struct {
	repo    *Repository
	dir     Directory
	pub     Publisher
	cache   ListCache
	sfGroup singleflight.Group
	logger  *slog.Logger
}

// NewService creates a new task service.
func NewService(repo *Repository, dir Directory, pub Publisher) *Service {
	return &Service{
		repo:   repo,
		dir:    dir,
		pub:    pub,
		logger: slog.Default(),
	}
}

// SetCache enables the per-user list cache.
func (s *Service) SetCache(c ListCache) {
	s.cache = c
}

// CreateTask validates, persists and announces a new task. Assigning a task
// to its own creator is coerced to private.
func (s *Service) CreateTask(ctx context.Context, req CreateTaskRequest) (*domain.Task, error) {
	status := req.Status
	if status == "" {
		status = domain.StatusTodo
	}
	if !domain.ValidStatus(status) {
		return nil, ErrBadStatus
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, ErrBadPriority
	}

	now := time.Now()
	t := &domain.Task{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		CreatedBy:   req.UserID,
		Deadline:    req.Deadline,
		Tags:        req.Tags,
		Comments:    []domain.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.SetVisibility(VisibilityFromWire(req.Assignee, req.AssigneeType))

	if err := s.repo.Insert(t); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TaskChangedEvent{
		Kind:   events.TaskCreated,
		TaskID: t.ID,
		Task:   t,
	}, t.CreatedBy, t.Visibility())
	s.invalidateFor(ctx, t.CreatedBy, t.Visibility(), nil)

	return t, nil
}

// ListTasks returns every task visible to the user, newest first.
func (s *Service) ListTasks(ctx context.Context, userID string) ([]*domain.Task, error) {
	if s.cache == nil {
		return s.repo.FindVisibleTo(userID)
	}

	key := cache.UserListKey(userID)
	var cached []*domain.Task
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("task list cache read failed", "userID", userID, "error", err)
	}
	if found {
		return cached, nil
	}

	val, err, _ := s.sfGroup.Do(key, func() (any, error) {
		return s.repo.FindVisibleTo(userID)
	})
	if err != nil {
		return nil, err
	}
	tasks := val.([]*domain.Task)

	if err := s.cache.Set(ctx, key, tasks); err != nil {
		s.logger.Warn("task list cache write failed", "userID", userID, "error", err)
	}
	return tasks, nil
}

// GetTask returns a single task if the user may read it.
func (s *Service) GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	return s.repo.FindOneVisibleTo(userID, taskID)
}

// UpdateTask applies a field patch. The update is announced to the union of
// the prior and the new recipient sets; sessions that lost access receive a
// deleted-kind revocation so their local view drops the task.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID string, patch Patch) (*domain.Task, error) {
	prior, err := s.repo.FindOneVisibleTo(userID, taskID)
	if err != nil {
		return nil, err
	}
	oldVis := prior.Visibility()

	t, err := s.repo.UpdateFields(taskID, userID, patch)
	if err != nil {
		return nil, err
	}
	newVis := t.Visibility()

	s.announceUpdate(ctx, t, oldVis, newVis)
	s.invalidateFor(ctx, t.CreatedBy, newVis, &oldVis)
	return t, nil
}

// SetTaskStatus applies a status-only patch. Visibility cannot change, so
// the fan-out never revokes.
func (s *Service) SetTaskStatus(ctx context.Context, userID, taskID, status string) (*domain.Task, error) {
	t, err := s.repo.SetStatus(taskID, userID, status)
	if err != nil {
		return nil, err
	}
	vis := t.Visibility()
	s.announceUpdate(ctx, t, vis, vis)
	s.invalidateFor(ctx, t.CreatedBy, vis, nil)
	return t, nil
}

// DeleteTask removes a task and announces the deletion to every prior
// recipient. Only the creator may delete.
func (s *Service) DeleteTask(ctx context.Context, userID, taskID string) error {
	t, err := s.repo.Delete(taskID, userID)
	if err != nil {
		return err
	}
	vis := t.Visibility()
	s.publish(ctx, events.TaskChangedEvent{
		Kind:   events.TaskDeleted,
		TaskID: t.ID,
	}, t.CreatedBy, vis)
	s.invalidateFor(ctx, t.CreatedBy, vis, nil)
	return nil
}

// AddComment appends a comment and announces the whole-task snapshot to the
// current recipients.
func (s *Service) AddComment(ctx context.Context, userID, taskID, text string) (*domain.Task, error) {
	t, err := s.repo.AppendComment(taskID, userID, text)
	if err != nil {
		return nil, err
	}
	vis := t.Visibility()
	s.publish(ctx, events.TaskChangedEvent{
		Kind:   events.TaskUpdated,
		TaskID: t.ID,
		Task:   t,
	}, t.CreatedBy, vis)
	s.invalidateFor(ctx, t.CreatedBy, vis, nil)
	return t, nil
}

// announceUpdate publishes the updated-kind event for the union of the old
// and new recipient sets, followed by a revocation for recipients present
// only in the old set. Shrinkage of the recipient set is the sole
// revocation trigger: widening to everyone stays a plain update.
func (s *Service) announceUpdate(ctx context.Context, t *domain.Task, oldVis, newVis domain.Visibility) {
	update := events.TaskChangedEvent{
		Kind:   events.TaskUpdated,
		TaskID: t.ID,
		Task:   t,
	}
	if oldVis.Kind == domain.VisibilityEveryone || newVis.Kind == domain.VisibilityEveryone {
		update.Broadcast = true
	} else {
		update.Recipients = unionRecipients(t.CreatedBy, oldVis, newVis)
	}
	s.emit(ctx, update)

	revoked, err := s.revokedRecipients(ctx, t.CreatedBy, oldVis, newVis)
	if err != nil {
		s.logger.Warn("failed to resolve revoked recipients", "taskID", t.ID, "error", err)
		return
	}
	if len(revoked) == 0 {
		return
	}
	s.emit(ctx, events.TaskChangedEvent{
		Kind:       events.TaskDeleted,
		TaskID:     t.ID,
		Recipients: revoked,
	})
}

// revokedRecipients returns the users present in the old recipient set but
// not in the new one. Narrowing away from everyone needs the directory to
// materialize who lost access.
func (s *Service) revokedRecipients(ctx context.Context, createdBy string, oldVis, newVis domain.Visibility) ([]string, error) {
	if newVis.Kind == domain.VisibilityEveryone {
		return nil, nil
	}
	keep := map[string]bool{createdBy: true}
	if newVis.Kind == domain.VisibilityShared {
		keep[newVis.UserID] = true
	}

	switch oldVis.Kind {
	case domain.VisibilityEveryone:
		all, err := s.dir.AllUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		var revoked []string
		for _, id := range all {
			if !keep[id] {
				revoked = append(revoked, id)
			}
		}
		return revoked, nil
	case domain.VisibilityShared:
		if !keep[oldVis.UserID] {
			return []string{oldVis.UserID}, nil
		}
	}
	return nil, nil
}

// publish sends an event addressed per the task's visibility.
func (s *Service) publish(ctx context.Context, event events.TaskChangedEvent, createdBy string, vis domain.Visibility) {
	if vis.Kind == domain.VisibilityEveryone {
		event.Broadcast = true
	} else {
		event.Recipients = unionRecipients(createdBy, vis, vis)
	}
	s.emit(ctx, event)
}

func (s *Service) emit(ctx context.Context, event events.TaskChangedEvent) {
	event.OccurredAt = time.Now()
	if err := s.pub.PublishTaskChanged(ctx, event); err != nil {
		s.logger.Warn("failed to publish task event",
			"kind", event.Kind, "taskID", event.TaskID, "error", err)
	}
}

// unionRecipients returns the deduplicated union of both visibility sets,
// creator always included.
func unionRecipients(createdBy string, a, b domain.Visibility) []string {
	recipients := []string{}
	if createdBy != "" {
		recipients = append(recipients, createdBy)
	}
	for _, v := range []domain.Visibility{a, b} {
		if v.Kind == domain.VisibilityShared {
			recipients = appendUnique(recipients, v.UserID)
		}
	}
	return recipients
}

// invalidateFor drops the cached task lists of every user whose view may
// have changed.
func (s *Service) invalidateFor(ctx context.Context, createdBy string, vis domain.Visibility, priorVis *domain.Visibility) {
	if s.cache == nil {
		return
	}
	if vis.Kind == domain.VisibilityEveryone ||
		(priorVis != nil && priorVis.Kind == domain.VisibilityEveryone) {
		if err := s.cache.DeletePattern(ctx, cache.ListKeyPattern); err != nil {
			s.logger.Warn("task list cache flush failed", "error", err)
		}
		return
	}
	affected := []string{createdBy}
	if vis.Kind == domain.VisibilityShared {
		affected = appendUnique(affected, vis.UserID)
	}
	if priorVis != nil && priorVis.Kind == domain.VisibilityShared {
		affected = appendUnique(affected, priorVis.UserID)
	}
	for _, id := range affected {
		if err := s.cache.Delete(ctx, cache.UserListKey(id)); err != nil {
			s.logger.Warn("task list cache invalidation failed", "userID", id, "error", err)
		}
	}
}
