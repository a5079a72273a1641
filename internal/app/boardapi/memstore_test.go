package boardapi

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/boardstream/project/internal/app/activity"
	"github.com/boardstream/project/internal/app/authz"
	"github.com/boardstream/project/internal/app/board"
	"github.com/boardstream/project/internal/app/comment"
	"github.com/boardstream/project/internal/app/identity"
	"github.com/boardstream/project/internal/app/task"
)

// memStore is an in-memory stand-in for every repository, good enough to
// drive the full HTTP stack in tests.
type memStore struct {
	mu            sync.Mutex
	users         map[string]identity.User
	boards        map[string]board.Board
	lists         map[string]*board.List
	tasks         map[string]*task.Task
	activities    []activity.Entry
	comments      map[string]comment.Comment
	notifications []comment.Notification

	moveErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]identity.User{},
		boards:   map[string]board.Board{},
		lists:    map[string]*board.List{},
		tasks:    map[string]*task.Task{},
		comments: map[string]comment.Comment{},
	}
}

func (m *memStore) EnsureSchema(ctx context.Context) error { return nil }

// identity.Repository

func (m *memStore) CreateUser(ctx context.Context, u identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return identity.ErrEmailTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memStore) FindUserByEmail(ctx context.Context, email string) (identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return identity.User{}, identity.ErrNotFound
}

func (m *memStore) FindUserByID(ctx context.Context, userID string) (identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return identity.User{}, identity.ErrNotFound
	}
	return u, nil
}

func (m *memStore) FindUserByName(ctx context.Context, name string) (identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Name, name) {
			return u, nil
		}
	}
	return identity.User{}, identity.ErrNotFound
}

func (m *memStore) SearchUsers(ctx context.Context, query string, limit int) ([]identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]identity.User, 0)
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) {
			out = append(out, u)
		}
	}
	return out, nil
}

// board.Repository

func (m *memStore) CreateBoard(ctx context.Context, b board.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[b.ID] = b
	return nil
}

func (m *memStore) GetBoard(ctx context.Context, boardID string) (board.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getBoardLocked(boardID)
}

func (m *memStore) getBoardLocked(boardID string) (board.Board, error) {
	b, ok := m.boards[boardID]
	if !ok {
		return board.Board{}, board.ErrNotFound
	}
	b.OwnerGlobalRole = authz.RoleMember
	if owner, ok := m.users[b.OwnerID]; ok {
		b.OwnerGlobalRole = owner.GlobalRole
	}
	return b, nil
}

func (m *memStore) ListBoards(ctx context.Context) ([]board.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]board.Board, 0, len(m.boards))
	for id := range m.boards {
		b, _ := m.getBoardLocked(id)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateBoard(ctx context.Context, boardID, title, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[boardID]
	if !ok {
		return board.ErrNotFound
	}
	b.Title, b.Description = title, description
	m.boards[boardID] = b
	return nil
}

func (m *memStore) DeleteBoard(ctx context.Context, boardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[boardID]; !ok {
		return board.ErrNotFound
	}
	delete(m.boards, boardID)
	return nil
}

func (m *memStore) AddMember(ctx context.Context, boardID, userID string, role authz.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[boardID]
	if !ok {
		return board.ErrNotFound
	}
	b.Members = append(b.Members, board.Member{UserID: userID, Role: role})
	m.boards[boardID] = b
	return nil
}

func (m *memStore) UpdateMemberRole(ctx context.Context, boardID, userID string, role authz.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[boardID]
	if !ok {
		return board.ErrNotFound
	}
	for i := range b.Members {
		if b.Members[i].UserID == userID {
			b.Members[i].Role = role
			m.boards[boardID] = b
			return nil
		}
	}
	return board.ErrNotFound
}

func (m *memStore) RemoveMember(ctx context.Context, boardID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[boardID]
	if !ok {
		return board.ErrNotFound
	}
	for i := range b.Members {
		if b.Members[i].UserID == userID {
			b.Members = append(b.Members[:i], b.Members[i+1:]...)
			m.boards[boardID] = b
			return nil
		}
	}
	return board.ErrNotFound
}

func (m *memStore) CreateList(ctx context.Context, l board.List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[l.ID] = &l
	return nil
}

func (m *memStore) GetList(ctx context.Context, listID string) (board.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[listID]
	if !ok {
		return board.List{}, board.ErrNotFound
	}
	return *l, nil
}

func (m *memStore) ListsByBoard(ctx context.Context, boardID string) ([]board.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]board.List, 0)
	for _, l := range m.lists {
		if l.BoardID == boardID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memStore) UpdateListTitle(ctx context.Context, listID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[listID]
	if !ok {
		return board.ErrNotFound
	}
	l.Title = title
	return nil
}

func (m *memStore) DeleteList(ctx context.Context, listID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[listID]; !ok {
		return board.ErrNotFound
	}
	delete(m.lists, listID)
	return nil
}

func (m *memStore) NextListPosition(ctx context.Context, boardID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := 0
	for _, l := range m.lists {
		if l.BoardID == boardID && l.Position >= next {
			next = l.Position + 1
		}
	}
	return next, nil
}

// task.Repository

func (m *memStore) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[t.ListID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	t.Position = len(l.TaskIDs)
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	l.TaskIDs = append(l.TaskIDs, t.ID)
	m.tasks[t.ID] = &t
	return t, nil
}

func (m *memStore) GetTask(ctx context.Context, taskID string) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return *t, nil
}

func (m *memStore) TasksByBoard(ctx context.Context, boardID string) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]task.Task, 0)
	for _, t := range m.tasks {
		if t.BoardID == boardID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ListID != out[j].ListID {
			return out[i].ListID < out[j].ListID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (m *memStore) TasksByList(ctx context.Context, listID string) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasksByListLocked(listID), nil
}

func (m *memStore) tasksByListLocked(listID string) []task.Task {
	out := make([]task.Task, 0)
	for _, t := range m.tasks {
		if t.ListID == listID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *memStore) UpdateTask(ctx context.Context, taskID string, p task.UpdateParams) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	t.Title, t.Description, t.AssigneeID = p.Title, p.Description, p.AssigneeID
	t.Priority, t.DueDate = p.Priority, p.DueDate
	t.UpdatedAt = time.Now()
	return *t, nil
}

func (m *memStore) DeleteTask(ctx context.Context, taskID string) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	if l, ok := m.lists[t.ListID]; ok {
		rest, _ := task.PlanRemoval(l.TaskIDs, taskID)
		l.TaskIDs = rest
		m.applyOrderingLocked(t.ListID, rest)
	}
	delete(m.tasks, taskID)
	return *t, nil
}

func (m *memStore) MoveTask(ctx context.Context, taskID, toListID string, toIndex int) (task.MoveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.moveErr != nil {
		return task.MoveResult{}, m.moveErr
	}
	t, ok := m.tasks[taskID]
	if !ok {
		return task.MoveResult{}, task.ErrNotFound
	}
	src := m.lists[t.ListID]
	res := task.MoveResult{FromListID: t.ListID, ToListID: toListID}

	if toListID == t.ListID {
		plan, ok := task.PlanSameListMove(src.TaskIDs, taskID, toIndex)
		if !ok {
			return task.MoveResult{}, task.ErrNotFound
		}
		src.TaskIDs = plan.Dest
		m.applyOrderingLocked(t.ListID, plan.Dest)
	} else {
		dst, ok := m.lists[toListID]
		if !ok {
			return task.MoveResult{}, task.ErrNotFound
		}
		plan, planned := task.PlanCrossListMove(src.TaskIDs, dst.TaskIDs, taskID, toIndex)
		if !planned {
			return task.MoveResult{}, task.ErrNotFound
		}
		src.TaskIDs = plan.Source
		dst.TaskIDs = plan.Dest
		m.applyOrderingLocked(res.FromListID, plan.Source)
		m.applyOrderingLocked(toListID, plan.Dest)
	}

	res.Source = m.tasksByListLocked(res.FromListID)
	res.Dest = m.tasksByListLocked(toListID)
	res.Task = *m.tasks[taskID]
	return res, nil
}

func (m *memStore) applyOrderingLocked(listID string, ordered []string) {
	for i, id := range ordered {
		m.tasks[id].ListID = listID
		m.tasks[id].Position = i
	}
}

// activity.Repository

func (m *memStore) Insert(ctx context.Context, e activity.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.CreatedAt = time.Now()
	m.activities = append(m.activities, e)
	return nil
}

func (m *memStore) ByBoard(ctx context.Context, boardID string, limit int) ([]activity.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]activity.Entry, 0)
	for i := len(m.activities) - 1; i >= 0 && len(out) < limit; i-- {
		if m.activities[i].BoardID == boardID {
			out = append(out, m.activities[i])
		}
	}
	return out, nil
}

// comment.Repository

func (m *memStore) InsertComment(ctx context.Context, c comment.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.CreatedAt = time.Now()
	m.comments[c.ID] = c
	return nil
}

func (m *memStore) GetComment(ctx context.Context, commentID string) (comment.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok {
		return comment.Comment{}, comment.ErrNotFound
	}
	if u, ok := m.users[c.AuthorID]; ok {
		c.AuthorName = u.Name
	}
	return c, nil
}

func (m *memStore) CommentsByTask(ctx context.Context, taskID string) ([]comment.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]comment.Comment, 0)
	for _, c := range m.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) DeleteComment(ctx context.Context, commentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[commentID]; !ok {
		return comment.ErrNotFound
	}
	delete(m.comments, commentID)
	for id, c := range m.comments {
		if c.ParentID == commentID {
			delete(m.comments, id)
		}
	}
	return nil
}

func (m *memStore) InsertNotification(ctx context.Context, n comment.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *memStore) NotificationsForUser(ctx context.Context, userID string, limit int) ([]comment.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]comment.Notification, 0)
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == notificationID && m.notifications[i].UserID == userID {
			m.notifications[i].Read = true
			return nil
		}
	}
	return comment.ErrNotFound
}
