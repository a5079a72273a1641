package task

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrReorderConflict signals that a concurrent move touched the same
	// lists and the transaction was rolled back. Callers may retry.
	ErrReorderConflict = errors.New("concurrent reorder, retry")
)

type Task struct {
	ID          string     `json:"id"`
	BoardID     string     `json:"boardId"`
	ListID      string     `json:"listId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// UpdateParams carries the mutable task fields for an edit.
type UpdateParams struct {
	Title       string
	Description string
	AssigneeID  string
	Priority    string
	DueDate     *time.Time
}

// MoveResult carries the canonical post-move state, re-read after commit.
type MoveResult struct {
	Task       Task   `json:"task"`
	FromListID string `json:"fromListId"`
	ToListID   string `json:"toListId"`
	Source     []Task `json:"sourceTasks"`
	Dest       []Task `json:"destTasks"`
}

type Repository interface {
	EnsureSchema(ctx context.Context) error
	CreateTask(ctx context.Context, t Task) (Task, error)
	GetTask(ctx context.Context, taskID string) (Task, error)
	TasksByBoard(ctx context.Context, boardID string) ([]Task, error)
	TasksByList(ctx context.Context, listID string) ([]Task, error)
	UpdateTask(ctx context.Context, taskID string, p UpdateParams) (Task, error)
	DeleteTask(ctx context.Context, taskID string) (Task, error)
	MoveTask(ctx context.Context, taskID, toListID string, toIndex int) (MoveResult, error)
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

const createTasksSQL = `
CREATE TABLE IF NOT EXISTS tasks (
  id text PRIMARY KEY,
  board_id text NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
  list_id text NOT NULL REFERENCES lists(id),
  title text NOT NULL,
  description text NOT NULL DEFAULT '',
  assignee_id text NOT NULL DEFAULT '',
  priority text NOT NULL DEFAULT '',
  due_date timestamptz,
  created_by text NOT NULL,
  position integer NOT NULL DEFAULT 0,
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now()
)`

const createTasksIndexSQL = `
CREATE INDEX IF NOT EXISTS tasks_list_position ON tasks (list_id, position)`

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, sql := range []string{createTasksSQL, createTasksIndexSQL} {
		if _, err := r.Pool.Exec(ctx, sql); err != nil {
			return err
		}
	}
	return nil
}

const taskColumns = `id, board_id, list_id, title, description, assignee_id, priority, due_date, created_by, position, created_at, updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.BoardID, &t.ListID, &t.Title, &t.Description,
		&t.AssigneeID, &t.Priority, &t.DueDate, &t.CreatedBy, &t.Position, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return t, nil
}

// CreateTask appends the task to the end of its list. The list row is locked
// so the appended position and the denormalized id array stay consistent.
func (r *PostgresRepository) CreateTask(ctx context.Context, t Task) (Task, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Task{}, err
	}
	defer tx.Rollback(ctx)

	var ids []string
	err = tx.QueryRow(ctx,
		`SELECT task_ids FROM lists WHERE id = $1 FOR UPDATE`, t.ListID,
	).Scan(&ids)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}

	t.Position = len(ids)
	if _, err := tx.Exec(ctx,
		`INSERT INTO tasks (id, board_id, list_id, title, description, assignee_id, priority, due_date, created_by, position)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.BoardID, t.ListID, t.Title, t.Description, t.AssigneeID, t.Priority, t.DueDate, t.CreatedBy, t.Position,
	); err != nil {
		return Task{}, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE lists SET task_ids = array_append(task_ids, $2) WHERE id = $1`,
		t.ListID, t.ID,
	); err != nil {
		return Task{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Task{}, err
	}
	return r.GetTask(ctx, t.ID)
}

func (r *PostgresRepository) GetTask(ctx context.Context, taskID string) (Task, error) {
	return scanTask(r.Pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID))
}

func (r *PostgresRepository) TasksByBoard(ctx context.Context, boardID string) ([]Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE board_id = $1 ORDER BY list_id, position`, boardID)
}

func (r *PostgresRepository) TasksByList(ctx context.Context, listID string) ([]Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE list_id = $1 ORDER BY position`, listID)
}

func (r *PostgresRepository) queryTasks(ctx context.Context, sql string, arg any) ([]Task, error) {
	rows, err := r.Pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.BoardID, &t.ListID, &t.Title, &t.Description,
			&t.AssigneeID, &t.Priority, &t.DueDate, &t.CreatedBy, &t.Position, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *PostgresRepository) UpdateTask(ctx context.Context, taskID string, p UpdateParams) (Task, error) {
	res, err := r.Pool.Exec(ctx,
		`UPDATE tasks
		 SET title = $2, description = $3, assignee_id = $4, priority = $5, due_date = $6, updated_at = now()
		 WHERE id = $1`,
		taskID, p.Title, p.Description, p.AssigneeID, p.Priority, p.DueDate,
	)
	if err != nil {
		return Task{}, err
	}
	if res.RowsAffected() == 0 {
		return Task{}, ErrNotFound
	}
	return r.GetTask(ctx, taskID)
}

// DeleteTask removes the task, closes the position gap it left, and pulls it
// out of the list's id array. Deleting twice yields ErrNotFound.
func (r *PostgresRepository) DeleteTask(ctx context.Context, taskID string) (Task, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Task{}, err
	}
	defer tx.Rollback(ctx)

	t, err := scanTask(tx.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, taskID))
	if err != nil {
		return Task{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID); err != nil {
		return Task{}, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE tasks SET position = position - 1 WHERE list_id = $1 AND position > $2`,
		t.ListID, t.Position,
	); err != nil {
		return Task{}, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE lists SET task_ids = array_remove(task_ids, $2) WHERE id = $1`,
		t.ListID, taskID,
	); err != nil {
		return Task{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Task{}, err
	}
	return t, nil
}

// MoveTask runs the reorder protocol as one serializable transaction. Both
// list orderings are rewritten to dense 0..N-1 positions and the lists'
// denormalized id arrays are replaced wholesale. A serialization failure
// surfaces as ErrReorderConflict.
func (r *PostgresRepository) MoveTask(ctx context.Context, taskID, toListID string, toIndex int) (MoveResult, error) {
	var res MoveResult
	err := r.moveTaskTx(ctx, taskID, toListID, toIndex, &res)
	if err != nil {
		if isReorderConflict(err) {
			return MoveResult{}, ErrReorderConflict
		}
		return MoveResult{}, err
	}

	// Canonical state is whatever the committed transaction left behind.
	res.Source, err = r.TasksByList(ctx, res.FromListID)
	if err != nil {
		return MoveResult{}, err
	}
	if res.FromListID == res.ToListID {
		res.Dest = res.Source
	} else {
		res.Dest, err = r.TasksByList(ctx, res.ToListID)
		if err != nil {
			return MoveResult{}, err
		}
	}
	res.Task, err = r.GetTask(ctx, taskID)
	if err != nil {
		return MoveResult{}, err
	}
	return res, nil
}

func (r *PostgresRepository) moveTaskTx(ctx context.Context, taskID, toListID string, toIndex int, res *MoveResult) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	t, err := scanTask(tx.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID))
	if err != nil {
		return err
	}
	res.FromListID = t.ListID
	res.ToListID = toListID

	srcIDs, err := lockListIDs(ctx, tx, t.ListID)
	if err != nil {
		return err
	}

	var plan MovePlan
	var ok bool
	if toListID == t.ListID {
		plan, ok = PlanSameListMove(srcIDs, taskID, toIndex)
	} else {
		dstIDs, err := lockListIDs(ctx, tx, toListID)
		if err != nil {
			return err
		}
		plan, ok = PlanCrossListMove(srcIDs, dstIDs, taskID, toIndex)
	}
	if !ok {
		return ErrNotFound
	}

	if err := applyOrdering(ctx, tx, t.ListID, plan.Source); err != nil {
		return err
	}
	if !plan.SameList {
		if err := applyOrdering(ctx, tx, toListID, plan.Dest); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx,
		`UPDATE tasks SET updated_at = now() WHERE id = $1`, taskID,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockListIDs(ctx context.Context, tx pgx.Tx, listID string) ([]string, error) {
	var ids []string
	err := tx.QueryRow(ctx,
		`SELECT task_ids FROM lists WHERE id = $1 FOR UPDATE`, listID,
	).Scan(&ids)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ids, nil
}

// applyOrdering rewrites one list to the planned ordering: every task takes
// its index as position and list_id, and the list's id array is replaced.
func applyOrdering(ctx context.Context, tx pgx.Tx, listID string, ordered []string) error {
	for i, id := range ordered {
		if _, err := tx.Exec(ctx,
			`UPDATE tasks SET list_id = $2, position = $3 WHERE id = $1`,
			id, listID, i,
		); err != nil {
			return err
		}
	}
	_, err := tx.Exec(ctx, `UPDATE lists SET task_ids = $2 WHERE id = $1`, listID, ordered)
	return err
}

// isReorderConflict recognizes the two ways Postgres aborts one of two
// concurrent moves: a serialization failure (40001), or a deadlock (40P01)
// when cross-list moves lock the same list pair in opposite orders. Both
// roll the loser back cleanly, so both are retryable.
func isReorderConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
