package boardapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/boardstream/project/internal/app/task"
	"github.com/boardstream/project/internal/contracts"
)

type taskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssigneeID  string     `json:"assigneeId"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

func (t taskRequest) params() task.UpdateParams {
	return task.UpdateParams{
		Title:       t.Title,
		Description: t.Description,
		AssigneeID:  t.AssigneeID,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
	}
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.Tasks.Create(r.Context(), actor(r), chi.URLParam(r, "listID"), req.params())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Events.Send(r.Context(), contracts.EventTaskCreated, t.BoardID, t)
	s.recordActivity(r.Context(), t.BoardID, actor(r).ID, "task.created", "task", t.ID, t.Title)
	s.writeJSON(w, r, http.StatusCreated, t)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.Tasks.Get(r.Context(), actor(r), chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) handleBoardTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.Tasks.ByBoard(r.Context(), actor(r), chi.URLParam(r, "boardID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, tasks)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.Tasks.Update(r.Context(), actor(r), chi.URLParam(r, "taskID"), req.params())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Events.Send(r.Context(), contracts.EventTaskUpdated, t.BoardID, t)
	s.recordActivity(r.Context(), t.BoardID, actor(r).ID, "task.updated", "task", t.ID, t.Title)
	s.writeJSON(w, r, http.StatusOK, t)
}

type moveRequest struct {
	ToListID string `json:"toListId"`
	ToIndex  int    `json:"toIndex"`
}

func (s *Server) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Tasks.Move(r.Context(), actor(r), chi.URLParam(r, "taskID"), req.ToListID, req.ToIndex)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Events.Send(r.Context(), contracts.EventTaskMoved, res.Task.BoardID, res)
	s.recordActivity(r.Context(), res.Task.BoardID, actor(r).ID, "task.moved", "task", res.Task.ID, res.Task.Title)
	s.writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.Tasks.Delete(r.Context(), actor(r), chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Events.Send(r.Context(), contracts.EventTaskDeleted, t.BoardID, map[string]string{
		"taskId": t.ID,
		"listId": t.ListID,
	})
	s.recordActivity(r.Context(), t.BoardID, actor(r).ID, "task.deleted", "task", t.ID, t.Title)
	s.writeJSON(w, r, http.StatusOK, map[string]string{"id": t.ID})
}
