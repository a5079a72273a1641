package boardapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/boardstream/project/internal/contracts"
)

type commentRequest struct {
	Body     string `json:"body"`
	ParentID string `json:"parentId"`
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Comments.Create(r.Context(), actor(r), chi.URLParam(r, "taskID"), req.Body, req.ParentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c := res.Comment
	s.Events.Send(r.Context(), contracts.EventCommentCreated, c.BoardID, c)
	for _, n := range res.Notifications {
		s.Events.Send(r.Context(), contracts.EventNotificationCreated, n.BoardID, n)
	}
	s.recordActivity(r.Context(), c.BoardID, actor(r).ID, "comment.created", "task", c.TaskID, "")
	s.writeJSON(w, r, http.StatusCreated, c)
}

func (s *Server) handleTaskComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.Comments.ByTask(r.Context(), actor(r), chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, comments)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	c, err := s.Comments.Delete(r.Context(), actor(r), chi.URLParam(r, "commentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Events.Send(r.Context(), contracts.EventCommentDeleted, c.BoardID, map[string]string{
		"commentId": c.ID,
		"taskId":    c.TaskID,
	})
	s.writeJSON(w, r, http.StatusOK, map[string]string{"id": c.ID})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.Comments.Notifications(r.Context(), actor(r).ID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.Comments.MarkRead(r.Context(), chi.URLParam(r, "notificationID"), actor(r).ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]bool{"read": true})
}
