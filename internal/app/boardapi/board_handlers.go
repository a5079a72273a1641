package boardapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type boardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var req boardRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.Boards.Create(r.Context(), actor(r), req.Title, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.recordActivity(r.Context(), b.ID, actor(r).ID, "board.created", "board", b.ID, b.Title)
	s.writeJSON(w, r, http.StatusCreated, b)
}

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.Boards.ListVisible(r.Context(), actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, boards)
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := s.Boards.Get(r.Context(), actor(r), chi.URLParam(r, "boardID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, b)
}

func (s *Server) handleUpdateBoard(w http.ResponseWriter, r *http.Request) {
	var req boardRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.Boards.Update(r.Context(), actor(r), chi.URLParam(r, "boardID"), req.Title, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.recordActivity(r.Context(), b.ID, actor(r).ID, "board.updated", "board", b.ID, b.Title)
	s.writeJSON(w, r, http.StatusOK, b)
}

func (s *Server) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	b, err := s.Boards.Delete(r.Context(), actor(r), chi.URLParam(r, "boardID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Log.Info("board deleted",
		zap.String("boardId", b.ID),
		zap.String("actorId", actor(r).ID))
	// The activities table has no board FK, so the entry outlives the board.
	s.recordActivity(r.Context(), b.ID, actor(r).ID, "board.deleted", "board", b.ID, b.Title)
	s.writeJSON(w, r, http.StatusOK, map[string]string{"id": b.ID})
}

func (s *Server) handleActivityFeed(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Activity.Feed(r.Context(), actor(r), chi.URLParam(r, "boardID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, entries)
}

type memberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	// The user must exist before touching the member list.
	u, err := s.Identity.GetUser(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	boardID := chi.URLParam(r, "boardID")
	b, err := s.Boards.AddMember(r.Context(), actor(r), boardID, req.UserID, req.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.recordActivity(r.Context(), boardID, actor(r).ID, "member.added", "user", u.ID, u.Name)
	s.writeJSON(w, r, http.StatusOK, b)
}

func (s *Server) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	boardID := chi.URLParam(r, "boardID")
	userID := chi.URLParam(r, "userID")
	b, err := s.Boards.UpdateMemberRole(r.Context(), actor(r), boardID, userID, req.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.recordActivity(r.Context(), boardID, actor(r).ID, "member.role_changed", "user", userID, req.Role)
	s.writeJSON(w, r, http.StatusOK, b)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	userID := chi.URLParam(r, "userID")
	b, err := s.Boards.RemoveMember(r.Context(), actor(r), boardID, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.recordActivity(r.Context(), boardID, actor(r).ID, "member.removed", "user", userID, "")
	s.writeJSON(w, r, http.StatusOK, b)
}

type listRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	boardID := chi.URLParam(r, "boardID")
	l, err := s.Boards.CreateList(r.Context(), actor(r), boardID, req.Title)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.recordActivity(r.Context(), boardID, actor(r).ID, "list.created", "list", l.ID, l.Title)
	s.writeJSON(w, r, http.StatusCreated, l)
}

func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.Boards.Lists(r.Context(), actor(r), chi.URLParam(r, "boardID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, lists)
}

func (s *Server) handleRenameList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.Boards.RenameList(r.Context(), actor(r), chi.URLParam(r, "listID"), req.Title)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.recordActivity(r.Context(), l.BoardID, actor(r).ID, "list.renamed", "list", l.ID, l.Title)
	s.writeJSON(w, r, http.StatusOK, l)
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	l, err := s.Boards.DeleteList(r.Context(), actor(r), chi.URLParam(r, "listID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.recordActivity(r.Context(), l.BoardID, actor(r).ID, "list.deleted", "list", l.ID, l.Title)
	s.writeJSON(w, r, http.StatusOK, map[string]string{"id": l.ID})
}
