// Package boardapi is the HTTP surface of the command tier. Handlers decode,
// call a service, map the error to a status, and hand side effects (activity
// log, relay fan-out) to best-effort helpers after the write committed.
package boardapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/boardstream/project/internal/app/activity"
	"github.com/boardstream/project/internal/app/authz"
	"github.com/boardstream/project/internal/app/board"
	"github.com/boardstream/project/internal/app/comment"
	"github.com/boardstream/project/internal/app/identity"
	"github.com/boardstream/project/internal/app/task"
	"github.com/boardstream/project/internal/contracts"
	"github.com/boardstream/project/internal/platform/auth"
	"github.com/boardstream/project/internal/platform/metrics"
)

// EventSink delivers events to the relay. Implementations must be safe to
// call from request goroutines and must never block a response on delivery.
type EventSink interface {
	Send(ctx context.Context, event, boardID string, data any)
}

type Server struct {
	Identity *identity.Service
	Boards   *board.Service
	Tasks    *task.Service
	Activity *activity.Service
	Comments *comment.Service
	Auth     auth.Manager
	Events   EventSink
	Log      *zap.Logger

	requests *metrics.CounterVec
}

func NewServer(
	identitySvc *identity.Service,
	boardSvc *board.Service,
	taskSvc *task.Service,
	activitySvc *activity.Service,
	commentSvc *comment.Service,
	authManager auth.Manager,
	events EventSink,
	log *zap.Logger,
) *Server {
	requests := metrics.NewCounterVec(metrics.Opts{
		Name: "boardapi_requests_total",
		Help: "API requests by method and status.",
	}, []string{"method", "status"})
	metrics.Default.MustRegister(requests)

	return &Server{
		Identity: identitySvc,
		Boards:   boardSvc,
		Tasks:    taskSvc,
		Activity: activitySvc,
		Comments: commentSvc,
		Auth:     authManager,
		Events:   events,
		Log:      log,
		requests: requests,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.DefaultHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/users/me", s.handleMe)
			r.Get("/users", s.handleUserSearch)

			r.Route("/boards", func(r chi.Router) {
				r.Get("/", s.handleListBoards)
				r.Post("/", s.handleCreateBoard)
				r.Route("/{boardID}", func(r chi.Router) {
					r.Get("/", s.handleGetBoard)
					r.Patch("/", s.handleUpdateBoard)
					r.Delete("/", s.handleDeleteBoard)
					r.Get("/activity", s.handleActivityFeed)
					r.Get("/lists", s.handleLists)
					r.Post("/lists", s.handleCreateList)
					r.Get("/tasks", s.handleBoardTasks)
					r.Post("/members", s.handleAddMember)
					r.Patch("/members/{userID}", s.handleUpdateMemberRole)
					r.Delete("/members/{userID}", s.handleRemoveMember)
				})
			})

			r.Route("/lists/{listID}", func(r chi.Router) {
				r.Patch("/", s.handleRenameList)
				r.Delete("/", s.handleDeleteList)
				r.Post("/tasks", s.handleCreateTask)
			})

			r.Route("/tasks/{taskID}", func(r chi.Router) {
				r.Get("/", s.handleGetTask)
				r.Patch("/", s.handleUpdateTask)
				r.Delete("/", s.handleDeleteTask)
				r.Post("/move", s.handleMoveTask)
				r.Get("/comments", s.handleTaskComments)
				r.Post("/comments", s.handleCreateComment)
			})

			r.Delete("/comments/{commentID}", s.handleDeleteComment)

			r.Get("/notifications", s.handleNotifications)
			r.Post("/notifications/{notificationID}/read", s.handleMarkNotificationRead)
		})
	})
	return r
}

type contextKey string

const claimsKey contextKey = "claims"

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			s.writeError(w, r, auth.ErrInvalidToken)
			return
		}
		claims, err := s.Auth.Parse(token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// actor builds the authorization view of the caller from token claims.
func actor(r *http.Request) authz.User {
	claims, _ := r.Context().Value(claimsKey).(auth.Claims)
	role, ok := authz.ParseRole(claims.Role)
	if !ok {
		role = authz.RoleMember
	}
	return authz.User{ID: claims.Subject, GlobalRole: role}
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errBadJSON
	}
	return nil
}

var errBadJSON = errors.New("invalid request body")

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			s.Log.Warn("response encode failed", zap.Error(err))
		}
	}
	if s.requests != nil {
		s.requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		s.writeJSON(w, r, status, errorBody{Error: "internal error"})
		return
	}
	s.writeJSON(w, r, status, errorBody{Error: err.Error()})
}

// statusFor maps service errors onto the HTTP contract. Missing resources
// take precedence over permission failures because the lookup happens first
// in every service, so a 403 never leaks resource existence.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrNotFound), errors.Is(err, board.ErrNotFound),
		errors.Is(err, task.ErrNotFound), errors.Is(err, comment.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrForbidden), errors.Is(err, task.ErrForbidden),
		errors.Is(err, activity.ErrForbidden), errors.Is(err, comment.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, task.ErrReorderConflict):
		return http.StatusConflict
	case errors.Is(err, errBadJSON),
		errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrInvalidName),
		errors.Is(err, identity.ErrInvalidPassword), errors.Is(err, identity.ErrEmailTaken),
		errors.Is(err, board.ErrTitleRequired), errors.Is(err, board.ErrInvalidRole),
		errors.Is(err, board.ErrAlreadyMember),
		errors.Is(err, task.ErrTitleRequired), errors.Is(err, task.ErrListMismatch),
		errors.Is(err, comment.ErrBodyRequired), errors.Is(err, comment.ErrBadParent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// recordActivity writes a feed entry and fans it out. Both steps are best
// effort, taken only after the mutation committed.
func (s *Server) recordActivity(ctx context.Context, boardID, actorID, action, targetType, targetID, details string) {
	entry, err := s.Activity.Record(ctx, boardID, actorID, action, targetType, targetID, details)
	if err != nil {
		s.Log.Warn("activity log failure",
			zap.String("boardId", boardID),
			zap.String("action", action),
			zap.Error(err))
		return
	}
	s.Events.Send(ctx, contracts.EventActivityCreated, boardID, entry)
}
