package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/boardstream/project/internal/app/activity"
	"github.com/boardstream/project/internal/app/board"
	"github.com/boardstream/project/internal/app/boardapi"
	"github.com/boardstream/project/internal/app/comment"
	"github.com/boardstream/project/internal/app/identity"
	"github.com/boardstream/project/internal/app/task"
	"github.com/boardstream/project/internal/platform/auth"
	"github.com/boardstream/project/internal/platform/dbpool"
	"github.com/boardstream/project/internal/platform/env"
	"github.com/boardstream/project/internal/relay/dispatch"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("board-api exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.New(ctx, env.String("DATABASE_URL", env.DefaultDatabaseURL))
	if err != nil {
		return err
	}
	defer pool.Close()

	identityRepo := identity.NewPostgresRepository(pool)
	boardRepo := board.NewPostgresRepository(pool)
	taskRepo := task.NewPostgresRepository(pool)
	activityRepo := activity.NewPostgresRepository(pool)
	commentRepo := comment.NewPostgresRepository(pool)

	// Schema setup in foreign key order: users first, boards and lists next,
	// then everything referencing them.
	schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for _, ensure := range []func(context.Context) error{
		identityRepo.EnsureSchema,
		boardRepo.EnsureSchema,
		taskRepo.EnsureSchema,
		activityRepo.EnsureSchema,
		commentRepo.EnsureSchema,
	} {
		if err := ensure(schemaCtx); err != nil {
			return err
		}
	}

	authManager := auth.NewManager(
		env.String("JWT_SECRET", "dev-secret-change-me"),
		env.Duration("JWT_TTL", 0),
	)

	identitySvc := identity.NewService(identityRepo, authManager)
	boardSvc := board.NewService(boardRepo)
	taskSvc := task.NewService(taskRepo, boardRepo)
	activitySvc := activity.NewService(activityRepo, boardRepo)
	commentSvc := comment.NewService(commentRepo, boardRepo, taskRepo, identitySvc)

	events := dispatch.New(env.String("RELAY_URL", env.DefaultRelayURL), log)

	server := boardapi.NewServer(
		identitySvc, boardSvc, taskSvc, activitySvc, commentSvc,
		authManager, events, log,
	)

	addr := env.String("API_ADDR", env.DefaultAPIAddr)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("board-api listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
