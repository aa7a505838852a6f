package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BuzzLyutic/todo-sync/internal/config"
	"github.com/BuzzLyutic/todo-sync/internal/handler"
	"github.com/BuzzLyutic/todo-sync/internal/notify"
	"github.com/BuzzLyutic/todo-sync/internal/repo"
	"github.com/BuzzLyutic/todo-sync/internal/repo/memory"
	"github.com/BuzzLyutic/todo-sync/internal/repo/postgres"
	"github.com/BuzzLyutic/todo-sync/internal/service"
)

func serveCmd() *cobra.Command {
	var (
		port    string
		backend string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg = cfg.WithOverrides(port, backend)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&backend, "store", "", "store backend: memory or postgres (overrides STORE_BACKEND)")

	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	var (
		store repo.TaskStore
		auth  repo.AuthProvider
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		store = memory.NewTaskStore()
		auth = memory.NewAuthProvider()
	case config.BackendPostgres:
		pool, err := connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer pool.Close() // Запланированное закрытие соединения

		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		dispatcher := notify.NewDispatcher(pool, logger, postgres.NotifyChannel)
		g.Go(func() error { return dispatcher.Run(gctx) })

		store = postgres.NewTaskStore(pool, dispatcher, logger)
		auth = postgres.NewAuthProvider(pool, 0)
	}

	tasks := service.NewTaskSync(store, auth, logger)
	defer tasks.Unsubscribe()
	session := service.NewAuthSession(auth, logger)

	// Shutdown не отменяет контексты запросов, стримы закрываем сами
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	srv := &http.Server{ // Создаем сервер
		Addr:        ":" + cfg.Port,
		Handler:     handler.NewRouter(tasks, session, logger),
		ReadTimeout: 10 * time.Second,
		// WriteTimeout не ставим: /api/tasks/stream держит соединение
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelRequests)

	g.Go(func() error { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("Shutdown error", zap.Error(err))
			return err
		}
		logger.Info("Server stopped successfully!")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", zap.Error(err))
		return err
	}
	return nil
}
