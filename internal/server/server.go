package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"reactionduel/internal/broadcast"
	"reactionduel/internal/config"
	"reactionduel/internal/engine"
	"reactionduel/internal/logging"
	"reactionduel/internal/metrics"
	"reactionduel/internal/repo"
	"reactionduel/internal/wshub"
)

type Server struct {
	Engine  *engine.Engine
	Hub     *wshub.Hub
	Metrics *metrics.Metrics
	DB      *repo.Postgres // nil when running on in-memory storage
	Log     *zap.SugaredLogger
}

func Run() error {
	cfg := config.Load()
	log := logging.New(cfg.LogFile)
	defer log.Sync()

	m := metrics.New()
	hub := wshub.NewHub(m, log)

	var store repo.Repository
	var pg *repo.Postgres
	if cfg.DatabaseURL != "" {
		database, err := repo.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Warnw("database unavailable, running on in-memory storage", "err", err)
		} else if err := database.Migrate(); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		} else {
			pg = database
			log.Infow("database connected, migrations applied")
		}
	} else {
		log.Infow("DATABASE_URL not set, running on in-memory storage")
	}
	if pg != nil {
		store = pg
	} else {
		store = repo.NewMemory()
	}

	bc := broadcast.New(store, hub, m, log)
	eng := engine.New(store, bc, engine.NewTargetGenerator(), clockwork.NewRealClock(), log)

	srv := &Server{
		Engine:  eng,
		Hub:     hub,
		Metrics: m,
		DB:      pg,
		Log:     log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.handleWS)
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/metrics", m.Handler)

	httpSrv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server listening on :%s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Infow("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownGraceSecs)*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if pg != nil {
		if err := pg.Close(); err != nil {
			log.Warnw("closing database", "err", err)
		}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"db_error","error":"%s"}`, err.Error())
			return
		}
	}
	fmt.Fprint(w, `{"status":"ok"}`)
}
