package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medical-voice-agent/internal/config"
	"medical-voice-agent/internal/core"
	"medical-voice-agent/internal/db"
	httpserver "medical-voice-agent/internal/http"
	"medical-voice-agent/internal/llm"
	"medical-voice-agent/internal/logging"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()
	logging.Init()
	defer logging.Sync()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}
	if cfg.OpenAIAPIKey == "" {
		logging.Warnw("OPENAI_API_KEY is not set; report and suggestion requests will fail")
	}

	dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer dbConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	if err := db.Migrate(ctx, dbConn); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	repo := db.NewRepository(dbConn)
	notifier := db.NewNotifier(dbConn, cfg.DatabaseURL, cfg.NotifyChannel)

	llmClient := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ReportModel)
	reports := core.NewReportGenerator(llmClient, cfg.ReportModel, cfg.ReportMaxTokens)
	suggester := core.NewDoctorSuggester(llmClient, cfg.SuggestModel, cfg.SuggestMaxTokens)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpserver.NewServer(repo, reports, suggester, notifier, core.Doctors),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer done()
	go func() {
		<-stop.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Errorw("shutdown failed", "err", err)
		}
	}()

	logging.Infow("listening", "addr", srv.Addr, "report_model", cfg.ReportModel, "notify_channel", cfg.NotifyChannel)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
