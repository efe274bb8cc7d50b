package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/horum"
	"github.com/hazyhaar/horum/dbopen"
)

func main() {
	// Local .env wins over nothing; real env always wins over both.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("horum")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/horum")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8086")
	v.SetDefault("db.path", "data/horum.db")
	v.SetDefault("upstream.url", "https://a.4cdn.org")
	v.SetDefault("boards", "")
	v.SetDefault("sync.interval", "5m")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("config file", "error", err)
			os.Exit(1)
		}
	}

	// Logging.
	var lvl slog.Level
	switch v.GetString("log.level") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := dbopen.Open(v.GetString("db.path"), dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	interval, err := time.ParseDuration(v.GetString("sync.interval"))
	if err != nil {
		slog.Error("sync interval", "error", err)
		os.Exit(1)
	}

	cfg := &horum.Config{
		UpstreamURL: v.GetString("upstream.url"),
		Boards:      splitBoards(v.GetString("boards")),
	}
	cfg.Monitor.Interval = interval
	cfg.Keyring.Keys = analysisKeys()

	svc, err := horum.New(db, cfg, logger)
	if err != nil {
		slog.Error("service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	svc.Start(ctx)

	// Daily board stats snapshot at midnight.
	sched := cron.New()
	if _, err := sched.AddFunc("0 0 * * *", func() {
		snapCtx, snapCancel := context.WithTimeout(context.Background(), time.Minute)
		defer snapCancel()
		if err := svc.SnapshotBoardStats(snapCtx); err != nil {
			slog.Error("stats snapshot", "error", err)
		}
	}); err != nil {
		slog.Error("cron", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	port := v.GetString("port")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// splitBoards parses a comma-separated board list; empty means discover.
func splitBoards(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	boards := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			boards = append(boards, b)
		}
	}
	return boards
}

// analysisKeys collects ANALYSIS_API_KEY_1..ANALYSIS_API_KEY_3 from the
// environment, skipping unset slots.
func analysisKeys() []string {
	var keys []string
	for _, name := range []string{"ANALYSIS_API_KEY_1", "ANALYSIS_API_KEY_2", "ANALYSIS_API_KEY_3"} {
		if k := os.Getenv(name); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
