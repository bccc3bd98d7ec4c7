package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/config"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/rating"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/recommendation"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/round"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/notify"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/sqlite"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/transport"
)

var rootCmd = &cobra.Command{
	Use:   "clube-server",
	Short: "Round engine for the club's recommendation exchanges",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logWriter := io.Writer(os.Stdout)
	if logPath := os.Getenv("CLUBE_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	hub := notify.NewHub(logger)
	defer hub.Close()

	roundRepo := sqlite.NewRoundRepository(db)
	roundSvc := round.NewService(roundRepo, hub, logger)
	recommendationSvc := recommendation.NewService(
		sqlite.NewRecommendationRepository(db), roundRepo, nil, hub, logger)
	ratingSvc := rating.NewService(
		sqlite.NewRatingRepository(db), roundRepo, nil, hub, logger)

	resolver := &apiKeyResolver{db: db}
	router := transport.NewServer(roundSvc, recommendationSvc, ratingSvc, hub,
		logger, cfg.Invite.BaseURL, transport.AuthMiddleware(resolver))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(ctx, logger, httpServer)
	return nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(ctx context.Context, logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	if _, err := w.file.Seek(size-keepLogSizeBytes, io.SeekStart); err != nil {
		return err
	}
	n, err := w.file.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}

// apiKeyResolver maps hashed bearer tokens onto member identities and role
// flags.
type apiKeyResolver struct {
	db *sqlite.DB
}

func (r *apiKeyResolver) ResolveActor(ctx context.Context, token string) (round.Actor, error) {
	hash := hashToken(token)
	var actor round.Actor
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, is_owner, is_moderator FROM api_keys WHERE key_hash = ?
	`, hash).Scan(&actor.UserID, &actor.IsOwner, &actor.IsModerator)
	if err != nil || actor.UserID == 0 {
		return round.Actor{}, fmt.Errorf("unauthorized: invalid token")
	}
	return actor, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
