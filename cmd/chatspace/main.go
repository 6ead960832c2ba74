package main

import (
	"chatspace/contract"
	"chatspace/domain/event"
	"chatspace/internal"
	"chatspace/moderation"
	"chatspace/repositories"
	"chatspace/runtime"
	"chatspace/search"
	"chatspace/services"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the calling shell.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type directory interface {
	contract.DirectoryStore
	internal.Dumper
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatspace terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the session and the terminal client, and returns the exit code.
// Every defer runs before main calls os.Exit.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Directory store
	store, closeStore, err := openStore(ctx, config, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer closeStore()

	if config.DebugPort > 0 {
		internal.StartDebugServer(ctx, logger, config.DebugPort, store)
	}

	// 4. Search index & content filter
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	index := search.NewIndex(logger, writer)
	defer func() {
		logger.Debug("Closing search index...")
		_ = index.Close()
	}()

	moderator, err := moderation.NewModerator(config.Words(), charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("failed to build content filter: %w", err)
	}

	// 5. Session
	uid := config.UID
	if uid == "" {
		uid = uuid.NewString()
		logger.Info("No CHATSPACE_UID set, using an ephemeral identity", "uid", uid)
	}
	session := runtime.NewSession(logger, store, runtime.Account{UID: uid, PhotoURL: config.PhotoURL}, config.RestartInterval).
		AddSink(event.Messages, index)
	if err := session.Start(ctx); err != nil {
		return exitRuntime, fmt.Errorf("session failed to start: %w", err)
	}
	defer session.Stop()

	service, err := services.NewChatService(logger, store, session)
	if err != nil {
		return exitRuntime, err
	}
	service.WithSearcher(index).WithCensor(moderator)

	// 6. Terminal client, until /quit, EOF or a signal
	if err := newClient(service, session, os.Stdout, config.SearchLimit).Run(ctx, os.Stdin); err != nil {
		return exitRuntime, err
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func openStore(ctx context.Context, config internal.Config, logger *slog.Logger) (directory, func(), error) {
	switch config.StoreBackend {
	case internal.BackendRedis:
		store, err := repositories.NewRedisStore(ctx, config.RedisURL, logger, config.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		return repositories.NewBadgerStore(db, logger, config.Namespace), func() {
			logger.Debug("Closing BadgerDB...")
			_ = db.Close()
		}, nil
	}
}
