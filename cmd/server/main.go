package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tripmate/internal/agent"
	"tripmate/internal/config"
	"tripmate/internal/contextmgr"
	"tripmate/internal/docstore"
	"tripmate/internal/index"
	"tripmate/internal/legacy"
	"tripmate/internal/provider"
	"tripmate/internal/server"
	"tripmate/internal/session"
	"tripmate/internal/tools"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config JSON/JSONC")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	store := docstore.New(cfg.Storage.DocumentsDir)
	retriever := index.NewRetriever(store, index.NewBleveSearcher(), cfg.Retrieval.SimilarityThreshold, cfg.Retrieval.TopK)
	assembler := contextmgr.New(retriever, store, cfg.Agent.HistoryWindow)

	prov := provider.NewOpenAIProvider(provider.OpenAIConfig{
		BaseURL:    cfg.Provider.BaseURL,
		APIKey:     cfg.Provider.APIKey,
		Model:      cfg.Provider.Model,
		TimeoutMS:  cfg.Provider.TimeoutMS,
		MaxRetries: cfg.Provider.MaxRetries,
	})

	archive, err := session.NewArchive(cfg.Storage.ArchivePath)
	if err != nil {
		// The server still works without the archive; /history just won't survive restarts.
		logger.Warn("transcript archive unavailable", zap.Error(err))
		archive = nil
	} else {
		defer func() { _ = archive.Close() }()
	}

	engine := agent.NewEngine(prov, assembler, newRegistryFactory(store, retriever), archive, cfg.Agent.MaxIterations, logger)
	engine.SetDegradedResponder(legacy.NewResponder(store, logger))

	// The server runs one long-lived conversation under a stable id so the
	// archived transcript reattaches after a restart.
	sess := session.NewWithID("server")
	if archive != nil {
		if turns, err := archive.History(sess.ID()); err != nil {
			logger.Warn("restore archived history", zap.Error(err))
		} else if len(turns) > 0 {
			sess.Restore(turns)
			logger.Info("restored archived history", zap.Int("turns", len(turns)))
		}
	}

	srv := server.New(engine, store, retriever, sess, cfg.Server.FrontendOrigin, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("server listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("model", cfg.Provider.Model),
		zap.String("documents", cfg.Storage.DocumentsDir))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newRegistryFactory(store *docstore.Store, retriever *index.Retriever) agent.RegistryFactory {
	return func(active tools.ActiveTracker) *tools.Registry {
		return tools.NewRegistry(
			tools.NewCreateTodoListTool(store, active, retriever),
			tools.NewAddTodoItemTool(store, active, retriever),
			tools.NewCreateTravelPlanTool(store, active, retriever),
			tools.NewCreateBudgetTool(store, active, retriever),
			tools.NewAddBudgetItemTool(store, active, retriever),
			tools.NewListDocumentsTool(store),
			tools.NewReadDocumentTool(store),
			tools.NewSearchDocumentsTool(retriever),
			tools.NewDocumentStatsTool(store),
			tools.NewShowDocumentTool(store, active),
			tools.NewFinalAnswerTool(),
		)
	}
}
