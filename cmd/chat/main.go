package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"tripmate/internal/agent"
	"tripmate/internal/config"
	"tripmate/internal/contextmgr"
	"tripmate/internal/docstore"
	"tripmate/internal/index"
	"tripmate/internal/legacy"
	"tripmate/internal/provider"
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
	logger := zap.NewNop()

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
		fmt.Fprintf(os.Stderr, "transcript archive unavailable: %v\n", err)
		archive = nil
	} else {
		defer func() { _ = archive.Close() }()
	}

	engine := agent.NewEngine(prov, assembler, newRegistryFactory(store, retriever), archive, cfg.Agent.MaxIterations, logger)
	engine.SetDegradedResponder(legacy.NewResponder(store, logger))
	sess := session.New()

	historyPath := filepath.Join(filepath.Dir(cfg.Storage.ArchivePath), "chat.history")
	input, inputErr := newLineInput(historyPath)
	if inputErr != nil {
		fmt.Fprintf(os.Stderr, "line editor unavailable, fallback to basic input: %v\n", inputErr)
	}
	defer input.Close()

	styles := defaultTheme()
	fmt.Println(styles.title.Render("tripmate") + " — travel planning assistant")
	fmt.Println(styles.info.Render(fmt.Sprintf("model=%s documents=%s", cfg.Provider.Model, cfg.Storage.DocumentsDir)))
	printCommands(os.Stdout, styles)

	for {
		line, err := input.ReadLine("you> ")
		if err != nil {
			switch {
			case errors.Is(err, readline.ErrInterrupt):
				fmt.Println()
				continue
			case errors.Is(err, io.EOF):
				fmt.Fprintln(os.Stderr, "\nbye")
				return
			default:
				fmt.Fprintf(os.Stderr, "read input failed: %v\n", err)
				return
			}
		}
		message := strings.TrimSpace(line)
		if message == "" {
			continue
		}

		if strings.HasPrefix(message, "/") {
			if exit := handleCommand(message, engine, store, sess, styles); exit {
				return
			}
			continue
		}

		reply, err := engine.HandleChat(context.Background(), sess, message)
		if err != nil {
			fmt.Println(styles.errText.Render(fmt.Sprintf("turn failed: %v", err)))
			continue
		}
		fmt.Println(renderMarkdown(reply.Answer, 100))
		showDocuments(store, reply, styles)
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

// showDocuments prints any document the turn asked the client to display.
func showDocuments(store *docstore.Store, reply agent.Reply, styles theme) {
	for _, filename := range []string{reply.ShowPlan, reply.ShowTodo, reply.ShowBudget} {
		if filename == "" {
			continue
		}
		content, err := store.ReadDocument(filename)
		if err != nil {
			continue
		}
		fmt.Println(styles.docName.Render("--- " + filename + " ---"))
		fmt.Println(content)
	}
}

func handleCommand(command string, engine *agent.Engine, store *docstore.Store, sess *session.Session, styles theme) bool {
	switch command {
	case "/exit", "/quit":
		return true
	case "/help":
		printCommands(os.Stdout, styles)
	case "/reset":
		if err := engine.ResetHistory(sess); err != nil {
			fmt.Println(styles.errText.Render(fmt.Sprintf("reset failed: %v", err)))
			return false
		}
		fmt.Println(styles.info.Render("conversation cleared"))
	case "/docs":
		summary, err := store.Summary()
		if err != nil {
			fmt.Println(styles.errText.Render(fmt.Sprintf("list documents failed: %v", err)))
			return false
		}
		fmt.Printf("%d travel plans, %d todo lists, %d budgets, %d other documents\n",
			len(summary.TravelPlans), len(summary.TodoLists), len(summary.Budgets), len(summary.Other))
	case "/plans":
		plans, err := store.ListPlans()
		if err != nil {
			fmt.Println(styles.errText.Render(fmt.Sprintf("list plans failed: %v", err)))
			return false
		}
		for _, p := range plans {
			fmt.Printf("%s  %s  %s\n", styles.docName.Render(p.Filename), p.Destination, p.Created.Format("2006-01-02 15:04"))
		}
	case "/todos":
		lists, err := store.ListTodoLists()
		if err != nil {
			fmt.Println(styles.errText.Render(fmt.Sprintf("list todos failed: %v", err)))
			return false
		}
		for _, l := range lists {
			fmt.Printf("%s  %s  %d/%d done\n", styles.docName.Render(l.Filename), l.Title, l.CompletedCount, l.ItemCount)
		}
	case "/budgets":
		budgets, err := store.ListBudgets()
		if err != nil {
			fmt.Println(styles.errText.Render(fmt.Sprintf("list budgets failed: %v", err)))
			return false
		}
		for _, b := range budgets {
			fmt.Printf("%s  %s  $%.2f\n", styles.docName.Render(b.Filename), b.Title, b.TotalAmount)
		}
	default:
		fmt.Println(styles.info.Render("unknown command; /help lists commands"))
	}
	return false
}

func printCommands(out io.Writer, styles theme) {
	fmt.Fprintln(out, styles.info.Render("commands: /docs /plans /todos /budgets /reset /help /exit"))
}
