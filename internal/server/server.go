// Package server 对外的 HTTP 层：聊天入口加上文档资源的薄 CRUD 接口。
// Package server is the HTTP surface: the chat entrypoint plus thin CRUD
// endpoints over the document store.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"tripmate/internal/agent"
	"tripmate/internal/docstore"
	"tripmate/internal/index"
	"tripmate/internal/session"
)

// Server holds the wired application and serves it over HTTP. A single
// conversation session backs /chat and /history.
type Server struct {
	engine    *agent.Engine
	store     *docstore.Store
	retriever *index.Retriever
	sess      *session.Session
	logger    *zap.Logger

	frontendOrigin string
}

func New(engine *agent.Engine, store *docstore.Store, retriever *index.Retriever, sess *session.Session, frontendOrigin string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sess == nil {
		sess = session.New()
	}
	return &Server{
		engine:         engine,
		store:          store,
		retriever:      retriever,
		sess:           sess,
		logger:         logger,
		frontendOrigin: frontendOrigin,
	}
}

// Routes configures all endpoints and middleware.
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(s.requestLogger)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.frontendOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", s.health)

	router.Post("/chat", s.chat)
	router.Get("/history", s.getHistory)
	router.Delete("/history", s.clearHistory)

	router.Post("/documents", s.uploadDocument)
	router.Get("/documents/list", s.listAllDocuments)
	router.Post("/documents/search", s.searchDocuments)
	router.Get("/documents/read/{filename}", s.readDocument)

	router.Get("/travel-plans", s.listTravelPlans)
	router.Get("/travel-plans/{filename}", s.getTravelPlan)
	router.Delete("/travel-plans/{filename}", s.deleteTravelPlan)

	router.Get("/todo-lists", s.listTodoLists)
	router.Get("/todo-lists/{filename}", s.getTodoList)
	router.Put("/todo-lists/{filename}", s.updateTodoList)
	router.Delete("/todo-lists/{filename}", s.deleteTodoList)

	router.Get("/budgets", s.listBudgets)
	router.Get("/budgets/{filename}", s.getBudget)
	router.Put("/budgets/{filename}", s.updateBudget)
	router.Delete("/budgets/{filename}", s.deleteBudget)

	return router
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
