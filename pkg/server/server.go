// Package server exposes the engine over HTTP for a UI shell: stat
// mutations, the achievement listing, banner state and a websocket stream
// of banner transitions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daviddao/badgekeeper/pkg/achievement"
	"github.com/daviddao/badgekeeper/pkg/banner"
	"github.com/daviddao/badgekeeper/pkg/engine"
	"github.com/daviddao/badgekeeper/pkg/model"
	"github.com/daviddao/badgekeeper/pkg/store"
)

var upgrader = websocket.Upgrader{
	// The UI is served from a different origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server routes HTTP requests to an engine.
type Server struct {
	eng     *engine.Engine
	gather  prometheus.Gatherer
	logger  *log.Logger
	router  *mux.Router
	handler http.Handler

	// mu orders wg.Add in handleWS against Close.
	mu       sync.Mutex
	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
}

// New builds the router. gather backs /metrics; nil omits the route.
func New(eng *engine.Engine, gather prometheus.Gatherer, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{eng: eng, gather: gather, logger: logger, router: mux.NewRouter(), quit: make(chan struct{})}
	s.routes()

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	s.handler = handlers.LoggingHandler(logger.Writer(), cors(s.router))
	return s
}

func (s *Server) routes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/session", s.handleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/session", s.handlePutSession).Methods(http.MethodPut)
	r.HandleFunc("/session", s.handleDeleteSession).Methods(http.MethodDelete)

	r.HandleFunc("/achievements", s.handleAchievements).Methods(http.MethodGet)
	r.HandleFunc("/achievements/check", s.handleCheck).Methods(http.MethodPost)

	r.HandleFunc("/counters/{key}/increment", s.handleIncrement).Methods(http.MethodPost)
	r.HandleFunc("/counters/{key}", s.handleSetCounter).Methods(http.MethodPut)
	r.HandleFunc("/sets/{key}", s.handleAddMember).Methods(http.MethodPost)
	r.HandleFunc("/flags/{id}", s.handleFlag).Methods(http.MethodPost)
	r.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)

	r.HandleFunc("/banner", s.handleBanner).Methods(http.MethodGet)
	r.HandleFunc("/banner/flush", s.handleFlush).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWS)

	if s.gather != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Printf("server: listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close ends open websocket streams and waits for them.
func (s *Server) Close() {
	s.mu.Lock()
	s.quitOnce.Do(func() { close(s.quit) })
	s.mu.Unlock()
	s.wg.Wait()
}

// --- Helpers ---

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"error": msg})
}

// decodeBody decodes an optional JSON body; an empty body leaves v alone.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeErr maps engine errors to status codes.
func writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNoUser) {
		respondError(w, http.StatusConflict, "no user signed in")
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

type unlockResponse struct {
	Unlocked []string `json:"unlocked"`
}

func unlocked(ids []string) unlockResponse {
	if ids == nil {
		ids = []string{}
	}
	return unlockResponse{Unlocked: ids}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"user_id": s.eng.CurrentUser()})
}

func (s *Server) handlePutSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if prev := s.eng.CurrentUser(); prev != "" && prev != req.UserID {
		if _, err := s.eng.Queue().Flush(); err != nil {
			s.logger.Printf("server: flush banners for %s: %v", prev, err)
		}
	}
	s.eng.SetCurrentUser(req.UserID)
	ids := s.eng.CheckUnlocks()
	s.eng.RefreshAsync(context.Background())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  req.UserID,
		"unlocked": unlocked(ids).Unlocked,
	})
}

// handleDeleteSession clears the signed-in user's data and signs out.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.ClearUserData(); err != nil {
		writeErr(w, err)
		return
	}
	s.eng.SetCurrentUser("")
	w.WriteHeader(http.StatusNoContent)
}

type achievementJSON struct {
	ID          string         `json:"id"`
	Category    model.Category `json:"category"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Requirement int64          `json:"requirement"`
	Progress    int64          `json:"progress"`
	Unlocked    bool           `json:"unlocked"`
	Secret      bool           `json:"secret"`
	ShowsCount  bool           `json:"shows_progress_count"`
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	views := s.eng.BuildAchievements()
	if r.URL.Query().Get("all") != "1" {
		views = achievement.Visible(views)
	}
	out := make([]achievementJSON, len(views))
	for i, v := range views {
		out[i] = achievementJSON{
			ID:          v.ID,
			Category:    v.Category,
			Title:       v.DisplayTitle(),
			Description: v.DisplayDescription(),
			Requirement: v.Requirement,
			Progress:    v.Progress,
			Unlocked:    v.Unlocked,
			Secret:      v.Secret,
			ShowsCount:  v.ShowsProgressCount,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, unlocked(s.eng.CheckUnlocks()))
}

func (s *Server) handleIncrement(w http.ResponseWriter, r *http.Request) {
	key := model.StatKey(mux.Vars(r)["key"])
	if !model.IsCounter(key) {
		respondError(w, http.StatusNotFound, "unknown counter "+string(key))
		return
	}
	req := struct {
		Delta int64 `json:"delta"`
	}{Delta: 1}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ids, err := s.eng.RecordIncrement(key, req.Delta)
	if err != nil {
		writeErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, unlocked(ids))
}

func (s *Server) handleSetCounter(w http.ResponseWriter, r *http.Request) {
	key := model.StatKey(mux.Vars(r)["key"])
	if !model.IsCounter(key) {
		respondError(w, http.StatusNotFound, "unknown counter "+string(key))
		return
	}
	var req struct {
		Value *int64 `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil || req.Value == nil {
		respondError(w, http.StatusBadRequest, "body must be {\"value\": N}")
		return
	}
	ids, err := s.eng.RecordSet(key, *req.Value)
	if err != nil {
		writeErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, unlocked(ids))
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	key := model.StatKey(mux.Vars(r)["key"])
	if !model.IsSet(key) {
		respondError(w, http.StatusNotFound, "unknown set "+string(key))
		return
	}
	var req struct {
		Member string `json:"member"`
	}
	if err := decodeBody(r, &req); err != nil || req.Member == "" {
		respondError(w, http.StatusBadRequest, "body must be {\"member\": \"...\"}")
		return
	}
	ids, err := s.eng.RecordMember(key, req.Member)
	if err != nil {
		writeErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, unlocked(ids))
}

func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.eng.SetFlag(id); err != nil {
		if errors.Is(err, store.ErrNoUser) {
			writeErr(w, err)
			return
		}
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, unlocked(s.eng.CheckUnlocks()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	stats, ids := s.eng.Refresh(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"remote":   stats,
		"unlocked": unlocked(ids).Unlocked,
	})
}

type bannerState struct {
	State   string        `json:"state"`
	Current *model.Banner `json:"current,omitempty"`
	Pending int           `json:"pending"`
}

func (s *Server) currentBanner() bannerState {
	q := s.eng.Queue()
	st := bannerState{State: q.State().String(), Pending: q.Len()}
	if b, ok := q.Current(); ok {
		st.Current = &b
	}
	return st
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.currentBanner())
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	n, err := s.eng.Queue().Flush()
	if err != nil {
		writeErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"dropped": n})
}

// handleWS streams banner events. The first message is the current state
// as a synthetic "snapshot" event so a client can render immediately.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		respondError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	default:
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// Buffered so a slow client never blocks the queue goroutine; events
	// past the buffer are dropped for that client.
	events := make(chan banner.Event, 32)
	unsub := s.eng.Queue().Subscribe(func(e banner.Event) {
		select {
		case events <- e:
		default:
		}
	})
	defer unsub()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	cur := s.currentBanner()
	first := map[string]interface{}{"kind": "snapshot", "state": cur.State, "pending": cur.Pending}
	if cur.Current != nil {
		first["banner"] = cur.Current
	}
	if err := conn.WriteJSON(first); err != nil {
		return
	}
	for {
		select {
		case e := <-events:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-closed:
			return
		case <-s.quit:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}
