package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"habit-coach/internal/model"
)

// UserService is the slice of the user repository the HTTP surface needs.
type UserService interface {
	EnsureRegistered(ctx context.Context, telegramID string, p model.Profile) (*model.User, bool, error)
	Get(ctx context.Context, telegramID string) (*model.User, error)
	AdjustExperience(ctx context.Context, telegramID string, delta int) (*model.User, error)
	ReplaceLegacyGoals(ctx context.Context, telegramID string, goals []string) error
}

// ProgressService creates today's progress document on demand.
type ProgressService interface {
	CreateForToday(ctx context.Context, telegramID string) (bool, error)
}

// Reminder delivers one user's task list synchronously.
type Reminder interface {
	RemindUser(ctx context.Context, user *model.User) error
}

// Server exposes the operational HTTP API next to the chat transport.
type Server struct {
	http     *http.Server
	users    UserService
	progress ProgressService
	reminder Reminder
}

func New(addr string, users UserService, progress ProgressService, reminder Reminder) *Server {
	s := &Server{users: users, progress: progress, reminder: reminder}
	s.http = &http.Server{
		Handler:      handlers.LoggingHandler(os.Stdout, recoveryMiddleware(s.Router())),
		Addr:         addr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Router builds the route table. Exposed separately so tests can drive it
// without a listener.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/users", s.createUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}", s.getUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/goals", s.replaceGoals).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/level/inc", s.adjustLevel(+1)).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/level/dec", s.adjustLevel(-1)).Methods(http.MethodPut)
	r.HandleFunc("/goals/create-progress", s.createProgress).Methods(http.MethodPost)
	r.HandleFunc("/goals/day-tasks", s.dayTasks).Methods(http.MethodGet)
	return r
}

func (s *Server) Start() error {
	log.Printf("[info] http server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type userResponse struct {
	TelegramID    string   `json:"telegram_id"`
	FirstName     string   `json:"first_name"`
	LastName      string   `json:"last_name,omitempty"`
	Username      string   `json:"username"`
	Language      string   `json:"language"`
	Exp           int      `json:"exp"`
	Level         int      `json:"level"`
	LongTermGoals []string `json:"long_term_goals,omitempty"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		TelegramID:    u.TelegramID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Username:      u.Username,
		Language:      u.Language,
		Exp:           u.Exp,
		Level:         u.Level,
		LongTermGoals: u.LongTermGoals,
	}
}

type createUserRequest struct {
	TelegramID string `json:"telegram_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Language   string `json:"language"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TelegramID == "" {
		writeError(w, http.StatusBadRequest, "telegram_id is required")
		return
	}

	user, created, err := s.users.EnsureRegistered(r.Context(), req.TelegramID, model.Profile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Language:  req.Language,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !created {
		writeError(w, http.StatusBadRequest, "user already registered")
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) replaceGoals(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goals []string `json:"goals"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.users.ReplaceLegacyGoals(r.Context(), id, req.Goals); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// adjustLevel handles both /level/inc and /level/dec; sign picks direction.
func (s *Server) adjustLevel(sign int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount int `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Amount < 0 {
			writeError(w, http.StatusBadRequest, "amount must be non-negative")
			return
		}

		user, err := s.users.AdjustExperience(r.Context(), mux.Vars(r)["id"], sign*req.Amount)
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

func (s *Server) createProgress(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("telegram_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "telegram_id is required")
		return
	}

	created, err := s.progress.CreateForToday(r.Context(), id)
	if err != nil {
		// Duplicate included: the caller asked for a create that cannot happen.
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"created": created})
}

func (s *Server) dayTasks(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("telegram_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "telegram_id is required")
		return
	}

	user, err := s.users.Get(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.reminder.RemindUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[warn] panic recovered: %v", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[warn] write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
