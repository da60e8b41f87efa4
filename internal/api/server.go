package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"soundboard/internal/library"
	"soundboard/internal/player"
	"soundboard/internal/storage"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// Deps wires the HTTP surface to the rest of the application.
type Deps struct {
	Orchestrator *player.Orchestrator
	Library      *library.Library
	Storage      *storage.Storage

	// FindUserGuild resolves which guild a user's voice channel belongs
	// to when the request does not name one.
	FindUserGuild func(userID string) (string, error)
}

// RunServer starts the soundboard REST API and respects ctx for graceful
// shutdown. It blocks until the server exits; run in a goroutine.
func RunServer(ctx context.Context, addr string, deps Deps) {
	s := &server{deps: deps, limiter: rate.NewLimiter(10, 20)}

	r := mux.NewRouter()
	r.Use(s.throttle)

	r.HandleFunc("/soundsApi/availableSounds", s.availableSounds).Methods(http.MethodGet)
	r.HandleFunc("/soundsApi/soundCategories", s.soundCategories).Methods(http.MethodGet)
	r.HandleFunc("/soundsApi/playEvents", s.playEvents).Methods(http.MethodGet)
	r.HandleFunc("/soundsApi/playFile", s.playFile).Methods(http.MethodPost)
	r.HandleFunc("/soundsApi/playUrl", s.playURL).Methods(http.MethodPost)
	r.HandleFunc("/soundsApi/playRandom", s.playRandom).Methods(http.MethodPost)
	r.HandleFunc("/soundsApi/stop", s.stop).Methods(http.MethodPost)
	r.HandleFunc("/soundsApi/volume", s.volume).Methods(http.MethodPost)

	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-ctx.Done()
		log.Println("[INFO] Shutting down API server...")
		srv.Shutdown(context.Background()) //nolint:errcheck
	}()

	log.Printf("[INFO] API server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		// Log the error but do NOT call log.Fatal — that would kill the whole process.
		log.Printf("[ERR] API server exited: %v", err)
	}
}

type server struct {
	deps    Deps
	limiter *rate.Limiter
}

// throttle caps the request rate across all clients. The engine has its
// own per-user cooldowns; this only protects the process itself.
func (s *server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type soundInfo struct {
	ID       string `json:"soundFileId"`
	Category string `json:"category"`
}

func (s *server) availableSounds(w http.ResponseWriter, r *http.Request) {
	clips := s.deps.Library.Clips()
	out := make([]soundInfo, 0, len(clips))
	for _, clip := range clips {
		out = append(out, soundInfo{ID: clip.ID, Category: clip.Category})
	}
	writeJSON(w, out)
}

func (s *server) soundCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.deps.Library.Categories())
}

func (s *server) playEvents(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.deps.Storage.RecentPlays(limit)
	if err != nil {
		http.Error(w, "could not read play history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func (s *server) playFile(w http.ResponseWriter, r *http.Request) {
	userID, guildID, ok := s.resolveTarget(w, r)
	if !ok {
		return
	}

	soundID := r.URL.Query().Get("soundFileId")
	if soundID == "" {
		http.Error(w, "soundFileId is required", http.StatusBadRequest)
		return
	}

	repeat := 1
	if raw := r.URL.Query().Get("repeatTimes"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 1 {
			repeat = n
		}
	}

	s.respond(w, s.deps.Orchestrator.PlayFile(r.Context(), guildID, userID, soundID, repeat))
}

func (s *server) playURL(w http.ResponseWriter, r *http.Request) {
	userID, guildID, ok := s.resolveTarget(w, r)
	if !ok {
		return
	}

	url := r.URL.Query().Get("url")
	if url == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	s.respond(w, s.deps.Orchestrator.PlayURL(r.Context(), guildID, userID, url))
}

func (s *server) playRandom(w http.ResponseWriter, r *http.Request) {
	userID, guildID, ok := s.resolveTarget(w, r)
	if !ok {
		return
	}
	s.respond(w, s.deps.Orchestrator.PlayRandom(r.Context(), guildID, userID))
}

func (s *server) stop(w http.ResponseWriter, r *http.Request) {
	guildID := r.URL.Query().Get("guildId")
	if guildID == "" {
		userID := r.URL.Query().Get("username")
		if userID == "" {
			http.Error(w, "guildId or username is required", http.StatusBadRequest)
			return
		}
		id, err := s.deps.FindUserGuild(userID)
		if err != nil {
			http.Error(w, "user is not in a voice channel", http.StatusNotFound)
			return
		}
		guildID = id
	}

	s.deps.Orchestrator.Stop(guildID)
	w.WriteHeader(http.StatusOK)
}

func (s *server) volume(w http.ResponseWriter, r *http.Request) {
	_, guildID, ok := s.resolveTarget(w, r)
	if !ok {
		return
	}

	level, err := strconv.Atoi(r.URL.Query().Get("volume"))
	if err != nil || level < 0 || level > 100 {
		http.Error(w, "volume must be between 0 and 100", http.StatusBadRequest)
		return
	}

	s.deps.Orchestrator.SetVolume(guildID, level)
	w.WriteHeader(http.StatusOK)
}

// resolveTarget extracts the acting user and the guild to play in. The
// guild may be given directly or derived from the user's voice presence.
func (s *server) resolveTarget(w http.ResponseWriter, r *http.Request) (userID, guildID string, ok bool) {
	userID = r.URL.Query().Get("username")
	if userID == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return "", "", false
	}

	guildID = r.URL.Query().Get("guildId")
	if guildID == "" {
		id, err := s.deps.FindUserGuild(userID)
		if err != nil {
			http.Error(w, "user is not in a voice channel", http.StatusNotFound)
			return "", "", false
		}
		guildID = id
	}
	return userID, guildID, true
}

func (s *server) respond(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, player.ErrSourceNotFound), errors.Is(err, player.ErrNoSounds):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, player.ErrUserNotInVoice):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] Failed to encode API response: %v", err)
	}
}
