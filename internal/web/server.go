package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/pocketdeck/internal/catalog"
	"github.com/conorfennell/pocketdeck/internal/domain"
	"github.com/conorfennell/pocketdeck/internal/knol"
	"github.com/conorfennell/pocketdeck/internal/review"
	"github.com/conorfennell/pocketdeck/internal/srs"
	"github.com/conorfennell/pocketdeck/internal/storage"
	"github.com/conorfennell/pocketdeck/internal/sync"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	db       *storage.DB
	reviews  *review.Service
	catalog  *catalog.Client
	reposDir string
	router   *http.ServeMux
	now      func() time.Time
}

// NewServer creates and configures a new server. catalogClient may be nil,
// in which case catalog import is unavailable.
func NewServer(db *storage.DB, catalogClient *catalog.Client, reposDir string) *Server {
	s := &Server{
		db:       db,
		reviews:  review.NewService(db),
		catalog:  catalogClient,
		reposDir: reposDir,
		router:   http.NewServeMux(),
		now:      time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /decks", s.handleListDecks())
	s.router.HandleFunc("POST /decks", s.handleCreateDeck())
	s.router.HandleFunc("GET /decks/{id}", s.handleGetDeck())
	s.router.HandleFunc("PATCH /decks/{id}", s.handleUpdateDeck())
	s.router.HandleFunc("DELETE /decks/{id}", s.handleDeleteDeck())
	s.router.HandleFunc("POST /decks/{id}/cards", s.handleAddCard())
	s.router.HandleFunc("GET /decks/{id}/due", s.handleGetDue())

	s.router.HandleFunc("PATCH /cards/{id}", s.handleUpdateCard())
	s.router.HandleFunc("DELETE /cards/{id}", s.handleDeleteCard())
	s.router.HandleFunc("POST /cards/{id}/review", s.handlePostReview())
	s.router.HandleFunc("GET /cards/{id}/reviews", s.handleGetReviews())

	// Source management routes
	s.router.HandleFunc("GET /sources", s.handleGetSources())
	s.router.HandleFunc("POST /sources", s.handlePostSource())
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /sync", s.handlePostSync())

	s.router.HandleFunc("POST /catalog/import", s.handleImportCatalog())
}

// handleListDecks lists local decks, or hosted ones with ?hosted=true.
func (s *Server) handleListDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hosted, _ := strconv.ParseBool(r.URL.Query().Get("hosted"))
		decks, err := s.db.ListDecks(r.Context(), hosted)
		if err != nil {
			s.error(w, err)
			return
		}
		out := make([]deckJSON, len(decks))
		for i, d := range decks {
			out[i] = toDeckJSON(d)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleCreateDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string     `json:"name"`
			Category string     `json:"category"`
			Cards    []cardJSON `json:"cards"`
		}
		if !decode(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			http.Error(w, "Name cannot be empty", http.StatusBadRequest)
			return
		}

		deck := domain.NewDeck(req.Name, req.Category, false, s.now())
		for _, c := range req.Cards {
			deck.AddCard(c.newCard())
		}
		if err := s.db.InsertDeck(r.Context(), &deck); err != nil {
			s.error(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDeckJSON(deck))
	}
}

// handleGetDeck returns a deck with its cards and the number due now.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deck, err := s.db.GetDeck(r.Context(), r.PathValue("id"))
		if err != nil {
			s.error(w, err)
			return
		}
		out := toDeckJSON(*deck)
		due := len(srs.DueCards(*deck, s.now(), domain.All))
		out.DueCount = &due
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleUpdateDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name"`
			Category string `json:"category"`
		}
		if !decode(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			http.Error(w, "Name cannot be empty", http.StatusBadRequest)
			return
		}
		if err := s.db.UpdateDeck(r.Context(), r.PathValue("id"), req.Name, req.Category); err != nil {
			s.error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.DeleteDeck(r.Context(), r.PathValue("id")); err != nil {
			s.error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleAddCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cardJSON
		if !decode(w, r, &req) {
			return
		}
		card := req.newCard()
		card.DeckID = r.PathValue("id")
		if err := s.db.InsertCard(r.Context(), card); err != nil {
			s.error(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCardJSON(card))
	}
}

// handleGetDue returns the session queue: due cards ordered by front,
// optionally narrowed with ?difficulty=.
func (s *Server) handleGetDue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := domain.ParseFilter(r.URL.Query().Get("difficulty"))
		if err != nil {
			http.Error(w, "Invalid difficulty", http.StatusBadRequest)
			return
		}
		cards, err := s.reviews.Due(r.Context(), r.PathValue("id"), s.now(), filter)
		if err != nil {
			s.error(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCardsJSON(cards))
	}
}

func (s *Server) handleUpdateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cardJSON
		if !decode(w, r, &req) {
			return
		}
		card := domain.Card{
			ID:         r.PathValue("id"),
			Front:      req.Front,
			Back:       req.Back,
			Tags:       req.Tags,
			Difficulty: domain.ParseDifficulty(req.Difficulty),
		}
		card.Hash = knol.Hash(card)
		if err := s.db.UpdateCardContent(r.Context(), card); err != nil {
			s.error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		card, err := s.db.GetCard(r.Context(), id)
		if err != nil {
			s.error(w, err)
			return
		}
		n, err := s.db.DeleteCards(r.Context(), card.ID)
		if err != nil {
			s.error(w, err)
			return
		}
		if n == 0 {
			s.error(w, storage.ErrReadOnly)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostReview applies a rating and returns the card's new state.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Quality *int `json:"quality"`
		}
		if !decode(w, r, &req) {
			return
		}
		if req.Quality == nil {
			http.Error(w, "Invalid quality", http.StatusBadRequest)
			return
		}

		card, err := s.reviews.Review(r.Context(), r.PathValue("id"), *req.Quality, s.now())
		if err != nil {
			s.error(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCardJSON(*card))
	}
}

func (s *Server) handleGetReviews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := s.db.GetCard(r.Context(), id); err != nil {
			s.error(w, err)
			return
		}
		logs, err := s.db.ReviewLogs(r.Context(), id)
		if err != nil {
			s.error(w, err)
			return
		}
		out := make([]reviewLogJSON, len(logs))
		for i, l := range logs {
			out[i] = reviewLogJSON(l)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleGetSources lists the configured sources.
func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.db.GetAllSources(r.Context())
		if err != nil {
			s.error(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sources)
	}
}

// handlePostSource adds a new source.
func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if !decode(w, r, &req) {
			return
		}
		if req.Path == "" {
			http.Error(w, "Path cannot be empty", http.StatusBadRequest)
			return
		}

		source, err := sync.AddSource(r.Context(), s.db, req.Path)
		if err != nil {
			s.error(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, source)
	}
}

// handleDeleteSource deletes a source together with its deck.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}
		if err := s.db.DeleteSource(r.Context(), id); err != nil {
			s.error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostSync triggers a manual sync and reports what changed.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Run in the foreground to make the caller wait
		reports, err := sync.RunSync(r.Context(), s.db, s.reposDir)
		if err != nil {
			s.error(w, err)
			return
		}
		if reports == nil {
			reports = []sync.Report{}
		}
		writeJSON(w, http.StatusOK, reports)
	}
}

func (s *Server) handleImportCatalog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.catalog == nil {
			http.Error(w, "Catalog not configured", http.StatusServiceUnavailable)
			return
		}
		res, err := catalog.Import(r.Context(), s.db, s.catalog, s.now())
		if err != nil {
			if errors.Is(err, catalog.ErrStatus) {
				slog.Warn("Catalog import failed", "error", err)
				http.Error(w, "Catalog unavailable", http.StatusBadGateway)
				return
			}
			s.error(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// error maps storage errors onto HTTP statuses and logs everything else.
func (s *Server) error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrReadOnly):
		http.Error(w, "Hosted decks are read-only", http.StatusForbidden)
	default:
		slog.Error("Request failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
