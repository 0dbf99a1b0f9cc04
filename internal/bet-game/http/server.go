package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
	"github.com/radieske/btc-bet-game/internal/bet-game/dto"
	"github.com/radieske/btc-bet-game/internal/bet-game/ledger"
)

// LeaderboardSize é o tamanho do ranking devolvido em /api/leaderboard
const LeaderboardSize = 10

type Prices interface {
	Read(currency string) ([]domain.PriceSample, error)
}

type Ledger interface {
	Place(ctx context.Context, userID, currency string, dir domain.Direction, amount float64) (domain.Bet, error)
	Status(betID string) (ledger.Status, error)
	ListForUser(userID string) (map[string]domain.Bet, map[string]domain.BetOutcome)
	ForgetUser(userID string, forget func(userID string)) (openRemoved, outcomesRemoved int)
}

type Scores interface {
	TopN(n int) []domain.UserScore
	Count() int
	SetDisplayName(userID, name string) error
	StatsOf(userID string) (domain.UserStats, error)
	Forget(userID string) bool
}

// Publisher propaga apostas abertas para fora do processo (ex: Kafka)
type Publisher interface {
	PublishBetPlaced(ctx context.Context, b domain.Bet) error
}

type Server struct {
	log    *zap.Logger
	prices Prices
	ledger Ledger
	scores Scores

	// Opcionais
	Publisher Publisher
	WS        http.Handler
	OnPlaced  func(domain.Bet)

	AllowedOrigins []string
	Now            func() time.Time
}

func NewServer(log *zap.Logger, p Prices, l Ledger, s Scores) *Server {
	return &Server{log: log, prices: p, ledger: l, scores: s, Now: time.Now}
}

// Router monta as rotas sob /api com request id, recover, log e CORS
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/bitcoin/prices/{currency}", s.getPrices)
		r.Post("/place-bet", s.placeBet)
		r.Get("/bet/{betID}", s.getBet)
		r.Get("/user-bets/{userID}", s.getUserBets)
		r.Get("/leaderboard", s.getLeaderboard)
		r.Put("/user/{userID}/username", s.putUsername)
		r.Get("/user/{userID}/stats", s.getUserStats)
		r.Delete("/user/{userID}", s.deleteUser)
		if s.WS != nil {
			r.Handle("/ws", s.WS)
		}
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   s.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (s *Server) getPrices(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToLower(chi.URLParam(r, "currency"))
	samples, err := s.prices.Read(currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Currency not supported")
		return
	}
	writeJSON(w, http.StatusOK, dto.PricesResponse{Currency: currency, Prices: samples})
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	dir, err := domain.ParseDirection(q.Get("bet_type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bet_type must be 'up' or 'down'")
		return
	}
	amount, err := strconv.ParseFloat(q.Get("bet_amount"), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		writeError(w, http.StatusBadRequest, "bet_amount must be a number")
		return
	}

	bet, err := s.ledger.Place(r.Context(), userID, q.Get("currency"), dir, amount)
	switch {
	case errors.Is(err, domain.ErrUnknownCurrency):
		writeError(w, http.StatusBadRequest, "Currency not supported")
		return
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "Invalid bet parameters")
		return
	case err != nil:
		s.log.Error("place bet failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to place bet")
		return
	}

	if s.OnPlaced != nil {
		s.OnPlaced(bet)
	}
	if s.Publisher != nil {
		if err := s.Publisher.PublishBetPlaced(r.Context(), bet); err != nil {
			s.log.Warn("publish bet_placed failed", zap.String("bet_id", bet.ID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, dto.PlaceBetResponse{
		BetID:      bet.ID,
		Message:    "Bet placed successfully",
		PriceAtBet: bet.PriceAtBet,
		Timestamp:  bet.PlacedAt,
	})
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.Status(chi.URLParam(r, "betID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Bet not found")
		return
	}
	if !st.Active {
		writeJSON(w, http.StatusOK, dto.CompletedBetResponse{Status: "completed", Result: st.Outcome})
		return
	}
	writeJSON(w, http.StatusOK, dto.ActiveBetResponse{
		Status:        "active",
		BetDetails:    st.Bet,
		TimeRemaining: int(math.Ceil(st.Remaining.Seconds())),
	})
}

func (s *Server) getUserBets(w http.ResponseWriter, r *http.Request) {
	active, completed := s.ledger.ListForUser(chi.URLParam(r, "userID"))
	writeJSON(w, http.StatusOK, dto.UserBetsResponse{ActiveBets: active, CompletedBets: completed})
}

func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.LeaderboardResponse{
		Leaderboard: s.scores.TopN(LeaderboardSize),
		TotalUsers:  s.scores.Count(),
		LastUpdated: s.Now().UTC(),
	})
}

func (s *Server) putUsername(w http.ResponseWriter, r *http.Request) {
	err := s.scores.SetDisplayName(chi.URLParam(r, "userID"), r.URL.Query().Get("username"))
	switch {
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "Username already taken")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "Username must be between 3 and 20 characters")
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Username updated successfully"})
}

func (s *Server) getUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.scores.StatsOf(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	// placar removido sob o lock do livro, serializado com a liquidação
	open, outcomes := s.ledger.ForgetUser(userID, func(id string) { s.scores.Forget(id) })
	s.log.Info("user data deleted",
		zap.String("user_id", userID),
		zap.Int("active_bets", open),
		zap.Int("completed_bets", outcomes))

	writeJSON(w, http.StatusOK, dto.ForgetUserResponse{
		Message:              "User data deleted successfully",
		UserID:               userID,
		ActiveBetsRemoved:    open,
		CompletedBetsRemoved: outcomes,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}
