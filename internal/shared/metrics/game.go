package metrics

import "github.com/prometheus/client_golang/prometheus"

// Game agrupa os coletores do jogo de apostas
type Game struct {
	BetsPlaced     prometheus.Counter
	BetsSettled    *prometheus.CounterVec // result=won|lost
	OpenBets       prometheus.Gauge
	PriceRefreshes *prometheus.CounterVec // currency
	Errors         *prometheus.CounterVec // stage
	SettleCycle    prometheus.Histogram
}

// NewGame cria e registra os coletores no registry informado
func NewGame(reg prometheus.Registerer) *Game {
	g := &Game{
		BetsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bet_game_bets_placed_total", Help: "apostas aceitas",
		}),
		BetsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bet_game_bets_settled_total", Help: "apostas liquidadas por resultado",
		}, []string{"result"}),
		OpenBets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bet_game_open_bets", Help: "apostas aguardando liquidação",
		}),
		PriceRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bet_game_price_refresh_total", Help: "amostras de preço gravadas por moeda",
		}, []string{"currency"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bet_game_errors_total", Help: "erros por estágio",
		}, []string{"stage"}),
		SettleCycle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bet_game_settle_cycle_seconds",
			Help:    "duração de cada ciclo de liquidação",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(g.BetsPlaced, g.BetsSettled, g.OpenBets, g.PriceRefreshes, g.Errors, g.SettleCycle)
	return g
}

// Settled contabiliza uma liquidação
func (g *Game) Settled(won bool) {
	result := "lost"
	if won {
		result = "won"
	}
	g.BetsSettled.WithLabelValues(result).Inc()
}

// Error contabiliza um erro no estágio informado
func (g *Game) Error(stage string) { g.Errors.WithLabelValues(stage).Inc() }
