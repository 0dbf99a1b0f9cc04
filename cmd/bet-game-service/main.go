package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
	httpapi "github.com/radieske/btc-bet-game/internal/bet-game/http"
	"github.com/radieske/btc-bet-game/internal/bet-game/ledger"
	"github.com/radieske/btc-bet-game/internal/bet-game/pricecache"
	"github.com/radieske/btc-bet-game/internal/bet-game/pricefeed"
	"github.com/radieske/btc-bet-game/internal/bet-game/producer"
	"github.com/radieske/btc-bet-game/internal/bet-game/pubsub"
	"github.com/radieske/btc-bet-game/internal/bet-game/scoreboard"
	"github.com/radieske/btc-bet-game/internal/bet-game/settlement"
	"github.com/radieske/btc-bet-game/internal/bet-game/ws"
	sharedcache "github.com/radieske/btc-bet-game/internal/shared/cache"
	"github.com/radieske/btc-bet-game/internal/shared/config"
	"github.com/radieske/btc-bet-game/internal/shared/kafka"
	"github.com/radieske/btc-bet-game/internal/shared/logger"
	"github.com/radieske/btc-bet-game/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Métricas em registry próprio
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	gm := metrics.NewGame(reg)

	// Redis opcional: espelho de preços + Pub/Sub para o hub WebSocket
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
	}

	// Kafka opcional: eventos bet_placed / bet_settled
	var publ *producer.KafkaPublisher
	if cfg.KafkaBrokers != "" {
		publ = producer.NewKafkaPublisher(
			kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced),
			kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled),
		)
		defer publ.Close()
	}

	hub := ws.NewHub(log, func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(cfg.AllowedOrigins, origin)
	})

	// broadcast entrega a atualização a todas as instâncias via Redis ou direto ao hub local
	broadcast := hub.Broadcast
	if rdb != nil {
		rb := pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel)
		broadcast = func(u ws.Update) {
			bctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			if err := rb.Publish(bctx, u); err != nil {
				log.Warn("ws broadcast publish failed", zap.String("topic", u.Topic), zap.Error(err))
				hub.Broadcast(u)
			}
		}
		ws.StartRedisSubscriber(ctx, rdb, cfg.RedisPubSubChannel, hub, log)
	}

	// Cache de preços
	feed := pricefeed.New(cfg.PriceAPIURL, cfg.PriceCoinID, cfg.PriceAPIKey, cfg.PriceTimeout)
	prices := pricecache.New(log, feed, cfg.Currencies)
	prices.Size = cfg.PriceCacheSize
	prices.Interval = cfg.PriceRefreshInterval
	prices.RetryDelay = cfg.PriceRetryDelay
	prices.OnError = gm.Error

	var mirror *pubsub.PriceMirror
	if rdb != nil {
		mirror = pubsub.NewPriceMirror(rdb, cfg.PriceCacheSize)
	}
	prices.OnSample = func(currency string, s domain.PriceSample) {
		gm.PriceRefreshes.WithLabelValues(currency).Inc()
		if mirror != nil {
			mctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			if err := mirror.Push(mctx, currency, s); err != nil {
				gm.Error("price_mirror")
				log.Warn("price mirror failed", zap.String("currency", currency), zap.Error(err))
			}
			cancel()
		}
		broadcast(ws.Update{Type: "price", Topic: ws.TopicPrices(currency), Payload: producer.PriceTickEvent(currency, s)})
	}

	// Apostas e placar
	book := ledger.New(feed, prices, cfg.OutcomeRetention)
	board := scoreboard.New()

	settler := settlement.New(log, book, board, feed)
	settler.Interval = cfg.SettleInterval
	settler.OnError = gm.Error
	settler.OnCycle = func(d time.Duration) {
		gm.SettleCycle.Observe(d.Seconds())
		gm.OpenBets.Set(float64(book.OpenCount()))
	}
	settler.OnSettled = func(o domain.BetOutcome) {
		gm.Settled(o.Won)
		if publ != nil {
			pctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := publ.PublishBetSettled(pctx, o); err != nil {
				gm.Error("publish_settled")
				log.Warn("publish bet_settled failed", zap.String("bet_id", o.BetID), zap.Error(err))
			}
			cancel()
		}
		broadcast(ws.Update{Type: "settlement", Topic: ws.TopicSettlements, Payload: producer.BetSettledEvent(o)})
	}

	// HTTP público
	api := httpapi.NewServer(log, prices, book, board)
	api.AllowedOrigins = cfg.AllowedOrigins
	api.WS = hub
	api.OnPlaced = func(domain.Bet) {
		gm.BetsPlaced.Inc()
		gm.OpenBets.Set(float64(book.OpenCount()))
	}
	if publ != nil {
		api.Publisher = publ
	}
	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// metrics/health
	metricsSrv := metrics.NewMetricsServer(cfg.MetricsPort, reg, func(ctx context.Context) error {
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { prices.Run(gctx); return nil })
	g.Go(func() error { settler.Run(gctx); return nil })
	g.Go(func() error {
		log.Info("bet-game-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(sctx)
		_ = metricsSrv.Shutdown(sctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("bet-game-service stopped with error", zap.Error(err))
		return
	}
	log.Info("bet-game-service stopped")
}
