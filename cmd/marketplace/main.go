package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	cartapp "github.com/ishopping/marketplace/internal/cart/app"
	cartadapter "github.com/ishopping/marketplace/internal/cart/infra/adapter"
	cartmem "github.com/ishopping/marketplace/internal/cart/infra/memory"
	cartpg "github.com/ishopping/marketplace/internal/cart/infra/postgres"
	catalogapp "github.com/ishopping/marketplace/internal/catalog/app"
	catalogmem "github.com/ishopping/marketplace/internal/catalog/infra/memory"
	catalogpg "github.com/ishopping/marketplace/internal/catalog/infra/postgres"
	"github.com/ishopping/marketplace/internal/events"
	"github.com/ishopping/marketplace/internal/identity"
	orderapp "github.com/ishopping/marketplace/internal/order/app"
	orderadapter "github.com/ishopping/marketplace/internal/order/infra/adapter"
	ordermem "github.com/ishopping/marketplace/internal/order/infra/memory"
	orderpg "github.com/ishopping/marketplace/internal/order/infra/postgres"
	userapp "github.com/ishopping/marketplace/internal/user/app"
	usermem "github.com/ishopping/marketplace/internal/user/infra/memory"
	userpg "github.com/ishopping/marketplace/internal/user/infra/postgres"
	"github.com/ishopping/marketplace/pkg/config"
	"github.com/ishopping/marketplace/pkg/logger"
	"github.com/ishopping/marketplace/pkg/metrics"
	"github.com/ishopping/marketplace/pkg/shutdown"

	_ "github.com/lib/pq"
)

type coreServices struct {
	catalog *catalogapp.Service
	carts   *cartapp.Service
	users   *userapp.Service
	orders  *orderapp.Service
}

// orderStats serves global order statistics on the ops port. It runs with
// an admin identity; the port is expected to be reachable only internally.
func (c coreServices) orderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.orders.OrderStats(r.Context(), identity.Identity{Role: identity.RoleAdmin, Username: "ops"})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

type repos struct {
	products catalogapp.ProductRepo
	orders   orderapp.OrderRepo
	carts    cartapp.CartRepo
	users    userapp.UserRepo
}

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service:   "marketplace",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
	})

	root := context.Background()
	ctx, cancel := shutdown.WithSignals(root)
	defer cancel()

	r, err := buildRepos(ctx, cfg, log)
	if err != nil {
		log.Error("store init failed", slog.Any("err", err))
		os.Exit(1)
	}

	pub := events.NewPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic)
	defer pub.Close()
	if pub.Enabled() {
		log.Info("order events enabled", slog.String("topic", cfg.OrderEventsTopic))
	}

	orderMetrics := metrics.NewOrderMetrics()

	// The public API transport lives outside this module; the binary wires
	// the core services and exposes only operational endpoints.
	catalogSvc := catalogapp.NewService(r.products)
	core := coreServices{
		catalog: catalogSvc,
		carts:   cartapp.NewService(r.carts, cartadapter.NewCatalogReader(catalogSvc)),
		users:   userapp.NewService(r.users),
		orders: orderapp.NewService(
			r.orders,
			orderapp.NewBuilder(orderadapter.NewCatalogReader(catalogSvc), 10),
			log, orderMetrics, pub,
		),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/internal/order-stats", core.orderStats)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server starting", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", slog.Any("err", err))
	}

	wg.Wait()
	log.Info("bye")
}

func buildRepos(ctx context.Context, cfg config.Config, log *slog.Logger) (repos, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		products := catalogmem.NewProductRepo()
		return repos{
			products: products,
			orders:   ordermem.NewOrderRepo(products),
			carts:    cartmem.NewCartRepo(),
			users:    usermem.NewUserRepo(),
		}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return repos{}, fmt.Errorf("open db: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		return repos{}, fmt.Errorf("ping db: %w", err)
	}

	products, err := catalogpg.NewProductRepo(db)
	if err != nil {
		return repos{}, err
	}
	orders, err := orderpg.NewOrderRepo(db)
	if err != nil {
		return repos{}, err
	}
	carts, err := cartpg.NewCartRepo(db)
	if err != nil {
		return repos{}, err
	}
	users, err := userpg.NewUserRepo(db)
	if err != nil {
		return repos{}, err
	}

	return repos{products: products, orders: orders, carts: carts, users: users}, nil
}
