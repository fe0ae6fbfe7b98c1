package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/Aditya-jedi/Novyn/configs"
	"github.com/Aditya-jedi/Novyn/internal/adapter/cache"
	"github.com/Aditya-jedi/Novyn/internal/adapter/catalog"
	"github.com/Aditya-jedi/Novyn/internal/adapter/gateway"
	httpadapter "github.com/Aditya-jedi/Novyn/internal/adapter/http"
	"github.com/Aditya-jedi/Novyn/internal/adapter/http/middleware"
	"github.com/Aditya-jedi/Novyn/internal/adapter/kafka"
	"github.com/Aditya-jedi/Novyn/internal/adapter/queue"
	"github.com/Aditya-jedi/Novyn/internal/adapter/repo"
	"github.com/Aditya-jedi/Novyn/internal/logging"
	"github.com/Aditya-jedi/Novyn/internal/security"
	"github.com/Aditya-jedi/Novyn/internal/usecase"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	logging.Init(cfg.App.Name, "./logs/app.log")
	log := logging.New("bootstrap")

	// database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	err = db.PingContext(ctx)
	cancel()
	if err != nil {
		return nil, nil, err
	}

	log.Info("checkout-api: starting up")

	// redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, nil, err
	}

	// rabbitmq
	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, err
	}

	// gateway credentials double as the proof signing key
	material, err := security.NewGatewayMaterial(cfg)
	if err != nil {
		return nil, nil, err
	}
	proofs, err := security.NewProofService(material)
	if err != nil {
		return nil, nil, err
	}

	// infra
	orderStore := repo.NewMySQLOrderStore(db)
	ledger := repo.NewMySQLInventoryLedger(db)
	outbox := repo.NewMySQLOutboxRepo(db)
	commits := cache.NewRedisCommitStore(rdb, cfg.Commit.TTL, cfg.Cache.TTL)
	producer, err := queue.NewRabbitProducer(ch, cfg.Rabbit.Exchange)
	if err != nil {
		return nil, nil, err
	}
	gwClient := gateway.NewClient(cfg.Gateway.BaseURL, material, cfg.Gateway.Timeout, cfg.Gateway.MaxRetries)
	catClient := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)

	if err := setupQueue(ch); err != nil {
		return nil, nil, err
	}
	if err := setupKafkaListener(cfg, orderStore, commits); err != nil {
		return nil, nil, err
	}

	// use cases + handlers + router
	currency := cfg.Gateway.Currency
	h := httpadapter.NewOrderHandler(
		usecase.NewCreateOrder(orderStore, catClient, producer, currency),
		usecase.NewRequestIntent(orderStore, gwClient, currency),
		usecase.NewSubmitProof(orderStore, ledger, proofs, catClient, commits, producer, outbox, currency),
		usecase.NewMarkDelivered(orderStore, commits),
		usecase.NewGetOrder(orderStore, gwClient),
	)
	th := httpadapter.NewTokenHandler(cfg)
	auth := middleware.NewAuthz(cfg)
	router := httpadapter.NewRouter(cfg, h, th, auth, proofs)

	cleanup := func() {
		_ = ch.Close()
		_ = conn.Close()
		_ = rdb.Close()
		_ = db.Close()
	}

	return &App{Router: router}, cleanup, nil
}

func setupQueue(ch *amqp091.Channel) error {
	h := queue.NewReconcileHandler()

	router := queue.NewRouter(ch, queue.WithPrefetch(50))
	router.Register("inventory.reconcile.q", queue.JSONHandler[usecase.ReconcileMsg]{HandleFunc: h.HandleReconcile})

	return router.Start()
}

func setupKafkaListener(cfg configs.Config, store *repo.MySQLOrderStore, commits *cache.RedisCommitStore) error {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		return err
	}

	h := kafka.NewPaymentSettledHandler(store, commits)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.SettlementTopic}, h.Handle)
	consumer.Logger = logging.New("settlement-consumer")

	go func() {
		if err := consumer.Start(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
			logging.Base().Error("settlement consumer stopped", "error", err)
		}
	}()
	return nil
}
