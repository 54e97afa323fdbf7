package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/despatchhub/despatch-service/internal/app"
	"github.com/despatchhub/despatch-service/internal/config"
	"github.com/despatchhub/despatch-service/internal/handler"
	"github.com/despatchhub/despatch-service/internal/postgres"
	"github.com/despatchhub/despatch-service/internal/repo"
	"github.com/despatchhub/despatch-service/internal/service"
	"github.com/despatchhub/despatch-service/pkg/cache"
	"github.com/despatchhub/despatch-service/pkg/trm"

	"github.com/joho/godotenv"
)

// @title           Despatch Advice Service API
// @version         1.0
// @description     UBL despatch advice generation and order intake
// @BasePath        /v1
func main() {
	conf := config.New()
	logger := newLogger(conf.Env)
	panicIfErr("invalid config", conf.Validate())

	db, err := postgres.New(conf.Postgres)
	panicIfErr("failed to connect to db", err)
	defer db.Close()
	logger.Info("postgres connected")

	despatchRepo := repo.NewPostgresRepo(db)
	txManager := trm.NewManager(db)
	documentCache := cache.NewDocumentCache(conf.Cache.Capacity, conf.Cache.TTL)

	despatchService := service.NewDespatchService(logger, txManager, despatchRepo, documentCache)

	handler.RegisterMetrics()
	kafkaHandler := handler.NewKafkaHandler(logger, conf.Kafka, despatchService)
	httpHandler := handler.NewHTTPHandler(logger, despatchService)

	app := app.New(logger, conf)

	app.SetHTTPHandlers(httpHandler)
	app.SetConsumers(kafkaHandler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	documentCache.StartJanitor(ctx)

	app.Start(ctx)
	<-ctx.Done()
	app.Stop()
}

func init() {
	godotenv.Load()
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func panicIfErr(prefix string, err error) {
	if err != nil {
		panic(prefix + ": " + err.Error())
	}
}
