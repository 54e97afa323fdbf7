package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/despatchhub/despatch-service/internal/config"
	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/segmentio/kafka-go"
)

// OrderCreator is the intake contract: messages on the order topic
// carry raw UBL order documents.
type OrderCreator interface {
	CreateOrder(ctx context.Context, raw string, supplier *entities.PartySnapshot) (entities.Order, []string, error)
}

type kafkaHandler struct {
	dlq     *kafka.Writer
	reader  *kafka.Reader
	logger  *slog.Logger
	creator OrderCreator
}

func NewKafkaHandler(logger *slog.Logger, cfg config.Kafka, creator OrderCreator) *kafkaHandler {
	return &kafkaHandler{
		logger: logger.With(slog.String("handler", "kafka")),
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			GroupID: cfg.GroupID,
			Topic:   cfg.Topic,
			MaxWait: cfg.ReaderMaxWait,
		}),
		dlq: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
		},
		creator: creator,
	}
}

func (h *kafkaHandler) Consume(ctx context.Context) {
	for {
		m, err := h.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				break
			}
			h.logger.Error("failed to fetch message", slog.Any("error", err))
			continue
		}

		if err := h.handleOrderDocument(ctx, m); err != nil {
			ordersFailed.Inc()
			h.logger.Error("failed to handle message", slog.Any("error", err))

			// retry is built into the writer
			if err := h.WriteToDLQ(ctx, m); err != nil {
				h.logger.Error("failed to write message to DLQ", slog.Any("error", err))
				continue
			}
			ordersDLQ.Inc()
		} else {
			ordersConsumed.Inc()
		}

		if err := h.reader.CommitMessages(ctx, m); err != nil {
			commitErrors.Inc()
			h.logger.Error("failed to commit message", slog.Any("error", err))
		}
	}
}

func (h *kafkaHandler) handleOrderDocument(ctx context.Context, m kafka.Message) error {
	start := time.Now()
	ordersInProgress.Inc()
	defer func() {
		ordersInProgress.Dec()
		orderProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	order, issues, err := h.creator.CreateOrder(ctx, string(m.Value), nil)
	if err != nil {
		if len(issues) > 0 {
			return fmt.Errorf("order document rejected: %v", issues)
		}
		return err
	}

	h.logger.Info("order created from stream",
		slog.String("order_id", order.OrderID),
		slog.String("uuid", order.UUID),
	)
	return nil
}

func (h *kafkaHandler) WriteToDLQ(ctx context.Context, m kafka.Message) error {
	m.Topic = fmt.Sprintf("%s-dlq", m.Topic)
	return h.dlq.WriteMessages(ctx, m)
}

func (h *kafkaHandler) Close() error {
	if err := h.reader.Close(); err != nil {
		return err
	}
	return h.dlq.Close()
}
