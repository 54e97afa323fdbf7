package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/despatchhub/despatch-service/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrderAndDespatch(repo *fakeRepo, quantity int64) {
	order := entities.Order{
		OrderID:    "ORD-0000AAAA",
		UUID:       orderUUID,
		CustomerID: "CUST-1",
		IssueDate:  "2025-04-21",
		Status:     entities.OrderStatusCreated,
		Items: []entities.OrderItem{
			{ItemID: "ITEM-001", Quantity: decimal.NewFromInt(quantity), Price: decimal.NewFromInt(10)},
		},
	}
	repo.ordersByID[order.OrderID] = order
	repo.ordersByUUID[order.UUID] = order
	repo.despatches["D-0000AAAA"] = entities.DespatchAdvice{
		DespatchID: "D-0000AAAA",
		OrderID:    order.OrderID,
	}
}

func appendReq(delivered any, reason string) service.LineRequest {
	req := lineReq(delivered, 0, reason)
	return req
}

func TestCreateDespatchLine(t *testing.T) {
	t.Run("first line draws from the ordered quantity", func(t *testing.T) {
		repo, _, svc := newTestService(t)
		seedOrderAndDespatch(repo, 10)

		line, totals, err := svc.CreateDespatchLine(context.Background(), "D-0000AAAA", appendReq(6, "stock shortage"))
		require.NoError(t, err)

		assert.Equal(t, 6, line.DeliveredQuantity)
		assert.Equal(t, 4, line.BackOrderQuantity)
		assert.Equal(t, entities.LineStatusRevised, line.Status)
		assert.Equal(t, "1", line.OrderLineRef.LineID)
		assert.Equal(t, entities.LineTotals{Delivered: 6, BackOrdered: 4, Count: 1}, totals)
	})

	t.Run("later lines draw from the previous backorder", func(t *testing.T) {
		repo, _, svc := newTestService(t)
		seedOrderAndDespatch(repo, 10)

		_, _, err := svc.CreateDespatchLine(context.Background(), "D-0000AAAA", appendReq(6, "stock shortage"))
		require.NoError(t, err)

		line, totals, err := svc.CreateDespatchLine(context.Background(), "D-0000AAAA", appendReq(4, ""))
		require.NoError(t, err)

		assert.Equal(t, 4, line.DeliveredQuantity)
		assert.Equal(t, 0, line.BackOrderQuantity)
		assert.Equal(t, entities.LineStatusCompleted, line.Status)
		assert.Equal(t, "2", line.OrderLineRef.LineID)
		assert.Equal(t, entities.LineTotals{Delivered: 10, BackOrdered: 0, Count: 2}, totals)
	})

	t.Run("over-delivery exceeds the open quantity", func(t *testing.T) {
		repo, _, svc := newTestService(t)
		seedOrderAndDespatch(repo, 10)

		_, _, err := svc.CreateDespatchLine(context.Background(), "D-0000AAAA", appendReq(6, "stock shortage"))
		require.NoError(t, err)

		_, _, err = svc.CreateDespatchLine(context.Background(), "D-0000AAAA", appendReq(5, ""))
		rej := requireRejection(t, err)
		assert.Equal(t, 400, rej.Code)
		assert.Equal(t, "Delivered quantity exceeds order quantity", rej.Message)
	})

	t.Run("negative delivered quantity", func(t *testing.T) {
		repo, _, svc := newTestService(t)
		seedOrderAndDespatch(repo, 10)

		_, _, err := svc.CreateDespatchLine(context.Background(), "D-0000AAAA", appendReq(-5, "stock shortage"))
		rej := requireRejection(t, err)
		assert.Equal(t, 400, rej.Code)
		assert.Equal(t, "delivered_quantity must be a non-negative number", rej.Message)

		totals, err := repo.LineTotals(context.Background(), "D-0000AAAA")
		require.NoError(t, err)
		assert.Zero(t, totals.Count)
	})

	t.Run("malformed expiry date uses the fixed quantity message", func(t *testing.T) {
		repo, _, svc := newTestService(t)
		seedOrderAndDespatch(repo, 10)

		req := appendReq(6, "stock shortage")
		req.ExpiryDate = strPtr("2023/12/31")
		_, _, err := svc.CreateDespatchLine(context.Background(), "D-0000AAAA", req)
		rej := requireRejection(t, err)
		assert.Equal(t, "Please re-enter an amount for quantity.", rej.Message)
	})

	t.Run("each line gets a fresh identifier", func(t *testing.T) {
		repo, _, svc := newTestService(t)
		seedOrderAndDespatch(repo, 10)

		first, _, err := svc.CreateDespatchLine(context.Background(), "D-0000AAAA", appendReq(6, "stock shortage"))
		require.NoError(t, err)
		second, _, err := svc.CreateDespatchLine(context.Background(), "D-0000AAAA", appendReq(4, ""))
		require.NoError(t, err)

		assert.NotEqual(t, "LINE-1", first.LineID)
		assert.NotEqual(t, first.LineID, second.LineID)
	})

	t.Run("partial delivery without a reason", func(t *testing.T) {
		repo, _, svc := newTestService(t)
		seedOrderAndDespatch(repo, 10)

		_, _, err := svc.CreateDespatchLine(context.Background(), "D-0000AAAA", appendReq(6, ""))
		rej := requireRejection(t, err)
		assert.Equal(t, "Backorder reason is required when backorder quantity is positive", rej.Message)
	})

	t.Run("incomplete request", func(t *testing.T) {
		repo, _, svc := newTestService(t)
		seedOrderAndDespatch(repo, 10)

		req := appendReq(6, "stock shortage")
		req.ExpiryDate = nil
		_, _, err := svc.CreateDespatchLine(context.Background(), "D-0000AAAA", req)
		rej := requireRejection(t, err)
		assert.Equal(t, "Error: insufficient information entered.", rej.Message)
	})

	t.Run("unknown despatch", func(t *testing.T) {
		_, _, svc := newTestService(t)
		_, _, err := svc.CreateDespatchLine(context.Background(), "D-FFFFFFFF", appendReq(1, ""))
		assert.ErrorIs(t, err, entities.ErrDespatchNotFound)
	})

	t.Run("concurrent appends conserve the ordered quantity", func(t *testing.T) {
		repo, _, svc := newTestService(t)
		seedOrderAndDespatch(repo, 100)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := svc.CreateDespatchLine(context.Background(), "D-0000AAAA", appendReq(10, "partial delivery"))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		totals, err := repo.LineTotals(context.Background(), "D-0000AAAA")
		require.NoError(t, err)
		assert.Equal(t, 100, totals.Delivered)
		assert.Equal(t, 0, totals.BackOrdered)
		assert.Equal(t, 10, totals.Count)
	})
}

func TestReconcileLine(t *testing.T) {
	t.Run("resolves the order by document uuid first", func(t *testing.T) {
		repo, _, svc := newTestService(t)
		seedOrderAndDespatch(repo, 10)

		line, err := svc.ReconcileLine(context.Background(), lineReq(4, 6, "stock shortage"), orderUUID)
		require.NoError(t, err)
		assert.Equal(t, 4, line.DeliveredQuantity)
		assert.Equal(t, 6, line.BackOrderQuantity)
		assert.Equal(t, "ITEM-001", line.Item.SellersItemID)
		assert.Equal(t, "1", line.OrderLineRef.LineID)
	})

	t.Run("falls back to the order id", func(t *testing.T) {
		repo, _, svc := newTestService(t)
		seedOrderAndDespatch(repo, 10)

		_, err := svc.ReconcileLine(context.Background(), lineReq(4, 6, "stock shortage"), "ORD-0000AAAA")
		require.NoError(t, err)
	})

	t.Run("unknown correlation key", func(t *testing.T) {
		_, _, svc := newTestService(t)
		_, err := svc.ReconcileLine(context.Background(), lineReq(4, 6, ""), "nope")
		assert.ErrorIs(t, err, entities.ErrOrderNotFound)
	})
}
