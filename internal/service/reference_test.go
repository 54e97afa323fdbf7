package service

import (
	"context"
	"testing"

	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refRepoStub struct {
	DespatchRepo
	saved map[string]entities.OrderReference
}

func (r *refRepoStub) SaveOrderReference(_ context.Context, orderID string, ref entities.OrderReference) error {
	r.saved[orderID] = ref
	return nil
}

func TestResolveOrderReference(t *testing.T) {
	newSvc := func() (*refRepoStub, *DespatchService) {
		stub := &refRepoStub{saved: make(map[string]entities.OrderReference)}
		return stub, &DespatchService{repo: stub}
	}

	t.Run("fills uuid and issue date on first resolution", func(t *testing.T) {
		stub, svc := newSvc()
		order := entities.Order{
			OrderID:   "ORD-0000AAAA",
			UUID:      "c8c24658-b71c-473f-b36d-5f94eb8d2a27",
			IssueDate: "2025-04-21",
		}

		ref, err := svc.resolveOrderReference(context.Background(), order, "SO-77")
		require.NoError(t, err)

		assert.Equal(t, "ORD-0000AAAA", ref.ID)
		assert.Equal(t, "SO-77", ref.SalesOrderID)
		assert.Equal(t, order.UUID, ref.UUID)
		assert.Equal(t, "2025-04-21", ref.IssueDate)
		assert.Equal(t, ref, stub.saved["ORD-0000AAAA"])
	})

	t.Run("preserves uuid and issue date once populated", func(t *testing.T) {
		stub, svc := newSvc()
		order := entities.Order{
			OrderID:   "ORD-0000AAAA",
			UUID:      "fresh-uuid",
			IssueDate: "2025-06-01",
			Reference: entities.OrderReference{
				ID:        "ORD-OLD",
				UUID:      "original-uuid",
				IssueDate: "2025-04-21",
			},
		}

		ref, err := svc.resolveOrderReference(context.Background(), order, "")
		require.NoError(t, err)

		// identifier fields refresh, provenance fields do not
		assert.Equal(t, "ORD-0000AAAA", ref.ID)
		assert.Equal(t, "", ref.SalesOrderID)
		assert.Equal(t, "original-uuid", ref.UUID)
		assert.Equal(t, "2025-04-21", ref.IssueDate)
		assert.Equal(t, ref, stub.saved["ORD-0000AAAA"])
	})
}
