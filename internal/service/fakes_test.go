package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/despatchhub/despatch-service/pkg/trm"
)

var errTemporary = errors.New("temporary storage error")

// fakeRepo is an in-memory DespatchRepo with per-method error
// injection. It is safe for concurrent use.
type fakeRepo struct {
	mu           sync.Mutex
	ordersByID   map[string]entities.Order
	ordersByUUID map[string]entities.Order
	despatches   map[string]entities.DespatchAdvice
	lines        map[string][]entities.DespatchLine
	shipments    map[string]entities.Shipment
	refs         map[string]entities.OrderReference

	insertOrderErr      error
	insertOrderFailures int
	insertDespatchErr   error
	insertLineErr       error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		ordersByID:   make(map[string]entities.Order),
		ordersByUUID: make(map[string]entities.Order),
		despatches:   make(map[string]entities.DespatchAdvice),
		lines:        make(map[string][]entities.DespatchLine),
		shipments:    make(map[string]entities.Shipment),
		refs:         make(map[string]entities.OrderReference),
	}
}

func (r *fakeRepo) FindOrder(_ context.Context, orderID string) (entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.ordersByID[orderID]
	if !ok {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	return order, nil
}

func (r *fakeRepo) FindOrderByUUID(_ context.Context, orderUUID string) (entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.ordersByUUID[orderUUID]
	if !ok {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	return order, nil
}

func (r *fakeRepo) InsertOrder(_ context.Context, order entities.Order) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertOrderFailures > 0 {
		r.insertOrderFailures--
		return "", errTemporary
	}
	if r.insertOrderErr != nil {
		return "", r.insertOrderErr
	}
	r.ordersByID[order.OrderID] = order
	if order.UUID != "" {
		r.ordersByUUID[order.UUID] = order
	}
	return order.OrderID, nil
}

func (r *fakeRepo) SaveOrderReference(_ context.Context, orderID string, ref entities.OrderReference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[orderID] = ref
	if order, ok := r.ordersByID[orderID]; ok {
		order.Reference = ref
		r.ordersByID[orderID] = order
		if order.UUID != "" {
			r.ordersByUUID[order.UUID] = order
		}
	}
	return nil
}

func (r *fakeRepo) FindDespatch(_ context.Context, despatchID string) (entities.DespatchAdvice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	adv, ok := r.despatches[despatchID]
	if !ok {
		return entities.DespatchAdvice{}, entities.ErrDespatchNotFound
	}
	return adv, nil
}

func (r *fakeRepo) InsertDespatch(_ context.Context, adv entities.DespatchAdvice) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertDespatchErr != nil {
		return "", r.insertDespatchErr
	}
	r.despatches[adv.DespatchID] = adv
	return adv.DespatchID, nil
}

func (r *fakeRepo) InsertDespatchLine(_ context.Context, despatchID string, line entities.DespatchLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertLineErr != nil {
		return r.insertLineErr
	}
	r.lines[despatchID] = append(r.lines[despatchID], line)
	return nil
}

func (r *fakeRepo) LineTotals(_ context.Context, despatchID string) (entities.LineTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := entities.LineTotals{}
	for _, line := range r.lines[despatchID] {
		totals.Delivered += line.DeliveredQuantity
		totals.BackOrdered = line.BackOrderQuantity
		totals.Count++
	}
	return totals, nil
}

func (r *fakeRepo) InsertShipment(_ context.Context, sh entities.Shipment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shipments[sh.ID]; ok {
		return "", entities.ErrShipmentExists
	}
	r.shipments[sh.ID] = sh
	return sh.ID, nil
}

func (r *fakeRepo) UpdateDocument(_ context.Context, id string, patch entities.DocumentPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	adv, ok := r.despatches[id]
	if !ok {
		return false, nil
	}
	if patch.XML != nil {
		adv.XML = *patch.XML
	}
	if patch.Status != nil {
		adv.Status = entities.DespatchStatus(*patch.Status)
	}
	r.despatches[id] = adv
	return true, nil
}

func (r *fakeRepo) DeleteDocument(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.despatches[id]; !ok {
		return false, nil
	}
	delete(r.despatches, id)
	delete(r.lines, id)
	return true, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *fakeCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

// fakeTxManager runs callbacks inline without a real transaction.
type fakeTxManager struct{}

func (fakeTxManager) BeginTx(ctx context.Context) (context.Context, trm.Transaction, error) {
	return ctx, fakeTx{}, nil
}

func (fakeTxManager) Do(ctx context.Context, cb func(ctx context.Context) error) error {
	return cb(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
