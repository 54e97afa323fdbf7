package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/despatchhub/despatch-service/pkg/trm"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type postgresRepo struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

func NewPostgresRepo(db *sqlx.DB) *postgresRepo {
	return &postgresRepo{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var orderColumns = []string{
	"order_id", "order_uuid", "customer_id", "issue_date", "status",
	"raw_xml", "created_at", "last_modified",
	"reference", "supplier_party", "customer_party",
}

func (r *postgresRepo) FindOrder(ctx context.Context, orderID string) (entities.Order, error) {
	return r.findOrderWhere(ctx, sq.Eq{"order_id": orderID})
}

func (r *postgresRepo) FindOrderByUUID(ctx context.Context, orderUUID string) (entities.Order, error) {
	return r.findOrderWhere(ctx, sq.Eq{"order_uuid": orderUUID})
}

func (r *postgresRepo) findOrderWhere(ctx context.Context, where sq.Eq) (entities.Order, error) {
	query, args := r.qb.Select(orderColumns...).
		From("orders").
		Where(where).
		MustSql()

	var order Order
	err := r.getContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	query, args = r.qb.Select("order_id", "position", "item_id", "quantity", "price").
		From("order_items").
		Where(sq.Eq{"order_id": order.OrderID}).
		OrderBy("position").
		MustSql()

	var items []OrderItem
	if err := r.selectContext(ctx, &items, query, args...); err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order items: %w", err)
	}

	return OrderToEntity(order, items)
}

func (r *postgresRepo) InsertOrder(ctx context.Context, o entities.Order) (string, error) {
	query, args := r.qb.Insert("orders").
		Columns(orderColumns...).
		Values(
			o.OrderID, nullString(o.UUID), nullString(o.CustomerID), nullString(o.IssueDate),
			string(o.Status), sql.NullString{}, o.CreatedAt, o.LastModified,
			marshalJSON(o.Reference), partyJSON(o.SupplierParty), partyJSON(o.CustomerParty),
		).
		Suffix("ON CONFLICT (order_id) DO NOTHING").
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert order: %w", err)
	}

	if len(o.Items) > 0 {
		q := r.qb.Insert("order_items").
			Columns("order_id", "position", "item_id", "quantity", "price").
			Suffix("ON CONFLICT (order_id, position) DO NOTHING")
		for i, item := range o.Items {
			q = q.Values(o.OrderID, i+1, nullString(item.ItemID), item.Quantity, item.Price)
		}
		query, args := q.MustSql()
		if _, err := r.execContext(ctx, query, args...); err != nil {
			return "", fmt.Errorf("failed to insert order items: %w", err)
		}
	}
	return o.OrderID, nil
}

func (r *postgresRepo) SaveOrderReference(ctx context.Context, orderID string, ref entities.OrderReference) error {
	query, args := r.qb.Update("orders").
		Set("reference", marshalJSON(ref)).
		Set("last_modified", sq.Expr("now()")).
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save order reference: %w", err)
	}
	return nil
}

var despatchColumns = []string{
	"despatch_id", "despatch_uuid", "order_id", "status", "issue_date", "note",
	"xml", "created_at", "last_modified",
	"order_reference", "supplier_party", "customer_party", "shipment_id",
}

func (r *postgresRepo) FindDespatch(ctx context.Context, despatchID string) (entities.DespatchAdvice, error) {
	query, args := r.qb.Select(despatchColumns...).
		From("despatches").
		Where(sq.Eq{"despatch_id": despatchID}).
		MustSql()

	var despatch Despatch
	err := r.getContext(ctx, &despatch, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.DespatchAdvice{}, entities.ErrDespatchNotFound
	}
	if err != nil {
		return entities.DespatchAdvice{}, fmt.Errorf("failed to get despatch: %w", err)
	}

	query, args = r.qb.Select(
		"id", "despatch_id", "line_id", "note", "status",
		"delivered_quantity", "backorder_quantity", "backorder_reason",
		"lot_number", "expiry_date", "item", "order_line_ref").
		From("despatch_lines").
		Where(sq.Eq{"despatch_id": despatchID}).
		OrderBy("id").
		MustSql()

	var lines []DespatchLine
	if err := r.selectContext(ctx, &lines, query, args...); err != nil {
		return entities.DespatchAdvice{}, fmt.Errorf("failed to get despatch lines: %w", err)
	}

	var shipment *Shipment
	if despatch.ShipmentID.Valid {
		query, args = r.qb.Select("shipment_id", "consignment_id", "delivery_address", "delivery_period").
			From("shipments").
			Where(sq.Eq{"shipment_id": despatch.ShipmentID.String}).
			MustSql()

		var sh Shipment
		err := r.getContext(ctx, &sh, query, args...)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return entities.DespatchAdvice{}, fmt.Errorf("failed to get shipment: %w", err)
		}
		if err == nil {
			shipment = &sh
		}
	}

	return DespatchToEntity(despatch, lines, shipment)
}

func (r *postgresRepo) InsertDespatch(ctx context.Context, adv entities.DespatchAdvice) (string, error) {
	shipmentID := sql.NullString{}
	if adv.Shipment != nil {
		shipmentID = nullString(adv.Shipment.ID)
	}

	query, args := r.qb.Insert("despatches").
		Columns(despatchColumns...).
		Values(
			adv.DespatchID, adv.UUID, adv.OrderID, string(adv.Status),
			nullString(adv.IssueDate), nullString(adv.Note),
			adv.XML, adv.CreatedAt, adv.LastModified,
			marshalJSON(adv.OrderReference), marshalJSON(adv.SupplierParty), marshalJSON(adv.CustomerParty),
			shipmentID,
		).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert despatch: %w", err)
	}
	return adv.DespatchID, nil
}

func (r *postgresRepo) InsertDespatchLine(ctx context.Context, despatchID string, line entities.DespatchLine) error {
	query, args := r.qb.Insert("despatch_lines").
		Columns(
			"despatch_id", "line_id", "note", "status",
			"delivered_quantity", "backorder_quantity", "backorder_reason",
			"lot_number", "expiry_date", "item", "order_line_ref").
		Values(
			despatchID, line.LineID, nullString(line.Note), string(line.Status),
			line.DeliveredQuantity, line.BackOrderQuantity, nullString(line.BackOrderReason),
			line.LotNumber, nullTime(line.ExpiryDate),
			marshalJSON(line.Item), marshalJSON(line.OrderLineRef),
		).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert despatch line: %w", err)
	}
	return nil
}

// LineTotals reports the delivered sum, the line count and the
// backorder of the most recent line, which is the quantity still open.
func (r *postgresRepo) LineTotals(ctx context.Context, despatchID string) (entities.LineTotals, error) {
	query, args := r.qb.Select(
		"coalesce(sum(delivered_quantity), 0) as delivered",
		"count(*) as count").
		From("despatch_lines").
		Where(sq.Eq{"despatch_id": despatchID}).
		MustSql()

	var totals struct {
		Delivered int `db:"delivered"`
		Count     int `db:"count"`
	}
	if err := r.getContext(ctx, &totals, query, args...); err != nil {
		return entities.LineTotals{}, fmt.Errorf("failed to get line totals: %w", err)
	}

	result := entities.LineTotals{Delivered: totals.Delivered, Count: totals.Count}
	if totals.Count == 0 {
		return result, nil
	}

	query, args = r.qb.Select("backorder_quantity").
		From("despatch_lines").
		Where(sq.Eq{"despatch_id": despatchID}).
		OrderBy("id DESC").
		Limit(1).
		MustSql()

	if err := r.getContext(ctx, &result.BackOrdered, query, args...); err != nil {
		return entities.LineTotals{}, fmt.Errorf("failed to get open backorder: %w", err)
	}
	return result, nil
}

func (r *postgresRepo) InsertShipment(ctx context.Context, sh entities.Shipment) (string, error) {
	query, args := r.qb.Insert("shipments").
		Columns("shipment_id", "consignment_id", "delivery_address", "delivery_period").
		Values(sh.ID, sh.ConsignmentID, marshalJSON(sh.DeliveryAddress), marshalJSON(sh.RequestedDeliveryPeriod)).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return "", entities.ErrShipmentExists
		}
		return "", fmt.Errorf("failed to insert shipment: %w", err)
	}
	return sh.ID, nil
}

// UpdateDocument routes a partial update to the table matching the
// identifier prefix. Orders keep their source document in raw_xml.
func (r *postgresRepo) UpdateDocument(ctx context.Context, id string, patch entities.DocumentPatch) (bool, error) {
	table, idColumn, xmlColumn, ok := routeDocument(id)
	if !ok {
		return false, nil
	}
	if patch.XML == nil && patch.Status == nil {
		return false, nil
	}

	q := r.qb.Update(table).
		Set("last_modified", sq.Expr("now()")).
		Where(sq.Eq{idColumn: id})
	if patch.XML != nil {
		q = q.Set(xmlColumn, *patch.XML)
	}
	if patch.Status != nil {
		q = q.Set("status", *patch.Status)
	}

	query, args := q.MustSql()
	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count updated rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteDocument removes a document and its dependent rows.
func (r *postgresRepo) DeleteDocument(ctx context.Context, id string) (bool, error) {
	table, idColumn, _, ok := routeDocument(id)
	if !ok {
		return false, nil
	}

	if table == "despatches" {
		query, args := r.qb.Delete("despatch_lines").
			Where(sq.Eq{"despatch_id": id}).
			MustSql()
		if _, err := r.execContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("failed to delete despatch lines: %w", err)
		}
	} else {
		query, args := r.qb.Delete("order_items").
			Where(sq.Eq{"order_id": id}).
			MustSql()
		if _, err := r.execContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("failed to delete order items: %w", err)
		}
	}

	query, args := r.qb.Delete(table).
		Where(sq.Eq{idColumn: id}).
		MustSql()
	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return affected > 0, nil
}

func routeDocument(id string) (table, idColumn, xmlColumn string, ok bool) {
	switch {
	case strings.HasPrefix(id, entities.OrderIDPrefix):
		return "orders", "order_id", "raw_xml", true
	case strings.HasPrefix(id, entities.DespatchIDPrefix):
		return "despatches", "despatch_id", "xml", true
	default:
		return "", "", "", false
	}
}

func partyJSON(snap *entities.PartySnapshot) []byte {
	if snap == nil {
		return nil
	}
	return marshalJSON(*snap)
}

func (r *postgresRepo) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return r.db.ExecContext(ctx, query, args...)
}

func (r *postgresRepo) getContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.GetContext(ctx, dest, query, args...)
	}
	return r.db.GetContext(ctx, dest, query, args...)
}

func (r *postgresRepo) selectContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.SelectContext(ctx, dest, query, args...)
	}
	return r.db.SelectContext(ctx, dest, query, args...)
}
