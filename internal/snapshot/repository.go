// Package snapshot loads consistent record snapshots from PostgreSQL and
// persists new payment lines.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mahafpc/fpo-ledger/internal/platform/db"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

var (
	// ErrDuplicatePayment indicates the payment was already recorded.
	ErrDuplicatePayment = errors.New("snapshot: duplicate payment")
	// ErrUnknownReference indicates a payment naming a missing FPO or farmer.
	ErrUnknownReference = errors.New("snapshot: unknown fpo or farmer")
)

// Scope narrows what Load reads. Nil fields are unbounded. Sales ignore
// FarmerID and payments ignore ProductID.
type Scope struct {
	FPOID     *int64
	FarmerID  *int64
	ProductID *int64
	From      *time.Time
	To        *time.Time
}

// ScopeFor converts an aggregation window and filters into a Scope. A zero
// window leaves the dates unbounded.
func ScopeFor(w records.TimeWindow, f records.Filters) Scope {
	s := Scope{FPOID: f.FPOID, FarmerID: f.FarmerID, ProductID: f.ProductID}
	if w.IsZero() {
		s.From, s.To = f.DateFrom, f.DateTo
		return s
	}
	w = f.Narrow(w)
	s.From, s.To = &w.Start, &w.End
	return s
}

// Repository reads and writes records in PostgreSQL.
type Repository struct {
	pool db.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Load reads every collection in scope inside one read-only RepeatableRead
// transaction, so procurements and payments reflect the same instant.
func (r *Repository) Load(ctx context.Context, scope Scope) (records.Snapshot, error) {
	var snap records.Snapshot
	err := db.ReadOnly(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if snap.FPOs, err = collect(ctx, tx, scanFPO, selectFPOs, scope.FPOID); err != nil {
			return fmt.Errorf("fpos: %w", err)
		}
		if snap.Farmers, err = collect(ctx, tx, scanFarmer, selectFarmers, scope.FPOID, scope.FarmerID); err != nil {
			return fmt.Errorf("farmers: %w", err)
		}
		if snap.Products, err = collect(ctx, tx, scanProduct, selectProducts); err != nil {
			return fmt.Errorf("products: %w", err)
		}
		if snap.Procurements, err = collect(ctx, tx, scanProcurement, selectProcurements,
			scope.FPOID, scope.FarmerID, scope.ProductID, scope.From, scope.To); err != nil {
			return fmt.Errorf("procurements: %w", err)
		}
		if snap.Payments, err = collect(ctx, tx, scanPayment, selectPayments,
			scope.FPOID, scope.FarmerID, scope.From, scope.To); err != nil {
			return fmt.Errorf("payments: %w", err)
		}
		if snap.Sales, err = collect(ctx, tx, scanSale, selectSales,
			scope.FPOID, scope.ProductID, scope.From, scope.To); err != nil {
			return fmt.Errorf("sales: %w", err)
		}
		if snap.Inventory, err = collect(ctx, tx, scanInventory, selectInventory, scope.FPOID, scope.ProductID); err != nil {
			return fmt.Errorf("inventory: %w", err)
		}
		return nil
	})
	if err != nil {
		return records.Snapshot{}, fmt.Errorf("snapshot: load: %w", err)
	}
	return snap, nil
}

// InsertPayment stores line and returns its id. A non-empty key is stored
// with the row and enforced unique.
func (r *Repository) InsertPayment(ctx context.Context, line records.PaymentLine, key string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertPayment,
		records.Day(line.Date), line.FarmerID, line.FPOID, line.Amount, line.Description, key).Scan(&id)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return id, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicatePayment
		case "23503":
			return ErrUnknownReference
		}
	}
	return fmt.Errorf("snapshot: insert payment: %w", err)
}

func collect[T any](ctx context.Context, tx pgx.Tx, scan pgx.RowToFunc[T], sql string, args ...any) ([]T, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scan)
}

func scanFPO(row pgx.CollectableRow) (records.FPO, error) {
	var f records.FPO
	err := row.Scan(&f.ID, &f.Name, &f.District)
	return f, err
}

func scanFarmer(row pgx.CollectableRow) (records.Farmer, error) {
	var f records.Farmer
	err := row.Scan(&f.ID, &f.FPOID, &f.Name, &f.MobileNumber, &f.VillageName)
	return f, err
}

func scanProduct(row pgx.CollectableRow) (records.Product, error) {
	var p records.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category)
	return p, err
}

func scanProcurement(row pgx.CollectableRow) (records.ProcurementLine, error) {
	var l records.ProcurementLine
	err := row.Scan(&l.ID, &l.Date, &l.FarmerID, &l.FPOID, &l.ProductID, &l.Quantity, &l.Rate, &l.Amount)
	return l, err
}

func scanPayment(row pgx.CollectableRow) (records.PaymentLine, error) {
	var l records.PaymentLine
	err := row.Scan(&l.ID, &l.Date, &l.FarmerID, &l.FPOID, &l.Amount, &l.Description)
	return l, err
}

func scanSale(row pgx.CollectableRow) (records.SaleLine, error) {
	var (
		l      records.SaleLine
		status string
	)
	err := row.Scan(&l.ID, &l.Date, &l.FPOID, &l.ProductID, &l.Quantity, &l.Rate, &l.Amount, &status)
	l.Status = records.SaleStatus(status)
	return l, err
}

func scanInventory(row pgx.CollectableRow) (records.InventorySnapshot, error) {
	var s records.InventorySnapshot
	err := row.Scan(&s.FPOID, &s.ProductID, &s.Quantity, &s.AsOf)
	return s, err
}
