package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/receipt"
)

const (
	insertReceiptSQL = `INSERT INTO receipts (id, kind, lines, total, created_at)
	VALUES ($1, $2, $3, $4, $5)`

	recentReceiptsSQL = `SELECT id, kind, lines, total, created_at
	FROM receipts WHERE kind = $1 ORDER BY created_at DESC LIMIT $2`
)

var (
	_ receipt.Writer  = (*ReceiptRepository)(nil)
	_ receipt.History = (*ReceiptRepository)(nil)
)

// ReceiptRepository stores purchase receipts. Snapshots are not stored.
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository returns a ReceiptRepository that uses the given pool.
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

// Write persists a purchase receipt with its lines in a JSONB column.
func (r *ReceiptRepository) Write(ctx context.Context, rc receipt.Receipt) error {
	if rc.Kind != receipt.KindPurchase {
		return nil
	}

	linesJSON, err := json.Marshal(rc.Lines)
	if err != nil {
		return errors.Wrap(err, "marshal receipt lines")
	}

	if _, err := r.pool.Exec(ctx, insertReceiptSQL,
		rc.ID, string(rc.Kind), linesJSON, rc.Total, rc.CreatedAt,
	); err != nil {
		return errors.Wrapf(err, "insert receipt %q", rc.ID)
	}
	return nil
}

// Recent returns up to limit purchase receipts, newest first.
func (r *ReceiptRepository) Recent(ctx context.Context, limit int) ([]receipt.Receipt, error) {
	rows, err := r.pool.Query(ctx, recentReceiptsSQL, string(receipt.KindPurchase), limit)
	if err != nil {
		return nil, errors.Wrap(err, "query receipts")
	}
	receipts, err := pgx.CollectRows(rows, scanReceipt)
	if err != nil {
		return nil, errors.Wrap(err, "scan receipts")
	}
	return receipts, nil
}

func scanReceipt(row pgx.CollectableRow) (receipt.Receipt, error) {
	var (
		rc        receipt.Receipt
		kind      string
		linesJSON []byte
		total     decimal.Decimal
		createdAt time.Time
	)
	if err := row.Scan(&rc.ID, &kind, &linesJSON, &total, &createdAt); err != nil {
		return rc, err
	}
	if err := json.Unmarshal(linesJSON, &rc.Lines); err != nil {
		return rc, errors.Wrapf(err, "unmarshal lines of receipt %q", rc.ID)
	}
	rc.Kind = receipt.Kind(kind)
	rc.Total = total
	rc.CreatedAt = createdAt
	return rc, nil
}
