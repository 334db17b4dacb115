package orderstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/betbot/tradegw/internal/domain"
)

const orderColumns = `id,owner,direction,market,requested_amount,requested_price,executed_amount,executed_price,fee,status,opened_at,closed_at`

// SQLiteRepository 基于 modernc.org/sqlite 的订单存储
// 金额以字符串保存，时间以 unix 纳秒保存
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite 打开（必要时创建）数据库并执行迁移
// path 为 ":memory:" 时使用内存库
func OpenSQLite(path string) (*SQLiteRepository, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite：单连接更稳定
	db.SetMaxIdleConns(1)

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  owner TEXT NOT NULL,
  direction TEXT NOT NULL,
  market TEXT NOT NULL,
  requested_amount TEXT NOT NULL,
  requested_price TEXT NOT NULL,
  executed_amount TEXT NOT NULL DEFAULT '0',
  executed_price TEXT,
  fee TEXT NOT NULL DEFAULT '0',
  status TEXT NOT NULL,
  opened_at INTEGER NOT NULL,
  closed_at INTEGER
);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_owner_status_market ON orders(owner, status, market);`,
	}

	for _, q := range stmts {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate exec failed: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, o *domain.Order) error {
	var executedPrice sql.NullString
	if o.ExecutedPrice != nil {
		executedPrice = sql.NullString{String: o.ExecutedPrice.String(), Valid: true}
	}
	var closedAt sql.NullInt64
	if o.ClosedAt != nil {
		closedAt = sql.NullInt64{Int64: o.ClosedAt.UnixNano(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO orders (`+orderColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
`, o.ID, o.Owner, string(o.Direction), o.Market,
		o.RequestedAmount.String(), o.RequestedPrice.String(), o.ExecutedAmount.String(), executedPrice,
		o.Fee.String(), string(o.Status), o.OpenedAt.UnixNano(), closedAt)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, owner, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=? AND owner=?`, id, owner)
	o, err := scanSQLiteOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

func (r *SQLiteRepository) Cancel(ctx context.Context, owner, id string, closedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status=?, closed_at=?
WHERE id=? AND owner=? AND status=?
`, string(domain.OrderStatusCanceled), closedAt.UnixNano(), id, owner, string(domain.OrderStatusOpened))
	if err != nil {
		return false, fmt.Errorf("cancel order %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel order %s: %w", id, err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE owner=? AND status=?`
	args := []any{f.Owner, string(f.Status)}
	if f.Market != "" {
		q += ` AND market=?`
		args = append(args, f.Market)
	}
	q += ` ORDER BY opened_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanSQLiteOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteOrder(s rowScanner) (*domain.Order, error) {
	var (
		o                                    domain.Order
		direction, status                    string
		reqAmount, reqPrice, execAmount, fee string
		execPrice                            sql.NullString
		openedAt                             int64
		closedAt                             sql.NullInt64
	)
	if err := s.Scan(&o.ID, &o.Owner, &direction, &o.Market, &reqAmount, &reqPrice, &execAmount, &execPrice, &fee, &status, &openedAt, &closedAt); err != nil {
		return nil, err
	}
	o.Direction = domain.Direction(direction)
	o.Status = domain.OrderStatus(status)
	o.OpenedAt = time.Unix(0, openedAt).UTC()
	if closedAt.Valid {
		t := time.Unix(0, closedAt.Int64).UTC()
		o.ClosedAt = &t
	}

	var err error
	if o.RequestedAmount, err = decimal.NewFromString(reqAmount); err != nil {
		return nil, fmt.Errorf("requested_amount: %w", err)
	}
	if o.RequestedPrice, err = decimal.NewFromString(reqPrice); err != nil {
		return nil, fmt.Errorf("requested_price: %w", err)
	}
	if o.ExecutedAmount, err = decimal.NewFromString(execAmount); err != nil {
		return nil, fmt.Errorf("executed_amount: %w", err)
	}
	if o.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}
	if execPrice.Valid {
		p, err := decimal.NewFromString(execPrice.String)
		if err != nil {
			return nil, fmt.Errorf("executed_price: %w", err)
		}
		o.ExecutedPrice = &p
	}
	return &o, nil
}
