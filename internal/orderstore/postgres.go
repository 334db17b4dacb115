package orderstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/betbot/tradegw/internal/domain"
)

// PostgresRepository 基于 pgx 连接池的订单存储
// 金额列为 NUMERIC，读写都经过 text 转换，保证精确
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// OpenPostgres 连接数据库并执行迁移
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	r := &PostgresRepository{pool: pool}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS orders (
  id UUID PRIMARY KEY,
  owner TEXT NOT NULL,
  direction TEXT NOT NULL,
  market TEXT NOT NULL,
  requested_amount NUMERIC NOT NULL,
  requested_price NUMERIC NOT NULL,
  executed_amount NUMERIC NOT NULL DEFAULT 0,
  executed_price NUMERIC,
  fee NUMERIC NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  opened_at TIMESTAMPTZ NOT NULL,
  closed_at TIMESTAMPTZ
);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_owner_status_market ON orders(owner, status, market);`,
	}
	for _, q := range stmts {
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate exec failed: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const pgSelectColumns = `id::text,owner,direction,market,requested_amount::text,requested_price::text,executed_amount::text,executed_price::text,fee::text,status,opened_at,closed_at`

func (r *PostgresRepository) Insert(ctx context.Context, o *domain.Order) error {
	var executedPrice *string
	if o.ExecutedPrice != nil {
		s := o.ExecutedPrice.String()
		executedPrice = &s
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO orders (id,owner,direction,market,requested_amount,requested_price,executed_amount,executed_price,fee,status,opened_at,closed_at)
VALUES ($1,$2,$3,$4,$5::numeric,$6::numeric,$7::numeric,$8::numeric,$9::numeric,$10,$11,$12)
`, o.ID, o.Owner, string(o.Direction), o.Market,
		o.RequestedAmount.String(), o.RequestedPrice.String(), o.ExecutedAmount.String(), executedPrice,
		o.Fee.String(), string(o.Status), o.OpenedAt, o.ClosedAt)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, owner, id string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pgSelectColumns+` FROM orders WHERE id=$1 AND owner=$2`, id, owner)
	o, err := scanPostgresOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

func (r *PostgresRepository) Cancel(ctx context.Context, owner, id string, closedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE orders SET status=$1, closed_at=$2
WHERE id=$3 AND owner=$4 AND status=$5
`, string(domain.OrderStatusCanceled), closedAt, id, owner, string(domain.OrderStatusOpened))
	if err != nil {
		return false, fmt.Errorf("cancel order %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+pgSelectColumns+` FROM orders
WHERE owner=$1 AND status=$2 AND ($3::text = '' OR market = $3::text)
ORDER BY opened_at ASC, id ASC
`, f.Owner, string(f.Status), f.Market)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanPostgresOrder(rows)
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

func scanPostgresOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                                    domain.Order
		direction, status                    string
		reqAmount, reqPrice, execAmount, fee string
		execPrice                            *string
		openedAt                             time.Time
		closedAt                             *time.Time
	)
	if err := row.Scan(&o.ID, &o.Owner, &direction, &o.Market, &reqAmount, &reqPrice, &execAmount, &execPrice, &fee, &status, &openedAt, &closedAt); err != nil {
		return nil, err
	}
	o.Direction = domain.Direction(direction)
	o.Status = domain.OrderStatus(status)
	o.OpenedAt = openedAt.UTC()
	if closedAt != nil {
		t := closedAt.UTC()
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
	if execPrice != nil {
		p, err := decimal.NewFromString(*execPrice)
		if err != nil {
			return nil, fmt.Errorf("executed_price: %w", err)
		}
		o.ExecutedPrice = &p
	}
	return &o, nil
}
