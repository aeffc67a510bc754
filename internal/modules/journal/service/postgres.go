package service

import (
	"context"
	"fmt"
	"time"

	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS trade_log (
	id         BIGSERIAL PRIMARY KEY,
	pair       TEXT        NOT NULL,
	action     TEXT        NOT NULL,
	size       NUMERIC     NOT NULL,
	price      NUMERIC     NOT NULL,
	reason     TEXT        NOT NULL DEFAULT '',
	balance    NUMERIC     NOT NULL,
	breakdown  JSONB,
	created_at TIMESTAMPTZ NOT NULL
)`

const insertSQL = `
INSERT INTO trade_log (pair, action, size, price, reason, balance, breakdown, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const recentSQL = `
SELECT pair, action, size::text, price::text, reason, balance::text, created_at
FROM trade_log
ORDER BY created_at DESC
LIMIT $1`

// Postgres: журнал сделок в таблице trade_log.
type Postgres struct {
	tx *db.PgTxManager
}

func NewPostgres(tx *db.PgTxManager) *Postgres {
	return &Postgres{tx: tx}
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.tx.Conn().Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("Postgres.EnsureSchema: %w", err)
	}
	return nil
}

type row struct {
	pair      string
	action    string
	size      decimal.Decimal
	price     decimal.Decimal
	reason    string
	balance   decimal.Decimal
	breakdown []byte
	createdAt time.Time
}

// toRow: суммы в NUMERIC через decimal, разбивка сигналов в jsonb.
func toRow(rec models.TradeRecord) (row, error) {
	r := row{
		pair:      rec.Pair,
		action:    string(rec.Action),
		size:      decimal.NewFromFloat(rec.Size).Round(8),
		price:     decimal.NewFromFloat(rec.Price).Round(8),
		reason:    rec.Reason,
		balance:   decimal.NewFromFloat(rec.ResultingBalance).Round(2),
		createdAt: rec.Time.UTC(),
	}
	if r.createdAt.IsZero() {
		r.createdAt = time.Now().UTC()
	}
	if len(rec.Breakdown) > 0 {
		b, err := sonic.Marshal(rec.Breakdown)
		if err != nil {
			return row{}, err
		}
		r.breakdown = b
	}
	return r, nil
}

func (p *Postgres) Record(ctx context.Context, rec models.TradeRecord) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Postgres.Record: %w", err)
		}
	}()

	r, err := toRow(rec)
	if err != nil {
		return err
	}
	return p.tx.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctx, insertSQL,
			r.pair, r.action, r.size, r.price, r.reason, r.balance, r.breakdown, r.createdAt)
		return err
	})
}

// Recent: последние limit записей, новые первыми. Разбивку не читаем.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	rows, err := p.tx.Conn().Query(ctx, recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("Postgres.Recent: %w", err)
	}
	defer rows.Close()

	var out []models.TradeRecord
	for rows.Next() {
		var (
			pair, action, reason string
			size, price, balance string
			at                   time.Time
		)
		if err := rows.Scan(&pair, &action, &size, &price, &reason, &balance, &at); err != nil {
			return nil, fmt.Errorf("Postgres.Recent: %w", err)
		}
		rec, err := fromText(pair, action, size, price, reason, balance, at)
		if err != nil {
			return nil, fmt.Errorf("Postgres.Recent: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// fromText: numeric читаем как текст, чтобы не терять точность до decimal.
func fromText(pair, action, size, price, reason, balance string, at time.Time) (models.TradeRecord, error) {
	nums := make([]float64, 3)
	for i, raw := range []string{size, price, balance} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return models.TradeRecord{}, err
		}
		nums[i] = d.InexactFloat64()
	}
	return models.TradeRecord{
		Pair:             pair,
		Action:           models.Action(action),
		Size:             nums[0],
		Price:            nums[1],
		Reason:           reason,
		Time:             at.UTC(),
		ResultingBalance: nums[2],
	}, nil
}
