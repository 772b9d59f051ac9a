package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"debate-lab-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BattleRepository stores battle documents as JSONB in Postgres. The round
// column mirrors data->round so appends can be checked under a row lock.
type BattleRepository struct {
	pool *pgxpool.Pool
}

func NewBattleRepository(pool *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{pool: pool}
}

func (r *BattleRepository) Create(ctx context.Context, battle domain.Battle) error {
	raw, err := json.Marshal(battle)
	if err != nil {
		return fmt.Errorf("marshal battle: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO battles (id, class_code, round, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
		battle.ID, battle.ClassCode, battle.Round, raw, battle.CreatedAt, battle.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert battle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *BattleRepository) Get(ctx context.Context, id string) (domain.Battle, error) {
	return scanBattle(r.pool.QueryRow(ctx, `SELECT data FROM battles WHERE id=$1`, id))
}

func (r *BattleRepository) AppendRound(ctx context.Context, id string, expectedRound int, turns []domain.Turn, status domain.BattleStatus, at time.Time) (domain.Battle, error) {
	var battle domain.Battle
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		battle, err = scanBattle(tx.QueryRow(ctx, `SELECT data FROM battles WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if battle.Round != expectedRound {
			return domain.ErrRoundConflict
		}
		battle.Logs = append(battle.Logs, turns...)
		battle.Round++
		battle.Status = status
		battle.UpdatedAt = at

		raw, err := json.Marshal(battle)
		if err != nil {
			return fmt.Errorf("marshal battle: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE battles SET data=$2, round=$3, updated_at=$4 WHERE id=$1`,
			id, raw, battle.Round, at); err != nil {
			return fmt.Errorf("update battle: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Battle{}, err
	}
	return battle, nil
}

func (r *BattleRepository) ListByClass(ctx context.Context, classCode string) ([]domain.Battle, error) {
	rows, err := r.pool.Query(ctx, `SELECT data FROM battles WHERE class_code=$1 ORDER BY created_at`, classCode)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Battle, 0)
	for rows.Next() {
		battle, err := scanBattle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, battle)
	}
	return out, rows.Err()
}

func scanBattle(row pgx.Row) (domain.Battle, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Battle{}, domain.ErrBattleNotFound
		}
		return domain.Battle{}, fmt.Errorf("load battle: %w", err)
	}
	var battle domain.Battle
	if err := json.Unmarshal(raw, &battle); err != nil {
		return domain.Battle{}, fmt.Errorf("unmarshal battle: %w", err)
	}
	if battle.Logs == nil {
		battle.Logs = []domain.Turn{}
	}
	return battle, nil
}
