package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"debate-lab-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ClassRepository stores class documents as JSONB in Postgres.
type ClassRepository struct {
	pool *pgxpool.Pool
}

func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

func (r *ClassRepository) Create(ctx context.Context, class domain.Class) error {
	raw, err := json.Marshal(class)
	if err != nil {
		return fmt.Errorf("marshal class: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO classes (code, teacher_id, data, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (code) DO NOTHING`,
		class.Code, class.TeacherID, raw, class.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *ClassRepository) Get(ctx context.Context, code string) (domain.Class, error) {
	return scanClass(r.pool.QueryRow(ctx, `SELECT data FROM classes WHERE code=$1`, code))
}

func (r *ClassRepository) AddStudent(ctx context.Context, code, studentID string) (domain.Class, error) {
	return r.update(ctx, code, func(c *domain.Class) bool {
		if c.HasStudent(studentID) {
			return false
		}
		c.StudentIDs = append(c.StudentIDs, studentID)
		return true
	})
}

func (r *ClassRepository) SetCommonTopic(ctx context.Context, code, topic string) (domain.Class, error) {
	return r.update(ctx, code, func(c *domain.Class) bool {
		c.CommonTopic = topic
		return true
	})
}

// update applies mutate under a row lock; mutate reports whether to write.
func (r *ClassRepository) update(ctx context.Context, code string, mutate func(*domain.Class) bool) (domain.Class, error) {
	var class domain.Class
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		class, err = scanClass(tx.QueryRow(ctx, `SELECT data FROM classes WHERE code=$1 FOR UPDATE`, code))
		if err != nil {
			return err
		}
		if !mutate(&class) {
			return nil
		}
		raw, err := json.Marshal(class)
		if err != nil {
			return fmt.Errorf("marshal class: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE classes SET data=$2 WHERE code=$1`, code, raw); err != nil {
			return fmt.Errorf("update class: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Class{}, err
	}
	return class, nil
}

func scanClass(row pgx.Row) (domain.Class, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Class{}, domain.ErrClassNotFound
		}
		return domain.Class{}, fmt.Errorf("load class: %w", err)
	}
	var class domain.Class
	if err := json.Unmarshal(raw, &class); err != nil {
		return domain.Class{}, fmt.Errorf("unmarshal class: %w", err)
	}
	if class.StudentIDs == nil {
		class.StudentIDs = []string{}
	}
	return class, nil
}
