package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/profile-support/internal/domain"
)

// SupportMessageRepository stores the support log.
type SupportMessageRepository interface {
	Create(ctx context.Context, msg *domain.SupportMessage) error
	List(ctx context.Context) ([]domain.SupportMessage, error)
	ListRecent(ctx context.Context, limit int) ([]domain.SupportMessage, error)
	MarkRead(ctx context.Context, sender domain.Sender) (int64, error)
}

type supportMessageRepository struct {
	pool *pgxpool.Pool
}

// NewSupportMessageRepository builds the Postgres repository.
func NewSupportMessageRepository(pool *pgxpool.Pool) SupportMessageRepository {
	return &supportMessageRepository{pool: pool}
}

func (r *supportMessageRepository) Create(ctx context.Context, msg *domain.SupportMessage) error {
	const query = `
        INSERT INTO support_messages (text, sender, timestamp)
        VALUES ($1, $2, NOW())
        RETURNING id, timestamp, is_read`
	var (
		id     int64
		isRead bool
	)
	if err := r.pool.QueryRow(ctx, query, msg.Text, msg.Sender).Scan(&id, &msg.Timestamp, &isRead); err != nil {
		return err
	}
	msg.ID = strconv.FormatInt(id, 10)
	msg.IsRead = &isRead
	return nil
}

func (r *supportMessageRepository) List(ctx context.Context) ([]domain.SupportMessage, error) {
	const query = `
        SELECT id, text, sender, timestamp, is_read
        FROM support_messages ORDER BY timestamp ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

func (r *supportMessageRepository) ListRecent(ctx context.Context, limit int) ([]domain.SupportMessage, error) {
	const query = `
        SELECT id, text, sender, timestamp, is_read FROM (
            SELECT id, text, sender, timestamp, is_read
            FROM support_messages ORDER BY timestamp DESC, id DESC LIMIT $1
        ) recent ORDER BY timestamp ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

func (r *supportMessageRepository) MarkRead(ctx context.Context, sender domain.Sender) (int64, error) {
	const query = `UPDATE support_messages SET is_read = TRUE WHERE sender = $1 AND is_read = FALSE`
	tag, err := r.pool.Exec(ctx, query, sender)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanMessages(rows pgx.Rows) ([]domain.SupportMessage, error) {
	defer rows.Close()

	result := make([]domain.SupportMessage, 0)
	for rows.Next() {
		var (
			msg    domain.SupportMessage
			id     int64
			isRead bool
		)
		if err := rows.Scan(&id, &msg.Text, &msg.Sender, &msg.Timestamp, &isRead); err != nil {
			return nil, err
		}
		msg.ID = strconv.FormatInt(id, 10)
		msg.IsRead = &isRead
		result = append(result, msg)
	}
	return result, rows.Err()
}
