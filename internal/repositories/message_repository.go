package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"topics-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository abstracts the durable message store.
type MessageRepository interface {
	Create(ctx context.Context, topicID string, sender models.Identity, content string, replyTo *string) (models.Message, error)
	Get(ctx context.Context, messageID string) (models.Message, error)
	UpdateContent(ctx context.Context, messageID string, content string, editedAt time.Time) (models.Message, error)
	UpdateReactions(ctx context.Context, messageID string, reactions []models.Reaction) error
	Delete(ctx context.Context, messageID string) error
	Query(ctx context.Context, topicID string, page int, pageSize int) ([]models.Message, int, error)
}

// MessageRepo is a sqlx-backed repository. Reactions are stored as a JSONB
// column on the message row.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

type messageRow struct {
	ID             string     `db:"id"`
	TopicID        string     `db:"topic_id"`
	SenderID       string     `db:"sender_id"`
	SenderUsername string     `db:"sender_username"`
	Content        string     `db:"content"`
	IsEdited       bool       `db:"is_edited"`
	EditedAt       *time.Time `db:"edited_at"`
	ReplyTo        *string    `db:"reply_to"`
	Reactions      []byte     `db:"reactions"`
	CreatedAt      time.Time  `db:"created_at"`
}

const messageColumns = `id, topic_id, sender_id, sender_username, content, is_edited, edited_at, reply_to, reactions, created_at`

func (row messageRow) toModel() (models.Message, error) {
	msg := models.Message{
		ID:             row.ID,
		TopicID:        row.TopicID,
		SenderID:       row.SenderID,
		SenderUsername: row.SenderUsername,
		Content:        row.Content,
		IsEdited:       row.IsEdited,
		EditedAt:       row.EditedAt,
		ReplyTo:        row.ReplyTo,
		Reactions:      []models.Reaction{},
		CreatedAt:      row.CreatedAt,
	}
	if len(row.Reactions) > 0 {
		if err := json.Unmarshal(row.Reactions, &msg.Reactions); err != nil {
			return models.Message{}, err
		}
	}
	return msg, nil
}

// Create persists a message, assigning its id and creation timestamp.
func (r *MessageRepo) Create(ctx context.Context, topicID string, sender models.Identity, content string, replyTo *string) (models.Message, error) {
	var row messageRow
	id := uuid.NewString()
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, topic_id, sender_id, sender_username, content, reply_to, reactions)
        VALUES ($1, $2, $3, $4, $5, $6, '[]'::jsonb) RETURNING `+messageColumns,
		id, topicID, sender.ID, sender.Username, content, replyTo).
		StructScan(&row)
	if err != nil {
		return models.Message{}, err
	}
	return row.toModel()
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID string) (models.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	return row.toModel()
}

// UpdateContent applies an edit and returns the updated message.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID string, content string, editedAt time.Time) (models.Message, error) {
	var row messageRow
	err := r.db.QueryRowxContext(ctx, `UPDATE messages SET content=$2, is_edited=TRUE, edited_at=$3 WHERE id=$1 RETURNING `+messageColumns,
		messageID, content, editedAt).
		StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	return row.toModel()
}

// UpdateReactions replaces the message's reaction list.
func (r *MessageRepo) UpdateReactions(ctx context.Context, messageID string, reactions []models.Reaction) error {
	if reactions == nil {
		reactions = []models.Reaction{}
	}
	body, err := json.Marshal(reactions)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET reactions=$2 WHERE id=$1`, messageID, body)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Delete removes a message permanently.
func (r *MessageRepo) Delete(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Query returns one page of topic history plus the total message count.
// Page 1 holds the newest messages; rows within a page are oldest first.
func (r *MessageRepo) Query(ctx context.Context, topicID string, page int, pageSize int) ([]models.Message, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages WHERE topic_id=$1`, topicID); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryxContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE topic_id=$1
        ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, topicID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var row messageRow
		if err := rows.StructScan(&row); err != nil {
			return nil, 0, err
		}
		msg, err := row.toModel()
		if err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Flip newest-first rows into oldest-first page order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, total, nil
}
