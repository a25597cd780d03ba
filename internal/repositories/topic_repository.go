package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"topics-service/internal/models"
)

var ErrTopicNotFound = errors.New("topic not found")
var ErrTopicNameTaken = errors.New("topic name already taken")

// isUniqueViolation reports whether the error is a Postgres unique-index
// violation (error code 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// TopicRepository abstracts the durable topic directory.
type TopicRepository interface {
	Create(ctx context.Context, name string, isPrivate bool, creatorID string) (models.Topic, error)
	Get(ctx context.Context, topicID string) (models.Topic, error)
	GetByName(ctx context.Context, name string) (models.Topic, error)
	List(ctx context.Context) ([]models.Topic, error)
	IsMember(ctx context.Context, topicID string, userID string) (bool, error)
	IsAdmin(ctx context.Context, topicID string, userID string) (bool, error)
	AddMember(ctx context.Context, topicID string, userID string) error
	RemoveMember(ctx context.Context, topicID string, userID string) error
	TouchActivity(ctx context.Context, topicID string) error
}

// TopicRepo is a sqlx implementation of TopicRepository.
type TopicRepo struct {
	db *sqlx.DB
}

// NewTopicRepo constructs a TopicRepo.
func NewTopicRepo(db *sqlx.DB) *TopicRepo {
	return &TopicRepo{db: db}
}

// Create inserts a topic and registers the creator as member and admin.
// Topic names are unique case-insensitively.
func (r *TopicRepo) Create(ctx context.Context, name string, isPrivate bool, creatorID string) (models.Topic, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM topics WHERE LOWER(name)=LOWER($1))`, name); err != nil {
		return models.Topic{}, err
	}
	if exists {
		return models.Topic{}, ErrTopicNameTaken
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Topic{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var topic models.Topic
	id := uuid.NewString()
	if err = tx.QueryRowxContext(ctx, `INSERT INTO topics (id, name, is_private, creator_id) VALUES ($1, $2, $3, $4)
        RETURNING id, name, is_private, creator_id, created_at, last_activity_at`, id, name, isPrivate, creatorID).
		StructScan(&topic); err != nil {
		// The pre-check races concurrent creates; the unique index on
		// LOWER(name) is authoritative.
		if isUniqueViolation(err) {
			return models.Topic{}, ErrTopicNameTaken
		}
		return models.Topic{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO topic_members (topic_id, user_id) VALUES ($1, $2)`, topic.ID, creatorID); err != nil {
		return models.Topic{}, err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO topic_admins (topic_id, user_id) VALUES ($1, $2)`, topic.ID, creatorID); err != nil {
		return models.Topic{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Topic{}, err
	}
	return topic, nil
}

// Get fetches a topic by id.
func (r *TopicRepo) Get(ctx context.Context, topicID string) (models.Topic, error) {
	var topic models.Topic
	err := r.db.GetContext(ctx, &topic, `SELECT id, name, is_private, creator_id, created_at, last_activity_at FROM topics WHERE id=$1`, topicID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Topic{}, ErrTopicNotFound
	}
	return topic, err
}

// GetByName fetches a topic by its case-insensitive name.
func (r *TopicRepo) GetByName(ctx context.Context, name string) (models.Topic, error) {
	var topic models.Topic
	err := r.db.GetContext(ctx, &topic, `SELECT id, name, is_private, creator_id, created_at, last_activity_at FROM topics WHERE LOWER(name)=LOWER($1)`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Topic{}, ErrTopicNotFound
	}
	return topic, err
}

// List returns all topics, most recently active first.
func (r *TopicRepo) List(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	err := r.db.SelectContext(ctx, &topics, `SELECT id, name, is_private, creator_id, created_at, last_activity_at FROM topics ORDER BY last_activity_at DESC`)
	return topics, err
}

// IsMember checks durable membership.
func (r *TopicRepo) IsMember(ctx context.Context, topicID string, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM topic_members WHERE topic_id=$1 AND user_id=$2)`, topicID, userID)
	return exists, err
}

// IsAdmin checks whether the user administers the topic.
func (r *TopicRepo) IsAdmin(ctx context.Context, topicID string, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM topic_admins WHERE topic_id=$1 AND user_id=$2)`, topicID, userID)
	return exists, err
}

// AddMember adds a user to the durable member set.
func (r *TopicRepo) AddMember(ctx context.Context, topicID string, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO topic_members (topic_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, topicID, userID)
	return err
}

// RemoveMember removes a user from the durable member set.
func (r *TopicRepo) RemoveMember(ctx context.Context, topicID string, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM topic_members WHERE topic_id=$1 AND user_id=$2`, topicID, userID)
	return err
}

// TouchActivity bumps the topic's last activity timestamp.
func (r *TopicRepo) TouchActivity(ctx context.Context, topicID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE topics SET last_activity_at = NOW() WHERE id=$1`, topicID)
	return err
}
