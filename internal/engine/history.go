package engine

import (
	"context"

	"topics-service/internal/models"
)

// History returns one page of topic history. Access is checked against the
// topic directory exactly like Join, independently of whether the caller is
// currently joined to the live room. Page 1 is the newest page; messages
// within a page run oldest to newest.
func (e *Engine) History(ctx context.Context, identity models.Identity, topicID string, page int, pageSize int) (models.HistoryPage, error) {
	if _, err := e.checkAccess(ctx, topicID, identity.ID); err != nil {
		return models.HistoryPage{}, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	msgs, total, err := e.messages.Query(ctx, topicID, page, pageSize)
	if err != nil {
		return models.HistoryPage{}, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return models.HistoryPage{
		Messages:    msgs,
		HasMore:     page < totalPages,
		CurrentPage: page,
		TotalPages:  totalPages,
	}, nil
}
