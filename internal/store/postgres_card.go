package store

import (
	"context"
	"fmt"
	"strings"
)

func (s *PostgresStore) InsertCard(ctx context.Context, card Card) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, list_id, board_id, owner_id, title, description, due_date, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, card.ID, card.ListID, card.BoardID, card.OwnerID, card.Title, card.Description, card.DueDate, card.Position)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCard(ctx context.Context, cardID string) (Card, error) {
	var card Card
	err := s.db.QueryRowContext(ctx, `
		SELECT id, list_id, board_id, owner_id, title, description, due_date, position, created_at, updated_at
		FROM cards
		WHERE id=$1
	`, cardID).Scan(&card.ID, &card.ListID, &card.BoardID, &card.OwnerID, &card.Title, &card.Description, &card.DueDate, &card.Position, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return Card{}, err
	}
	return card, nil
}

func (s *PostgresStore) ListCards(ctx context.Context, listID string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, list_id, board_id, owner_id, title, description, due_date, position, created_at, updated_at
		FROM cards
		WHERE list_id=$1
		ORDER BY position, id
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	items := make([]Card, 0)
	for rows.Next() {
		var card Card
		if err := rows.Scan(&card.ID, &card.ListID, &card.BoardID, &card.OwnerID, &card.Title, &card.Description, &card.DueDate, &card.Position, &card.CreatedAt, &card.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		items = append(items, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateCard(ctx context.Context, card Card) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET list_id=$2, title=$3, description=$4, due_date=$5, position=$6, updated_at=NOW()
		WHERE id=$1
	`, card.ID, card.ListID, card.Title, card.Description, card.DueDate, card.Position)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCard(ctx context.Context, cardID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id=$1`, cardID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

// MaxCardPosition returns the highest position in the list, scoped by a
// bound parameter. The second return reports whether the list has any cards.
func (s *PostgresStore) MaxCardPosition(ctx context.Context, listID string) (int, bool, error) {
	var max *int
	err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM cards WHERE list_id=$1`, listID).Scan(&max)
	if err != nil {
		return 0, false, fmt.Errorf("max card position: %w", err)
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

func (s *PostgresStore) InsertCardActivity(ctx context.Context, activity CardActivity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_activities (id, card_id, board_id, user_id, event, entity_id, activity_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, activity.ID, activity.CardID, activity.BoardID, activity.UserID, activity.Event, activity.EntityID, activity.ActivityOn)
	if err != nil {
		return fmt.Errorf("insert card activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertCardListChange(ctx context.Context, change CardListChange) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_list_changes (id, activity_id, from_list_id, from_list_title, to_list_id, to_list_title)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, change.ID, change.ActivityID, change.FromListID, change.FromListTitle, change.ToListID, change.ToListTitle)
	if err != nil {
		return fmt.Errorf("insert card list change: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetListChangeForActivity(ctx context.Context, activityID string) (CardListChange, error) {
	var change CardListChange
	err := s.db.QueryRowContext(ctx, `
		SELECT id, activity_id, from_list_id, from_list_title, to_list_id, to_list_title
		FROM card_list_changes
		WHERE activity_id=$1
	`, activityID).Scan(&change.ID, &change.ActivityID, &change.FromListID, &change.FromListTitle, &change.ToListID, &change.ToListTitle)
	if err != nil {
		return CardListChange{}, err
	}
	return change, nil
}

func (s *PostgresStore) InsertCardComment(ctx context.Context, comment CardComment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_comments (id, card_id, board_id, user_id, comment)
		VALUES ($1, $2, $3, $4, $5)
	`, comment.ID, comment.CardID, comment.BoardID, comment.UserID, comment.Comment)
	if err != nil {
		return fmt.Errorf("insert card comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCardComment(ctx context.Context, commentID string) (CardComment, error) {
	var comment CardComment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, card_id, board_id, user_id, comment, created, updated
		FROM card_comments
		WHERE id=$1
	`, commentID).Scan(&comment.ID, &comment.CardID, &comment.BoardID, &comment.UserID, &comment.Comment, &comment.Created, &comment.Updated)
	if err != nil {
		return CardComment{}, err
	}
	return comment, nil
}

func (s *PostgresStore) UpdateCardComment(ctx context.Context, commentID, text string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE card_comments SET comment=$2, updated=NOW() WHERE id=$1`, commentID, text)
	if err != nil {
		return fmt.Errorf("update card comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCardComment(ctx context.Context, commentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM card_comments WHERE id=$1`, commentID)
	if err != nil {
		return fmt.Errorf("delete card comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertCardMember(ctx context.Context, member CardMember) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_members (id, card_id, board_id, user_id, assigned_by)
		VALUES ($1, $2, $3, $4, $5)
	`, member.ID, member.CardID, member.BoardID, member.UserID, member.AssignedBy)
	if err != nil {
		return fmt.Errorf("insert card member: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCardMember(ctx context.Context, cardID, userID string) (CardMember, error) {
	var member CardMember
	err := s.db.QueryRowContext(ctx, `
		SELECT id, card_id, board_id, user_id, assigned_by, created_at
		FROM card_members
		WHERE card_id=$1 AND user_id=$2
	`, cardID, userID).Scan(&member.ID, &member.CardID, &member.BoardID, &member.UserID, &member.AssignedBy, &member.CreatedAt)
	if err != nil {
		return CardMember{}, err
	}
	return member, nil
}

func (s *PostgresStore) GetCardMemberByID(ctx context.Context, memberID string) (CardMember, error) {
	var member CardMember
	err := s.db.QueryRowContext(ctx, `
		SELECT id, card_id, board_id, user_id, assigned_by, created_at
		FROM card_members
		WHERE id=$1
	`, memberID).Scan(&member.ID, &member.CardID, &member.BoardID, &member.UserID, &member.AssignedBy, &member.CreatedAt)
	if err != nil {
		return CardMember{}, err
	}
	return member, nil
}

func (s *PostgresStore) DeleteCardMember(ctx context.Context, cardID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM card_members WHERE card_id=$1 AND user_id=$2`, cardID, userID)
	if err != nil {
		return fmt.Errorf("delete card member: %w", err)
	}
	return nil
}

// activitySortColumns whitelists sortable activity fields; anything else
// falls back to activity_on.
var activitySortColumns = map[string]string{
	"id":          "id",
	"event":       "event",
	"entity_id":   "entity_id",
	"user_id":     "user_id",
	"activity_on": "activity_on",
}

func (s *PostgresStore) ListCardActivities(ctx context.Context, q ActivityQuery) ([]CardActivity, int, error) {
	where := "card_id = $1"
	args := []any{q.CardID}
	if q.CommentsOnly {
		where += " AND event = $2"
		args = append(args, EventComment)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM card_activities WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count card activities: %w", err)
	}

	column, ok := activitySortColumns[q.SortBy]
	if !ok {
		column = "activity_on"
	}
	direction := "DESC"
	if strings.EqualFold(q.Order, "asc") {
		direction = "ASC"
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = 20
	}

	query := fmt.Sprintf(`
		SELECT id, card_id, board_id, user_id, event, entity_id, activity_on
		FROM card_activities
		WHERE %s
		ORDER BY %s %s
		LIMIT %d OFFSET %d
	`, where, column, direction, perPage, (page-1)*perPage)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list card activities: %w", err)
	}
	defer rows.Close()

	items := make([]CardActivity, 0)
	for rows.Next() {
		var activity CardActivity
		if err := rows.Scan(&activity.ID, &activity.CardID, &activity.BoardID, &activity.UserID, &activity.Event, &activity.EntityID, &activity.ActivityOn); err != nil {
			return nil, 0, fmt.Errorf("scan card activity: %w", err)
		}
		items = append(items, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate card activities: %w", err)
	}
	return items, total, nil
}
