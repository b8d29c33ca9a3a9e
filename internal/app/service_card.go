package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"taskboard/api/internal/rbac"
	"taskboard/api/internal/search"
	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

func (s *Service) GetCard(ctx context.Context, session Session, cardID string) (store.Card, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return store.Card{}, err
	}
	ok, err := s.canAccess(ctx, session.UserID, card.BoardID)
	if err != nil {
		return store.Card{}, err
	}
	if !ok {
		return store.Card{}, errForbidden()
	}
	return card, nil
}

func (s *Service) ListCards(ctx context.Context, session Session, listID string) ([]store.Card, error) {
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canAccess(ctx, session.UserID, list.BoardID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errForbidden()
	}
	return s.store.ListCards(ctx, list.ID)
}

type CreateCardInput struct {
	Title       string
	Description string
	DueDate     *time.Time
}

// CreateCard appends the card to the bottom of the list: one past the
// current maximum position, or zero for an empty list.
func (s *Service) CreateCard(ctx context.Context, session Session, listID string, input CreateCardInput) (store.Card, error) {
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return store.Card{}, err
	}
	allowed, err := s.hasPermission(ctx, session.UserID, list.BoardID, rbac.PermCardEdit)
	if err != nil {
		return store.Card{}, err
	}
	if !allowed {
		return store.Card{}, errForbidden()
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return store.Card{}, errValidation("title", "title is required")
	}

	position := 0
	if max, found, err := s.store.MaxCardPosition(ctx, list.ID); err != nil {
		return store.Card{}, err
	} else if found {
		position = max + 1
	}

	card := store.Card{
		ID:          util.NewID("crd"),
		ListID:      list.ID,
		BoardID:     list.BoardID,
		OwnerID:     session.UserID,
		Title:       title,
		Description: input.Description,
		DueDate:     input.DueDate,
		Position:    position,
	}
	if err := s.store.InsertCard(ctx, card); err != nil {
		return store.Card{}, err
	}
	s.indexCard(card)
	return card, nil
}

// UpdateCard applies a partial patch. Recognized keys are title, description,
// dueDate, position, and listId; anything else is ignored. A listId change is
// a move: the target list must exist and belong to the same board, and the
// move is recorded in the activity log with both list titles snapshotted
// before the card is reassigned.
func (s *Service) UpdateCard(ctx context.Context, session Session, cardID string, patch map[string]any) (store.Card, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return store.Card{}, err
	}
	allowed, err := s.hasPermission(ctx, session.UserID, card.BoardID, rbac.PermCardEdit)
	if err != nil {
		return store.Card{}, err
	}
	if !allowed {
		return store.Card{}, errForbidden()
	}

	if raw, ok := patch["title"]; ok {
		title, ok := raw.(string)
		if !ok || strings.TrimSpace(title) == "" {
			return store.Card{}, errValidation("title", "title must be a non-empty string")
		}
		card.Title = strings.TrimSpace(title)
	}
	if raw, ok := patch["description"]; ok {
		if description, ok := raw.(string); ok {
			card.Description = description
		}
	}
	if raw, ok := patch["dueDate"]; ok {
		due, err := parseDueDate(raw)
		if err != nil {
			return store.Card{}, errValidation("dueDate", "dueDate must be an RFC 3339 timestamp or null")
		}
		card.DueDate = due
	}
	if raw, ok := patch["position"]; ok {
		position, ok := raw.(float64)
		if !ok || position < 0 {
			return store.Card{}, errValidation("position", "position must be a non-negative number")
		}
		card.Position = int(position)
	}

	if raw, ok := patch["listId"]; ok {
		targetID, ok := raw.(string)
		if !ok || targetID == "" {
			return store.Card{}, errValidation("listId", "listId must be a list id")
		}
		if targetID != card.ListID {
			if err := s.moveCard(ctx, session, &card, targetID); err != nil {
				return store.Card{}, err
			}
		}
	}

	if err := s.store.UpdateCard(ctx, card); err != nil {
		return store.Card{}, err
	}
	s.indexCard(card)
	return card, nil
}

// moveCard validates the target list and records the move before mutating the
// card. Cross-board moves are rejected. The activity snapshot captures both
// list titles as they are now, so renames later cannot rewrite history.
func (s *Service) moveCard(ctx context.Context, session Session, card *store.Card, targetID string) error {
	target, err := s.store.GetList(ctx, targetID)
	if err != nil {
		return err
	}
	if target.BoardID != card.BoardID {
		return errValidation("listId", "cannot move a card to a list on another board")
	}

	from, err := s.store.GetList(ctx, card.ListID)
	if err != nil {
		return err
	}

	activity, err := s.appendCardActivity(ctx, &card.ID, card.BoardID, session.UserID, store.EventMoveToList, card.ID)
	if err != nil {
		return err
	}
	change := store.CardListChange{
		ID:            util.NewID("clc"),
		ActivityID:    activity.ID,
		FromListID:    from.ID,
		FromListTitle: from.Title,
		ToListID:      target.ID,
		ToListTitle:   target.Title,
	}
	if err := s.store.InsertCardListChange(ctx, change); err != nil {
		return err
	}

	card.ListID = target.ID
	return nil
}

func (s *Service) DeleteCard(ctx context.Context, session Session, cardID string) error {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	allowed, err := s.hasPermission(ctx, session.UserID, card.BoardID, rbac.PermCardEdit)
	if err != nil {
		return err
	}
	if !allowed {
		return errForbidden()
	}
	if err := s.store.DeleteCard(ctx, card.ID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteCard(card.ID)
	}
	return nil
}

// PostComment stores the comment and appends a COMMENT activity pointing at
// it. The rendered activity is returned so clients can append it to the feed
// without refetching.
func (s *Service) PostComment(ctx context.Context, session Session, cardID, text string) (ActivityView, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return ActivityView{}, err
	}
	allowed, err := s.hasPermission(ctx, session.UserID, card.BoardID, rbac.PermCardComment)
	if err != nil {
		return ActivityView{}, err
	}
	if !allowed {
		return ActivityView{}, errForbidden()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return ActivityView{}, errValidation("comment", "comment is required")
	}

	comment := store.CardComment{
		ID:      util.NewID("cmt"),
		CardID:  card.ID,
		BoardID: card.BoardID,
		UserID:  session.UserID,
		Comment: text,
	}
	if err := s.store.InsertCardComment(ctx, comment); err != nil {
		return ActivityView{}, err
	}

	activity, err := s.appendCardActivity(ctx, &card.ID, card.BoardID, session.UserID, store.EventComment, comment.ID)
	if err != nil {
		return ActivityView{}, err
	}
	return renderActivity(ctx, s.store, activity), nil
}

// UpdateComment requires both authorship and comment permission on the board.
func (s *Service) UpdateComment(ctx context.Context, session Session, commentID, text string) (store.CardComment, error) {
	comment, err := s.store.GetCardComment(ctx, commentID)
	if err != nil {
		return store.CardComment{}, err
	}
	if comment.UserID != session.UserID {
		return store.CardComment{}, errForbidden()
	}
	allowed, err := s.hasPermission(ctx, session.UserID, comment.BoardID, rbac.PermCardComment)
	if err != nil {
		return store.CardComment{}, err
	}
	if !allowed {
		return store.CardComment{}, errForbidden()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return store.CardComment{}, errValidation("comment", "comment is required")
	}
	if err := s.store.UpdateCardComment(ctx, comment.ID, text); err != nil {
		return store.CardComment{}, err
	}
	// Edits show up in the feed as a fresh COMMENT entry for the same comment.
	if _, err := s.appendCardActivity(ctx, &comment.CardID, comment.BoardID, session.UserID, store.EventComment, comment.ID); err != nil {
		return store.CardComment{}, err
	}
	comment.Comment = text
	return comment, nil
}

// DeleteComment applies the same rule as UpdateComment: authorship plus
// comment permission, each failure reported as Forbidden.
func (s *Service) DeleteComment(ctx context.Context, session Session, commentID string) error {
	comment, err := s.store.GetCardComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != session.UserID {
		return errForbidden()
	}
	allowed, err := s.hasPermission(ctx, session.UserID, comment.BoardID, rbac.PermCardComment)
	if err != nil {
		return err
	}
	if !allowed {
		return errForbidden()
	}
	return s.store.DeleteCardComment(ctx, comment.ID)
}

// ActivityListInput carries the query-string knobs for an activity listing.
type ActivityListInput struct {
	Type    string
	SortBy  string
	Order   string
	Page    int
	PerPage int
}

// ActivityPage is the paginated envelope for activity listings.
type ActivityPage struct {
	Items   []ActivityView `json:"items"`
	Page    int            `json:"page"`
	PerPage int            `json:"perPage"`
	Total   int            `json:"total"`
}

// apiSortColumns maps API field names onto activity columns. Unknown names
// fall back to activity_on rather than erroring.
var apiSortColumns = map[string]string{
	"id":         "id",
	"event":      "event",
	"entityId":   "entity_id",
	"userId":     "user_id",
	"activityOn": "activity_on",
}

// ListActivities returns the card's activity feed, newest first by default.
// type=comment narrows the feed to comment events.
func (s *Service) ListActivities(ctx context.Context, session Session, cardID string, input ActivityListInput) (ActivityPage, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return ActivityPage{}, err
	}
	ok, err := s.canAccess(ctx, session.UserID, card.BoardID)
	if err != nil {
		return ActivityPage{}, err
	}
	if !ok {
		return ActivityPage{}, errForbidden()
	}

	sortBy, ok := apiSortColumns[input.SortBy]
	if !ok {
		sortBy = "activity_on"
	}
	order := "desc"
	if strings.EqualFold(input.Order, "asc") {
		order = "asc"
	}
	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	activities, total, err := s.store.ListCardActivities(ctx, store.ActivityQuery{
		CardID:       card.ID,
		CommentsOnly: strings.EqualFold(input.Type, "comment"),
		SortBy:       sortBy,
		Order:        order,
		Page:         page,
		PerPage:      perPage,
	})
	if err != nil {
		return ActivityPage{}, err
	}

	return ActivityPage{
		Items:   renderActivities(ctx, s.store, activities),
		Page:    page,
		PerPage: perPage,
		Total:   total,
	}, nil
}

// AssignMember links a board member to the card and logs it. The target must
// already be a member of the card's board.
func (s *Service) AssignMember(ctx context.Context, session Session, cardID, userID string) (ActivityView, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return ActivityView{}, err
	}
	allowed, err := s.hasPermission(ctx, session.UserID, card.BoardID, rbac.PermCardAssignMember)
	if err != nil {
		return ActivityView{}, err
	}
	if !allowed {
		return ActivityView{}, errForbidden()
	}

	if _, err := s.store.GetBoardMember(ctx, card.BoardID, userID); errors.Is(err, sql.ErrNoRows) {
		return ActivityView{}, errValidation("userId", "user is not a member of this board")
	} else if err != nil {
		return ActivityView{}, err
	}

	if _, err := s.store.GetCardMember(ctx, card.ID, userID); err == nil {
		return ActivityView{}, errValidation("userId", "user is already assigned to this card")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return ActivityView{}, err
	}

	member := store.CardMember{
		ID:         util.NewID("cm"),
		CardID:     card.ID,
		BoardID:    card.BoardID,
		UserID:     userID,
		AssignedBy: session.UserID,
	}
	if err := s.store.InsertCardMember(ctx, member); err != nil {
		return ActivityView{}, err
	}

	activity, err := s.appendCardActivity(ctx, &card.ID, card.BoardID, session.UserID, store.EventAssignMember, member.ID)
	if err != nil {
		return ActivityView{}, err
	}
	return renderActivity(ctx, s.store, activity), nil
}

// UnassignMember removes the link and logs it. The activity's entity id is
// the unassigned user, since the link row is gone.
func (s *Service) UnassignMember(ctx context.Context, session Session, cardID, userID string) (ActivityView, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return ActivityView{}, err
	}
	allowed, err := s.hasPermission(ctx, session.UserID, card.BoardID, rbac.PermCardAssignMember)
	if err != nil {
		return ActivityView{}, err
	}
	if !allowed {
		return ActivityView{}, errForbidden()
	}

	if _, err := s.store.GetCardMember(ctx, card.ID, userID); err != nil {
		return ActivityView{}, err
	}
	if err := s.store.DeleteCardMember(ctx, card.ID, userID); err != nil {
		return ActivityView{}, err
	}

	activity, err := s.appendCardActivity(ctx, &card.ID, card.BoardID, session.UserID, store.EventUnassignMember, userID)
	if err != nil {
		return ActivityView{}, err
	}
	return renderActivity(ctx, s.store, activity), nil
}

// SearchCards searches across every board the caller belongs to.
func (s *Service) SearchCards(ctx context.Context, session Session, text string, limit, offset int) (search.Response, error) {
	boards, err := s.store.ListBoardsForUser(ctx, session.UserID)
	if err != nil {
		return search.Response{}, err
	}
	boardIDs := make([]string, 0, len(boards))
	for _, board := range boards {
		boardIDs = append(boardIDs, board.ID)
	}

	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{
		Text:     text,
		BoardIDs: boardIDs,
		Limit:    limit,
		Offset:   offset,
	}), nil
}

func (s *Service) appendCardActivity(ctx context.Context, cardID *string, boardID, userID, event, entityID string) (store.CardActivity, error) {
	activity := store.CardActivity{
		ID:         util.NewID("act"),
		CardID:     cardID,
		BoardID:    boardID,
		UserID:     userID,
		Event:      event,
		EntityID:   entityID,
		ActivityOn: time.Now().UTC(),
	}
	if err := s.store.InsertCardActivity(ctx, activity); err != nil {
		return store.CardActivity{}, err
	}
	return activity, nil
}

func (s *Service) indexCard(card store.Card) {
	if s.search == nil {
		return
	}
	s.search.IndexCard(search.CardRecord{
		ID:          card.ID,
		BoardID:     card.BoardID,
		ListID:      card.ListID,
		Title:       card.Title,
		Description: card.Description,
	})
}

func parseDueDate(raw any) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	value, ok := raw.(string)
	if !ok {
		return nil, errors.New("not a string")
	}
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
