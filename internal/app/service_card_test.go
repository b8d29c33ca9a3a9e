package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"taskboard/api/internal/config"
	"taskboard/api/internal/store"
)

type fakeStore struct {
	getUserByIDFn              func(context.Context, string) (store.User, error)
	getUserByEmailFn           func(context.Context, string) (store.User, error)
	getBoardFn                 func(context.Context, string) (store.Board, error)
	listBoardsForUserFn        func(context.Context, string) ([]store.Board, error)
	insertBoardFn              func(context.Context, store.Board) error
	insertBoardMemberFn        func(context.Context, store.BoardMember) error
	getBoardMemberFn           func(context.Context, string, string) (store.BoardMember, error)
	getListFn                  func(context.Context, string) (store.List, error)
	maxListPositionFn          func(context.Context, string) (int, bool, error)
	insertListFn               func(context.Context, store.List) error
	getCardFn                  func(context.Context, string) (store.Card, error)
	listCardsFn                func(context.Context, string) ([]store.Card, error)
	insertCardFn               func(context.Context, store.Card) error
	updateCardFn               func(context.Context, store.Card) error
	deleteCardFn               func(context.Context, string) error
	maxCardPositionFn          func(context.Context, string) (int, bool, error)
	insertCardActivityFn       func(context.Context, store.CardActivity) error
	listCardActivitiesFn       func(context.Context, store.ActivityQuery) ([]store.CardActivity, int, error)
	insertCardListChangeFn     func(context.Context, store.CardListChange) error
	getListChangeForActivityFn func(context.Context, string) (store.CardListChange, error)
	insertCardCommentFn        func(context.Context, store.CardComment) error
	getCardCommentFn           func(context.Context, string) (store.CardComment, error)
	updateCardCommentFn        func(context.Context, string, string) error
	deleteCardCommentFn        func(context.Context, string) error
	insertCardMemberFn         func(context.Context, store.CardMember) error
	getCardMemberFn            func(context.Context, string, string) (store.CardMember, error)
	getCardMemberByIDFn        func(context.Context, string) (store.CardMember, error)
	deleteCardMemberFn         func(context.Context, string, string) error
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) SaveRefreshSession(context.Context, string, string, time.Time) error { return nil }
func (f *fakeStore) LookupRefreshSession(context.Context, string) (store.User, error) {
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) RevokeRefreshSession(context.Context, string) error        { return nil }
func (f *fakeStore) RevokeAccessToken(context.Context, string, time.Time) error { return nil }
func (f *fakeStore) IsAccessTokenRevoked(context.Context, string) (bool, error) { return false, nil }

func (f *fakeStore) InsertBoard(ctx context.Context, board store.Board) error {
	if f.insertBoardFn != nil {
		return f.insertBoardFn(ctx, board)
	}
	return nil
}
func (f *fakeStore) GetBoard(ctx context.Context, boardID string) (store.Board, error) {
	if f.getBoardFn != nil {
		return f.getBoardFn(ctx, boardID)
	}
	return store.Board{}, sql.ErrNoRows
}
func (f *fakeStore) ListBoardsForUser(ctx context.Context, userID string) ([]store.Board, error) {
	if f.listBoardsForUserFn != nil {
		return f.listBoardsForUserFn(ctx, userID)
	}
	return nil, nil
}
func (f *fakeStore) UpdateBoardTitle(context.Context, string, string) error { return nil }
func (f *fakeStore) DeleteBoard(context.Context, string) error              { return nil }

func (f *fakeStore) InsertBoardMember(ctx context.Context, member store.BoardMember) error {
	if f.insertBoardMemberFn != nil {
		return f.insertBoardMemberFn(ctx, member)
	}
	return nil
}
func (f *fakeStore) GetBoardMember(ctx context.Context, boardID, userID string) (store.BoardMember, error) {
	if f.getBoardMemberFn != nil {
		return f.getBoardMemberFn(ctx, boardID, userID)
	}
	return store.BoardMember{}, sql.ErrNoRows
}
func (f *fakeStore) ListBoardMembers(context.Context, string) ([]store.BoardMember, error) {
	return nil, nil
}
func (f *fakeStore) UpdateBoardMemberRole(context.Context, string, string, string) error { return nil }
func (f *fakeStore) DeleteBoardMember(context.Context, string, string) error             { return nil }

func (f *fakeStore) InsertList(ctx context.Context, list store.List) error {
	if f.insertListFn != nil {
		return f.insertListFn(ctx, list)
	}
	return nil
}
func (f *fakeStore) GetList(ctx context.Context, listID string) (store.List, error) {
	if f.getListFn != nil {
		return f.getListFn(ctx, listID)
	}
	return store.List{}, sql.ErrNoRows
}
func (f *fakeStore) ListLists(context.Context, string) ([]store.List, error) { return nil, nil }
func (f *fakeStore) UpdateList(context.Context, string, string, int) error   { return nil }
func (f *fakeStore) DeleteList(context.Context, string) error                { return nil }
func (f *fakeStore) MaxListPosition(ctx context.Context, boardID string) (int, bool, error) {
	if f.maxListPositionFn != nil {
		return f.maxListPositionFn(ctx, boardID)
	}
	return 0, false, nil
}

func (f *fakeStore) InsertCard(ctx context.Context, card store.Card) error {
	if f.insertCardFn != nil {
		return f.insertCardFn(ctx, card)
	}
	return nil
}
func (f *fakeStore) GetCard(ctx context.Context, cardID string) (store.Card, error) {
	if f.getCardFn != nil {
		return f.getCardFn(ctx, cardID)
	}
	return store.Card{}, sql.ErrNoRows
}
func (f *fakeStore) ListCards(ctx context.Context, listID string) ([]store.Card, error) {
	if f.listCardsFn != nil {
		return f.listCardsFn(ctx, listID)
	}
	return nil, nil
}
func (f *fakeStore) UpdateCard(ctx context.Context, card store.Card) error {
	if f.updateCardFn != nil {
		return f.updateCardFn(ctx, card)
	}
	return nil
}
func (f *fakeStore) DeleteCard(ctx context.Context, cardID string) error {
	if f.deleteCardFn != nil {
		return f.deleteCardFn(ctx, cardID)
	}
	return nil
}
func (f *fakeStore) MaxCardPosition(ctx context.Context, listID string) (int, bool, error) {
	if f.maxCardPositionFn != nil {
		return f.maxCardPositionFn(ctx, listID)
	}
	return 0, false, nil
}

func (f *fakeStore) InsertCardActivity(ctx context.Context, activity store.CardActivity) error {
	if f.insertCardActivityFn != nil {
		return f.insertCardActivityFn(ctx, activity)
	}
	return nil
}
func (f *fakeStore) ListCardActivities(ctx context.Context, q store.ActivityQuery) ([]store.CardActivity, int, error) {
	if f.listCardActivitiesFn != nil {
		return f.listCardActivitiesFn(ctx, q)
	}
	return nil, 0, nil
}
func (f *fakeStore) InsertCardListChange(ctx context.Context, change store.CardListChange) error {
	if f.insertCardListChangeFn != nil {
		return f.insertCardListChangeFn(ctx, change)
	}
	return nil
}
func (f *fakeStore) GetListChangeForActivity(ctx context.Context, activityID string) (store.CardListChange, error) {
	if f.getListChangeForActivityFn != nil {
		return f.getListChangeForActivityFn(ctx, activityID)
	}
	return store.CardListChange{}, sql.ErrNoRows
}

func (f *fakeStore) InsertCardComment(ctx context.Context, comment store.CardComment) error {
	if f.insertCardCommentFn != nil {
		return f.insertCardCommentFn(ctx, comment)
	}
	return nil
}
func (f *fakeStore) GetCardComment(ctx context.Context, commentID string) (store.CardComment, error) {
	if f.getCardCommentFn != nil {
		return f.getCardCommentFn(ctx, commentID)
	}
	return store.CardComment{}, sql.ErrNoRows
}
func (f *fakeStore) UpdateCardComment(ctx context.Context, commentID, text string) error {
	if f.updateCardCommentFn != nil {
		return f.updateCardCommentFn(ctx, commentID, text)
	}
	return nil
}
func (f *fakeStore) DeleteCardComment(ctx context.Context, commentID string) error {
	if f.deleteCardCommentFn != nil {
		return f.deleteCardCommentFn(ctx, commentID)
	}
	return nil
}

func (f *fakeStore) InsertCardMember(ctx context.Context, member store.CardMember) error {
	if f.insertCardMemberFn != nil {
		return f.insertCardMemberFn(ctx, member)
	}
	return nil
}
func (f *fakeStore) GetCardMember(ctx context.Context, cardID, userID string) (store.CardMember, error) {
	if f.getCardMemberFn != nil {
		return f.getCardMemberFn(ctx, cardID, userID)
	}
	return store.CardMember{}, sql.ErrNoRows
}
func (f *fakeStore) GetCardMemberByID(ctx context.Context, memberID string) (store.CardMember, error) {
	if f.getCardMemberByIDFn != nil {
		return f.getCardMemberByIDFn(ctx, memberID)
	}
	return store.CardMember{}, sql.ErrNoRows
}
func (f *fakeStore) DeleteCardMember(ctx context.Context, cardID, userID string) error {
	if f.deleteCardMemberFn != nil {
		return f.deleteCardMemberFn(ctx, cardID, userID)
	}
	return nil
}

func newTestService(fs *fakeStore) *Service {
	cfg := config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
	return NewService(cfg, fs, nil, nil)
}

func memberWithRole(role string) func(context.Context, string, string) (store.BoardMember, error) {
	return func(_ context.Context, boardID, userID string) (store.BoardMember, error) {
		return store.BoardMember{ID: "bm-1", BoardID: boardID, UserID: userID, Role: role}, nil
	}
}

func cardFixture() store.Card {
	return store.Card{
		ID:      "card-1",
		ListID:  "list-a",
		BoardID: "board-1",
		OwnerID: "owner-1",
		Title:   "Ship it",
	}
}

func assertForbidden(t *testing.T, err error) {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %s", domainErr.Code)
	}
}

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", domainErr.Code)
	}
	details, ok := domainErr.Details.(map[string][]string)
	if !ok {
		t.Fatalf("expected field-keyed details, got %T", domainErr.Details)
	}
	if _, ok := details[field]; !ok {
		t.Fatalf("expected details for field %q, got %v", field, details)
	}
}

func TestUpdateCardForbiddenForViewer(t *testing.T) {
	updated := false
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("viewer"),
		updateCardFn: func(context.Context, store.Card) error {
			updated = true
			return nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.UpdateCard(context.Background(), Session{UserID: "user-1"}, "card-1", map[string]any{"title": "New"})
	assertForbidden(t, err)
	if updated {
		t.Fatal("card must not be written when the caller lacks permission")
	}
}

func TestUpdateCardForbiddenForNonMember(t *testing.T) {
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.UpdateCard(context.Background(), Session{UserID: "stranger"}, "card-1", map[string]any{"title": "New"})
	assertForbidden(t, err)
}

func TestCreateCardAppendsAfterMaxPosition(t *testing.T) {
	var inserted store.Card
	fs := &fakeStore{
		getListFn: func(context.Context, string) (store.List, error) {
			return store.List{ID: "list-a", BoardID: "board-1", Title: "Doing"}, nil
		},
		getBoardMemberFn: memberWithRole("editor"),
		maxCardPositionFn: func(context.Context, string) (int, bool, error) {
			return 2, true, nil
		},
		insertCardFn: func(_ context.Context, card store.Card) error {
			inserted = card
			return nil
		},
	}
	svc := newTestService(fs)

	card, err := svc.CreateCard(context.Background(), Session{UserID: "user-1"}, "list-a", CreateCardInput{Title: "Fourth"})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if card.Position != 3 {
		t.Fatalf("expected position 3 after max 2, got %d", card.Position)
	}
	if inserted.Position != 3 {
		t.Fatalf("persisted position %d, want 3", inserted.Position)
	}
}

func TestCreateCardEmptyListStartsAtZero(t *testing.T) {
	fs := &fakeStore{
		getListFn: func(context.Context, string) (store.List, error) {
			return store.List{ID: "list-a", BoardID: "board-1"}, nil
		},
		getBoardMemberFn: memberWithRole("editor"),
	}
	svc := newTestService(fs)

	card, err := svc.CreateCard(context.Background(), Session{UserID: "user-1"}, "list-a", CreateCardInput{Title: "First"})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if card.Position != 0 {
		t.Fatalf("expected position 0 for empty list, got %d", card.Position)
	}
}

func TestMoveCardCrossBoardRejected(t *testing.T) {
	activityLogged := false
	updated := false
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("editor"),
		getListFn: func(_ context.Context, listID string) (store.List, error) {
			if listID == "list-other-board" {
				return store.List{ID: listID, BoardID: "board-2", Title: "Elsewhere"}, nil
			}
			return store.List{ID: listID, BoardID: "board-1", Title: "Doing"}, nil
		},
		insertCardActivityFn: func(context.Context, store.CardActivity) error {
			activityLogged = true
			return nil
		},
		updateCardFn: func(context.Context, store.Card) error {
			updated = true
			return nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.UpdateCard(context.Background(), Session{UserID: "user-1"}, "card-1", map[string]any{"listId": "list-other-board"})
	assertValidation(t, err, "listId")
	if activityLogged {
		t.Fatal("no activity may be logged for a rejected move")
	}
	if updated {
		t.Fatal("card must not be written for a rejected move")
	}
}

func TestMoveCardLogsSnapshotAndReassigns(t *testing.T) {
	var activity store.CardActivity
	var change store.CardListChange
	var updated store.Card
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("editor"),
		getListFn: func(_ context.Context, listID string) (store.List, error) {
			switch listID {
			case "list-a":
				return store.List{ID: "list-a", BoardID: "board-1", Title: "To Do"}, nil
			case "list-b":
				return store.List{ID: "list-b", BoardID: "board-1", Title: "Done"}, nil
			}
			return store.List{}, sql.ErrNoRows
		},
		insertCardActivityFn: func(_ context.Context, a store.CardActivity) error {
			activity = a
			return nil
		},
		insertCardListChangeFn: func(_ context.Context, c store.CardListChange) error {
			change = c
			return nil
		},
		updateCardFn: func(_ context.Context, card store.Card) error {
			updated = card
			return nil
		},
	}
	svc := newTestService(fs)

	card, err := svc.UpdateCard(context.Background(), Session{UserID: "user-1"}, "card-1", map[string]any{"listId": "list-b"})
	if err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	if card.ListID != "list-b" {
		t.Fatalf("card not reassigned, list is %s", card.ListID)
	}
	if updated.ListID != "list-b" {
		t.Fatalf("persisted card list is %s, want list-b", updated.ListID)
	}
	if activity.Event != store.EventMoveToList {
		t.Fatalf("expected MOVE_TO_LIST activity, got %q", activity.Event)
	}
	if activity.CardID == nil || *activity.CardID != "card-1" {
		t.Fatal("activity must reference the moved card")
	}
	if change.ActivityID != activity.ID {
		t.Fatal("list change must be keyed by the activity id")
	}
	if change.FromListTitle != "To Do" || change.ToListTitle != "Done" {
		t.Fatalf("snapshot titles wrong: %q -> %q", change.FromListTitle, change.ToListTitle)
	}
}

func TestMoveCardToMissingListIsNotFound(t *testing.T) {
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("editor"),
		getListFn: func(context.Context, string) (store.List, error) {
			return store.List{}, sql.ErrNoRows
		},
	}
	svc := newTestService(fs)

	_, err := svc.UpdateCard(context.Background(), Session{UserID: "user-1"}, "card-1", map[string]any{"listId": "gone"})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected no-rows error for missing target list, got %v", err)
	}
}

func TestUpdateCardIgnoresUnknownFields(t *testing.T) {
	var updated store.Card
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("editor"),
		updateCardFn: func(_ context.Context, card store.Card) error {
			updated = card
			return nil
		},
	}
	svc := newTestService(fs)

	card, err := svc.UpdateCard(context.Background(), Session{UserID: "user-1"}, "card-1", map[string]any{
		"title":    "Renamed",
		"bogus":    "ignored",
		"ownerId":  "attacker",
		"position": float64(7),
	})
	if err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	if card.Title != "Renamed" || card.Position != 7 {
		t.Fatalf("recognized fields not applied: %+v", card)
	}
	if updated.OwnerID != "owner-1" {
		t.Fatal("ownerId must not be patchable")
	}
}

func TestPostCommentByCommenter(t *testing.T) {
	var comment store.CardComment
	var activity store.CardActivity
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("commenter"),
		insertCardCommentFn: func(_ context.Context, c store.CardComment) error {
			comment = c
			return nil
		},
		insertCardActivityFn: func(_ context.Context, a store.CardActivity) error {
			activity = a
			return nil
		},
	}
	fs.getCardCommentFn = func(context.Context, string) (store.CardComment, error) {
		return comment, nil
	}
	svc := newTestService(fs)

	view, err := svc.PostComment(context.Background(), Session{UserID: "user-1"}, "card-1", "looks good")
	if err != nil {
		t.Fatalf("PostComment: %v", err)
	}
	if activity.Event != store.EventComment {
		t.Fatalf("expected COMMENT activity, got %q", activity.Event)
	}
	if activity.EntityID != comment.ID {
		t.Fatal("activity entity must be the comment id")
	}
	if view.Comment == nil || view.Comment.Comment != "looks good" {
		t.Fatalf("rendered activity missing comment payload: %+v", view)
	}
	if view.ListChange != nil || view.Member != nil || view.User != nil {
		t.Fatal("comment activity must carry only the comment payload")
	}
}

func TestPostCommentForbiddenForViewer(t *testing.T) {
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("viewer"),
	}
	svc := newTestService(fs)

	_, err := svc.PostComment(context.Background(), Session{UserID: "user-1"}, "card-1", "hi")
	assertForbidden(t, err)
}

func TestDeleteCommentByNonAuthorForbidden(t *testing.T) {
	deleted := false
	fs := &fakeStore{
		getCardCommentFn: func(context.Context, string) (store.CardComment, error) {
			return store.CardComment{ID: "cmt-1", CardID: "card-1", BoardID: "board-1", UserID: "author"}, nil
		},
		getBoardMemberFn: memberWithRole("admin"),
		deleteCardCommentFn: func(context.Context, string) error {
			deleted = true
			return nil
		},
	}
	svc := newTestService(fs)

	err := svc.DeleteComment(context.Background(), Session{UserID: "someone-else"}, "cmt-1")
	assertForbidden(t, err)
	if deleted {
		t.Fatal("comment must not be deleted by a non-author")
	}
}

func TestUpdateCommentRequiresCommentPermission(t *testing.T) {
	fs := &fakeStore{
		getCardCommentFn: func(context.Context, string) (store.CardComment, error) {
			return store.CardComment{ID: "cmt-1", CardID: "card-1", BoardID: "board-1", UserID: "author"}, nil
		},
		getBoardMemberFn: memberWithRole("viewer"),
	}
	svc := newTestService(fs)

	// The author lost comment rights; authorship alone is not enough.
	_, err := svc.UpdateComment(context.Background(), Session{UserID: "author"}, "cmt-1", "edited")
	assertForbidden(t, err)
}

func TestUpdateCommentAppendsEditActivity(t *testing.T) {
	var activity store.CardActivity
	fs := &fakeStore{
		getCardCommentFn: func(context.Context, string) (store.CardComment, error) {
			return store.CardComment{ID: "cmt-1", CardID: "card-1", BoardID: "board-1", UserID: "author"}, nil
		},
		getBoardMemberFn: memberWithRole("commenter"),
		insertCardActivityFn: func(_ context.Context, a store.CardActivity) error {
			activity = a
			return nil
		},
	}
	svc := newTestService(fs)

	comment, err := svc.UpdateComment(context.Background(), Session{UserID: "author"}, "cmt-1", "edited")
	if err != nil {
		t.Fatalf("UpdateComment: %v", err)
	}
	if comment.Comment != "edited" {
		t.Fatalf("comment text not updated: %q", comment.Comment)
	}
	if activity.Event != store.EventComment {
		t.Fatalf("expected COMMENT activity for the edit, got %q", activity.Event)
	}
	if activity.EntityID != "cmt-1" {
		t.Fatal("edit activity must point at the edited comment")
	}
	if activity.CardID == nil || *activity.CardID != "card-1" {
		t.Fatal("edit activity must reference the comment's card")
	}
}

func TestListActivitiesDefaultsAndCommentFilter(t *testing.T) {
	var captured store.ActivityQuery
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("viewer"),
		listCardActivitiesFn: func(_ context.Context, q store.ActivityQuery) ([]store.CardActivity, int, error) {
			captured = q
			return nil, 0, nil
		},
	}
	svc := newTestService(fs)

	page, err := svc.ListActivities(context.Background(), Session{UserID: "user-1"}, "card-1", ActivityListInput{Type: "comment", SortBy: "nonsense"})
	if err != nil {
		t.Fatalf("ListActivities: %v", err)
	}
	if !captured.CommentsOnly {
		t.Fatal("type=comment must narrow to comment events")
	}
	if captured.SortBy != "activity_on" {
		t.Fatalf("unknown sort field must fall back to activity_on, got %q", captured.SortBy)
	}
	if captured.Order != "desc" {
		t.Fatalf("default order must be desc, got %q", captured.Order)
	}
	if page.Page != 1 || page.PerPage != 20 {
		t.Fatalf("default paging wrong: page=%d perPage=%d", page.Page, page.PerPage)
	}
	if page.Items == nil {
		t.Fatal("items must render as an empty slice, not null")
	}
}

func TestListActivitiesForbiddenForNonMember(t *testing.T) {
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.ListActivities(context.Background(), Session{UserID: "stranger"}, "card-1", ActivityListInput{})
	assertForbidden(t, err)
}

func TestAssignMemberHappyPath(t *testing.T) {
	var link store.CardMember
	var activity store.CardActivity
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("editor"),
		insertCardMemberFn: func(_ context.Context, m store.CardMember) error {
			link = m
			return nil
		},
		insertCardActivityFn: func(_ context.Context, a store.CardActivity) error {
			activity = a
			return nil
		},
	}
	fs.getCardMemberByIDFn = func(context.Context, string) (store.CardMember, error) {
		return link, nil
	}
	svc := newTestService(fs)

	view, err := svc.AssignMember(context.Background(), Session{UserID: "assigner"}, "card-1", "assignee")
	if err != nil {
		t.Fatalf("AssignMember: %v", err)
	}
	if link.UserID != "assignee" || link.AssignedBy != "assigner" {
		t.Fatalf("link wrong: %+v", link)
	}
	if activity.Event != store.EventAssignMember {
		t.Fatalf("expected ASSIGN_MEMBER activity, got %q", activity.Event)
	}
	if activity.EntityID != link.ID {
		t.Fatal("activity entity must be the card member link id")
	}
	if view.Member == nil || view.Member.UserID != "assignee" {
		t.Fatalf("rendered activity missing member payload: %+v", view)
	}
}

func TestAssignMemberRequiresBoardMembership(t *testing.T) {
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: func(_ context.Context, _, userID string) (store.BoardMember, error) {
			if userID == "assigner" {
				return store.BoardMember{Role: "editor"}, nil
			}
			return store.BoardMember{}, sql.ErrNoRows
		},
	}
	svc := newTestService(fs)

	_, err := svc.AssignMember(context.Background(), Session{UserID: "assigner"}, "card-1", "outsider")
	assertValidation(t, err, "userId")
}

func TestAssignMemberDuplicateRejected(t *testing.T) {
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("editor"),
		getCardMemberFn: func(context.Context, string, string) (store.CardMember, error) {
			return store.CardMember{ID: "cm-1"}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.AssignMember(context.Background(), Session{UserID: "assigner"}, "card-1", "assignee")
	assertValidation(t, err, "userId")
}

func TestUnassignMemberLogsUser(t *testing.T) {
	var activity store.CardActivity
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("editor"),
		getCardMemberFn: func(context.Context, string, string) (store.CardMember, error) {
			return store.CardMember{ID: "cm-1", CardID: "card-1", UserID: "assignee"}, nil
		},
		insertCardActivityFn: func(_ context.Context, a store.CardActivity) error {
			activity = a
			return nil
		},
		getUserByIDFn: func(context.Context, string) (store.User, error) {
			return store.User{ID: "assignee", DisplayName: "Sam"}, nil
		},
	}
	svc := newTestService(fs)

	view, err := svc.UnassignMember(context.Background(), Session{UserID: "assigner"}, "card-1", "assignee")
	if err != nil {
		t.Fatalf("UnassignMember: %v", err)
	}
	if activity.Event != store.EventUnassignMember {
		t.Fatalf("expected UNASSIGN_MEMBER activity, got %q", activity.Event)
	}
	if activity.EntityID != "assignee" {
		t.Fatal("unassign activity entity must be the user id, the link row is gone")
	}
	if view.User == nil || view.User.Name != "Sam" {
		t.Fatalf("rendered activity missing user payload: %+v", view)
	}
}

func TestAssignMemberForbiddenForCommenter(t *testing.T) {
	fs := &fakeStore{
		getCardFn: func(context.Context, string) (store.Card, error) {
			return cardFixture(), nil
		},
		getBoardMemberFn: memberWithRole("commenter"),
	}
	svc := newTestService(fs)

	_, err := svc.AssignMember(context.Background(), Session{UserID: "user-1"}, "card-1", "assignee")
	assertForbidden(t, err)
}
