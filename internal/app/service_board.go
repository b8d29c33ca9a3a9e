package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskboard/api/internal/rbac"
	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

func (s *Service) CreateBoard(ctx context.Context, session Session, title string) (store.Board, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Board{}, errValidation("title", "title is required")
	}

	board := store.Board{
		ID:      util.NewID("brd"),
		OwnerID: session.UserID,
		Title:   title,
	}
	if err := s.store.InsertBoard(ctx, board); err != nil {
		return store.Board{}, err
	}

	// The creator is an admin member; ownership alone grants nothing.
	member := store.BoardMember{
		ID:      util.NewID("bm"),
		BoardID: board.ID,
		UserID:  session.UserID,
		Role:    string(rbac.RoleAdmin),
	}
	if err := s.store.InsertBoardMember(ctx, member); err != nil {
		return store.Board{}, err
	}
	return board, nil
}

func (s *Service) ListBoards(ctx context.Context, session Session) ([]store.Board, error) {
	return s.store.ListBoardsForUser(ctx, session.UserID)
}

func (s *Service) GetBoard(ctx context.Context, session Session, boardID string) (store.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.Board{}, err
	}
	ok, err := s.canAccess(ctx, session.UserID, board.ID)
	if err != nil {
		return store.Board{}, err
	}
	if !ok {
		return store.Board{}, errForbidden()
	}
	return board, nil
}

// isBoardAdmin gates member management and board-level mutation.
func (s *Service) isBoardAdmin(ctx context.Context, userID, boardID string) (bool, error) {
	member, err := s.store.GetBoardMember(ctx, boardID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get board member: %w", err)
	}
	return rbac.Role(member.Role) == rbac.RoleAdmin, nil
}

func (s *Service) UpdateBoard(ctx context.Context, session Session, boardID, title string) (store.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.Board{}, err
	}
	admin, err := s.isBoardAdmin(ctx, session.UserID, board.ID)
	if err != nil {
		return store.Board{}, err
	}
	if !admin {
		return store.Board{}, errForbidden()
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return store.Board{}, errValidation("title", "title is required")
	}
	if err := s.store.UpdateBoardTitle(ctx, board.ID, title); err != nil {
		return store.Board{}, err
	}
	board.Title = title
	return board, nil
}

func (s *Service) DeleteBoard(ctx context.Context, session Session, boardID string) error {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	admin, err := s.isBoardAdmin(ctx, session.UserID, board.ID)
	if err != nil {
		return err
	}
	if !admin {
		return errForbidden()
	}
	return s.store.DeleteBoard(ctx, board.ID)
}

func (s *Service) ListMembers(ctx context.Context, session Session, boardID string) ([]store.BoardMember, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canAccess(ctx, session.UserID, board.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errForbidden()
	}
	return s.store.ListBoardMembers(ctx, board.ID)
}

// AddMember invites an existing user to the board by email.
func (s *Service) AddMember(ctx context.Context, session Session, boardID, email, role string) (store.BoardMember, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.BoardMember{}, err
	}
	admin, err := s.isBoardAdmin(ctx, session.UserID, board.ID)
	if err != nil {
		return store.BoardMember{}, err
	}
	if !admin {
		return store.BoardMember{}, errForbidden()
	}

	if !rbac.Valid(role) {
		return store.BoardMember{}, errValidation("role", "unknown role")
	}

	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, sql.ErrNoRows) {
		return store.BoardMember{}, errValidation("email", "no user with this email")
	}
	if err != nil {
		return store.BoardMember{}, err
	}

	if _, err := s.store.GetBoardMember(ctx, board.ID, user.ID); err == nil {
		return store.BoardMember{}, errValidation("email", "user is already a member of this board")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.BoardMember{}, err
	}

	member := store.BoardMember{
		ID:        util.NewID("bm"),
		BoardID:   board.ID,
		UserID:    user.ID,
		Role:      string(rbac.Normalize(role)),
		UserName:  user.DisplayName,
		UserEmail: user.Email,
	}
	if err := s.store.InsertBoardMember(ctx, member); err != nil {
		return store.BoardMember{}, err
	}
	return member, nil
}

func (s *Service) UpdateMemberRole(ctx context.Context, session Session, boardID, userID, role string) error {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	admin, err := s.isBoardAdmin(ctx, session.UserID, board.ID)
	if err != nil {
		return err
	}
	if !admin {
		return errForbidden()
	}

	if !rbac.Valid(role) {
		return errValidation("role", "unknown role")
	}
	if userID == board.OwnerID {
		return errValidation("userId", "the board owner's role cannot be changed")
	}

	if _, err := s.store.GetBoardMember(ctx, board.ID, userID); err != nil {
		return err
	}
	return s.store.UpdateBoardMemberRole(ctx, board.ID, userID, string(rbac.Normalize(role)))
}

func (s *Service) RemoveMember(ctx context.Context, session Session, boardID, userID string) error {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	admin, err := s.isBoardAdmin(ctx, session.UserID, board.ID)
	if err != nil {
		return err
	}
	if !admin {
		return errForbidden()
	}
	if userID == board.OwnerID {
		return errValidation("userId", "the board owner cannot be removed")
	}

	if _, err := s.store.GetBoardMember(ctx, board.ID, userID); err != nil {
		return err
	}
	return s.store.DeleteBoardMember(ctx, board.ID, userID)
}

func (s *Service) CreateList(ctx context.Context, session Session, boardID, title string) (store.List, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.List{}, err
	}
	allowed, err := s.hasPermission(ctx, session.UserID, board.ID, rbac.PermCardEdit)
	if err != nil {
		return store.List{}, err
	}
	if !allowed {
		return store.List{}, errForbidden()
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return store.List{}, errValidation("title", "title is required")
	}

	position := 0
	if max, found, err := s.store.MaxListPosition(ctx, board.ID); err != nil {
		return store.List{}, err
	} else if found {
		position = max + 1
	}

	list := store.List{
		ID:       util.NewID("lst"),
		BoardID:  board.ID,
		Title:    title,
		Position: position,
	}
	if err := s.store.InsertList(ctx, list); err != nil {
		return store.List{}, err
	}
	return list, nil
}

func (s *Service) ListLists(ctx context.Context, session Session, boardID string) ([]store.List, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canAccess(ctx, session.UserID, board.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errForbidden()
	}
	return s.store.ListLists(ctx, board.ID)
}

func (s *Service) UpdateList(ctx context.Context, session Session, listID, title string, position *int) (store.List, error) {
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return store.List{}, err
	}
	allowed, err := s.hasPermission(ctx, session.UserID, list.BoardID, rbac.PermCardEdit)
	if err != nil {
		return store.List{}, err
	}
	if !allowed {
		return store.List{}, errForbidden()
	}

	if title = strings.TrimSpace(title); title != "" {
		list.Title = title
	}
	if position != nil {
		list.Position = *position
	}
	if err := s.store.UpdateList(ctx, list.ID, list.Title, list.Position); err != nil {
		return store.List{}, err
	}
	return list, nil
}

func (s *Service) DeleteList(ctx context.Context, session Session, listID string) error {
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return err
	}
	allowed, err := s.hasPermission(ctx, session.UserID, list.BoardID, rbac.PermCardEdit)
	if err != nil {
		return err
	}
	if !allowed {
		return errForbidden()
	}
	return s.store.DeleteList(ctx, list.ID)
}
