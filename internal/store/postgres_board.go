package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) InsertBoard(ctx context.Context, board Board) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boards (id, owner_id, title)
		VALUES ($1, $2, $3)
	`, board.ID, board.OwnerID, board.Title)
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var board Board
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, created_at, updated_at
		FROM boards
		WHERE id=$1
	`, boardID).Scan(&board.ID, &board.OwnerID, &board.Title, &board.CreatedAt, &board.UpdatedAt)
	if err != nil {
		return Board{}, err
	}
	return board, nil
}

func (s *PostgresStore) ListBoardsForUser(ctx context.Context, userID string) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.owner_id, b.title, b.created_at, b.updated_at
		FROM boards b
		JOIN board_members bm ON bm.board_id = b.id
		WHERE bm.user_id = $1
		ORDER BY b.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	items := make([]Board, 0)
	for rows.Next() {
		var board Board
		if err := rows.Scan(&board.ID, &board.OwnerID, &board.Title, &board.CreatedAt, &board.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		items = append(items, board)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateBoardTitle(ctx context.Context, boardID, title string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE boards SET title=$2, updated_at=NOW() WHERE id=$1`, boardID, title)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBoard(ctx context.Context, boardID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id=$1`, boardID)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertBoardMember(ctx context.Context, member BoardMember) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO board_members (id, board_id, user_id, role)
		VALUES ($1, $2, $3, $4)
	`, member.ID, member.BoardID, member.UserID, member.Role)
	if err != nil {
		return fmt.Errorf("insert board member: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBoardMember(ctx context.Context, boardID, userID string) (BoardMember, error) {
	var member BoardMember
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, user_id, role, created_at
		FROM board_members
		WHERE board_id=$1 AND user_id=$2
	`, boardID, userID).Scan(&member.ID, &member.BoardID, &member.UserID, &member.Role, &member.CreatedAt)
	if err != nil {
		return BoardMember{}, err
	}
	return member, nil
}

func (s *PostgresStore) ListBoardMembers(ctx context.Context, boardID string) ([]BoardMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bm.id, bm.board_id, bm.user_id, bm.role, bm.created_at, u.display_name, u.email
		FROM board_members bm
		JOIN users u ON u.id = bm.user_id
		WHERE bm.board_id = $1
		ORDER BY bm.created_at
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list board members: %w", err)
	}
	defer rows.Close()

	items := make([]BoardMember, 0)
	for rows.Next() {
		var member BoardMember
		if err := rows.Scan(&member.ID, &member.BoardID, &member.UserID, &member.Role, &member.CreatedAt, &member.UserName, &member.UserEmail); err != nil {
			return nil, fmt.Errorf("scan board member: %w", err)
		}
		items = append(items, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate board members: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateBoardMemberRole(ctx context.Context, boardID, userID, role string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE board_members SET role=$3 WHERE board_id=$1 AND user_id=$2`, boardID, userID, role)
	if err != nil {
		return fmt.Errorf("update board member role: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBoardMember(ctx context.Context, boardID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM board_members WHERE board_id=$1 AND user_id=$2`, boardID, userID)
	if err != nil {
		return fmt.Errorf("delete board member: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertList(ctx context.Context, list List) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lists (id, board_id, title, position)
		VALUES ($1, $2, $3, $4)
	`, list.ID, list.BoardID, list.Title, list.Position)
	if err != nil {
		return fmt.Errorf("insert list: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetList(ctx context.Context, listID string) (List, error) {
	var list List
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, title, position
		FROM lists
		WHERE id=$1
	`, listID).Scan(&list.ID, &list.BoardID, &list.Title, &list.Position)
	if err != nil {
		return List{}, err
	}
	return list, nil
}

func (s *PostgresStore) ListLists(ctx context.Context, boardID string) ([]List, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, title, position
		FROM lists
		WHERE board_id=$1
		ORDER BY position, id
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	items := make([]List, 0)
	for rows.Next() {
		var list List
		if err := rows.Scan(&list.ID, &list.BoardID, &list.Title, &list.Position); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		items = append(items, list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateList(ctx context.Context, listID, title string, position int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE lists SET title=$2, position=$3 WHERE id=$1`, listID, title, position)
	if err != nil {
		return fmt.Errorf("update list: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteList(ctx context.Context, listID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id=$1`, listID)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

func (s *PostgresStore) MaxListPosition(ctx context.Context, boardID string) (int, bool, error) {
	var max *int
	err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM lists WHERE board_id=$1`, boardID).Scan(&max)
	if err != nil {
		return 0, false, fmt.Errorf("max list position: %w", err)
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}
