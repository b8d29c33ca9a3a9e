package app

import (
	"time"

	"taskboard/api/internal/store"
)

type BoardView struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func renderBoard(board store.Board) BoardView {
	return BoardView{
		ID:        board.ID,
		OwnerID:   board.OwnerID,
		Title:     board.Title,
		CreatedAt: board.CreatedAt,
		UpdatedAt: board.UpdatedAt,
	}
}

func renderBoards(boards []store.Board) []BoardView {
	views := make([]BoardView, 0, len(boards))
	for _, board := range boards {
		views = append(views, renderBoard(board))
	}
	return views
}

type BoardMemberView struct {
	ID      string `json:"id"`
	BoardID string `json:"boardId"`
	UserID  string `json:"userId"`
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
}

func renderMember(member store.BoardMember) BoardMemberView {
	return BoardMemberView{
		ID:      member.ID,
		BoardID: member.BoardID,
		UserID:  member.UserID,
		Role:    member.Role,
		Name:    member.UserName,
		Email:   member.UserEmail,
	}
}

func renderMembers(members []store.BoardMember) []BoardMemberView {
	views := make([]BoardMemberView, 0, len(members))
	for _, member := range members {
		views = append(views, renderMember(member))
	}
	return views
}

type ListView struct {
	ID       string `json:"id"`
	BoardID  string `json:"boardId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

func renderList(list store.List) ListView {
	return ListView{
		ID:       list.ID,
		BoardID:  list.BoardID,
		Title:    list.Title,
		Position: list.Position,
	}
}

func renderLists(lists []store.List) []ListView {
	views := make([]ListView, 0, len(lists))
	for _, list := range lists {
		views = append(views, renderList(list))
	}
	return views
}

type CardView struct {
	ID          string     `json:"id"`
	ListID      string     `json:"listId"`
	BoardID     string     `json:"boardId"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func renderCard(card store.Card) CardView {
	return CardView{
		ID:          card.ID,
		ListID:      card.ListID,
		BoardID:     card.BoardID,
		OwnerID:     card.OwnerID,
		Title:       card.Title,
		Description: card.Description,
		DueDate:     card.DueDate,
		Position:    card.Position,
		CreatedAt:   card.CreatedAt,
		UpdatedAt:   card.UpdatedAt,
	}
}

func renderCards(cards []store.Card) []CardView {
	views := make([]CardView, 0, len(cards))
	for _, card := range cards {
		views = append(views, renderCard(card))
	}
	return views
}

func renderComment(comment store.CardComment) CommentView {
	return CommentView{
		ID:      comment.ID,
		Comment: comment.Comment,
		UserID:  comment.UserID,
		Created: comment.Created,
		Updated: comment.Updated,
	}
}
