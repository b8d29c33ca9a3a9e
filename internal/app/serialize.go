package app

import (
	"context"
	"time"

	"taskboard/api/internal/store"
)

// activityRelations resolves the payload relation an activity points at.
// renderActivity only calls the method its event needs, so irrelevant
// relations are never fetched.
type activityRelations interface {
	GetCardComment(ctx context.Context, commentID string) (store.CardComment, error)
	GetListChangeForActivity(ctx context.Context, activityID string) (store.CardListChange, error)
	GetCardMemberByID(ctx context.Context, memberID string) (store.CardMember, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
}

type UserView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CommentView struct {
	ID      string    `json:"id"`
	Comment string    `json:"comment"`
	UserID  string    `json:"userId"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

type ListRefView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ListChangeView struct {
	From ListRefView `json:"from"`
	To   ListRefView `json:"to"`
}

type MemberView struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

// ActivityView is the wire shape of a log entry. Exactly the payload selected
// by the event is populated; the rest are omitted.
type ActivityView struct {
	ID         string          `json:"id"`
	CardID     *string         `json:"cardId"`
	BoardID    string          `json:"boardId"`
	UserID     string          `json:"userId"`
	Event      string          `json:"event"`
	EntityID   string          `json:"entityId"`
	ActivityOn time.Time       `json:"activityOn"`
	Comment    *CommentView    `json:"comment,omitempty"`
	ListChange *ListChangeView `json:"listChange,omitempty"`
	Member     *MemberView     `json:"member,omitempty"`
	User       *UserView       `json:"user,omitempty"`
}

// renderActivity resolves the one relation the event selects. A missing
// relation (a deleted comment, say) degrades to a payload-less entry rather
// than failing the whole listing.
func renderActivity(ctx context.Context, rel activityRelations, activity store.CardActivity) ActivityView {
	view := ActivityView{
		ID:         activity.ID,
		CardID:     activity.CardID,
		BoardID:    activity.BoardID,
		UserID:     activity.UserID,
		Event:      activity.Event,
		EntityID:   activity.EntityID,
		ActivityOn: activity.ActivityOn,
	}

	switch activity.Event {
	case store.EventComment:
		comment, err := rel.GetCardComment(ctx, activity.EntityID)
		if err != nil {
			return view
		}
		view.Comment = &CommentView{
			ID:      comment.ID,
			Comment: comment.Comment,
			UserID:  comment.UserID,
			Created: comment.Created,
			Updated: comment.Updated,
		}
	case store.EventMoveToList:
		change, err := rel.GetListChangeForActivity(ctx, activity.ID)
		if err != nil {
			return view
		}
		view.ListChange = &ListChangeView{
			From: ListRefView{ID: change.FromListID, Title: change.FromListTitle},
			To:   ListRefView{ID: change.ToListID, Title: change.ToListTitle},
		}
	case store.EventAssignMember:
		member, err := rel.GetCardMemberByID(ctx, activity.EntityID)
		if err != nil {
			return view
		}
		view.Member = &MemberView{ID: member.ID, UserID: member.UserID}
	case store.EventUnassignMember:
		user, err := rel.GetUserByID(ctx, activity.EntityID)
		if err != nil {
			return view
		}
		view.User = &UserView{ID: user.ID, Name: user.DisplayName}
	}
	return view
}

func renderActivities(ctx context.Context, rel activityRelations, activities []store.CardActivity) []ActivityView {
	views := make([]ActivityView, 0, len(activities))
	for _, activity := range activities {
		views = append(views, renderActivity(ctx, rel, activity))
	}
	return views
}
