package store

import "time"

type User struct {
	ID                    string
	Email                 string
	DisplayName           string
	PasswordHash          string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Board struct {
	ID        string
	OwnerID   string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type BoardMember struct {
	ID        string
	BoardID   string
	UserID    string
	Role      string
	CreatedAt time.Time
	// Joined fields for API responses
	UserName  string
	UserEmail string
}

type List struct {
	ID       string
	BoardID  string
	Title    string
	Position int
}

type Card struct {
	ID          string
	ListID      string
	BoardID     string
	OwnerID     string
	Title       string
	Description string
	DueDate     *time.Time
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Card activity event discriminants. The event selects which payload
// relation is meaningful for an activity row; the others stay unresolved.
const (
	EventComment        = "COMMENT"
	EventMoveToList     = "MOVE_TO_LIST"
	EventAssignMember   = "ASSIGN_MEMBER"
	EventUnassignMember = "UNASSIGN_MEMBER"
)

// CardActivity is an append-only log entry. CardID is nullable so an
// activity can outlive its card; BoardID always resolves.
type CardActivity struct {
	ID         string
	CardID     *string
	BoardID    string
	UserID     string
	Event      string
	EntityID   string
	ActivityOn time.Time
}

// CardListChange snapshots list titles at move time. Renaming a list later
// must not rewrite history.
type CardListChange struct {
	ID            string
	ActivityID    string
	FromListID    string
	FromListTitle string
	ToListID      string
	ToListTitle   string
}

type CardComment struct {
	ID      string
	CardID  string
	BoardID string
	UserID  string
	Comment string
	Created time.Time
	Updated time.Time
}

type CardMember struct {
	ID         string
	CardID     string
	BoardID    string
	UserID     string
	AssignedBy string
	CreatedAt  time.Time
}

// ActivityQuery describes a filtered, sorted, paginated activity listing.
type ActivityQuery struct {
	CardID       string
	CommentsOnly bool
	SortBy       string
	Order        string
	Page         int
	PerPage      int
}
