// Package app holds the application service layer: permission checks,
// card mutations, the activity log, and the HTTP surface.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskboard/api/internal/auth"
	"taskboard/api/internal/authpw"
	"taskboard/api/internal/config"
	"taskboard/api/internal/rbac"
	"taskboard/api/internal/search"
	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

// dataStore is the storage interface the service depends on. PostgresStore
// implements all of it; tests substitute a fake.
type dataStore interface {
	Ping(ctx context.Context) error

	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)

	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)

	InsertBoard(ctx context.Context, board store.Board) error
	GetBoard(ctx context.Context, boardID string) (store.Board, error)
	ListBoardsForUser(ctx context.Context, userID string) ([]store.Board, error)
	UpdateBoardTitle(ctx context.Context, boardID, title string) error
	DeleteBoard(ctx context.Context, boardID string) error

	InsertBoardMember(ctx context.Context, member store.BoardMember) error
	GetBoardMember(ctx context.Context, boardID, userID string) (store.BoardMember, error)
	ListBoardMembers(ctx context.Context, boardID string) ([]store.BoardMember, error)
	UpdateBoardMemberRole(ctx context.Context, boardID, userID, role string) error
	DeleteBoardMember(ctx context.Context, boardID, userID string) error

	InsertList(ctx context.Context, list store.List) error
	GetList(ctx context.Context, listID string) (store.List, error)
	ListLists(ctx context.Context, boardID string) ([]store.List, error)
	UpdateList(ctx context.Context, listID, title string, position int) error
	DeleteList(ctx context.Context, listID string) error
	MaxListPosition(ctx context.Context, boardID string) (int, bool, error)

	InsertCard(ctx context.Context, card store.Card) error
	GetCard(ctx context.Context, cardID string) (store.Card, error)
	ListCards(ctx context.Context, listID string) ([]store.Card, error)
	UpdateCard(ctx context.Context, card store.Card) error
	DeleteCard(ctx context.Context, cardID string) error
	MaxCardPosition(ctx context.Context, listID string) (int, bool, error)

	InsertCardActivity(ctx context.Context, activity store.CardActivity) error
	ListCardActivities(ctx context.Context, q store.ActivityQuery) ([]store.CardActivity, int, error)
	InsertCardListChange(ctx context.Context, change store.CardListChange) error
	GetListChangeForActivity(ctx context.Context, activityID string) (store.CardListChange, error)

	InsertCardComment(ctx context.Context, comment store.CardComment) error
	GetCardComment(ctx context.Context, commentID string) (store.CardComment, error)
	UpdateCardComment(ctx context.Context, commentID, text string) error
	DeleteCardComment(ctx context.Context, commentID string) error

	InsertCardMember(ctx context.Context, member store.CardMember) error
	GetCardMember(ctx context.Context, cardID, userID string) (store.CardMember, error)
	GetCardMemberByID(ctx context.Context, memberID string) (store.CardMember, error)
	DeleteCardMember(ctx context.Context, cardID, userID string) error
}

// sessionStore holds refresh sessions. Redis when configured, otherwise the
// primary store's fallback tables.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	search   *search.Service
	authpw   *authpw.Service
}

func NewService(cfg config.Config, st dataStore, sessions sessionStore, searchSvc *search.Service) *Service {
	svc := &Service{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		search:   searchSvc,
	}
	if svc.sessions == nil {
		svc.sessions = st
	}
	// Password auth needs the full user store; a partial store (as in tests)
	// leaves it disabled and the auth endpoints answer 503.
	if userStore, ok := st.(authpw.UserStore); ok {
		svc.authpw = authpw.NewService(userStore)
	}
	return svc
}

// Session is an authenticated caller.
type Session struct {
	UserID       string
	UserName     string
	JTI          string
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	jti := util.NewID("jti")
	expiresAt := time.Now().Add(s.cfg.AccessTTL)

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	refreshToken := util.NewID("rt")
	refreshExpiry := time.Now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refreshToken), user.ID, refreshExpiry); err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}

	return Session{
		UserID:       user.ID,
		UserName:     user.DisplayName,
		JTI:          jti,
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (*authpw.SignUpResponse, error) {
	if s.authpw == nil {
		return nil, domainError(503, "AUTH_UNAVAILABLE", "authentication is not configured", nil)
	}
	resp, err := s.authpw.SignUp(ctx, req)
	if err != nil {
		return nil, errValidation("signup", err.Error())
	}
	return resp, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	if s.authpw == nil {
		return Session{}, domainError(503, "AUTH_UNAVAILABLE", "authentication is not configured", nil)
	}
	resp, err := s.authpw.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, domainError(401, "INVALID_CREDENTIALS", "invalid email or password", nil)
	}
	if resp.RequiresVerify {
		return Session{}, domainError(403, "EMAIL_NOT_VERIFIED", "email address is not verified", nil)
	}
	return s.issueSession(ctx, resp.User)
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if s.authpw == nil {
		return domainError(503, "AUTH_UNAVAILABLE", "authentication is not configured", nil)
	}
	if err := s.authpw.VerifyEmail(ctx, token); err != nil {
		return errValidation("token", err.Error())
	}
	return nil
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if s.authpw == nil {
		return "", domainError(503, "AUTH_UNAVAILABLE", "authentication is not configured", nil)
	}
	return s.authpw.RequestPasswordReset(ctx, email)
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if s.authpw == nil {
		return domainError(503, "AUTH_UNAVAILABLE", "authentication is not configured", nil)
	}
	if err := s.authpw.ResetPassword(ctx, authpw.ResetPasswordRequest{Token: token, NewPassword: newPassword}); err != nil {
		return errValidation("token", err.Error())
	}
	return nil
}

// Refresh exchanges a refresh token for a new session. Only the user id lives
// in the session store, so the full user row is re-read from the primary
// store.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	hash := auth.HashToken(refreshToken)
	stub, err := s.sessions.LookupRefreshSession(ctx, hash)
	if err != nil {
		return Session{}, domainError(401, "INVALID_REFRESH_TOKEN", "invalid or expired refresh token", nil)
	}

	user, err := s.store.GetUserByID(ctx, stub.ID)
	if err != nil {
		return Session{}, domainError(401, "INVALID_REFRESH_TOKEN", "invalid or expired refresh token", nil)
	}

	// Rotate: the old token is dead once a new one is issued.
	if err := s.sessions.RevokeRefreshSession(ctx, hash); err != nil {
		return Session{}, fmt.Errorf("revoke refresh session: %w", err)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			return fmt.Errorf("revoke refresh session: %w", err)
		}
	}
	if session.JTI != "" {
		if err := s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}
	return nil
}

// SessionFromToken authenticates a bearer token and rejects revoked JTIs.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, domainError(401, "UNAUTHORIZED", "invalid or expired token", nil)
	}

	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return Session{}, domainError(401, "UNAUTHORIZED", "token has been revoked", nil)
	}

	return Session{
		UserID:    claims.Sub,
		UserName:  claims.Name,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// hasPermission consults the caller's board membership on every call; there
// is no caching, so a role change takes effect on the next request.
func (s *Service) hasPermission(ctx context.Context, userID, boardID string, perm rbac.Permission) (bool, error) {
	member, err := s.store.GetBoardMember(ctx, boardID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get board member: %w", err)
	}
	return rbac.Can(rbac.Role(member.Role), perm), nil
}

// canAccess reports whether the user is a member of the board at all. Every
// role, including viewer, can read.
func (s *Service) canAccess(ctx context.Context, userID, boardID string) (bool, error) {
	_, err := s.store.GetBoardMember(ctx, boardID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get board member: %w", err)
	}
	return true, nil
}
