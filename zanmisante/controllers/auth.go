package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"zanmisante/zanmisante/config"
	"zanmisante/zanmisante/sources/psql/dao"
	"zanmisante/zanmisante/sources/session"
)

var ErrUserExists = errors.New("username already taken")

type AuthController struct {
	userDAO  *dao.UserDAO
	sessions *session.Store
	cfg      config.Config
}

func NewAuthController(userDAO *dao.UserDAO, sessions *session.Store, cfg config.Config) *AuthController {
	return &AuthController{
		userDAO:  userDAO,
		sessions: sessions,
		cfg:      cfg,
	}
}

// Login signs the user in, auto-creating an account for an unknown
// username, and opens a fresh session. The token's jti doubles as the
// session ID, so one login equals one browser session.
func (c *AuthController) Login(ctx context.Context, username string) (string, error) {
	user, err := c.userDAO.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		email := username + "@example.com"
		user, err = c.userDAO.CreateUser(ctx, username, email, nil, nil)
		if err != nil {
			return "", err
		}
	}
	return c.issueToken(user.ID)
}

// Signup creates the account explicitly, then signs it in.
func (c *AuthController) Signup(ctx context.Context, username, email string, fullName *string) (string, error) {
	existing, err := c.userDAO.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrUserExists
	}
	user, err := c.userDAO.CreateUser(ctx, username, email, fullName, nil)
	if err != nil {
		return "", err
	}
	return c.issueToken(user.ID)
}

// Logout drops the session, clearing its bootstrap flag and any buffered
// messages.
func (c *AuthController) Logout(sessionID string) {
	c.sessions.Delete(sessionID)
}

func (c *AuthController) issueToken(userID int) (string, error) {
	sessionID := uuid.New().String()
	claims := jwt.MapClaims{
		"user_id": userID,
		"jti":     sessionID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.cfg.JWTSecret))
	if err != nil {
		return "", err
	}
	c.sessions.Create(sessionID, userID)
	return signed, nil
}
