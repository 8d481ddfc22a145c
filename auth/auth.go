// Package auth is the session and identity provider: accounts, password
// sign-in, password recovery and session change notifications.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/erikbos/wavesync/database"
	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/idhash"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailInUse         = errors.New("user already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrNoSession          = errors.New("no active session")
	ErrInvalidResetToken  = errors.New("password reset link is invalid or has expired")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Event names a session transition.
type Event string

const (
	SignedIn         Event = "SIGNED_IN"
	SignedOut        Event = "SIGNED_OUT"
	PasswordRecovery Event = "PASSWORD_RECOVERY"
)

// Session is an authenticated user session.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Created     time.Time `json:"created"`
}

// Client describes where a sign in comes from.
type Client struct {
	DeviceName    string
	RemoteAddress string
}

// Store is the part of the repository the provider needs.
type Store interface {
	database.UserRepo
	database.AccessTokenRepo
	database.PasswordResetRepo
	database.ProfileRepo
}

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer logs reset links instead of sending mail.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	logrus.WithFields(logrus.Fields{"email": email, "link": link}).Info("Password reset requested")
	return nil
}

type Options struct {
	Repo   Store
	Mailer Mailer
	// ResetTokenLifetime is how long a password reset link stays valid.
	ResetTokenLifetime time.Duration
	// ResetURL is the page reset links point to, the token is added as query parameter.
	ResetURL string
}

// Provider implements the identity provider verbs.
type Provider struct {
	repo          Store
	mailer        Mailer
	resetLifetime time.Duration
	resetURL      string
	now           func() time.Time

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Event, *Session)
}

func New(o *Options) *Provider {
	p := &Provider{
		repo:          o.Repo,
		mailer:        o.Mailer,
		resetLifetime: o.ResetTokenLifetime,
		resetURL:      o.ResetURL,
		now:           time.Now,
		listeners:     make(map[int]func(Event, *Session)),
	}
	if p.mailer == nil {
		p.mailer = LogMailer{}
	}
	if p.resetLifetime <= 0 {
		p.resetLifetime = time.Hour
	}
	return p
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SignUp registers a new account with an empty profile and signs it in.
func (p *Provider) SignUp(ctx context.Context, email, password string, client Client) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := p.now().UTC()
	user := &model.User{
		ID:        idhash.NewRandomID(),
		Email:     email,
		Password:  string(hashedPassword),
		Created:   now,
		LastLogin: now,
		LastUsed:  now,
	}
	if err := p.repo.InsertUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if err := p.repo.UpsertProfile(ctx, &model.Profile{UserID: user.ID}); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p.startSession(ctx, user, client, SignedIn)
}

// SignInWithPassword validates credentials and starts a session.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string, client Client) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := p.repo.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	user.LastLogin = p.now().UTC()
	if err := p.repo.UpsertUser(ctx, user); err != nil {
		return nil, err
	}
	return p.startSession(ctx, user, client, SignedIn)
}

func (p *Provider) startSession(ctx context.Context, user *model.User, client Client, event Event) (*Session, error) {
	token, err := p.repo.CreateAccessToken(ctx, model.AccessToken{
		UserID:        user.ID,
		DeviceName:    client.DeviceName,
		RemoteAddress: client.RemoteAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}
	s := &Session{
		AccessToken: token,
		UserID:      user.ID,
		Email:       user.Email,
		Created:     p.now().UTC(),
	}
	logrus.WithFields(logrus.Fields{"user": user.ID, "event": event}).Info("Session started")
	p.emit(event, s)
	return s, nil
}

// ResetPasswordForEmail mails a reset link. Unknown addresses are not
// reported to the caller.
func (p *Provider) ResetPasswordForEmail(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := p.repo.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logrus.WithField("email", email).Debug("Password reset for unknown email")
			return nil
		}
		return err
	}
	now := p.now().UTC()
	reset := model.PasswordReset{
		Token:   uuid.NewString(),
		UserID:  user.ID,
		Created: now,
		Expires: now.Add(p.resetLifetime),
	}
	if err := p.repo.CreatePasswordReset(ctx, reset); err != nil {
		return err
	}
	return p.mailer.SendPasswordReset(ctx, email, p.resetLink(reset.Token))
}

func (p *Provider) resetLink(token string) string {
	u, err := url.Parse(p.resetURL)
	if err != nil || p.resetURL == "" {
		return token
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConfirmPasswordReset sets a new password using a reset token and signs the user in.
func (p *Provider) ConfirmPasswordReset(ctx context.Context, token, newPassword string, client Client) (*Session, error) {
	if len(newPassword) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	reset, err := p.repo.GetPasswordReset(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, err
	}
	// a token is single use, also when expired
	if err := p.repo.DeletePasswordReset(ctx, token); err != nil {
		return nil, err
	}
	if p.now().After(reset.Expires) {
		return nil, ErrInvalidResetToken
	}
	user, err := p.repo.GetUserByID(ctx, reset.UserID)
	if err != nil {
		return nil, err
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user.Password = string(hashedPassword)
	if err := p.repo.UpsertUser(ctx, user); err != nil {
		return nil, err
	}
	return p.startSession(ctx, user, client, PasswordRecovery)
}

// GetCurrentSession returns the session belonging to an access token.
func (p *Provider) GetCurrentSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	at, err := p.repo.GetAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	user, err := p.repo.GetUserByID(ctx, at.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return &Session{
		AccessToken: at.Token,
		UserID:      user.ID,
		Email:       user.Email,
		Created:     at.Created,
	}, nil
}

// SignOut revokes the access token of a session.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	s, err := p.GetCurrentSession(ctx, token)
	if err != nil {
		return err
	}
	if err := p.repo.DeleteAccessToken(ctx, token); err != nil {
		return err
	}
	logrus.WithField("user", s.UserID).Info("Session ended")
	p.emit(SignedOut, s)
	return nil
}

// OnSessionChange registers fn to be called on every session transition.
func (p *Provider) OnSessionChange(fn func(Event, *Session)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Provider) emit(event Event, s *Session) {
	p.mu.Lock()
	listeners := make([]func(Event, *Session), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(event, s)
	}
}
