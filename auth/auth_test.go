package auth

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikbos/wavesync/database/sqlite"
)

type recordingMailer struct {
	email string
	link  string
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.email = email
	m.link = link
	return nil
}

func newTestProvider(t *testing.T) (*Provider, *recordingMailer) {
	t.Helper()
	repo, err := sqlite.New(&sqlite.ConfigFile{Filename: filepath.Join(t.TempDir(), "auth.db")})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	mailer := &recordingMailer{}
	return New(&Options{
		Repo:     repo,
		Mailer:   mailer,
		ResetURL: "https://wavesync.example/reset",
	}), mailer
}

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)

	var events []Event
	unsubscribe := p.OnSessionChange(func(e Event, _ *Session) { events = append(events, e) })
	defer unsubscribe()

	s, err := p.SignUp(ctx, " Alice@Example.com ", "secret1", Client{})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", s.Email)
	assert.NotEmpty(t, s.AccessToken)

	profile, err := p.repo.GetProfile(ctx, s.UserID)
	require.NoError(t, err)
	assert.Empty(t, profile.Tag)

	_, err = p.SignUp(ctx, "alice@example.com", "secret2", Client{})
	assert.ErrorIs(t, err, ErrEmailInUse)

	_, err = p.SignInWithPassword(ctx, "alice@example.com", "wrong!!", Client{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = p.SignInWithPassword(ctx, "bob@example.com", "secret1", Client{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	s2, err := p.SignInWithPassword(ctx, "ALICE@example.com", "secret1", Client{DeviceName: "phone"})
	require.NoError(t, err)
	assert.Equal(t, s.UserID, s2.UserID)
	assert.NotEqual(t, s.AccessToken, s2.AccessToken)

	assert.Equal(t, []Event{SignedIn, SignedIn}, events)
}

func TestSignUpValidation(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)

	_, err := p.SignUp(ctx, "not-an-email", "secret1", Client{})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = p.SignUp(ctx, "a@example.com", "123", Client{})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestCurrentSessionAndSignOut(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)

	s, err := p.SignUp(ctx, "a@example.com", "secret1", Client{})
	require.NoError(t, err)

	current, err := p.GetCurrentSession(ctx, s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, current.UserID)

	var events []Event
	p.OnSessionChange(func(e Event, _ *Session) { events = append(events, e) })

	require.NoError(t, p.SignOut(ctx, s.AccessToken))
	assert.Equal(t, []Event{SignedOut}, events)

	_, err = p.GetCurrentSession(ctx, s.AccessToken)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = p.GetCurrentSession(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	p, mailer := newTestProvider(t)

	_, err := p.SignUp(ctx, "a@example.com", "secret1", Client{})
	require.NoError(t, err)

	// unknown addresses are not disclosed
	require.NoError(t, p.ResetPasswordForEmail(ctx, "nobody@example.com"))
	assert.Empty(t, mailer.link)

	require.NoError(t, p.ResetPasswordForEmail(ctx, "a@example.com"))
	assert.Equal(t, "a@example.com", mailer.email)
	u, err := url.Parse(mailer.link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)

	var events []Event
	p.OnSessionChange(func(e Event, _ *Session) { events = append(events, e) })

	s, err := p.ConfirmPasswordReset(ctx, token, "newsecret", Client{})
	require.NoError(t, err)
	assert.NotEmpty(t, s.AccessToken)
	assert.Equal(t, []Event{PasswordRecovery}, events)

	// tokens are single use
	_, err = p.ConfirmPasswordReset(ctx, token, "another1", Client{})
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	_, err = p.SignInWithPassword(ctx, "a@example.com", "secret1", Client{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = p.SignInWithPassword(ctx, "a@example.com", "newsecret", Client{})
	assert.NoError(t, err)
}

func TestPasswordResetExpires(t *testing.T) {
	ctx := context.Background()
	p, mailer := newTestProvider(t)

	_, err := p.SignUp(ctx, "a@example.com", "secret1", Client{})
	require.NoError(t, err)
	require.NoError(t, p.ResetPasswordForEmail(ctx, "a@example.com"))
	u, err := url.Parse(mailer.link)
	require.NoError(t, err)

	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = p.ConfirmPasswordReset(ctx, u.Query().Get("token"), "newsecret", Client{})
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}
