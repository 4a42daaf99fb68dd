package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/secretkeeper/internal/constants"
	"github.com/secretkeeper/internal/db"
	"github.com/secretkeeper/internal/domain"
)

var _ domain.SessionManager = (*Manager)(nil)

// UserFinder loads the user a session points at. Returns (nil, nil) when absent.
type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*db.User, error)
}

// Options configures a Manager
type Options struct {
	Secret string
	TTL    time.Duration
	Issuer string
	Now    func() time.Time
}

// Manager issues and validates session tokens. A token is an HS256 JWT whose
// jti names a row in the session store; the row decides whether the session
// is still alive, so logout takes effect even before the token expires.
type Manager struct {
	sessions domain.SessionStore
	users    UserFinder
	secret   []byte
	ttl      time.Duration
	issuer   string
	now      func() time.Time
	logger   *slog.Logger
}

// NewManager creates a session manager. Zero options fall back to the
// application defaults.
func NewManager(sessions domain.SessionStore, users UserFinder, opts Options, logger *slog.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = constants.SessionTTL
	}
	if opts.Issuer == "" {
		opts.Issuer = constants.SessionIssuer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		sessions: sessions,
		users:    users,
		secret:   []byte(opts.Secret),
		ttl:      opts.TTL,
		issuer:   opts.Issuer,
		now:      opts.Now,
		logger:   logger,
	}
}

// TTL returns the fixed lifetime of new sessions
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Serialize starts a session for user and returns the signed token and the
// instant it stops being valid
func (m *Manager) Serialize(ctx context.Context, user *db.User) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, domain.WrapSessionLogin(errors.New("no user to serialize"))
	}

	s := db.NewSession(user.ID, m.now(), m.ttl)
	if err := m.sessions.CreateSession(ctx, s); err != nil {
		return "", time.Time{}, domain.WrapSessionLogin(err)
	}

	claims := jwt.StandardClaims{
		Id:        s.ID,
		Subject:   s.UserID,
		Issuer:    m.issuer,
		IssuedAt:  s.CreatedAt.Unix(),
		ExpiresAt: s.ExpiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		if delErr := m.sessions.DeleteSession(ctx, s.ID); delErr != nil {
			m.logger.WarnContext(ctx, "failed to remove unsigned session", "session_id", s.ID, "error", delErr)
		}
		return "", time.Time{}, domain.WrapSessionLogin(err)
	}

	return token, s.ExpiresAt, nil
}

// Deserialize resolves token to its user. (nil, nil) means the request is
// anonymous; an error is only returned when the stores fail.
func (m *Manager) Deserialize(ctx context.Context, token string) (*db.User, error) {
	if token == "" {
		return nil, nil
	}

	claims, ok := m.parse(token)
	if !ok {
		m.logger.DebugContext(ctx, "ignoring invalid session token")
		return nil, nil
	}

	now := m.now()
	if !now.Before(time.Unix(claims.ExpiresAt, 0)) {
		return nil, m.drop(ctx, claims.Id, "expired")
	}

	s, err := m.sessions.GetSession(ctx, claims.Id)
	if err != nil {
		return nil, domain.WrapDatabaseOperation("get session", err)
	}
	if s == nil || s.UserID != claims.Subject {
		return nil, nil
	}
	if s.Expired(now) {
		return nil, m.drop(ctx, s.ID, "expired")
	}

	user, err := m.users.FindUserByID(ctx, s.UserID)
	if err != nil {
		return nil, domain.WrapDatabaseOperation("find session user", err)
	}
	if user == nil {
		return nil, m.drop(ctx, s.ID, "user missing")
	}

	return user, nil
}

// Destroy ends the session behind token. Tokens that do not parse are ignored.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	claims, ok := m.parse(token)
	if !ok {
		return nil
	}
	if err := m.sessions.DeleteSession(ctx, claims.Id); err != nil {
		return domain.WrapDatabaseOperation("delete session", err)
	}
	return nil
}

// PurgeExpired deletes every session row that has expired
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpiredSessions(ctx, m.now())
	if err != nil {
		return 0, domain.WrapDatabaseOperation("purge expired sessions", err)
	}
	return n, nil
}

// parse verifies the signature and required claims. Expiry is checked by the
// caller against the injected clock.
func (m *Manager) parse(token string) (*jwt.StandardClaims, bool) {
	if token == "" {
		return nil, false
	}

	parser := jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	claims := &jwt.StandardClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if claims.Id == "" || claims.Subject == "" || claims.Issuer != m.issuer {
		return nil, false
	}
	return claims, true
}

func (m *Manager) drop(ctx context.Context, sessionID, reason string) error {
	if err := m.sessions.DeleteSession(ctx, sessionID); err != nil {
		return domain.WrapDatabaseOperation("delete session", err)
	}
	m.logger.DebugContext(ctx, "session destroyed", "session_id", sessionID, "reason", reason)
	return nil
}
