// Package admin implements the password gate in front of the catalog admin
// panel and the product editing service behind it.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vegasarees/storefront/internal/storage"
	apperrors "github.com/vegasarees/storefront/pkg/errors"
)

// Lockout policy.
const (
	MaxAttempts  = 5
	LockDuration = 10 * time.Minute
)

// Keys kept in each session's namespace.
const (
	keyAttempts  = "admin_attempts"
	keyLockUntil = "admin_lock_until"
	keyLogged    = "admin_logged"
)

// Gate checks the admin password and tracks failed attempts per session.
type Gate struct {
	kv     storage.KV
	hash   []byte
	logger *slog.Logger
	now    func() time.Time

	// mu serializes the read-modify-write of the attempt counter.
	mu sync.Mutex
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a Gate for the bcrypt passwordHash. kv is the shared
// session storage; every call is scoped to one session's namespace.
func NewGate(kv storage.KV, passwordHash string, logger *slog.Logger, opts ...GateOption) (*Gate, error) {
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	g := &Gate{
		kv:     kv,
		hash:   []byte(passwordHash),
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Status is the gate state of one session.
type Status struct {
	LoggedIn    bool      `json:"loggedIn"`
	Attempts    int       `json:"attempts"`
	LockedUntil time.Time `json:"lockedUntil,omitzero"`
}

func (g *Gate) session(sessionID string) storage.KV {
	return storage.WithPrefix(g.kv, storage.SessionPrefix(sessionID))
}

// Login checks password for sessionID. While locked it returns a Locked
// error naming the whole minutes left. A wrong password counts an attempt;
// reaching MaxAttempts locks the session for LockDuration.
func (g *Gate) Login(ctx context.Context, sessionID, password string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	kv := g.session(sessionID)
	now := g.now()

	lockUntil, err := readInt(ctx, kv, keyLockUntil)
	if err != nil {
		return err
	}
	if until := time.UnixMilli(lockUntil); now.Before(until) {
		minutes := int(math.Ceil(until.Sub(now).Minutes()))
		return apperrors.Locked(fmt.Sprintf("Too many attempts. Try again after %d minutes.", minutes))
	}

	if bcrypt.CompareHashAndPassword(g.hash, []byte(password)) == nil {
		if err := kv.Set(ctx, keyLogged, []byte("true")); err != nil {
			return fmt.Errorf("set admin session: %w", err)
		}
		if err := deleteKeys(ctx, kv, keyAttempts, keyLockUntil); err != nil {
			return err
		}
		g.logger.InfoContext(ctx, "admin login succeeded")
		return nil
	}

	attempts, err := readInt(ctx, kv, keyAttempts)
	if err != nil {
		return err
	}
	attempts++
	if err := kv.Set(ctx, keyAttempts, []byte(strconv.FormatInt(attempts, 10))); err != nil {
		return fmt.Errorf("record admin attempt: %w", err)
	}

	if attempts >= MaxAttempts {
		until := now.Add(LockDuration).UnixMilli()
		if err := kv.Set(ctx, keyLockUntil, []byte(strconv.FormatInt(until, 10))); err != nil {
			return fmt.Errorf("lock admin login: %w", err)
		}
		g.logger.WarnContext(ctx, "admin login locked", slog.Int64("attempts", attempts))
		return apperrors.Locked(fmt.Sprintf("Too many incorrect attempts. Locked for %d minutes.", int(LockDuration.Minutes())))
	}

	g.logger.InfoContext(ctx, "admin login failed", slog.Int64("attempts", attempts))
	return apperrors.Unauthorized(fmt.Sprintf("Incorrect password. %d attempts left.", MaxAttempts-attempts))
}

// Logout clears the logged-in flag.
func (g *Gate) Logout(ctx context.Context, sessionID string) error {
	return deleteKeys(ctx, g.session(sessionID), keyLogged)
}

// LoggedIn reports whether sessionID has passed the gate.
func (g *Gate) LoggedIn(ctx context.Context, sessionID string) (bool, error) {
	v, err := g.session(sessionID).Get(ctx, keyLogged)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read admin session: %w", err)
	}
	return string(v) == "true", nil
}

// Status reports the gate state of sessionID. An expired lock is not
// reported.
func (g *Gate) Status(ctx context.Context, sessionID string) (Status, error) {
	kv := g.session(sessionID)

	logged, err := g.LoggedIn(ctx, sessionID)
	if err != nil {
		return Status{}, err
	}
	attempts, err := readInt(ctx, kv, keyAttempts)
	if err != nil {
		return Status{}, err
	}
	lockUntil, err := readInt(ctx, kv, keyLockUntil)
	if err != nil {
		return Status{}, err
	}

	st := Status{LoggedIn: logged, Attempts: int(attempts)}
	if until := time.UnixMilli(lockUntil); g.now().Before(until) {
		st.LockedUntil = until.UTC()
	}
	return st, nil
}

// readInt returns 0 for a missing or unparsable value.
func readInt(ctx context.Context, kv storage.KV, key string) (int64, error) {
	v, err := kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func deleteKeys(ctx context.Context, kv storage.KV, keys ...string) error {
	for _, k := range keys {
		if err := kv.Delete(ctx, k); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return nil
}
