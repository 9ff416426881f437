// Package session owns the authenticated identity of this terminal: who is
// logged in, which scope their credentials are persisted in, and what they
// are allowed to do.
//
// Permissions are an advisory cache of the server's truth. They start as the
// role defaults, are replaced by the fetched set when it arrives, and are
// refreshed on resume and periodically. A refresh never blocks a permission
// check, and a refresh started before a logout can never write after it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"ventafacil/internal/apierror"
	"ventafacil/internal/authstore"
	"ventafacil/internal/permission"

	"github.com/rs/zerolog/log"
)

// Identity is what a successful login returns. Permissions are not part of it.
type Identity struct {
	UserID      string
	DisplayName string
	Role        permission.Role
	Token       string
}

// Authenticator exchanges credentials for an identity.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*Identity, error)
}

// PrivilegeFetcher returns the authoritative permission keys for a user.
type PrivilegeFetcher interface {
	UserPermissions(ctx context.Context, token, userID string) ([]permission.Key, error)
}

// Credentials are the login form values. Remember selects durable storage.
type Credentials struct {
	Username string
	Password string
	Remember bool
}

// Session is a snapshot of the authenticated state.
type Session struct {
	UserID      string
	DisplayName string
	Role        permission.Role
	Permissions permission.Set
	Token       string
	Scope       authstore.Scope
}

// storedUser is the JSON written under authstore.KeyUser.
type storedUser struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Role        string           `json:"role"`
	Permissions []permission.Key `json:"permissions"`
}

// Manager is the single store of auth state. Create with NewManager, call
// Init once, and Close on shutdown.
type Manager struct {
	auth  Authenticator
	priv  PrivilegeFetcher
	vault *authstore.Vault

	mu  sync.RWMutex
	cur *Session
	// gen increments on every login, resume and logout; a refresh only
	// applies if gen is unchanged since it started.
	gen       uint64
	bgCancel  context.CancelFunc
	root      context.Context
	rootClose context.CancelFunc
	wg        sync.WaitGroup
}

// NewManager wires the collaborators. No I/O happens until Init.
func NewManager(auth Authenticator, priv PrivilegeFetcher, vault *authstore.Vault) *Manager {
	root, cancel := context.WithCancel(context.Background())
	return &Manager{auth: auth, priv: priv, vault: vault, root: root, rootClose: cancel}
}

// Init runs the one-time legacy key migration and resumes any stored session.
func (m *Manager) Init(ctx context.Context) (*Session, bool) {
	if ran, err := m.vault.MigrateLegacy(ctx); err != nil {
		log.Warn().Err(err).Msg("session: legacy key migration failed")
	} else if ran {
		log.Info().Msg("session: legacy auth keys removed")
	}
	return m.Resume(ctx)
}

// ── Login ─────────────────────────────────────────────────────────────────────

// Login authenticates, installs the role defaults immediately, persists the
// identity in exactly one scope, and fetches the real permissions in the
// background. A storage failure leaves nobody logged in and no auth keys
// behind.
func (m *Manager) Login(ctx context.Context, c Credentials) (*Session, error) {
	const op = "session.login"
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return nil, apierror.E(apierror.Validation, op, "Usuario y contraseña son obligatorios", nil)
	}

	id, err := m.auth.Login(ctx, strings.TrimSpace(c.Username), c.Password)
	if err != nil {
		var ae *apierror.Error
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, apierror.E(apierror.Backend, op, "Error al conectar con el servidor", err)
	}
	if id == nil || id.Token == "" || id.UserID == "" {
		return nil, apierror.E(apierror.Authentication, op, "Respuesta de login inválida", nil)
	}
	if !id.Role.Valid() {
		return nil, apierror.E(apierror.Authentication, op, "Rol de usuario no reconocido", nil)
	}

	scope := authstore.Ephemeral
	if c.Remember {
		scope = authstore.Durable
	}
	sess := &Session{
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
		Role:        id.Role,
		Permissions: permission.Defaults(id.Role),
		Token:       id.Token,
		Scope:       scope,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.vault.ClearAll(ctx); err != nil {
		m.dropLocked()
		return nil, apierror.E(apierror.Backend, op, "No se pudo guardar la sesión", err)
	}
	if err := m.persistLocked(ctx, sess, true); err != nil {
		if cerr := m.vault.ClearAll(ctx); cerr != nil {
			log.Error().Err(cerr).Msg("session: failed to clear partly written auth storage")
		}
		m.dropLocked()
		return nil, apierror.E(apierror.Backend, op, "No se pudo guardar la sesión", err)
	}
	m.installLocked(sess)

	log.Info().Str("user_id", sess.UserID).Str("role", sess.Role.String()).
		Str("scope", scope.String()).Msg("session: login")

	out := *sess
	return &out, nil
}

// ── Resume ────────────────────────────────────────────────────────────────────

// Resume restores the stored session. A scope is taken as a whole: the
// ephemeral one when it holds any auth key, the durable one otherwise.
// Anything unparsable or partial clears all auth storage.
func (m *Manager) Resume(ctx context.Context) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ssUser, ssUserOK, err1 := m.vault.Read(ctx, authstore.Ephemeral, authstore.KeyUser)
	ssTok, ssTokOK, err2 := m.vault.Read(ctx, authstore.Ephemeral, authstore.KeyToken)
	lsUser, lsUserOK, err3 := m.vault.Read(ctx, authstore.Durable, authstore.KeyUser)
	lsTok, lsTokOK, err4 := m.vault.Read(ctx, authstore.Durable, authstore.KeyToken)
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		log.Error().Err(err).Msg("session: cannot read auth storage")
		m.dropLocked()
		return nil, false
	}

	scope := authstore.Durable
	rawUser, userOK, rawTok, tokOK := lsUser, lsUserOK, lsTok, lsTokOK
	if ssUserOK || ssTokOK {
		scope = authstore.Ephemeral
		rawUser, userOK, rawTok, tokOK = ssUser, ssUserOK, ssTok, ssTokOK
	}

	if !userOK && !tokOK {
		m.dropLocked()
		return nil, false
	}

	sess, err := decodeUser(rawUser)
	if err != nil || !userOK || !tokOK || rawTok == "" {
		log.Warn().Err(err).Str("scope", scope.String()).Msg("session: stored auth is corrupt or partial, clearing")
		if cerr := m.vault.ClearAll(ctx); cerr != nil {
			log.Error().Err(cerr).Msg("session: failed to clear auth storage")
		}
		m.dropLocked()
		return nil, false
	}
	sess.Token = rawTok
	sess.Scope = scope
	m.installLocked(sess)

	out := *sess
	return &out, true
}

func decodeUser(raw string) (*Session, error) {
	var su storedUser
	if err := json.Unmarshal([]byte(raw), &su); err != nil {
		return nil, err
	}
	if su.ID == "" {
		return nil, errors.New("session: stored user without id")
	}
	role, err := permission.ParseRole(su.Role)
	if err != nil {
		return nil, err
	}
	perms := permission.Defaults(role)
	if su.Permissions != nil {
		perms = permission.NewSet(su.Permissions...)
	}
	return &Session{UserID: su.ID, DisplayName: su.Name, Role: role, Permissions: perms}, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

// HasPermission is false for every key when nobody is logged in.
func (m *Manager) HasPermission(k permission.Key) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur != nil && m.cur.Permissions.Has(k)
}

func (m *Manager) HasRole(r permission.Role) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur != nil && m.cur.Role == r
}

// Current returns a copy of the active session.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return Session{}, false
	}
	return *m.cur, true
}

// Token returns the bearer token, or "" when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return ""
	}
	return m.cur.Token
}

// ── Logout ────────────────────────────────────────────────────────────────────

// Logout drops the session and clears every auth key. Safe to call repeatedly.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	wasIn := m.cur != nil
	m.dropLocked()
	if err := m.vault.ClearAll(context.Background()); err != nil {
		log.Error().Err(err).Msg("session: failed to clear auth storage on logout")
	}
	if wasIn {
		log.Info().Msg("session: logout")
	}
}

// HandleUnauthorized is called by the API client when the backend rejects
// the token.
func (m *Manager) HandleUnauthorized() {
	log.Warn().Msg("session: token rejected by backend, logging out")
	m.Logout()
}

// ── Permission refresh ────────────────────────────────────────────────────────

// RefreshPermissions fetches the authoritative set and replaces the cache.
// Without a session or token it does nothing. The returned error is an
// AuthorizationGap meant for logging; the cached set is left untouched.
func (m *Manager) RefreshPermissions(ctx context.Context) error {
	m.mu.RLock()
	if m.cur == nil || m.cur.Token == "" {
		m.mu.RUnlock()
		return nil
	}
	gen, userID, token := m.gen, m.cur.UserID, m.cur.Token
	m.mu.RUnlock()

	keys, err := m.priv.UserPermissions(ctx, token, userID)
	if err != nil {
		return apierror.E(apierror.AuthorizationGap, "session.refresh", "No se pudieron actualizar los permisos", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil || m.gen != gen {
		log.Debug().Str("user_id", userID).Msg("session: discarding stale permission refresh")
		return nil
	}
	next := *m.cur
	next.Permissions = permission.NewSet(keys...)
	if err := m.persistLocked(context.Background(), &next, false); err != nil {
		log.Warn().Err(err).Msg("session: failed to persist refreshed permissions")
	}
	m.cur = &next
	log.Debug().Str("user_id", userID).Int("permissions", next.Permissions.Len()).Msg("session: permissions refreshed")
	return nil
}

// Watch re-checks permissions every interval until ctx is done or the
// manager is closed.
func (m *Manager) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.root.Done():
			return
		case <-t.C:
			if err := m.RefreshPermissions(ctx); err != nil {
				log.Warn().Err(err).Msg("session: periodic permission refresh failed")
			}
		}
	}
}

// Close cancels background refreshes and waits for them to finish.
func (m *Manager) Close() {
	m.rootClose()
	m.wg.Wait()
}

// ── internals (callers hold m.mu) ─────────────────────────────────────────────

func (m *Manager) installLocked(s *Session) {
	m.dropLocked()
	m.cur = s
	ctx, cancel := context.WithCancel(m.root)
	m.bgCancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.RefreshPermissions(ctx); err != nil {
			log.Warn().Err(err).Str("user_id", s.UserID).Msg("session: permission fetch failed, keeping role defaults")
		}
	}()
}

func (m *Manager) dropLocked() {
	m.gen++
	if m.bgCancel != nil {
		m.bgCancel()
		m.bgCancel = nil
	}
	m.cur = nil
}

func (m *Manager) persistLocked(ctx context.Context, s *Session, withToken bool) error {
	raw, err := json.Marshal(storedUser{
		ID:          s.UserID,
		Name:        s.DisplayName,
		Role:        s.Role.String(),
		Permissions: s.Permissions.Keys(),
	})
	if err != nil {
		return err
	}
	if err := m.vault.Write(ctx, s.Scope, authstore.KeyUser, string(raw)); err != nil {
		return err
	}
	if withToken {
		return m.vault.Write(ctx, s.Scope, authstore.KeyToken, s.Token)
	}
	return nil
}
