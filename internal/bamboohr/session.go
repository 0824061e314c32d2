package bamboohr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/dto"
)

// Authenticator mints a fresh session credential. The real implementation
// drives an interactive browser login and lives outside this process.
type Authenticator interface {
	Refresh(ctx context.Context) (dto.SessionCredential, error)
}

// SessionManager caches the header bundle for the legacy AJAX endpoints.
// The credential is reused across rows and regenerated only when a request
// comes back 401/403. The batch runs single-threaded, so no locking here;
// a parallel runner would have to single-flight Refresh.
type SessionManager struct {
	path string
	auth Authenticator
	cred dto.SessionCredential
	// Set by Invalidate: the headers file holds the credential the server
	// just rejected, so it must not be reloaded until a refresh rewrites it.
	invalidated bool
	log         zerolog.Logger
}

func NewSessionManager(path string, auth Authenticator, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		path: path,
		auth: auth,
		log:  log.With().Str("component", "SessionManager").Logger(),
	}
}

// Credential returns the cached bundle, loading it from the headers file on
// first use and falling back to a full refresh when no usable file exists or
// the last credential was invalidated.
func (m *SessionManager) Credential(ctx context.Context) (dto.SessionCredential, error) {
	if !m.cred.IsZero() {
		return m.cred, nil
	}

	if !m.invalidated {
		if cred, err := m.loadFile(); err == nil && !cred.IsZero() {
			m.cred = cred
			return m.cred, nil
		}
	}

	if err := m.refresh(ctx); err != nil {
		return dto.SessionCredential{}, err
	}
	return m.cred, nil
}

// Invalidate discards the cached credential so the next Credential call
// re-authenticates.
func (m *SessionManager) Invalidate() {
	m.cred = dto.SessionCredential{}
	m.invalidated = true
	m.log.Warn().Msg("session credential invalidated")
}

func (m *SessionManager) refresh(ctx context.Context) error {
	if m.auth == nil {
		return fmt.Errorf("session refresh: %w", dto.ErrAuthExpired)
	}

	m.log.Info().Msg("refreshing session credential")
	cred, err := m.auth.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("auth.Refresh: %w", err)
	}
	if cred.IsZero() {
		return errors.New("auth.Refresh: empty credential")
	}

	m.cred = cred
	m.invalidated = false
	if err := m.saveFile(cred); err != nil {
		m.log.Error().Err(err).Msg("failed to persist session headers")
	}
	return nil
}

func (m *SessionManager) loadFile() (dto.SessionCredential, error) {
	var cred dto.SessionCredential
	b, err := os.ReadFile(m.path)
	if err != nil {
		return cred, err
	}
	if err := json.Unmarshal(b, &cred); err != nil {
		return dto.SessionCredential{}, fmt.Errorf("decode %s: %w", m.path, err)
	}
	return cred, nil
}

func (m *SessionManager) saveFile(cred dto.SessionCredential) error {
	b, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}
	if err := os.WriteFile(m.path, b, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", m.path, err)
	}
	return nil
}

// CommandAuthenticator shells out to the configured login helper, which
// performs the interactive browser login (password + one-time code) and
// rewrites the headers file.
type CommandAuthenticator struct {
	Command string
	Path    string
}

func (a *CommandAuthenticator) Refresh(ctx context.Context) (dto.SessionCredential, error) {
	if a.Command == "" {
		return dto.SessionCredential{}, errors.New("no login helper configured")
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", a.Command)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return dto.SessionCredential{}, fmt.Errorf("login helper: %w", err)
	}

	b, err := os.ReadFile(a.Path)
	if err != nil {
		return dto.SessionCredential{}, fmt.Errorf("read %s after login: %w", a.Path, err)
	}
	var cred dto.SessionCredential
	if err := json.Unmarshal(b, &cred); err != nil {
		return dto.SessionCredential{}, fmt.Errorf("decode %s: %w", a.Path, err)
	}
	return cred, nil
}
