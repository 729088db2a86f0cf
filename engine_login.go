package cineauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cinemate/cineauth/internal"
	"github.com/cinemate/cineauth/session"
	"github.com/google/uuid"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	if e == nil || e.passwordHash == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}
	if email == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "empty_input",
			}
		})
		return nil, ErrInvalidCredentials
	}

	user, err := e.userProvider.GetUserByEmail(email)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "user_not_found",
			}
		})
		return nil, ErrInvalidCredentials
	}

	ok, err := e.passwordHash.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "password_mismatch",
			}
		})
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", "", ErrAccountInactive, func() map[string]string {
			return map[string]string{
				"reason": "account_inactive",
			}
		})
		return nil, ErrAccountInactive
	}

	if e.config.Password.UpgradeOnLogin {
		if needsUpgrade, err := e.passwordHash.NeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgradedHash, err := e.passwordHash.Hash(pass); err == nil {
				// Rehash update is best-effort and must not block successful login.
				if err := e.userProvider.UpdatePasswordHash(user.UserID, upgradedHash); err != nil {
					log.Print("cineauth: password hash upgrade update failed")
				}
			} else {
				log.Print("cineauth: password hash upgrade generation failed")
			}
		}
	}
	pass = ""

	result, err := e.createSession(ctx, user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", "", err, func() map[string]string {
			return map[string]string{
				"reason": "session_create_failed",
			}
		})
		return nil, err
	}

	if err := e.userProvider.UpdateLastLogin(user.UserID, time.Now().UTC()); err != nil {
		// Last-login touch is best-effort.
		log.Print("cineauth: last login update failed")
	}

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, result.Session.SessionID, "", nil, nil)

	return result, nil
}

// createSession persists a fresh active session for user and issues the
// access token that references it. Shared by login and signup auto-login.
func (e *Engine) createSession(ctx context.Context, user UserRecord) (*LoginResult, error) {
	sid, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	sessionID := sid.String()

	refreshSecret, err := internal.NewRefreshSecret()
	if err != nil {
		return nil, err
	}

	platform := platformFromContext(ctx)
	if platform == "" {
		platform = e.config.Session.DefaultPlatform
	}

	now := time.Now()
	sess := &session.Session{
		SessionID:        sessionID,
		UserID:           user.UserID,
		IPAddress:        clientIPFromContext(ctx),
		Platform:         platform,
		DeviceName:       deviceNameFromContext(ctx),
		Status:           session.StatusActive,
		RefreshHash:      internal.HashRefreshSecret(refreshSecret),
		RefreshExpiresAt: now.Add(e.config.Session.RefreshLifetime).Unix(),
		StartedAt:        now.Unix(),
	}

	if err := e.sessionStore.Create(ctx, sess); err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil, err
	}

	access, err := e.jwtManager.IssueAccess(user.UserID, sessionID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken: access,
		UserID:      user.UserID,
		Session:     sessionSummary(sess),
	}, nil
}
