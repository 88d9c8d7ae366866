package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"

	"github.com/google/uuid"

	"github.com/linkauth/server/internal/logger"
	"github.com/linkauth/server/internal/model"
	"github.com/linkauth/server/internal/secret"
)

// Auth orchestrates magic link issuance, verification and session reads.
// Cross-request correctness (single-use tokens, no double verification) is
// delegated entirely to the account store's conditional updates; Auth holds
// no locks.
type Auth struct {
	accounts model.AccountStore
	notifier model.Notifier
	sessions model.SessionManager
	clock    model.Clock
	baseURL  string
	logger   *logger.Logger
}

func NewAuth(
	accounts model.AccountStore,
	notifier model.Notifier,
	sessions model.SessionManager,
	clock model.Clock,
	baseURL string,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		accounts: accounts,
		notifier: notifier,
		sessions: sessions,
		clock:    clock,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Signup creates an account for the email if absent and sends a fresh magic
// link. Repeated signups before verification overwrite the outstanding token.
// An already verified account fails with ErrAlreadyVerified and is not
// mutated.
func (a *Auth) Signup(ctx context.Context, email, displayName string) (model.Account, error) {
	a.logger.Debug("Auth service: starting signup",
		"email", email)

	if err := validateEmail(email); err != nil {
		return model.Account{}, err
	}

	existing, err := a.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to get account by email",
			"email", email,
			"error", err.Error())
		return model.Account{}, fmt.Errorf("failed to get account by email: %w", err)
	}

	var account model.Account
	switch {
	case errors.Is(err, model.ErrNotFound):
		account, err = a.createAccount(ctx, email, displayName)
	case existing.Verified:
		a.logger.Info("Auth service: signup for verified account rejected",
			"email", email)
		return model.Account{}, model.ErrAlreadyVerified
	default:
		var name *string
		if displayName != "" {
			name = &displayName
		}
		account, err = a.issueToken(ctx, existing.ID, name)
	}
	if err != nil {
		return model.Account{}, err
	}

	if err := a.notify(ctx, account); err != nil {
		return model.Account{}, err
	}

	a.logger.Info("Auth service: signup link issued",
		"email", email,
		"account_id", account.ID)

	return account, nil
}

// Login sends a fresh magic link to an existing verified account. A missing
// account and an unverified one both fail with ErrNotFound so the response
// does not reveal which is the case.
func (a *Auth) Login(ctx context.Context, email string) (model.Account, error) {
	a.logger.Debug("Auth service: starting login",
		"email", email)

	account, err := a.accounts.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return model.Account{}, model.ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to get account by email: %w", err)
	}

	if !account.Verified {
		a.logger.Info("Auth service: login for unverified account rejected",
			"email", email)
		return model.Account{}, model.ErrNotFound
	}

	account, err = a.issueToken(ctx, account.ID, nil)
	if err != nil {
		return model.Account{}, err
	}

	if err := a.notify(ctx, account); err != nil {
		return model.Account{}, err
	}

	a.logger.Info("Auth service: login link issued",
		"email", email,
		"account_id", account.ID)

	return account, nil
}

// Resend refreshes the magic link of an existing unverified account.
func (a *Auth) Resend(ctx context.Context, email string) (model.Account, error) {
	a.logger.Debug("Auth service: resending verification link",
		"email", email)

	account, err := a.accounts.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return model.Account{}, model.ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to get account by email: %w", err)
	}

	if account.Verified {
		return model.Account{}, model.ErrAlreadyVerified
	}

	account, err = a.issueToken(ctx, account.ID, nil)
	if err != nil {
		return model.Account{}, err
	}

	if err := a.notify(ctx, account); err != nil {
		return model.Account{}, err
	}

	a.logger.Info("Auth service: verification link resent",
		"email", email,
		"account_id", account.ID)

	return account, nil
}

// Verify atomically consumes the token, marks the account verified and mints
// a session credential. At most one call per issued token ever succeeds.
func (a *Auth) Verify(ctx context.Context, token string) (model.Account, string, error) {
	a.logger.Debug("Auth service: verifying token")

	if token == "" {
		return model.Account{}, "", model.ErrTokenInvalid
	}

	account, err := a.accounts.ClaimToken(ctx, token, a.clock.Now())
	if errors.Is(err, model.ErrTokenInvalid) {
		a.logger.Info("Auth service: token claim rejected")
		return model.Account{}, "", model.ErrTokenInvalid
	}
	if err != nil {
		a.logger.Error("Auth service: failed to claim token",
			"error", err.Error())
		return model.Account{}, "", fmt.Errorf("failed to claim token: %w", err)
	}

	credential, err := a.sessions.Generate(account.ID, account.Email, account.Verified)
	if err != nil {
		a.logger.Error("Auth service: failed to issue session credential",
			"account_id", account.ID,
			"error", err.Error())
		return model.Account{}, "", fmt.Errorf("failed to issue session credential: %w", err)
	}

	a.logger.Info("Auth service: token verified",
		"email", account.Email,
		"account_id", account.ID)

	return account, credential, nil
}

// ReadSession validates a session credential and re-fetches the account it
// names. Embedded claims are not trusted as current truth beyond identity.
func (a *Auth) ReadSession(ctx context.Context, credential string) (model.Account, error) {
	accountID, err := a.sessions.Parse(credential)
	if err != nil {
		return model.Account{}, model.ErrUnauthenticated
	}

	account, err := a.accounts.GetByID(ctx, accountID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Account{}, model.ErrUnauthenticated
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

func (a *Auth) createAccount(ctx context.Context, email, displayName string) (model.Account, error) {
	token, err := secret.NewToken(secret.DefaultTokenLength)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to generate token: %w", err)
	}

	now := a.clock.Now()
	expiresAt := now.Add(model.TokenDuration)

	account, err := a.accounts.Create(ctx, model.Account{
		ID:             uuid.New(),
		Email:          email,
		DisplayName:    displayName,
		Token:          &token,
		TokenExpiresAt: &expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		a.logger.Error("Auth service: failed to create account",
			"email", email,
			"error", err.Error())
		return model.Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

func (a *Auth) issueToken(ctx context.Context, id uuid.UUID, displayName *string) (model.Account, error) {
	token, err := secret.NewToken(secret.DefaultTokenLength)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to generate token: %w", err)
	}

	account, err := a.accounts.RefreshToken(ctx, id, token, a.clock.Now().Add(model.TokenDuration), displayName)
	if err != nil {
		a.logger.Error("Auth service: failed to refresh token",
			"account_id", id,
			"error", err.Error())
		return model.Account{}, fmt.Errorf("failed to refresh token: %w", err)
	}

	return account, nil
}

// notify hands the link to the notifier. The token is already durably
// persisted at this point; on failure a retried issuance simply overwrites
// it, so no rollback happens here.
func (a *Auth) notify(ctx context.Context, account model.Account) error {
	if account.Token == nil {
		return fmt.Errorf("account has no outstanding token")
	}

	link := a.magicLink(*account.Token)
	if err := a.notifier.Send(ctx, account.Email, account.DisplayName, link); err != nil {
		a.logger.Error("Auth service: failed to send magic link",
			"email", account.Email,
			"error", err.Error())
		return fmt.Errorf("failed to send magic link: %w", err)
	}

	return nil
}

func (a *Auth) magicLink(token string) string {
	return a.baseURL + "?token=" + url.QueryEscape(token)
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return model.ErrInvalidEmail
	}
	return nil
}
