package services

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
	"github.com/unipulse/unipulse-bot/internal/pkg/auth"
	"github.com/unipulse/unipulse-bot/internal/pkg/email"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"

	"github.com/unipulse/unipulse-bot/internal/app/models"
)

var newsletterTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// AccountService handles verification and account preferences.
type AccountService struct {
	accounts       AccountStore
	tokens         *auth.TokenService
	mailer         email.EmailService
	allowedDomains []string
	publicURL      string
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	accounts AccountStore,
	tokens *auth.TokenService,
	mailer email.EmailService,
	allowedDomains []string,
	publicURL string,
) *AccountService {
	domains := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		domains = append(domains, strings.ToLower(strings.TrimSpace(d)))
	}
	return &AccountService{
		accounts:       accounts,
		tokens:         tokens,
		mailer:         mailer,
		allowedDomains: domains,
		publicURL:      strings.TrimRight(publicURL, "/"),
	}
}

// GetByTelegramID returns the verified account for a Telegram user, or nil.
func (s *AccountService) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error) {
	return s.accounts.GetByTelegramID(ctx, telegramID)
}

// BeginVerification validates the address against the institutional domain
// allow-list and emails a magic link bound to the Telegram identity.
func (s *AccountService) BeginVerification(ctx context.Context, emailAddr string, telegramID int64, handle string) error {
	addr := strings.ToLower(strings.TrimSpace(emailAddr))
	if _, err := mail.ParseAddress(addr); err != nil {
		return apperrors.ErrInvalidEmail
	}
	if !s.domainAllowed(addr) {
		return apperrors.ErrEmailDomainNotAllowed
	}
	if handle == "" {
		return apperrors.ErrUsernameRequired
	}

	token, err := s.tokens.IssueVerificationToken(addr, telegramID, handle)
	if err != nil {
		return fmt.Errorf("issuing verification token: %w", err)
	}
	verifyURL := fmt.Sprintf("%s/auth/confirm?token=%s", s.publicURL, token)
	if err := s.mailer.SendVerificationEmail(addr, verifyURL); err != nil {
		return fmt.Errorf("sending verification email: %w", err)
	}
	logger.Info().Str("email", addr).Int64("telegram_id", telegramID).Msg("Verification email sent")
	return nil
}

// CompleteVerification validates a magic-link token and upserts the account.
func (s *AccountService) CompleteVerification(ctx context.Context, token string) (*models.Account, error) {
	claims, err := s.tokens.ValidateVerificationToken(token)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.Upsert(ctx, claims.Email, claims.TelegramID, claims.Handle)
	if err != nil {
		return nil, err
	}
	logger.Info().Int64("account_id", account.ID).Str("email", account.Email).Msg("Account verified")
	return account, nil
}

// UpdateNewsletterTime sets the daily digest delivery time. The value must
// be HH:MM in 24-hour form.
func (s *AccountService) UpdateNewsletterTime(ctx context.Context, telegramID int64, hhmm string) (*models.Account, error) {
	hhmm = strings.TrimSpace(hhmm)
	if !newsletterTimeRe.MatchString(hhmm) {
		return nil, apperrors.NewBadRequestError("time must be HH:MM in 24-hour form, e.g. 08:30")
	}
	account, err := s.accounts.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.ErrNotVerified
	}
	if err := s.accounts.UpdateNewsletterTime(ctx, account.ID, hhmm); err != nil {
		return nil, err
	}
	account.NewsletterTime = hhmm
	return account, nil
}

func (s *AccountService) domainAllowed(addr string) bool {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return false
	}
	domain := addr[at+1:]
	for _, d := range s.allowedDomains {
		if domain == d {
			return true
		}
	}
	return false
}
