package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/app/services"
	"github.com/unipulse/unipulse-bot/internal/config"
	"github.com/unipulse/unipulse-bot/internal/pkg/auth"
)

type fakeAccounts struct {
	upserted *models.Account
}

func (f *fakeAccounts) GetByTelegramID(_ context.Context, _ int64) (*models.Account, error) {
	return nil, nil
}

func (f *fakeAccounts) Upsert(_ context.Context, email string, telegramID int64, handle string) (*models.Account, error) {
	f.upserted = &models.Account{ID: 1, Email: email, TelegramID: telegramID, Handle: handle}
	return f.upserted, nil
}

func (f *fakeAccounts) UpdateNewsletterTime(_ context.Context, _ int64, _ string) error { return nil }

func (f *fakeAccounts) UpdateLastNewsletterSent(_ context.Context, _ int64, _ time.Time) error {
	return nil
}

func (f *fakeAccounts) ListByNewsletterTime(_ context.Context, _ string) ([]*models.Account, error) {
	return nil, nil
}

func (f *fakeAccounts) ListSubscribed(_ context.Context) ([]*models.Account, error) {
	return nil, nil
}

type noopMailer struct{}

func (noopMailer) SendVerificationEmail(_, _ string) error { return nil }

func newTestServer(t *testing.T, ttl time.Duration) (*Server, *auth.TokenService, *fakeAccounts, *[]int64) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokenService(auth.TokenConfig{SecretKey: "test", TokenTTL: ttl, Issuer: "test"})
	accounts := &fakeAccounts{}
	accountSvc := services.NewAccountService(accounts, tokens, noopMailer{}, []string{"u.nus.edu"}, "https://bot.example.com")

	var notified []int64
	cfg := &config.Config{}
	cfg.Server.Port = "8080"
	cfg.Server.StoragePath = t.TempDir()
	cfg.Telegram.WebhookSecret = "s3cret"

	srv := New(cfg, nil, accountSvc, func(account *models.Account) {
		notified = append(notified, account.TelegramID)
	})
	return srv, tokens, accounts, &notified
}

func TestWebhookRejectsWithoutSecret(t *testing.T) {
	srv, _, _, _ := newTestServer(t, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", w.Code)
	}
}

func TestWebhookRejectsBadPayload(t *testing.T) {
	srv, _, _, _ := newTestServer(t, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not json"))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")
	w := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", w.Code)
	}
}

func TestConfirmHappyPath(t *testing.T) {
	srv, tokens, accounts, notified := newTestServer(t, time.Hour)

	token, err := tokens.IssueVerificationToken("alice@u.nus.edu", 99, "alice")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/confirm?token="+token, nil)
	w := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", w.Code, w.Body.String())
	}
	if accounts.upserted == nil || accounts.upserted.Email != "alice@u.nus.edu" {
		t.Errorf("account not upserted: %+v", accounts.upserted)
	}
	if len(*notified) != 1 || (*notified)[0] != 99 {
		t.Errorf("expected telegram notification for user 99, got %v", *notified)
	}
}

func TestConfirmExpiredToken(t *testing.T) {
	srv, tokens, _, _ := newTestServer(t, -time.Hour)

	token, err := tokens.IssueVerificationToken("alice@u.nus.edu", 99, "alice")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/confirm?token="+token, nil)
	w := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusGone {
		t.Fatalf("got %d, want 410", w.Code)
	}
}

func TestConfirmRejectsGarbage(t *testing.T) {
	srv, _, _, _ := newTestServer(t, time.Hour)

	for _, path := range []string{"/auth/confirm", "/auth/confirm?token=junk"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.http.Handler.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", path, w.Code)
		}
	}
}
