// Package server hosts the HTTP surface: the Telegram webhook endpoint,
// the email verification callback and static poster files.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/app/services"
	"github.com/unipulse/unipulse-bot/internal/bot"
	"github.com/unipulse/unipulse-bot/internal/config"
	"github.com/unipulse/unipulse-bot/internal/middleware"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

// Server wires the gin router around the bot dispatcher.
type Server struct {
	http       *http.Server
	dispatcher *bot.Dispatcher
	accounts   *services.AccountService
	notify     func(account *models.Account)
}

// New creates the HTTP server. notify, when non-nil, is called with the
// freshly verified account so the bot can greet the user in Telegram.
func New(cfg *config.Config, dispatcher *bot.Dispatcher, accounts *services.AccountService, notify func(account *models.Account)) *Server {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		dispatcher: dispatcher,
		accounts:   accounts,
		notify:     notify,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/webhook", middleware.WebhookAuth(cfg.Telegram.WebhookSecret), s.handleWebhook)
	router.GET("/auth/confirm", s.handleConfirm)
	router.Static("/uploads", cfg.Server.StoragePath)

	s.http = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleWebhook decodes a Telegram update and hands it to the dispatcher.
// Always answers 200 once the payload parses; Telegram retries non-2xx
// deliveries and a handler failure should not cause a redelivery loop.
func (s *Server) handleWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		logger.Warn().Err(err).Msg("Undecodable webhook payload")
		c.Status(http.StatusBadRequest)
		return
	}
	s.dispatcher.HandleUpdate(c.Request.Context(), update)
	c.Status(http.StatusOK)
}

func (s *Server) handleConfirm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.Data(http.StatusBadRequest, "text/html; charset=utf-8", []byte(confirmPage("Missing token", "The verification link is incomplete. Request a new one with /verify in Telegram.")))
		return
	}

	account, err := s.accounts.CompleteVerification(c.Request.Context(), token)
	switch {
	case err == nil:
		if s.notify != nil {
			s.notify(account)
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(confirmPage("You're verified! 🎉", "Head back to Telegram, your account is ready.")))
	case errors.Is(err, apperrors.ErrTokenExpired):
		c.Data(http.StatusGone, "text/html; charset=utf-8", []byte(confirmPage("Link expired", "Request a fresh link with /verify in Telegram.")))
	default:
		c.Data(http.StatusBadRequest, "text/html; charset=utf-8", []byte(confirmPage("Invalid link", "This link is not valid. Request a new one with /verify in Telegram.")))
	}
}

func confirmPage(title, body string) string {
	return fmt.Sprintf(`<!doctype html>
<html><head><meta charset="utf-8"><title>UniPulse</title>
<style>body{font-family:sans-serif;max-width:32rem;margin:4rem auto;text-align:center}</style>
</head><body><h1>%s</h1><p>%s</p></body></html>`, title, body)
}
