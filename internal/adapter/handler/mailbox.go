package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/johnquangdev/meeting-scheduler/errors"
)

// MailboxConnector runs the Google consent flow for the sending mailbox
type MailboxConnector interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// StateIssuer issues and consumes one-time CSRF state tokens
type StateIssuer interface {
	GenerateState(userID string) (string, error)
	ConsumeState(state string) (string, bool)
}

// Mailbox handles connecting the Gmail/Calendar account the engine sends from
type Mailbox struct {
	connector    MailboxConnector
	states       StateIssuer
	refreshToken string
	logger       *zap.Logger
}

// NewMailboxHandler creates a new mailbox handler. refreshToken is the token
// currently configured, checked by Status.
func NewMailboxHandler(connector MailboxConnector, states StateIssuer, refreshToken string, logger *zap.Logger) *Mailbox {
	return &Mailbox{
		connector:    connector,
		states:       states,
		refreshToken: refreshToken,
		logger:       logger,
	}
}

// Connect handles GET /v1/mailbox/connect
// @Summary      Start the mailbox consent flow
// @Tags         Mailbox
// @Param        user_id  query  string  true  "Operator starting the flow"
// @Success      307
// @Router       /v1/mailbox/connect [get]
func (h *Mailbox) Connect(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("user_id is required"))
	}

	state, err := h.states.GenerateState(userID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}
	return c.Redirect(http.StatusTemporaryRedirect, h.connector.GetAuthURL(state))
}

// Callback handles GET /v1/mailbox/callback
// @Summary      Finish the mailbox consent flow
// @Description  Exchanges the code and returns the refresh token to put in GOOGLE_REFRESH_TOKEN
// @Tags         Mailbox
// @Produce      json
// @Param        code   query     string  true  "Authorization code"
// @Param        state  query     string  true  "State token"
// @Success      200    {object}  map[string]interface{}
// @Failure      403    {object}  map[string]interface{}  "Unknown or reused state"
// @Router       /v1/mailbox/callback [get]
func (h *Mailbox) Callback(c echo.Context) error {
	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("missing code or state parameter"))
	}

	userID, ok := h.states.ConsumeState(state)
	if !ok {
		return HandleError(h.logger, c, errors.ErrForbidden("invalid or expired state"))
	}

	token, err := h.connector.ExchangeCode(c.Request().Context(), code)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrExternalAPIFailed("google oauth", err))
	}
	if token.RefreshToken == "" {
		return HandleError(h.logger, c, errors.ErrExternalAPIFailed("google oauth", nil).WithDetail("reason", "no refresh token returned"))
	}

	h.logger.Info("🔑 Mailbox connected", zap.String("user_id", userID))
	return HandleSuccess(h.logger, c, map[string]interface{}{
		"user_id":       userID,
		"refresh_token": token.RefreshToken,
		"scopes":        token.Extra("scope"),
	})
}

// Status handles GET /v1/mailbox/status
// @Summary      Check the configured mailbox credentials
// @Tags         Mailbox
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /v1/mailbox/status [get]
func (h *Mailbox) Status(c echo.Context) error {
	if h.refreshToken == "" {
		return HandleSuccess(h.logger, c, map[string]interface{}{"connected": false})
	}

	token, err := h.connector.RefreshToken(c.Request().Context(), h.refreshToken)
	if err != nil {
		h.logger.Warn("⚠️ Mailbox token refresh failed", zap.Error(err))
		return HandleSuccess(h.logger, c, map[string]interface{}{
			"connected": false,
			"error":     err.Error(),
		})
	}
	return HandleSuccess(h.logger, c, map[string]interface{}{
		"connected":  true,
		"expires_in": time.Until(token.Expiry).Round(time.Second).String(),
	})
}
