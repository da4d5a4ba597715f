package server

import (
	"context"
	"crypto/subtle"
	"embed"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot/models"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	apperrors "github.com/edgard/relaybot/internal/errors"
)

//go:embed templates/verify.html
var templates embed.FS

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// handleUpdate acknowledges a webhook update at once and processes it in the background.
func (s *Server) handleUpdate(c *gin.Context) {
	if secret := s.cfg.Telegram.WebhookSecret; secret != "" {
		got := c.GetHeader(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false})
			return
		}
	}

	var update models.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid update"})
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), s.cfg.Server.UpdateTimeout)
		defer cancel()
		s.handler(ctx, &update)
	}()

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type verifyPageData struct {
	SiteKey         string
	UserID          int64
	RequireInitData bool
}

func (s *Server) handleVerifyPage(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.String(http.StatusBadRequest, "missing or invalid user_id")
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err = s.page.Execute(c.Writer, verifyPageData{
		SiteKey:         s.cfg.Verification.SiteKey,
		UserID:          userID,
		RequireInitData: s.cfg.Verification.RequireInitData,
	})
	if err != nil {
		_ = c.Error(err)
	}
}

type submitTokenRequest struct {
	Token    string `json:"token"    binding:"required"`
	UserID   int64  `json:"userId"   binding:"required,gt=0"`
	InitData string `json:"initData"`
}

type submitTokenResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// handleSubmitToken verifies a challenge token and advances the user to the Q&A stage.
func (s *Server) handleSubmitToken(c *gin.Context) {
	ctx := c.Request.Context()

	var req submitTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, submitTokenResponse{Error: "token and userId are required"})
		return
	}
	log := s.logger.With("user_id", req.UserID, "request_id", c.GetString(requestIDKey))

	if s.cfg.Verification.RequireInitData {
		if status, msg := s.checkInitData(req); status != http.StatusOK {
			log.WarnContext(ctx, "Rejected challenge submission with invalid init data", "reason", msg)
			c.JSON(status, submitTokenResponse{Error: msg})
			return
		}
	}

	ok, err := s.verifier.Verify(ctx, req.Token, c.ClientIP())
	if err != nil {
		log.ErrorContext(ctx, "Challenge verification unavailable", "error", err)
		c.JSON(http.StatusBadGateway, submitTokenResponse{Error: "verification service unavailable"})
		return
	}
	if !ok {
		log.InfoContext(ctx, "Challenge token rejected")
		c.JSON(http.StatusForbidden, submitTokenResponse{Error: "verification failed"})
		return
	}

	if _, err := s.gate.CompleteChallenge(ctx, req.UserID); err != nil {
		switch apperrors.Code(err) {
		case apperrors.CodeNotFound:
			c.JSON(http.StatusBadRequest, submitTokenResponse{Error: "unknown user, send /start to the bot first"})
		case apperrors.CodeValidation:
			c.JSON(http.StatusForbidden, submitTokenResponse{Error: "user cannot be verified"})
		default:
			log.ErrorContext(ctx, "Failed to complete challenge", "error", err)
			c.JSON(http.StatusInternalServerError, submitTokenResponse{Error: "internal error"})
		}
		return
	}

	log.InfoContext(ctx, "Challenge completed")
	c.JSON(http.StatusOK, submitTokenResponse{Success: true})
}

// checkInitData validates the WebApp init data against the bot token and
// requires it to name the submitted user.
func (s *Server) checkInitData(req submitTokenRequest) (int, string) {
	if req.InitData == "" {
		return http.StatusBadRequest, "missing initData"
	}
	if err := initdata.Validate(req.InitData, s.cfg.Telegram.Token, s.cfg.Verification.InitDataTTL); err != nil {
		return http.StatusForbidden, "invalid initData"
	}
	parsed, err := initdata.Parse(req.InitData)
	if err != nil {
		return http.StatusBadRequest, "invalid initData format"
	}
	if parsed.User.ID != req.UserID {
		return http.StatusForbidden, "initData does not match userId"
	}
	return http.StatusOK, ""
}
