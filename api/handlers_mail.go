package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"telehealth/assistant"
	"telehealth/config"
	"telehealth/models"
	"telehealth/utils"

	"github.com/gin-gonic/gin"
)

// MailboxResponse lists the messages of one mock mailbox.
type MailboxResponse struct {
	Address string                `json:"address"`
	Emails  []models.EmailMessage `json:"emails"`
}

// GetEmailsHandler shows the caller's own mock mailbox.
// @Summary      Read My Mock Mailbox
// @Description  Returns every message the mock messaging service sent to the caller's address, oldest first.
// @Description  Nothing is delivered for real, so this is where verification links and codes can be read.
// @Description  The route exists only when the server runs with `--expose-mailboxes`.
// @Tags         Mail
// @Produce      json
// @Security     BearerAuth
// @Param        address  path  string  true  "Recipient address (case-insensitive). Must be the caller's own."
// @Success      200  {object}  MailboxResponse "The mailbox, possibly empty."
// @Failure      400  {object}  utils.APIError "Bad Request: blank address."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid token."
// @Failure      403  {object}  utils.APIError "Forbidden: the address belongs to someone else."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the mailbox could not be read."
// @Router       /emails/{address} [get]
func GetEmailsHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	address := utils.NormalizeEmail(c.Param("address"))
	if address == "" {
		utils.GinBadRequest(c, "Address is required.")
		return
	}
	email, _, ok := utils.CurrentUser(c)
	if !ok {
		utils.GinInternalServerError(c, "User email not found in context. Middleware issue?")
		return
	}
	if utils.NormalizeEmail(email) != address {
		utils.GinForbidden(c, "You can only read your own mailbox.")
		return
	}

	emails, err := svc.Mail.GetEmailsForAddress(c.Request.Context(), address)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to read mailbox: %v", err))
		return
	}
	c.JSON(http.StatusOK, MailboxResponse{Address: address, Emails: emails})
}

// ChatRequest is one question for the AI health assistant.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatHandler answers a health question.
// @Summary      Ask the AI Health Assistant
// @Description  Sends the message to the configured language model. When no key is configured or the provider fails,
// @Description  a keyword-matched template answers instead (heart rate, blood pressure, temperature, glucose, wellness) or a general default.
// @Description  A quota or billing failure adds a `notice` to the response. Provider failures never produce an error status.
// @Tags         Assistant
// @Accept       json
// @Produce      json
// @Param        body body ChatRequest true "The question."
// @Success      200  {object}  assistant.Reply "The answer and where it came from (`ai` or `fallback`)."
// @Failure      400  {object}  utils.APIError "Message is required"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /api/chat [post]
func ChatHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		utils.GinBadRequest(c, "Message is required")
		return
	}

	reply, err := svc.Assistant.Reply(c.Request.Context(), req.Message)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		utils.GinBadRequest(c, "Message is required")
		return
	}
	if err != nil {
		utils.GinInternalServerError(c, "Failed to process chat message")
		return
	}
	c.JSON(http.StatusOK, reply)
}
