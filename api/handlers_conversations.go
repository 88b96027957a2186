package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"telehealth/config"
	"telehealth/models"
	"telehealth/tracker"
	"telehealth/utils"

	"github.com/gin-gonic/gin"
)

// ConversationsResponse is the conversation sidebar for one tab.
type ConversationsResponse struct {
	Tabs          []string              `json:"tabs"`
	Selected      int                   `json:"selected"` // 0 when none is open
	Conversations []models.Conversation `json:"conversations"`
}

// ConversationDetail is an open conversation with its messages.
type ConversationDetail struct {
	Conversation models.Conversation  `json:"conversation"`
	Messages     []models.ChatMessage `json:"messages"`
}

// SendMessageRequest is a message typed into a conversation.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// GetConversationsHandler lists the caller's conversations.
// @Summary      List Conversations
// @Description  Lists the caller's conversations under a tab (`active` by default, or `archived`), filtered by counterpart name.
// @Tags         Conversations
// @Produce      json
// @Security     BearerAuth
// @Param        tab     query  string  false  "Tab." Enums(active, archived) default(active)
// @Param        search  query  string  false  "Counterpart name substring."
// @Success      200  {object}  ConversationsResponse "Matching conversations."
// @Failure      400  {object}  utils.APIError "Bad Request: unknown tab."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Router       /conversations [get]
func GetConversationsHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	ws, _ := workspaceFor(c, svc)
	if ws == nil {
		return
	}

	status, err := tracker.ParseConversationTab(c.Query("tab"))
	if err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid tab: %v", err))
		return
	}

	c.JSON(http.StatusOK, ConversationsResponse{
		Tabs:          tracker.ConversationTabs,
		Selected:      ws.Conversations.Selected(),
		Conversations: ws.Conversations.Filter(tracker.Filter[models.ConversationStatus]{Search: c.Query("search"), Status: status}),
	})
}

// GetConversationHandler opens a conversation.
// @Summary      Open a Conversation
// @Description  Selects the conversation, clears its unread flag and returns its messages.
// @Tags         Conversations
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Conversation ID."
// @Success      200  {object}  ConversationDetail "The conversation and its messages, oldest first."
// @Failure      400  {object}  utils.APIError "Bad Request: malformed id."
// @Failure      404  {object}  utils.APIError "Not Found: no such conversation."
// @Router       /conversations/{id} [get]
func GetConversationHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	ws, _ := workspaceFor(c, svc)
	if ws == nil {
		return
	}
	id, ok := conversationID(c)
	if !ok {
		return
	}

	conv, err := ws.Conversations.Select(id)
	if err != nil {
		conversationError(c, id, err)
		return
	}
	msgs, err := ws.Conversations.Messages(id)
	if err != nil {
		conversationError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, ConversationDetail{Conversation: conv, Messages: msgs})
}

// SendMessageHandler posts a message into a conversation.
// @Summary      Send a Message
// @Description  Appends the message, opens the conversation and schedules one scripted reply from the counterpart,
// @Description  which arrives after the configured delay. Poll the conversation to see it.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int                 true  "Conversation ID."
// @Param        message  body  SendMessageRequest  true  "The message."
// @Success      201  {object}  models.ChatMessage "The stored message."
// @Failure      400  {object}  utils.APIError "Bad Request: empty message or malformed id."
// @Failure      404  {object}  utils.APIError "Not Found: no such conversation."
// @Router       /conversations/{id}/messages [post]
func SendMessageHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	ws, email := workspaceFor(c, svc)
	if ws == nil {
		return
	}
	id, ok := conversationID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	msg, _, err := ws.Conversations.Send(id, req.Text)
	if err != nil {
		conversationError(c, id, err)
		return
	}
	log.Printf("DEBUG: %s sent message %d in conversation %d", email, msg.ID, id)
	c.JSON(http.StatusCreated, msg)
}

func conversationID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.GinBadRequest(c, "Conversation ID must be an integer.")
		return 0, false
	}
	return id, true
}

func conversationError(c *gin.Context, id int, err error) {
	switch {
	case errors.Is(err, tracker.ErrEmptyMessage):
		utils.GinBadRequest(c, "Message text is required.")
	case errors.Is(err, tracker.ErrNotFound):
		utils.GinNotFound(c, fmt.Sprintf("Conversation %d not found.", id))
	default:
		utils.GinInternalServerError(c, fmt.Sprintf("Conversation %d: %v", id, err))
	}
}
