package controllers

import (
	"errors"

	"bakustack/backend/chat"

	"github.com/gofiber/fiber/v2"
)

// ChatController answers with the bare {content} / {error} shape the chat
// widget expects, not the usual envelope.
type ChatController struct {
	Assistant *chat.Assistant
}

func NewChatController(assistant *chat.Assistant) *ChatController {
	return &ChatController{Assistant: assistant}
}

// Chat godoc
// @Summary Ask the mentor
// @Tags chat
// @Accept json
// @Produce json
// @Param input body chat.Request true "Message and optional history"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /chat [post]
func (cc *ChatController) Chat(c *fiber.Ctx) error {
	req, err := chat.ParseRequest(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid message",
		})
	}

	text, err := cc.Assistant.Reply(c.UserContext(), req)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"content": text})
	case errors.Is(err, chat.ErrInvalidMessage):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid message",
		})
	case errors.Is(err, chat.ErrNotConfigured):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Chat assistant is not configured",
		})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "The mentor is unavailable right now, please try again",
		})
	}
}
