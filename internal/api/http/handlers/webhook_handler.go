package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/api/dto"
	"github.com/spec-kit/cobranza-service/internal/outbound"
	"github.com/spec-kit/cobranza-service/internal/service"
	apperrors "github.com/spec-kit/cobranza-service/pkg/util/errorutil"
)

// WebhookHandler receives channel callbacks: the subscription verification
// handshake and inbound user messages.
type WebhookHandler struct {
	conversations *service.ConversationService
	sender        outbound.Sender
	verifyToken   string
	logger        *zap.Logger
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(conversations *service.ConversationService, sender outbound.Sender, verifyToken string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{conversations: conversations, sender: sender, verifyToken: verifyToken, logger: logger}
}

// Verify GET /webhook/whatsapp handles the subscription handshake: the
// challenge is echoed back only when the verify token matches.
func (h *WebhookHandler) Verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken && challenge != "" {
		return c.SendString(challenge)
	}
	return apperrors.NewUnauthorized("verification failed")
}

// Receive POST /webhook/whatsapp processes one inbound user message and
// returns the generated reply.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	var req dto.InboundMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.From = strings.TrimSpace(req.From)
	req.Text = strings.TrimSpace(req.Text)
	if req.From == "" || req.Text == "" {
		return apperrors.NewValidationError("from and text required", nil)
	}

	result, err := h.conversations.ClassifyAndRespond(c.UserContext(), req.From, req.Text)
	if err != nil {
		return err
	}

	// Delivery back to the channel is best effort: the reply is already in
	// the response body, so a gateway hiccup must not fail the webhook.
	if err := h.sender.Send(c.UserContext(), req.From, result.Reply); err != nil {
		h.logger.Warn("outbound delivery failed",
			zap.String("identity", req.From),
			zap.Error(err))
	}

	return c.JSON(fiber.Map{"data": dto.InboundMessageResponse{
		Respuesta: result.Reply,
		Agente:    result.Route,
		TicketID:  result.TicketID,
	}})
}
