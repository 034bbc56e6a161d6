package dto

import "github.com/spec-kit/cobranza-service/internal/domain"

// InboundMessageRequest is the webhook payload for one user message.
type InboundMessageRequest struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// InboundMessageResponse echoes the processed result back to the channel gateway.
type InboundMessageResponse struct {
	Respuesta string       `json:"respuesta"`
	Agente    domain.Route `json:"agente"`
	TicketID  string       `json:"ticket_id,omitempty"`
}
