package domain

import "time"

// Route is the coarse processing tier assigned to an inbound message.
type Route string

const (
	RouteGreeting  Route = "saludo"
	RouteAssistant Route = "asistente"
	RouteAgent     Route = "agente"
)

// TurnSender identifies who produced a conversation turn.
type TurnSender string

const (
	SenderUsuario   TurnSender = "usuario"
	SenderAsistente TurnSender = "asistente"
)

// InboundMessage is a raw inbound channel message. Immutable once received.
type InboundMessage struct {
	Identity   string
	Text       string
	ReceivedAt time.Time
}

// Turn is one exchange entry in a conversation history window.
type Turn struct {
	From TurnSender `json:"from"`
	Text string     `json:"text"`
}

// Classification is the coordinator's working categorization of an
// escalated message. Produced once per escalation attempt.
type Classification struct {
	Categoria      TicketCategoria
	Prioridad      TicketPrioridad
	RequiereHumano bool
	Razon          string
}

// ConversationState is the per-request value threaded through the pipeline.
// It is owned by a single invocation and never shared across requests.
type ConversationState struct {
	Identity       string
	Messages       []string
	History        []Turn
	Classification *Classification
	TicketID       string
	FinalReply     string
}

// LastMessage returns the triggering message, or empty when none exists.
func (s ConversationState) LastMessage() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1]
}
