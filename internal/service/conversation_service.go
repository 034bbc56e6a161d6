package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/agent"
	"github.com/spec-kit/cobranza-service/internal/conversation"
	"github.com/spec-kit/cobranza-service/internal/domain"
	"github.com/spec-kit/cobranza-service/internal/observability"
	"github.com/spec-kit/cobranza-service/internal/repository"
)

// ConversationResult is the outcome of one processed inbound message.
type ConversationResult struct {
	Reply    string
	Route    domain.Route
	TicketID string
}

// ConversationService is the pipeline entry point: router first, then the
// assistant or the escalation coordinator, one reply per inbound message.
type ConversationService struct {
	router       *agent.Router
	assistant    *agent.Assistant
	coordinator  *agent.Coordinator
	history      conversation.HistoryStore
	interactions repository.InteractionRepository
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// ConversationDependencies bundles pipeline collaborators.
type ConversationDependencies struct {
	Router       *agent.Router
	Assistant    *agent.Assistant
	Coordinator  *agent.Coordinator
	History      conversation.HistoryStore
	Interactions repository.InteractionRepository
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	return &ConversationService{
		router:       deps.Router,
		assistant:    deps.Assistant,
		coordinator:  deps.Coordinator,
		history:      deps.History,
		interactions: deps.Interactions,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
	}
}

const fallbackReply = "Recibí tu mensaje y lo estoy procesando. 📝\n\n" +
	"Si tu consulta requiere atención especial, " +
	"un representante te contactará pronto."

// ClassifyAndRespond processes one inbound message end to end. The returned
// reply is never empty. A non-nil error means the ticket write failed and
// the caller must retry the whole message.
func (s *ConversationService) ClassifyAndRespond(ctx context.Context, identity, text string) (ConversationResult, error) {
	msg := domain.InboundMessage{Identity: identity, Text: text, ReceivedAt: time.Now().UTC()}
	history := s.history.Window(ctx, identity)

	route := s.router.Route(msg.Text)
	s.metrics.RecordRoute(string(route))
	s.logger.Info("message routed",
		zap.String("identity", identity),
		zap.String("route", string(route)))

	result := ConversationResult{Route: route}

	switch route {
	case domain.RouteGreeting:
		result.Reply = agent.GreetingReply()

	case domain.RouteAssistant:
		outcome := s.assistant.Respond(ctx, identity, msg.Text, history)
		if outcome.IsEscalation() {
			// The assistant handed off; the coordinator owns the rest of
			// the turn.
			state, err := s.escalate(ctx, msg, history)
			if err != nil {
				return result, err
			}
			result.Route = domain.RouteAgent
			result.Reply = state.FinalReply
			result.TicketID = state.TicketID
		} else {
			result.Reply = outcome.Reply
		}

	case domain.RouteAgent:
		state, err := s.escalate(ctx, msg, history)
		if err != nil {
			return result, err
		}
		result.Reply = state.FinalReply
		result.TicketID = state.TicketID
	}

	if strings.TrimSpace(result.Reply) == "" {
		result.Reply = fallbackReply
	}
	if result.TicketID != "" {
		s.metrics.RecordEscalation()
	}

	s.history.Append(ctx, identity, domain.Turn{From: domain.SenderUsuario, Text: msg.Text})
	s.history.Append(ctx, identity, domain.Turn{From: domain.SenderAsistente, Text: result.Reply})
	s.recordInteraction(msg, result)

	return result, nil
}

func (s *ConversationService) escalate(ctx context.Context, msg domain.InboundMessage, history []domain.Turn) (domain.ConversationState, error) {
	messages := make([]string, 0, len(history)+1)
	for _, turn := range history {
		if turn.From == domain.SenderUsuario {
			messages = append(messages, turn.Text)
		}
	}
	messages = append(messages, msg.Text)

	state := domain.ConversationState{
		Identity: msg.Identity,
		Messages: messages,
		History:  history,
	}
	return s.coordinator.Process(ctx, state)
}

// recordInteraction persists the exchange in the background so ticket
// reviewers can see the surrounding conversation. Failures are logged, they
// never affect the reply.
func (s *ConversationService) recordInteraction(msg domain.InboundMessage, result ConversationResult) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		interaction := &repository.Interaction{
			Identity:  msg.Identity,
			Mensaje:   msg.Text,
			Respuesta: result.Reply,
			Agente:    result.Route,
		}
		if result.TicketID != "" {
			ticketID := result.TicketID
			interaction.TicketID = &ticketID
		}
		if err := s.interactions.Create(ctx, interaction); err != nil {
			s.logger.Warn("interaction log write failed",
				zap.String("identity", msg.Identity),
				zap.Error(err))
		}
	}()
}
