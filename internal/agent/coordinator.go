package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/domain"
	apperrors "github.com/spec-kit/cobranza-service/pkg/util/errorutil"
)

// TicketStore is the persistence contract the coordinator escalates into.
// Create must be idempotent under the ticket's correlation key.
type TicketStore interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
}

// Route decisions and validation results used by the state machine.
const (
	decisionEscalar  = "escalar"
	decisionResolver = "resolver"
	validationExito  = "exito"
	validationFallo  = "fallo"
)

// Coordinator is the escalation state machine:
// CLASSIFY -> decide_route -> {RESOLVE_ATTEMPT -> VALIDATE ->} CREATE_TICKET
// -> GENERATE_WAIT_MESSAGE -> END.
// Each step takes a ConversationState value and returns the updated value.
type Coordinator struct {
	classifier Classifier
	tickets    TicketStore
	window     time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewCoordinator wires the state machine. window is the deduplication window
// for the escalation correlation key.
func NewCoordinator(classifier Classifier, tickets TicketStore, window time.Duration, logger *zap.Logger) *Coordinator {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Coordinator{
		classifier: classifier,
		tickets:    tickets,
		window:     window,
		logger:     logger,
		now:        time.Now,
	}
}

// Process runs the state machine for one escalated message. The returned
// state always carries a non-empty FinalReply unless the error is non-nil,
// in which case the ticket write failed and the caller must retry the whole
// escalation.
func (c *Coordinator) Process(ctx context.Context, state domain.ConversationState) (domain.ConversationState, error) {
	state = c.classify(ctx, state)

	if c.decideRoute(state) == decisionResolver {
		state = c.resolveAttempt(state)
		if c.validateResolution(state) == validationExito {
			return state, nil
		}
	}

	ticket, err := c.createTicket(ctx, state)
	if err != nil {
		return state, err
	}
	state.TicketID = ticket.ID
	state.FinalReply = c.waitMessage(ticket)
	return state, nil
}

// classify invokes the classification capability, failing closed to
// consulta_admin/media. Classification failure is never fatal to the
// conversation.
func (c *Coordinator) classify(ctx context.Context, state domain.ConversationState) domain.ConversationState {
	classification, err := c.classifier.Classify(ctx, state)
	if err != nil {
		c.logger.Warn("classification failed, using fallback",
			zap.String("identity", state.Identity),
			zap.Error(err))
		classification = domain.Classification{
			Categoria: domain.CategoriaConsultaAdmin,
			Prioridad: domain.PrioridadMedia,
			Razon:     "clasificación no disponible",
		}
	}
	state.Classification = &classification
	return state
}

// decideRoute: baja and reclamo never auto-resolve.
func (c *Coordinator) decideRoute(state domain.ConversationState) string {
	switch state.Classification.Categoria {
	case domain.CategoriaBaja, domain.CategoriaReclamo:
		return decisionEscalar
	}
	return decisionResolver
}

// resolveAttempt produces a category-specific advisory acknowledgement. It
// never concludes the conversation on its own.
func (c *Coordinator) resolveAttempt(state domain.ConversationState) domain.ConversationState {
	switch state.Classification.Categoria {
	case domain.CategoriaPlanPago:
		state.FinalReply = "Entiendo que necesitás un plan de pagos. 📝\n\n" +
			"Para solicitar un plan de pagos, necesito derivar tu " +
			"consulta al área administrativa.\n\n" +
			"Ellos evaluarán tu situación y te contactarán con " +
			"las opciones disponibles."
	case domain.CategoriaConsultaAdmin:
		state.FinalReply = "Tu consulta requiere atención del área administrativa. 📋\n\n" +
			"Voy a crear un ticket para que te respondan a la brevedad.\n\n" +
			"Normalmente responden en menos de 24 horas hábiles."
	default:
		state.FinalReply = ""
	}
	return state
}

// validateResolution: for plan_pago and consulta_admin escalation is
// mandatory regardless of the advisory text; any category that could truly
// terminate here would return exito when a reply exists.
func (c *Coordinator) validateResolution(state domain.ConversationState) string {
	switch state.Classification.Categoria {
	case domain.CategoriaPlanPago, domain.CategoriaConsultaAdmin:
		return validationFallo
	}
	if state.FinalReply != "" {
		return validationExito
	}
	return validationFallo
}

// createTicket is the sole state-mutating write of the machine. A store
// failure is fatal to the request; a lost escalation is unacceptable.
func (c *Coordinator) createTicket(ctx context.Context, state domain.ConversationState) (*domain.Ticket, error) {
	createdAt := c.now().UTC()
	ticket := &domain.Ticket{
		CorrelationKey: c.correlationKey(state.Identity, createdAt),
		Identity:       state.Identity,
		Categoria:      state.Classification.Categoria,
		Prioridad:      state.Classification.Prioridad,
		Motivo:         state.LastMessage(),
		Contexto: domain.TicketContexto{
			Identity:  state.Identity,
			Mensajes:  append([]string(nil), state.Messages...),
			Timestamp: createdAt,
		},
		Estado: domain.TicketEstadoPendiente,
	}

	stored, err := c.tickets.Create(ctx, ticket)
	if err != nil {
		c.logger.Error("ticket creation failed",
			zap.String("identity", state.Identity),
			zap.Error(err))
		return nil, apperrors.NewPersistenceFailure(err)
	}
	c.logger.Info("ticket created",
		zap.String("ticket_id", stored.ID),
		zap.String("categoria", string(stored.Categoria)),
		zap.String("prioridad", string(stored.Prioridad)))
	return stored, nil
}

// correlationKey dedupes retried escalations: identity plus the creation
// time truncated to the open-escalation window.
func (c *Coordinator) correlationKey(identity string, at time.Time) string {
	bucket := at.Truncate(c.window)
	return fmt.Sprintf("%s|%d", identity, bucket.Unix())
}

// waitMessage selects the category acknowledgement template with the short
// ticket id; unmapped categories get the default template.
func (c *Coordinator) waitMessage(ticket *domain.Ticket) string {
	shortID := ticket.ShortID()
	switch ticket.Categoria {
	case domain.CategoriaPlanPago:
		return "✅ Registré tu solicitud de plan de pagos.\n\n" +
			"📝 Ticket: #" + shortID + "\n\n" +
			"El área administrativa va a evaluar tu situación y te " +
			"contactará por este medio con las opciones disponibles.\n\n" +
			"⏰ Tiempo estimado de respuesta: 24-48 horas hábiles."
	case domain.CategoriaReclamo:
		return "📋 Tu reclamo fue registrado correctamente.\n\n" +
			"📝 Ticket: #" + shortID + "\n\n" +
			"Un representante del colegio va a revisar tu caso y " +
			"te contactará para darle solución.\n\n" +
			"⏰ Tiempo estimado de respuesta: 24 horas hábiles."
	case domain.CategoriaBaja:
		return "📝 Tu solicitud de baja fue registrada.\n\n" +
			"Ticket: #" + shortID + "\n\n" +
			"El área administrativa se comunicará contigo para " +
			"continuar con el proceso.\n\n" +
			"⚠️ Recordá que pueden aplicarse políticas de baja anticipada."
	default:
		return "✅ Tu consulta fue derivada al área administrativa.\n\n" +
			"📝 Ticket: #" + shortID + "\n\n" +
			"Te responderán a la brevedad por este medio.\n\n" +
			"⏰ Tiempo estimado: 24-48 horas hábiles."
	}
}
