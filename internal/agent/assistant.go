package agent

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/domain"
	"github.com/spec-kit/cobranza-service/internal/llm"
)

const assistantSystemPrompt = `Eres el asistente de cobranza del Colegio. Tu rol es ayudar a los padres con consultas sobre pagos y cuotas.

PUEDES:
- Informar cuotas pendientes y pagadas
- Enviar links de pago
- Registrar confirmaciones de pago
- Responder sobre vencimientos y montos

NO PUEDES:
- Modificar montos de cuotas
- Ofrecer planes de pago (debes escalar)
- Dar de baja alumnos
- Resolver reclamos complejos
- Aprobar descuentos o becas

HERRAMIENTAS DISPONIBLES:
- account_status(identity): estado de cuenta y cuotas pendientes
- payment_link(installment_id): link de pago de una cuota
- confirm_payment(installment_id): registrar que el padre dice haber pagado
- escalate(category, reason): derivar a un humano; category es una de plan_pago, reclamo, baja, consulta_admin

RESPONDE SIEMPRE con un único JSON válido, sin markdown:
- Para usar una herramienta: {"action":"tool","tool":"<nombre>","args":{...}}
- Para responder al padre: {"action":"reply","text":"<respuesta>"}

REGLAS:
1. Sé conciso y amigable. Las respuestas deben ser cortas para WhatsApp.
2. Usa emojis con moderación (📋, 💰, ✅, 📅)
3. Si no puedes resolver algo, usa la herramienta escalate
4. Registra confirm_payment solo cuando el padre lo pida explícitamente, una sola vez
5. Formatea montos con separador de miles (ej: $45,000)`

const (
	maxToolIterations = 5

	// One confirmation per user turn: the assistant must never invent
	// repeated side-effecting calls.
	maxConfirmPaymentCalls = 1
)

// Escalation is an assistant directive to hand the conversation to the
// escalation coordinator.
type Escalation struct {
	Categoria domain.TicketCategoria
	Reason    string
}

// Outcome is the tagged result of one assistant turn: either a final reply
// or an escalation directive, never free text carrying a sentinel.
type Outcome struct {
	Reply    string
	Escalate *Escalation
}

// IsEscalation reports whether the turn ended in an escalation directive.
func (o Outcome) IsEscalation() bool {
	return o.Escalate != nil
}

// Assistant resolves simple billing intents with a bounded tool loop over
// the model-inference capability.
type Assistant struct {
	llm          llm.Client
	capabilities Capabilities
	logger       *zap.Logger
}

// NewAssistant wires the assistant with its collaborators.
func NewAssistant(client llm.Client, capabilities Capabilities, logger *zap.Logger) *Assistant {
	return &Assistant{llm: client, capabilities: capabilities, logger: logger}
}

type assistantDecision struct {
	Action string            `json:"action"`
	Tool   string            `json:"tool,omitempty"`
	Args   map[string]string `json:"args,omitempty"`
	Text   string            `json:"text,omitempty"`
}

// Respond processes one ASSISTANT-routed message. History is capped by the
// caller at the configured window; the loop runs at most maxToolIterations
// model calls and always yields a non-empty outcome.
func (a *Assistant) Respond(ctx context.Context, identity, message string, history []domain.Turn) Outcome {
	messages := make([]llm.ChatMessage, 0, len(history)+1)
	for _, turn := range history {
		role := llm.ChatRoleUser
		if turn.From == domain.SenderAsistente {
			role = llm.ChatRoleAssistant
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, llm.ChatMessage{Role: llm.ChatRoleUser, Content: message})

	confirmCalls := 0

	for i := 0; i < maxToolIterations; i++ {
		resp, err := a.llm.Complete(ctx, llm.Request{
			System:   []string{assistantSystemPrompt, "Identidad del padre (identity): " + identity},
			Messages: messages,
		})
		if err != nil {
			a.logger.Error("assistant model call failed", zap.String("identity", identity), zap.Error(err))
			return Outcome{Reply: assistantErrorReply}
		}

		decision, ok := parseDecision(resp.Text)
		if !ok {
			// Plain text from the model is taken as the reply itself.
			if reply := strings.TrimSpace(resp.Text); reply != "" {
				return Outcome{Reply: reply}
			}
			return Outcome{Reply: assistantErrorReply}
		}

		switch decision.Action {
		case "reply":
			if reply := strings.TrimSpace(decision.Text); reply != "" {
				return Outcome{Reply: reply}
			}
			return Outcome{Reply: assistantErrorReply}

		case "tool":
			if decision.Tool == ToolEscalate {
				return escalationOutcome(decision.Args)
			}
			observation := a.invokeTool(ctx, identity, decision, &confirmCalls)
			messages = append(messages,
				llm.ChatMessage{Role: llm.ChatRoleAssistant, Content: resp.Text},
				llm.ChatMessage{Role: llm.ChatRoleUser, Content: "Resultado de " + decision.Tool + ":\n" + observation},
			)

		default:
			a.logger.Warn("assistant produced unknown action",
				zap.String("identity", identity),
				zap.String("action", decision.Action))
			return Outcome{Reply: assistantErrorReply}
		}
	}

	a.logger.Warn("assistant tool loop exhausted", zap.String("identity", identity))
	return Outcome{Reply: assistantErrorReply}
}

// invokeTool runs one capability and returns the observation fed back to the
// model. Capability failures become narratable observations, never crashes.
func (a *Assistant) invokeTool(ctx context.Context, identity string, decision assistantDecision, confirmCalls *int) string {
	var (
		result string
		err    error
	)
	switch decision.Tool {
	case ToolAccountStatus:
		result, err = a.capabilities.AccountStatus(ctx, identity)
	case ToolPaymentLink:
		result, err = a.capabilities.PaymentLink(ctx, decision.Args["installment_id"])
	case ToolConfirmPayment:
		if *confirmCalls >= maxConfirmPaymentCalls {
			return "ERROR: ya registraste una confirmación de pago en este turno. " +
				"Explicale al padre que la confirmación ya fue registrada."
		}
		*confirmCalls++
		result, err = a.capabilities.ConfirmPayment(ctx, decision.Args["installment_id"], identity)
	default:
		a.logger.Warn("assistant requested unknown tool",
			zap.String("identity", identity),
			zap.String("tool", decision.Tool))
		return "ERROR: herramienta desconocida '" + decision.Tool + "'. " +
			"Usá solo las herramientas disponibles o respondé directamente."
	}

	if err != nil {
		a.logger.Error("capability invocation failed",
			zap.String("identity", identity),
			zap.String("tool", decision.Tool),
			zap.Error(err))
		return "ERROR: la herramienta falló. Disculpate con el padre y sugerí intentar más tarde."
	}
	return result
}

// escalationOutcome builds the directive from the model's escalate call,
// failing closed to consulta_admin when the category is not in the closed
// set. The message must never be dropped.
func escalationOutcome(args map[string]string) Outcome {
	categoria := domain.TicketCategoria(args["category"])
	if !domain.ValidCategoria(categoria) {
		categoria = domain.CategoriaConsultaAdmin
	}
	reason := strings.TrimSpace(args["reason"])
	if reason == "" {
		reason = "derivado por el asistente"
	}
	return Outcome{Escalate: &Escalation{Categoria: categoria, Reason: reason}}
}

func parseDecision(raw string) (assistantDecision, bool) {
	var decision assistantDecision
	cleaned := stripCodeFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &decision); err != nil {
		return assistantDecision{}, false
	}
	if decision.Action == "" {
		return assistantDecision{}, false
	}
	return decision, true
}

const assistantErrorReply = "Disculpá, tuve un problema procesando tu consulta. 😅\n\n" +
	"¿Podés intentar de nuevo? Si el problema persiste, " +
	"escribí 'hablar con alguien' para que te atienda un humano."
