package agent

import (
	"math/rand"
	"strings"

	"github.com/spec-kit/cobranza-service/internal/domain"
)

// Keyword sets for the deterministic first routing tier. Escalation keywords
// dominate simple keywords, which dominate greeting keywords.
var (
	escalationKeywords = []string{
		"reclamo",
		"queja",
		"baja",
		"urgente",
		"error",
		"problema",
		"hablar con alguien",
		"humano",
		"plan de pago",
		"plan de pagos",
		"descuento",
		"beca",
		"no puedo pagar",
		"dificultad",
		"injusto",
		"mal cobro",
	}

	simpleKeywords = []string{
		"cuanto debo",
		"cuánto debo",
		"saldo",
		"link",
		"pagar",
		"vencimiento",
		"cuota",
		"pendiente",
		"deuda",
		"estado de cuenta",
		"mis hijos",
		"alumno",
	}

	greetingKeywords = []string{
		"hola",
		"buenos días",
		"buenas tardes",
		"buenas noches",
		"buen día",
		"hey",
		"hi",
	}
)

const greetingMaxLength = 30

// Router assigns the coarse processing tier for an inbound message without
// any model call. It is total: every input maps to a route.
type Router struct{}

// NewRouter builds the keyword router.
func NewRouter() *Router {
	return &Router{}
}

// Route classifies the message text. Priority order: escalation keywords win
// unconditionally, then simple-intent keywords, then short greetings, then
// the assistant default.
func (r *Router) Route(message string) domain.Route {
	text := strings.ToLower(strings.TrimSpace(message))

	if containsAny(text, escalationKeywords) {
		return domain.RouteAgent
	}
	if containsAny(text, simpleKeywords) {
		return domain.RouteAssistant
	}
	if len(text) < greetingMaxLength && containsAny(text, greetingKeywords) {
		return domain.RouteGreeting
	}
	return domain.RouteAssistant
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var greetingReplies = []string{
	"¡Hola! 👋 Soy el asistente de cobranza del Colegio. ¿En qué puedo ayudarte?\n\n" +
		"Puedo informarte sobre:\n" +
		"• Tu estado de cuenta\n" +
		"• Cuotas pendientes\n" +
		"• Links de pago\n" +
		"• Fechas de vencimiento",

	"¡Buen día! 😊 ¿Cómo puedo ayudarte hoy?\n\n" +
		"Escribí algo como:\n" +
		"• \"Cuánto debo?\"\n" +
		"• \"Envíame el link de pago\"\n" +
		"• \"Cuándo vence mi cuota?\"",
}

// GreetingReply returns one of the canned greeting responses.
func GreetingReply() string {
	return greetingReplies[rand.Intn(len(greetingReplies))]
}
