package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/domain"
	"github.com/spec-kit/cobranza-service/internal/llm"
)

// Classifier categorizes an escalated message. It may fail generically; the
// coordinator owns the fail-closed fallback.
type Classifier interface {
	Classify(ctx context.Context, state domain.ConversationState) (domain.Classification, error)
}

type llmClassifier struct {
	llm    llm.Client
	logger *zap.Logger
}

// NewLLMClassifier builds the model-backed classifier.
func NewLLMClassifier(client llm.Client, logger *zap.Logger) Classifier {
	return &llmClassifier{llm: client, logger: logger}
}

const classifyPromptTemplate = `Clasifica esta consulta de un padre/responsable de alumnos:

Mensaje: %s

Categorías posibles:
- plan_pago: Solicita plan de pagos, financiación
- reclamo: Queja sobre cobros, errores, mal servicio
- baja: Solicita dar de baja al alumno
- consulta_admin: Otra consulta que requiere administración

Prioridades:
- baja: Consultas generales
- media: Solicitudes normales
- alta: Urgencias, reclamos graves

Responde SOLO con JSON válido (sin markdown):
{"categoria": "plan_pago|reclamo|baja|consulta_admin", "prioridad": "baja|media|alta", "requiere_humano": true|false, "razon": "breve explicación"}`

type classificationPayload struct {
	Categoria      string `json:"categoria"`
	Prioridad      string `json:"prioridad"`
	RequiereHumano bool   `json:"requiere_humano"`
	Razon          string `json:"razon"`
}

func (c *llmClassifier) Classify(ctx context.Context, state domain.ConversationState) (domain.Classification, error) {
	prompt := fmt.Sprintf(classifyPromptTemplate, state.LastMessage())

	resp, err := c.llm.Complete(ctx, llm.Request{
		Messages: []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: prompt}},
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify: %w", err)
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Text)), &payload); err != nil {
		return domain.Classification{}, fmt.Errorf("classify: unparseable output: %w", err)
	}

	classification := domain.Classification{
		Categoria:      domain.TicketCategoria(payload.Categoria),
		Prioridad:      domain.TicketPrioridad(payload.Prioridad),
		RequiereHumano: payload.RequiereHumano,
		Razon:          payload.Razon,
	}
	// Values outside the closed sets are contract violations; coerce them
	// instead of letting them reach the store.
	if !domain.ValidCategoria(classification.Categoria) {
		classification.Categoria = domain.CategoriaConsultaAdmin
	}
	if !domain.ValidPrioridad(classification.Prioridad) {
		classification.Prioridad = domain.PrioridadMedia
	}

	c.logger.Info("message classified",
		zap.String("identity", state.Identity),
		zap.String("categoria", string(classification.Categoria)),
		zap.String("prioridad", string(classification.Prioridad)))
	return classification, nil
}

// stripCodeFences tolerates models wrapping JSON in markdown fences.
func stripCodeFences(raw string) string {
	content := strings.TrimSpace(raw)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	parts := strings.SplitN(content, "```", 3)
	if len(parts) < 2 {
		return content
	}
	content = parts[1]
	content = strings.TrimPrefix(content, "json")
	return strings.TrimSpace(content)
}
