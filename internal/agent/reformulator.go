package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/cobranza-service/internal/llm"
)

// Reformulator rewrites a raw administrator answer into short,
// audience-appropriate text for the chat channel.
type Reformulator interface {
	Reformulate(ctx context.Context, text string) (string, error)
}

type llmReformulator struct {
	llm llm.Client
}

// NewLLMReformulator builds the model-backed reformulator.
func NewLLMReformulator(client llm.Client) Reformulator {
	return &llmReformulator{llm: client}
}

const reformulatePromptTemplate = `Eres asistente del colegio. Reformula esta respuesta técnica del administrador
en lenguaje amigable para WhatsApp (máximo 3 párrafos cortos).

Respuesta del administrador:
%s

Reglas:
- Usa lenguaje simple y cercano
- Incluye emojis relevantes
- Sé conciso (es para WhatsApp)
- Termina con una nota positiva o próximo paso claro

Respuesta reformulada:`

func (r *llmReformulator) Reformulate(ctx context.Context, text string) (string, error) {
	resp, err := r.llm.Complete(ctx, llm.Request{
		Messages: []llm.ChatMessage{{
			Role:    llm.ChatRoleUser,
			Content: fmt.Sprintf(reformulatePromptTemplate, text),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("reformulate: %w", err)
	}
	reformulated := strings.TrimSpace(resp.Text)
	if reformulated == "" {
		return "", errors.New("reformulate: empty output")
	}
	return reformulated, nil
}
