package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/domain"
	"github.com/spec-kit/cobranza-service/internal/llm"
)

// scriptedLLM replays canned completions in order, recording every request.
type scriptedLLM struct {
	responses []string
	err       error
	requests  []llm.Request
}

func (s *scriptedLLM) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return llm.Response{}, s.err
	}
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return llm.Response{Text: s.responses[idx]}, nil
}

func TestClassifierParsesModelOutput(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"categoria": "plan_pago", "prioridad": "media", "requiere_humano": true, "razon": "pide financiación"}`,
	}}
	classifier := NewLLMClassifier(client, zap.NewNop())

	got, err := classifier.Classify(context.Background(), domain.ConversationState{
		Identity: "+5491155550001",
		Messages: []string{"necesito un plan de pagos"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.CategoriaPlanPago, got.Categoria)
	assert.Equal(t, domain.PrioridadMedia, got.Prioridad)
	assert.True(t, got.RequiereHumano)
	assert.Contains(t, client.requests[0].Messages[0].Content, "necesito un plan de pagos")
}

func TestClassifierStripsCodeFences(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"```json\n{\"categoria\": \"reclamo\", \"prioridad\": \"alta\", \"requiere_humano\": true, \"razon\": \"mal cobro\"}\n```",
	}}
	classifier := NewLLMClassifier(client, zap.NewNop())

	got, err := classifier.Classify(context.Background(), domain.ConversationState{
		Messages: []string{"me cobraron dos veces"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.CategoriaReclamo, got.Categoria)
	assert.Equal(t, domain.PrioridadAlta, got.Prioridad)
}

func TestClassifierCoercesUnknownValues(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"categoria": "otro", "prioridad": "critica", "requiere_humano": false, "razon": "?"}`,
	}}
	classifier := NewLLMClassifier(client, zap.NewNop())

	got, err := classifier.Classify(context.Background(), domain.ConversationState{
		Messages: []string{"consulta"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.CategoriaConsultaAdmin, got.Categoria)
	assert.Equal(t, domain.PrioridadMedia, got.Prioridad)
}

func TestClassifierErrors(t *testing.T) {
	t.Run("model failure", func(t *testing.T) {
		client := &scriptedLLM{err: errors.New("rate limited")}
		classifier := NewLLMClassifier(client, zap.NewNop())

		_, err := classifier.Classify(context.Background(), domain.ConversationState{Messages: []string{"x"}})
		assert.Error(t, err)
	})

	t.Run("unparseable output", func(t *testing.T) {
		client := &scriptedLLM{responses: []string{"lo siento, no puedo clasificar eso"}}
		classifier := NewLLMClassifier(client, zap.NewNop())

		_, err := classifier.Classify(context.Background(), domain.ConversationState{Messages: []string{"x"}})
		assert.Error(t, err)
	})
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
}
