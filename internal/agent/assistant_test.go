package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/domain"
)

// fakeCapabilities returns canned tool results and counts invocations.
type fakeCapabilities struct {
	accountStatus   string
	statusErr       error
	paymentLink     string
	confirmResult   string
	confirmErr      error
	statusCalls     int
	linkCalls       int
	confirmCalls    int
	lastInstallment string
}

func (f *fakeCapabilities) AccountStatus(_ context.Context, _ string) (string, error) {
	f.statusCalls++
	return f.accountStatus, f.statusErr
}

func (f *fakeCapabilities) PaymentLink(_ context.Context, installmentID string) (string, error) {
	f.linkCalls++
	f.lastInstallment = installmentID
	return f.paymentLink, nil
}

func (f *fakeCapabilities) ConfirmPayment(_ context.Context, installmentID, _ string) (string, error) {
	f.confirmCalls++
	f.lastInstallment = installmentID
	return f.confirmResult, f.confirmErr
}

func TestAssistantToolLoop(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"action":"tool","tool":"account_status","args":{}}`,
		`{"action":"reply","text":"Debés $45,000 en 2 cuotas. 💰"}`,
	}}
	caps := &fakeCapabilities{accountStatus: "📋 Total adeudado: $45,000"}
	assistant := NewAssistant(client, caps, zap.NewNop())

	outcome := assistant.Respond(context.Background(), "+5491155550001", "cuánto debo?", nil)

	assert.False(t, outcome.IsEscalation())
	assert.Equal(t, "Debés $45,000 en 2 cuotas. 💰", outcome.Reply)
	assert.Equal(t, 1, caps.statusCalls)

	// The second model call must carry the tool observation back.
	require.Len(t, client.requests, 2)
	second := client.requests[1]
	assert.Contains(t, second.Messages[len(second.Messages)-1].Content, "Total adeudado")
}

func TestAssistantEscalationDirective(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"action":"tool","tool":"escalate","args":{"category":"plan_pago","reason":"pide financiación"}}`,
	}}
	assistant := NewAssistant(client, &fakeCapabilities{}, zap.NewNop())

	outcome := assistant.Respond(context.Background(), "+549", "quiero pagar en cuotas", nil)

	require.True(t, outcome.IsEscalation())
	assert.Equal(t, domain.CategoriaPlanPago, outcome.Escalate.Categoria)
	assert.Equal(t, "pide financiación", outcome.Escalate.Reason)
	assert.Empty(t, outcome.Reply)
}

func TestAssistantEscalationFailsClosed(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"action":"tool","tool":"escalate","args":{"category":"soporte_tecnico"}}`,
	}}
	assistant := NewAssistant(client, &fakeCapabilities{}, zap.NewNop())

	outcome := assistant.Respond(context.Background(), "+549", "ayuda", nil)

	require.True(t, outcome.IsEscalation())
	assert.Equal(t, domain.CategoriaConsultaAdmin, outcome.Escalate.Categoria)
	assert.NotEmpty(t, outcome.Escalate.Reason)
}

func TestAssistantConfirmPaymentBudget(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"action":"tool","tool":"confirm_payment","args":{"installment_id":"c-1"}}`,
		`{"action":"tool","tool":"confirm_payment","args":{"installment_id":"c-1"}}`,
		`{"action":"reply","text":"Ya registré tu confirmación. ✅"}`,
	}}
	caps := &fakeCapabilities{confirmResult: "✅ Pago registrado"}
	assistant := NewAssistant(client, caps, zap.NewNop())

	outcome := assistant.Respond(context.Background(), "+549", "ya pagué la cuota c-1", nil)

	assert.Equal(t, "Ya registré tu confirmación. ✅", outcome.Reply)
	// The second attempt is rejected before reaching the backend.
	assert.Equal(t, 1, caps.confirmCalls)
	require.Len(t, client.requests, 3)
	assert.Contains(t, client.requests[2].Messages[len(client.requests[2].Messages)-1].Content, "ERROR")
}

func TestAssistantPlainTextIsReply(t *testing.T) {
	client := &scriptedLLM{responses: []string{"Tu cuota vence el 10 de cada mes. 📅"}}
	assistant := NewAssistant(client, &fakeCapabilities{}, zap.NewNop())

	outcome := assistant.Respond(context.Background(), "+549", "cuándo vence?", nil)

	assert.False(t, outcome.IsEscalation())
	assert.Equal(t, "Tu cuota vence el 10 de cada mes. 📅", outcome.Reply)
}

func TestAssistantNeverEmptyReply(t *testing.T) {
	tests := []struct {
		name      string
		responses []string
		err       error
	}{
		{"model error", nil, errors.New("timeout")},
		{"empty output", []string{""}, nil},
		{"empty reply text", []string{`{"action":"reply","text":"  "}`}, nil},
		{"unknown action", []string{`{"action":"think"}`}, nil},
		{"loop exhaustion", []string{`{"action":"tool","tool":"account_status","args":{}}`}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedLLM{responses: tt.responses, err: tt.err}
			assistant := NewAssistant(client, &fakeCapabilities{accountStatus: "ok"}, zap.NewNop())

			outcome := assistant.Respond(context.Background(), "+549", "hola?", nil)

			assert.False(t, outcome.IsEscalation())
			assert.NotEmpty(t, outcome.Reply)
		})
	}
}

func TestAssistantUnknownToolObservation(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"action":"tool","tool":"refund_everything","args":{}}`,
		`{"action":"reply","text":"No puedo hacer eso, pero puedo ayudarte con tus cuotas."}`,
	}}
	caps := &fakeCapabilities{}
	assistant := NewAssistant(client, caps, zap.NewNop())

	outcome := assistant.Respond(context.Background(), "+549", "devolveme todo", nil)

	assert.Equal(t, "No puedo hacer eso, pero puedo ayudarte con tus cuotas.", outcome.Reply)
	assert.Zero(t, caps.statusCalls)
	assert.Zero(t, caps.confirmCalls)
	require.Len(t, client.requests, 2)
	assert.Contains(t, client.requests[1].Messages[len(client.requests[1].Messages)-1].Content, "herramienta desconocida")
}

func TestAssistantHistoryRoles(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"reply","text":"ok"}`}}
	assistant := NewAssistant(client, &fakeCapabilities{}, zap.NewNop())

	history := []domain.Turn{
		{From: domain.SenderUsuario, Text: "hola"},
		{From: domain.SenderAsistente, Text: "¡Hola! ¿En qué puedo ayudarte?"},
	}
	assistant.Respond(context.Background(), "+549", "cuánto debo?", history)

	require.Len(t, client.requests, 1)
	msgs := client.requests[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "hola", msgs[0].Content)
	assert.Equal(t, "cuánto debo?", msgs[2].Content)
}
