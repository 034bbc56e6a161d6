package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/domain"
)

type fakeClassifier struct {
	classification domain.Classification
	err            error
}

func (f *fakeClassifier) Classify(_ context.Context, _ domain.ConversationState) (domain.Classification, error) {
	return f.classification, f.err
}

// fakeTicketStore stores by correlation key, mimicking idempotent creation.
type fakeTicketStore struct {
	byKey   map[string]*domain.Ticket
	nextID  string
	err     error
	creates int
}

func newFakeTicketStore(nextID string) *fakeTicketStore {
	return &fakeTicketStore{byKey: map[string]*domain.Ticket{}, nextID: nextID}
}

func (f *fakeTicketStore) Create(_ context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	f.creates++
	if f.err != nil {
		return nil, f.err
	}
	if existing, ok := f.byKey[ticket.CorrelationKey]; ok {
		return existing, nil
	}
	stored := *ticket
	stored.ID = f.nextID
	stored.CreatedAt = time.Now().UTC()
	f.byKey[ticket.CorrelationKey] = &stored
	return &stored, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCoordinatorEscalatesPlanPago(t *testing.T) {
	store := newFakeTicketStore("11112222-3333-4444-5555-666677778888")
	coordinator := NewCoordinator(&fakeClassifier{classification: domain.Classification{
		Categoria: domain.CategoriaPlanPago,
		Prioridad: domain.PrioridadMedia,
	}}, store, 15*time.Minute, zap.NewNop())

	state, err := coordinator.Process(context.Background(), domain.ConversationState{
		Identity: "+5491155550001",
		Messages: []string{"necesito un plan de pagos"},
	})

	require.NoError(t, err)
	require.NotEmpty(t, state.TicketID)
	assert.Contains(t, state.FinalReply, "plan de pagos")
	assert.Contains(t, state.FinalReply, "#11112222")

	stored := store.byKey[stateCorrelationKey(store)]
	require.NotNil(t, stored)
	assert.Equal(t, domain.TicketEstadoPendiente, stored.Estado)
	assert.Equal(t, "necesito un plan de pagos", stored.Motivo)
	assert.Equal(t, []string{"necesito un plan de pagos"}, stored.Contexto.Mensajes)
}

func stateCorrelationKey(store *fakeTicketStore) string {
	for key := range store.byKey {
		return key
	}
	return ""
}

func TestCoordinatorBajaAndReclamoNeverAutoResolve(t *testing.T) {
	for _, categoria := range []domain.TicketCategoria{domain.CategoriaBaja, domain.CategoriaReclamo} {
		t.Run(string(categoria), func(t *testing.T) {
			store := newFakeTicketStore("aaaa0000-1111-2222-3333-444455556666")
			coordinator := NewCoordinator(&fakeClassifier{classification: domain.Classification{
				Categoria: categoria,
				Prioridad: domain.PrioridadAlta,
			}}, store, 15*time.Minute, zap.NewNop())

			state, err := coordinator.Process(context.Background(), domain.ConversationState{
				Identity: "+549",
				Messages: []string{"mensaje"},
			})

			require.NoError(t, err)
			assert.NotEmpty(t, state.TicketID)
			assert.Equal(t, 1, store.creates)
		})
	}
}

func TestCoordinatorClassificationFallback(t *testing.T) {
	store := newFakeTicketStore("deadbeef-0000-0000-0000-000000000000")
	coordinator := NewCoordinator(&fakeClassifier{err: errors.New("model down")},
		store, 15*time.Minute, zap.NewNop())

	state, err := coordinator.Process(context.Background(), domain.ConversationState{
		Identity: "+549",
		Messages: []string{"algo raro"},
	})

	require.NoError(t, err)
	require.NotNil(t, state.Classification)
	assert.Equal(t, domain.CategoriaConsultaAdmin, state.Classification.Categoria)
	assert.Equal(t, domain.PrioridadMedia, state.Classification.Prioridad)
	assert.NotEmpty(t, state.TicketID)
	assert.NotEmpty(t, state.FinalReply)
}

func TestCoordinatorStoreFailureIsFatal(t *testing.T) {
	store := newFakeTicketStore("x")
	store.err = errors.New("connection refused")
	coordinator := NewCoordinator(&fakeClassifier{classification: domain.Classification{
		Categoria: domain.CategoriaReclamo,
		Prioridad: domain.PrioridadAlta,
	}}, store, 15*time.Minute, zap.NewNop())

	_, err := coordinator.Process(context.Background(), domain.ConversationState{
		Identity: "+549",
		Messages: []string{"reclamo"},
	})

	assert.Error(t, err)
}

func TestCoordinatorCorrelationKeyBuckets(t *testing.T) {
	store := newFakeTicketStore("11111111-0000-0000-0000-000000000000")
	coordinator := NewCoordinator(&fakeClassifier{classification: domain.Classification{
		Categoria: domain.CategoriaConsultaAdmin,
		Prioridad: domain.PrioridadMedia,
	}}, store, 15*time.Minute, zap.NewNop())

	base := time.Date(2026, 3, 10, 14, 2, 0, 0, time.UTC)
	coordinator.now = fixedClock(base)

	first, err := coordinator.Process(context.Background(), domain.ConversationState{
		Identity: "+5491155550001",
		Messages: []string{"consulta"},
	})
	require.NoError(t, err)

	// A retry inside the window converges on the same ticket.
	coordinator.now = fixedClock(base.Add(5 * time.Minute))
	second, err := coordinator.Process(context.Background(), domain.ConversationState{
		Identity: "+5491155550001",
		Messages: []string{"consulta otra vez"},
	})
	require.NoError(t, err)
	assert.Equal(t, first.TicketID, second.TicketID)

	// Outside the window a new ticket is opened.
	store.nextID = "22222222-0000-0000-0000-000000000000"
	coordinator.now = fixedClock(base.Add(30 * time.Minute))
	third, err := coordinator.Process(context.Background(), domain.ConversationState{
		Identity: "+5491155550001",
		Messages: []string{"sigo esperando"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.TicketID, third.TicketID)

	// A different identity never shares a bucket.
	store.nextID = "33333333-0000-0000-0000-000000000000"
	coordinator.now = fixedClock(base)
	other, err := coordinator.Process(context.Background(), domain.ConversationState{
		Identity: "+5491155559999",
		Messages: []string{"consulta"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.TicketID, other.TicketID)
}

func TestCoordinatorWaitMessageTemplates(t *testing.T) {
	coordinator := NewCoordinator(nil, nil, time.Minute, zap.NewNop())

	tests := []struct {
		categoria domain.TicketCategoria
		fragment  string
	}{
		{domain.CategoriaPlanPago, "plan de pagos"},
		{domain.CategoriaReclamo, "reclamo"},
		{domain.CategoriaBaja, "baja"},
		{domain.CategoriaConsultaAdmin, "derivada al área administrativa"},
		{domain.TicketCategoria("desconocida"), "derivada al área administrativa"},
	}

	for _, tt := range tests {
		t.Run(string(tt.categoria), func(t *testing.T) {
			ticket := &domain.Ticket{
				ID:        "abcdef12-3456-7890-abcd-ef1234567890",
				Categoria: tt.categoria,
			}
			msg := coordinator.waitMessage(ticket)
			assert.Contains(t, msg, tt.fragment)
			assert.Contains(t, msg, "#abcdef12")
		})
	}
}
