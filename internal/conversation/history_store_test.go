package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/config"
	"github.com/spec-kit/cobranza-service/internal/domain"
)

func newTestStore(t *testing.T, turns int) (HistoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisHistoryStore(client, config.ConversationConfig{
		HistoryTurns:      turns,
		HistoryTTLMinutes: 60,
	}, zap.NewNop())
	return store, mr
}

func TestHistoryStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, 5)
	ctx := context.Background()

	store.Append(ctx, "+549", domain.Turn{From: domain.SenderUsuario, Text: "hola"})
	store.Append(ctx, "+549", domain.Turn{From: domain.SenderAsistente, Text: "¡Hola! ¿En qué puedo ayudarte?"})

	window := store.Window(ctx, "+549")
	require.Len(t, window, 2)
	assert.Equal(t, domain.SenderUsuario, window[0].From)
	assert.Equal(t, "hola", window[0].Text)
	assert.Equal(t, domain.SenderAsistente, window[1].From)

	// Identities never share windows.
	assert.Empty(t, store.Window(ctx, "+111"))
}

func TestHistoryStoreTrimsToWindow(t *testing.T) {
	store, _ := newTestStore(t, 2)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		store.Append(ctx, "+549", domain.Turn{From: domain.SenderUsuario, Text: fmt.Sprintf("mensaje %d", i)})
	}

	window := store.Window(ctx, "+549")
	require.Len(t, window, 4)
	assert.Equal(t, "mensaje 2", window[0].Text)
	assert.Equal(t, "mensaje 5", window[3].Text)
}

func TestHistoryStoreExpires(t *testing.T) {
	store, mr := newTestStore(t, 5)
	ctx := context.Background()

	store.Append(ctx, "+549", domain.Turn{From: domain.SenderUsuario, Text: "hola"})
	require.Len(t, store.Window(ctx, "+549"), 1)

	mr.FastForward(61 * time.Minute)
	assert.Empty(t, store.Window(ctx, "+549"))
}

// A dead Redis degrades to an empty window and silently dropped appends.
func TestHistoryStoreDegradesOnFailure(t *testing.T) {
	store, mr := newTestStore(t, 5)
	ctx := context.Background()
	mr.Close()

	store.Append(ctx, "+549", domain.Turn{From: domain.SenderUsuario, Text: "hola"})
	assert.Empty(t, store.Window(ctx, "+549"))
}
