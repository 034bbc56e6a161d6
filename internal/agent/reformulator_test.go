package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReformulatorWrapsAnswer(t *testing.T) {
	client := &scriptedLLM{responses: []string{"¡Buenas noticias! 🎉 Aprobamos tu plan en 3 cuotas."}}
	reformulator := NewLLMReformulator(client)

	out, err := reformulator.Reformulate(context.Background(), "plan aprobado, 3 cuotas de $15000")

	require.NoError(t, err)
	assert.Equal(t, "¡Buenas noticias! 🎉 Aprobamos tu plan en 3 cuotas.", out)
	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].Messages[0].Content, "plan aprobado, 3 cuotas de $15000")
}

func TestReformulatorErrors(t *testing.T) {
	t.Run("model failure", func(t *testing.T) {
		reformulator := NewLLMReformulator(&scriptedLLM{err: errors.New("timeout")})
		_, err := reformulator.Reformulate(context.Background(), "texto")
		assert.Error(t, err)
	})

	t.Run("empty output", func(t *testing.T) {
		reformulator := NewLLMReformulator(&scriptedLLM{responses: []string{"   "}})
		_, err := reformulator.Reformulate(context.Background(), "texto")
		assert.Error(t, err)
	})
}
