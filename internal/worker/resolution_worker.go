package worker

import (
	"github.com/spec-kit/cobranza-service/internal/events"
	"github.com/spec-kit/cobranza-service/internal/service"
)

// StartResolutionWorker wires the resolution dispatcher to the event bus.
func StartResolutionWorker(dispatcher *service.ResolutionDispatcher, bus events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.RegisterHandlers(bus)
}
