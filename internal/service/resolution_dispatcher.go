package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/agent"
	"github.com/spec-kit/cobranza-service/internal/events"
	"github.com/spec-kit/cobranza-service/internal/observability"
	"github.com/spec-kit/cobranza-service/internal/outbound"
)

// ResolutionDispatcher consumes ticket_resolved events, reformulates the
// administrator answer and hands it to outbound delivery. Delivery runs as a
// supervised background task: the resolving request never waits for it, and
// failures are logged and counted, never swallowed.
type ResolutionDispatcher struct {
	reformulator agent.Reformulator
	sender       outbound.Sender
	metrics      *observability.Metrics
	logger       *zap.Logger
	timeout      time.Duration
	wg           sync.WaitGroup
}

// NewResolutionDispatcher constructs the dispatcher.
func NewResolutionDispatcher(reformulator agent.Reformulator, sender outbound.Sender, metrics *observability.Metrics, logger *zap.Logger) *ResolutionDispatcher {
	return &ResolutionDispatcher{
		reformulator: reformulator,
		sender:       sender,
		metrics:      metrics,
		logger:       logger,
		timeout:      60 * time.Second,
	}
}

// RegisterHandlers subscribes to resolution events.
func (d *ResolutionDispatcher) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketResolved, d.handleTicketResolved)
}

func (d *ResolutionDispatcher) handleTicketResolved(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketResolvedPayload)
	if !ok {
		return fmt.Errorf("resolution dispatcher: unexpected payload type %T", event.Payload)
	}
	if payload.Identity == "" {
		d.logger.Warn("resolved ticket has no delivery identity", zap.String("ticket_id", event.TicketID))
		return nil
	}

	d.wg.Add(1)
	go d.deliver(event.TicketID, payload)
	return nil
}

// deliver runs detached from the resolving request. Reformulation failure
// degrades to the raw administrator text; only the outbound hand-off itself
// can fail the delivery.
func (d *ResolutionDispatcher) deliver(ticketID string, payload events.TicketResolvedPayload) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.metrics.RecordDelivery(false)
			d.logger.Error("resolution delivery panicked",
				zap.String("ticket_id", ticketID),
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	text, err := d.reformulator.Reformulate(ctx, payload.RespuestaAdmin)
	if err != nil {
		d.logger.Warn("reformulation failed, delivering raw answer",
			zap.String("ticket_id", ticketID),
			zap.Error(err))
		text = payload.RespuestaAdmin
	}

	if err := d.sender.Send(ctx, payload.Identity, text); err != nil {
		d.metrics.RecordDelivery(false)
		d.logger.Error("resolution delivery failed",
			zap.String("ticket_id", ticketID),
			zap.String("identity", payload.Identity),
			zap.Error(err))
		return
	}

	d.metrics.RecordDelivery(true)
	d.logger.Info("resolution delivered",
		zap.String("ticket_id", ticketID),
		zap.String("identity", payload.Identity))
}

// Wait blocks until in-flight deliveries finish. Used on shutdown.
func (d *ResolutionDispatcher) Wait() {
	d.wg.Wait()
}
