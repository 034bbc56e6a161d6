package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/erp"
)

// Capability names the assistant may invoke. The set is closed; anything
// else is a contract violation the executor rejects.
const (
	ToolAccountStatus  = "account_status"
	ToolPaymentLink    = "payment_link"
	ToolConfirmPayment = "confirm_payment"
	ToolEscalate       = "escalate"
)

// Capabilities is the fixed contract of side-effecting operations available
// to the assistant. escalate is not listed here: the executor intercepts it
// and turns it into an escalation outcome instead of a backend call.
type Capabilities interface {
	AccountStatus(ctx context.Context, identity string) (string, error)
	PaymentLink(ctx context.Context, installmentID string) (string, error)
	ConfirmPayment(ctx context.Context, installmentID, identity string) (string, error)
}

type erpCapabilities struct {
	erp    erp.Client
	logger *zap.Logger
}

// NewERPCapabilities backs the capability contract with the ERP client.
func NewERPCapabilities(client erp.Client, logger *zap.Logger) Capabilities {
	return &erpCapabilities{erp: client, logger: logger}
}

func (c *erpCapabilities) AccountStatus(ctx context.Context, identity string) (string, error) {
	responsable, err := c.erp.GetResponsableByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, erp.ErrNotFound) {
			return "No encontré tu número registrado en el sistema. " +
				"Por favor, contactá a administración para verificar tus datos.", nil
		}
		return "", err
	}
	if len(responsable.Alumnos) == 0 {
		return "No encontré alumnos asociados a tu cuenta.", nil
	}

	var sb strings.Builder
	sb.WriteString("📋 Estado de cuenta:\n\n")
	var deudaTotal float64

	for _, alumno := range responsable.Alumnos {
		cuotas, err := c.erp.GetAlumnoCuotas(ctx, alumno.ID, "pendiente")
		if err != nil {
			return "", err
		}
		if len(cuotas) == 0 {
			continue
		}
		nombre := strings.TrimSpace(alumno.Nombre + " " + alumno.Apellido)
		fmt.Fprintf(&sb, "👤 %s (%s):\n", nombre, alumno.Grado)
		for _, cuota := range cuotas {
			deudaTotal += cuota.Monto
			fmt.Fprintf(&sb, "  • Cuota %d: %s (vence %s)\n",
				cuota.NumeroCuota, formatMonto(cuota.Monto), cuota.FechaVencimiento)
		}
		sb.WriteString("\n")
	}

	if deudaTotal == 0 {
		return "✅ ¡Estás al día! No hay cuotas pendientes.", nil
	}
	fmt.Fprintf(&sb, "💰 Total adeudado: %s\n\n¿Necesitás los links de pago?", formatMonto(deudaTotal))
	return sb.String(), nil
}

func (c *erpCapabilities) PaymentLink(ctx context.Context, installmentID string) (string, error) {
	cuota, err := c.erp.GetCuota(ctx, installmentID)
	if err != nil {
		if errors.Is(err, erp.ErrNotFound) {
			return "No encontré esa cuota. ¿Podés verificar el número?", nil
		}
		return "", err
	}
	if cuota.LinkPago == "" {
		return "El link de pago aún no está disponible para esta cuota. " +
			"Te lo enviamos apenas esté listo.", nil
	}
	return fmt.Sprintf(
		"💳 Link de pago:\n\nMonto: %s\nVencimiento: %s\n\n🔗 %s\n\n"+
			"Una vez que pagues, avisame así lo registro.",
		formatMonto(cuota.Monto), cuota.FechaVencimiento, cuota.LinkPago), nil
}

func (c *erpCapabilities) ConfirmPayment(ctx context.Context, installmentID, identity string) (string, error) {
	if err := c.erp.ConfirmarPago(ctx, installmentID, identity); err != nil {
		return "", err
	}
	c.logger.Info("payment confirmation recorded",
		zap.String("cuota_id", installmentID),
		zap.String("identity", identity))
	return "✅ Registré tu confirmación de pago. " +
		"Administración va a validarla y te avisamos por este medio.", nil
}

// formatMonto renders an amount with a thousands separator, e.g. $45,000.
func formatMonto(monto float64) string {
	entero := int64(monto)
	digits := fmt.Sprintf("%d", entero)
	var sb strings.Builder
	sb.WriteString("$")
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteString(",")
		}
		sb.WriteRune(d)
	}
	return sb.String()
}
