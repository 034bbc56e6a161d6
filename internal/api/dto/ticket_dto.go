package dto

import (
	"time"

	"github.com/spec-kit/cobranza-service/internal/domain"
)

// TicketSummary response.
type TicketSummary struct {
	ID        string                 `json:"id"`
	ShortID   string                 `json:"short_id"`
	Identity  string                 `json:"identity"`
	Categoria domain.TicketCategoria `json:"categoria"`
	Prioridad domain.TicketPrioridad `json:"prioridad"`
	Motivo    string                 `json:"motivo"`
	Estado    domain.TicketEstado    `json:"estado"`
	CreatedAt time.Time              `json:"created_at"`
}

// TicketDetailResponse provides full ticket info including the captured context.
type TicketDetailResponse struct {
	ID             string                 `json:"id"`
	ShortID        string                 `json:"short_id"`
	Identity       string                 `json:"identity"`
	Categoria      domain.TicketCategoria `json:"categoria"`
	Prioridad      domain.TicketPrioridad `json:"prioridad"`
	Motivo         string                 `json:"motivo"`
	Contexto       domain.TicketContexto  `json:"contexto"`
	Estado         domain.TicketEstado    `json:"estado"`
	RespuestaAdmin *string                `json:"respuesta_admin"`
	CreatedAt      time.Time              `json:"created_at"`
	ResolvedAt     *time.Time             `json:"resolved_at"`
}

// ResolveTicketRequest payload for PUT /tickets/:id/resolver.
type ResolveTicketRequest struct {
	Respuesta string `json:"respuesta"`
}

// UpdateEstadoRequest payload for PUT /tickets/:id/estado.
type UpdateEstadoRequest struct {
	Estado         domain.TicketEstado `json:"estado"`
	RespuestaAdmin *string             `json:"respuesta_admin"`
}

// TicketStatsResponse aggregates ticket counts per estado.
type TicketStatsResponse struct {
	Total      int64 `json:"total"`
	Pendientes int64 `json:"pendientes"`
	EnProceso  int64 `json:"en_proceso"`
	Resueltos  int64 `json:"resueltos"`
}
