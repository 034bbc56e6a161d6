package repository

import (
	"context"
	"time"

	"github.com/spec-kit/cobranza-service/internal/domain"
)

// Interaction is one processed inbound/outbound exchange, kept durably so a
// human reviewing a ticket can see the conversation that preceded it.
type Interaction struct {
	ID        string
	Identity  string
	Mensaje   string
	Respuesta string
	Agente    domain.Route
	TicketID  *string
	CreatedAt time.Time
}

// InteractionRepository persists the exchange log.
type InteractionRepository interface {
	Create(ctx context.Context, interaction *Interaction) error
	ListByIdentity(ctx context.Context, identity string, limit int) ([]Interaction, error)
}

type interactionRepository struct {
	db Querier
}

// NewInteractionRepository instantiates repository.
func NewInteractionRepository(db Querier) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) Create(ctx context.Context, interaction *Interaction) error {
	const query = `
        INSERT INTO interactions (identity, mensaje, respuesta, agente, ticket_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		interaction.Identity,
		interaction.Mensaje,
		interaction.Respuesta,
		interaction.Agente,
		interaction.TicketID,
	).Scan(&interaction.ID, &interaction.CreatedAt)
}

func (r *interactionRepository) ListByIdentity(ctx context.Context, identity string, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, identity, mensaje, respuesta, agente, ticket_id, created_at
        FROM interactions WHERE identity=$1
        ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Interaction
	for rows.Next() {
		var it Interaction
		if err := rows.Scan(&it.ID, &it.Identity, &it.Mensaje, &it.Respuesta, &it.Agente, &it.TicketID, &it.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}
