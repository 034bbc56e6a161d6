package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/cobranza-service/internal/domain"
)

// Querier is the subset of pgxpool.Pool the repositories need. Satisfied by
// *pgxpool.Pool and by pgxmock pools in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TicketFilter captures admin search parameters.
type TicketFilter struct {
	Estado    *domain.TicketEstado
	Categoria *domain.TicketCategoria
	Prioridad *domain.TicketPrioridad
	Limit     int
	Offset    int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create inserts the ticket, or returns the already-stored ticket when
	// another insert with the same correlation key won the race. The caller
	// can rely on exactly one row per correlation key.
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByCorrelationKey(ctx context.Context, key string) (*domain.Ticket, error)
	UpdateEstado(ctx context.Context, id string, estado domain.TicketEstado, respuestaAdmin *string, resolvedAt *time.Time) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByEstado(ctx context.Context) (map[domain.TicketEstado]int64, error)
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, correlation_key, identity, categoria, prioridad, motivo, contexto, estado, respuesta_admin, created_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.Estado == "" {
		ticket.Estado = domain.TicketEstadoPendiente
	}
	contexto, err := ticket.ContextoJSON()
	if err != nil {
		return nil, fmt.Errorf("encode contexto: %w", err)
	}

	const query = `
        INSERT INTO tickets (id, correlation_key, identity, categoria, prioridad, motivo, contexto, estado)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (correlation_key) DO NOTHING
        RETURNING id, created_at`
	err = r.db.QueryRow(ctx, query,
		ticket.ID,
		ticket.CorrelationKey,
		ticket.Identity,
		ticket.Categoria,
		ticket.Prioridad,
		ticket.Motivo,
		contexto,
		ticket.Estado,
	).Scan(&ticket.ID, &ticket.CreatedAt)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// Conflict: an earlier escalation within the window already created the
	// ticket. Return that one so retries converge on the same id.
	return r.GetByCorrelationKey(ctx, ticket.CorrelationKey)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByCorrelationKey(ctx context.Context, key string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE correlation_key=$1`
	return r.fetchSingle(ctx, query, key)
}

func (r *ticketRepository) UpdateEstado(ctx context.Context, id string, estado domain.TicketEstado, respuestaAdmin *string, resolvedAt *time.Time) error {
	const query = `
        UPDATE tickets SET estado=$1, respuesta_admin=COALESCE($2, respuesta_admin), resolved_at=COALESCE($3, resolved_at)
        WHERE id=$4`
	cmd, err := r.db.Exec(ctx, query, estado, respuestaAdmin, resolvedAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		contexto []byte
	)
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.CorrelationKey,
		&ticket.Identity,
		&ticket.Categoria,
		&ticket.Prioridad,
		&ticket.Motivo,
		&contexto,
		&ticket.Estado,
		&ticket.RespuestaAdmin,
		&ticket.CreatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	if len(contexto) > 0 {
		if err := json.Unmarshal(contexto, &ticket.Contexto); err != nil {
			return nil, fmt.Errorf("decode contexto: %w", err)
		}
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Estado != nil {
		args = append(args, *filter.Estado)
		clauses = append(clauses, fmt.Sprintf("estado=$%d", len(args)))
	}
	if filter.Categoria != nil {
		args = append(args, *filter.Categoria)
		clauses = append(clauses, fmt.Sprintf("categoria=$%d", len(args)))
	}
	if filter.Prioridad != nil {
		args = append(args, *filter.Prioridad)
		clauses = append(clauses, fmt.Sprintf("prioridad=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByEstado(ctx context.Context) (map[domain.TicketEstado]int64, error) {
	const query = `SELECT estado, COUNT(*) FROM tickets GROUP BY estado`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.TicketEstado]int64{
		domain.TicketEstadoPendiente: 0,
		domain.TicketEstadoEnProceso: 0,
		domain.TicketEstadoResuelto:  0,
	}
	for rows.Next() {
		var (
			estado domain.TicketEstado
			count  int64
		)
		if err := rows.Scan(&estado, &count); err != nil {
			return nil, err
		}
		counts[estado] = count
	}
	return counts, rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var (
			ticket   domain.Ticket
			contexto []byte
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.CorrelationKey,
			&ticket.Identity,
			&ticket.Categoria,
			&ticket.Prioridad,
			&ticket.Motivo,
			&contexto,
			&ticket.Estado,
			&ticket.RespuestaAdmin,
			&ticket.CreatedAt,
			&ticket.ResolvedAt,
		); err != nil {
			return nil, err
		}
		if len(contexto) > 0 {
			if err := json.Unmarshal(contexto, &ticket.Contexto); err != nil {
				return nil, fmt.Errorf("decode contexto: %w", err)
			}
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
