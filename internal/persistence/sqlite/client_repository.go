package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/event-manager/internal/persistence"
)

// DefaultClientColor is stored when a client is saved without a display color.
const DefaultClientColor = "#3788d8"

// ClientRepository implements persistence.ClientRepository using SQLite
type ClientRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewClientRepository creates a new SQLite client repository
func NewClientRepository(pool *ConnectionPool) *ClientRepository {
	return &ClientRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

const clientColumns = `id, name, color, contact_name, email, phone, notes, created_at, updated_at`

// CreateClient inserts a new client and returns it with its assigned ID.
func (r *ClientRepository) CreateClient(ctx context.Context, client persistence.Client) (persistence.Client, error) {
	client = normalizeClient(client)
	if client.Name == "" {
		return persistence.Client{}, persistence.ErrConstraintViolation
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = r.now().UTC()
	}
	if client.UpdatedAt.IsZero() {
		client.UpdatedAt = client.CreatedAt
	}

	result, err := r.helper.Exec(ctx, `
		INSERT INTO clients (name, color, contact_name, email, phone, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		client.Name,
		client.Color,
		nullString(client.ContactName),
		nullString(client.Email),
		nullString(client.Phone),
		nullString(client.Notes),
		formatTime(client.CreatedAt),
		formatTime(client.UpdatedAt),
	)
	if err != nil {
		return persistence.Client{}, r.mapper.MapError(err)
	}

	if client.ID, err = result.LastInsertId(); err != nil {
		return persistence.Client{}, err
	}
	return client, nil
}

// UpdateClient updates an existing client in the database
func (r *ClientRepository) UpdateClient(ctx context.Context, client persistence.Client) error {
	if client.ID <= 0 {
		return persistence.ErrNotFound
	}
	client = normalizeClient(client)
	if client.Name == "" {
		return persistence.ErrConstraintViolation
	}
	if client.UpdatedAt.IsZero() {
		client.UpdatedAt = r.now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE clients
		SET name = ?, color = ?, contact_name = ?, email = ?, phone = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`,
		client.Name,
		client.Color,
		nullString(client.ContactName),
		nullString(client.Email),
		nullString(client.Phone),
		nullString(client.Notes),
		formatTime(client.UpdatedAt),
		client.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetClient retrieves a client by ID from the database
func (r *ClientRepository) GetClient(ctx context.Context, id int64) (persistence.Client, error) {
	if id <= 0 {
		return persistence.Client{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	return r.scanClient(row)
}

// ListClients returns all clients ordered by name then ID
func (r *ClientRepository) ListClients(ctx context.Context) ([]persistence.Client, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var clients []persistence.Client
	for rows.Next() {
		client, err := r.scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return clients, nil
}

// DeleteClient removes a client. Events that referenced the client keep
// existing with a NULL client_id.
func (r *ClientRepository) DeleteClient(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// Same effect as ON DELETE SET NULL, also when foreign keys are off.
		if _, err := r.helper.ExecTx(ctx, tx, "UPDATE events SET client_id = NULL WHERE client_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(ctx, tx, "DELETE FROM clients WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

func (r *ClientRepository) scanClient(row rowScanner) (persistence.Client, error) {
	var (
		client                           persistence.Client
		contactName, email, phone, notes sql.NullString
		createdAtStr, updatedAtStr       string
	)
	if err := row.Scan(
		&client.ID,
		&client.Name,
		&client.Color,
		&contactName,
		&email,
		&phone,
		&notes,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Client{}, r.mapper.MapError(err)
	}

	client.ContactName = contactName.String
	client.Email = email.String
	client.Phone = phone.String
	client.Notes = notes.String

	var err error
	if client.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Client{}, err
	}
	if client.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return persistence.Client{}, err
	}
	return client, nil
}

func normalizeClient(client persistence.Client) persistence.Client {
	client.Name = strings.TrimSpace(client.Name)
	client.Color = strings.TrimSpace(client.Color)
	if client.Color == "" {
		client.Color = DefaultClientColor
	}
	return client
}
