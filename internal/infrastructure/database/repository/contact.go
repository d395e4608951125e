package repository

import (
	"context"
	"fmt"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/infrastructure/database"
)

// ContactRepository stores the user's trusted contacts
type ContactRepository struct {
	db database.DBTX
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db database.DBTX) *ContactRepository {
	return &ContactRepository{db: db}
}

// List returns every contact ordered by number
func (r *ContactRepository) List(ctx context.Context) ([]models.TrustedContact, error) {
	query := `
		SELECT phone_number, name, created_at
		FROM trusted_contacts
		ORDER BY phone_number`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, storeErr("list contacts", err)
	}
	defer rows.Close()

	var contacts []models.TrustedContact
	for rows.Next() {
		var c models.TrustedContact
		if err := rows.Scan(&c.PhoneNumber, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list contacts", err)
	}
	return contacts, nil
}

// Upsert inserts a contact or renames an existing one
func (r *ContactRepository) Upsert(ctx context.Context, c models.TrustedContact) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO trusted_contacts (phone_number, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone_number) DO UPDATE SET name = EXCLUDED.name`

	if _, err := r.db.Exec(ctx, query, c.PhoneNumber, c.Name, c.CreatedAt); err != nil {
		return storeErr("upsert contact", err)
	}
	return nil
}

// Delete removes a contact by number
func (r *ContactRepository) Delete(ctx context.Context, phoneNumber string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM trusted_contacts WHERE phone_number = $1`, phoneNumber)
	if err != nil {
		return storeErr("delete contact", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contact %s", models.ErrNotFound, phoneNumber)
	}
	return nil
}
