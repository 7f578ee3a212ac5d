package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrWriteFailed marks an insert the store could not complete.
var ErrWriteFailed = errors.New("contact write failed")

// ContactRepo handles contacts.
type ContactRepo struct {
	db *sql.DB
}

func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// Insert appends a row and returns its assigned id.
func (r *ContactRepo) Insert(ctx context.Context, name, phone string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO contacts(name, phone) VALUES (?, ?)`, name, phone)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return id, nil
}

// List returns every contact ordered by name under the LOCALE collation.
func (r *ContactRepo) List(ctx context.Context) ([]Contact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, phone FROM contacts ORDER BY name COLLATE LOCALE ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()
	out := []Contact{}
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update overwrites name and phone of the row with c.ID. It reports the
// number of rows affected, zero when the id is absent.
func (r *ContactRepo) Update(ctx context.Context, c Contact) (int64, error) {
	return r.exec(ctx, `UPDATE contacts SET name = ?, phone = ? WHERE id = ?`, c.Name, c.Phone, c.ID)
}

func (r *ContactRepo) Delete(ctx context.Context, id int64) (int64, error) {
	return r.exec(ctx, `DELETE FROM contacts WHERE id = ?`, id)
}

func (r *ContactRepo) DeleteAll(ctx context.Context) (int64, error) {
	return r.exec(ctx, `DELETE FROM contacts`)
}

func (r *ContactRepo) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
