package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Customer is the locally stored slice of an identity-provider account:
// contact data the store needs for notifications and checkout.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	CPF       *string   `json:"cpf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Address is one shipping address in a customer's address book.
type Address struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"userId"`
	Label        *string   `json:"label,omitempty"`
	ReceiverName string    `json:"receiverName"`
	Phone        *string   `json:"phone,omitempty"`
	CEP          string    `json:"cep"`
	Street       string    `json:"street"`
	Number       string    `json:"number"`
	Complement   *string   `json:"complement,omitempty"`
	District     *string   `json:"district,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	IsDefault    bool      `json:"isDefault"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Customers persists customer profiles keyed by the auth subject.
type Customers struct {
	DB DB
}

const customerColumns = `id, email, name, phone, cpf, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.CPF, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Upsert creates or refreshes a profile row.
func (r Customers) Upsert(ctx context.Context, c Customer) (Customer, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO customers (id, email, name, phone, cpf)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email, name = EXCLUDED.name,
			phone = EXCLUDED.phone, cpf = EXCLUDED.cpf, updated_at = now()
		RETURNING `+customerColumns,
		c.ID, c.Email, c.Name, c.Phone, c.CPF)
	return scanCustomer(row)
}

// Get fetches one profile.
func (r Customers) Get(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

// Addresses persists the customer address book.
type Addresses struct {
	DB DB
}

const addressColumns = `id, user_id, label, receiver_name, phone, cep, street, number,
	complement, district, city, state, is_default, created_at, updated_at`

func scanAddress(row pgx.Row) (Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.UserID, &a.Label, &a.ReceiverName, &a.Phone, &a.CEP,
		&a.Street, &a.Number, &a.Complement, &a.District, &a.City, &a.State,
		&a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Create inserts one address.
func (r Addresses) Create(ctx context.Context, a Address) (Address, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO addresses (user_id, label, receiver_name, phone, cep, street, number,
			complement, district, city, state, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+addressColumns,
		a.UserID, a.Label, a.ReceiverName, a.Phone, a.CEP, a.Street, a.Number,
		a.Complement, a.District, a.City, a.State, a.IsDefault)
	return scanAddress(row)
}

// Get fetches one address scoped to its owner.
func (r Addresses) Get(ctx context.Context, userID, id uuid.UUID) (Address, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	return scanAddress(row)
}

// ListByUser returns a customer's addresses, default first.
func (r Addresses) ListByUser(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1
		 ORDER BY is_default DESC, created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes one address scoped to its owner.
func (r Addresses) Delete(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UnsetDefaults clears the default flag on every address of the user.
func (r Addresses) UnsetDefaults(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE addresses SET is_default = false, updated_at = now() WHERE user_id = $1 AND is_default`, userID)
	return err
}

// SetDefault flags one address as the default.
func (r Addresses) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE addresses SET is_default = true, updated_at = now() WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}
