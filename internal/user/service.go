// Package user keeps the store-local customer profile and address book.
// Authentication lives in the identity provider; this is only the contact
// and shipping data the storefront needs.
package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/brdoc"
	"github.com/lojamovel/backend-loja/internal/repo"
)

var (
	// ErrNotFound is returned for missing profiles or addresses.
	ErrNotFound = errors.New("user: not found")
	// ErrInvalidPhone is returned when the phone fails validation.
	ErrInvalidPhone = errors.New("user: invalid phone")
	// ErrInvalidCPF is returned when the CPF fails check-digit validation.
	ErrInvalidCPF = errors.New("user: invalid cpf")
	// ErrInvalidCEP is returned for malformed postal codes.
	ErrInvalidCEP = errors.New("user: invalid cep")
)

// ProfileStore persists customer profiles.
type ProfileStore interface {
	Upsert(ctx context.Context, c repo.Customer) (repo.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (repo.Customer, error)
}

// AddressStore persists the address book.
type AddressStore interface {
	Create(ctx context.Context, a repo.Address) (repo.Address, error)
	Get(ctx context.Context, userID, id uuid.UUID) (repo.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]repo.Address, error)
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
	UnsetDefaults(ctx context.Context, userID uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) error
}

// Service orchestrates profile and address book operations.
type Service struct {
	Profiles  ProfileStore
	Addresses AddressStore
}

// ProfileInput is the payload for creating or refreshing a profile.
type ProfileInput struct {
	Email string
	Name  string
	Phone string
	CPF   string
}

// UpsertMe stores the caller's contact data. Phone and CPF are normalized
// to digits before persisting.
func (s *Service) UpsertMe(ctx context.Context, userID uuid.UUID, in ProfileInput) (repo.Customer, error) {
	c := repo.Customer{ID: userID, Email: strings.TrimSpace(in.Email), Name: strings.TrimSpace(in.Name)}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		if !brdoc.ValidPhone(phone) {
			return repo.Customer{}, ErrInvalidPhone
		}
		digits := brdoc.OnlyDigits(phone)
		c.Phone = &digits
	}
	if cpf := strings.TrimSpace(in.CPF); cpf != "" {
		if !brdoc.ValidCPF(cpf) {
			return repo.Customer{}, ErrInvalidCPF
		}
		digits := brdoc.OnlyDigits(cpf)
		c.CPF = &digits
	}
	return s.Profiles.Upsert(ctx, c)
}

// GetMe returns the caller's profile.
func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (repo.Customer, error) {
	c, err := s.Profiles.Get(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.Customer{}, ErrNotFound
	}
	return c, err
}

// Email resolves a customer's email for notifications. A missing profile
// yields an empty address, not an error.
func (s *Service) Email(ctx context.Context, userID uuid.UUID) (string, error) {
	c, err := s.Profiles.Get(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return c.Email, nil
}

// AddressInput is the payload for creating an address.
type AddressInput struct {
	Label        string
	ReceiverName string
	Phone        string
	CEP          string
	Street       string
	Number       string
	Complement   string
	District     string
	City         string
	State        string
	IsDefault    bool
}

// CreateAddress validates and stores one address. The first address of a
// customer becomes the default regardless of the flag.
func (s *Service) CreateAddress(ctx context.Context, userID uuid.UUID, in AddressInput) (repo.Address, error) {
	cep := brdoc.OnlyDigits(in.CEP)
	if len(cep) != 8 {
		return repo.Address{}, ErrInvalidCEP
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" && !brdoc.ValidPhone(phone) {
		return repo.Address{}, ErrInvalidPhone
	}

	existing, err := s.Addresses.ListByUser(ctx, userID)
	if err != nil {
		return repo.Address{}, err
	}
	isDefault := in.IsDefault || len(existing) == 0
	if isDefault {
		if err := s.Addresses.UnsetDefaults(ctx, userID); err != nil {
			return repo.Address{}, err
		}
	}

	a := repo.Address{
		UserID:       userID,
		ReceiverName: strings.TrimSpace(in.ReceiverName),
		CEP:          cep,
		Street:       strings.TrimSpace(in.Street),
		Number:       strings.TrimSpace(in.Number),
		City:         strings.TrimSpace(in.City),
		State:        strings.ToUpper(strings.TrimSpace(in.State)),
		IsDefault:    isDefault,
	}
	if v := strings.TrimSpace(in.Label); v != "" {
		a.Label = &v
	}
	if v := brdoc.OnlyDigits(in.Phone); v != "" {
		a.Phone = &v
	}
	if v := strings.TrimSpace(in.Complement); v != "" {
		a.Complement = &v
	}
	if v := strings.TrimSpace(in.District); v != "" {
		a.District = &v
	}
	return s.Addresses.Create(ctx, a)
}

// ListAddresses returns the caller's address book, default first.
func (s *Service) ListAddresses(ctx context.Context, userID uuid.UUID) ([]repo.Address, error) {
	return s.Addresses.ListByUser(ctx, userID)
}

// SetDefaultAddress flags one address as default, clearing the others.
func (s *Service) SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	if _, err := s.Addresses.Get(ctx, userID, addressID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := s.Addresses.UnsetDefaults(ctx, userID); err != nil {
		return err
	}
	return s.Addresses.SetDefault(ctx, userID, addressID)
}

// DeleteAddress removes one address.
func (s *Service) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	deleted, err := s.Addresses.Delete(ctx, userID, addressID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
