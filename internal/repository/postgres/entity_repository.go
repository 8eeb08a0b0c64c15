package postgres

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/domain/platform"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EntityRepository implements platform.EntityResolver against the host
// platform's tables.
type EntityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(pool *pgxpool.Pool) *EntityRepository {
	return &EntityRepository{pool: pool}
}

func (r *EntityRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *EntityRepository) Customer(ctx context.Context, id int64) (*platform.Customer, error) {
	c := &platform.Customer{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, first_name, last_name, email, company, phone, birthday, gender
		 FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Company, &c.Phone, &c.Birthday, &c.Gender)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.NewDomainError("not_found", fmt.Sprintf("customer %d", id), nil)
		}
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return c, nil
}

func (r *EntityRepository) Address(ctx context.Context, id int64) (*platform.Address, error) {
	a := &platform.Address{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, first_name, last_name, company, city, phone, country_id, state_id, post_code, street1, street2
		 FROM addresses WHERE id = $1`, id,
	).Scan(&a.ID, &a.FirstName, &a.LastName, &a.Company, &a.City, &a.Phone, &a.CountryID, &a.StateID, &a.PostCode, &a.Street1, &a.Street2)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.NewDomainError("not_found", fmt.Sprintf("address %d", id), nil)
		}
		return nil, fmt.Errorf("query address: %w", err)
	}
	return a, nil
}

func (r *EntityRepository) Country(ctx context.Context, id int64) (*platform.Country, error) {
	c := &platform.Country{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, iso FROM countries WHERE id = $1`, id,
	).Scan(&c.ID, &c.ISO)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.NewDomainError("not_found", fmt.Sprintf("country %d", id), nil)
		}
		return nil, fmt.Errorf("query country: %w", err)
	}
	return c, nil
}

func (r *EntityRepository) State(ctx context.Context, id int64) (*platform.State, error) {
	s := &platform.State{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, iso FROM states WHERE id = $1`, id,
	).Scan(&s.ID, &s.ISO)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.NewDomainError("not_found", fmt.Sprintf("state %d", id), nil)
		}
		return nil, fmt.Errorf("query state: %w", err)
	}
	return s, nil
}

func (r *EntityRepository) Carrier(ctx context.Context, id int64) (*platform.Carrier, error) {
	c := &platform.Carrier{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, name FROM carriers WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.NewDomainError("not_found", fmt.Sprintf("carrier %d", id), nil)
		}
		return nil, fmt.Errorf("query carrier: %w", err)
	}
	return c, nil
}
