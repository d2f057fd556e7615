package postgres

import (
	"context"
	"fmt"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/repository"
)

type companyRepository struct {
	db repository.DBTX
}

func NewCompanyRepository(db repository.DBTX) repository.CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) GetByID(ctx context.Context, id int32) (*domain.Company, error) {
	c := &domain.Company{}
	query := `SELECT id, name, COALESCE(business_number, ''), COALESCE(representative_name, ''), COALESCE(phone, ''),
	                 COALESCE(email, ''), COALESCE(address, '')
	          FROM companies WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.BusinessNumber, &c.RepresentativeName,
		&c.Phone, &c.Email, &c.Address)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("company %d", id))
	}
	return c, nil
}

type customerRepository struct {
	db repository.DBTX
}

func NewCustomerRepository(db repository.DBTX) repository.CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) GetByID(ctx context.Context, id int32) (*domain.Customer, error) {
	c := &domain.Customer{}
	query := `SELECT id, company_id, name, COALESCE(phone, ''), COALESCE(email, '') FROM customers WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.CompanyID, &c.Name, &c.Phone, &c.Email)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("customer %d", id))
	}
	return c, nil
}

type carRepository struct {
	db repository.DBTX
}

func NewCarRepository(db repository.DBTX) repository.CarRepository {
	return &carRepository{db: db}
}

func (r *carRepository) GetByID(ctx context.Context, id int32) (*domain.Car, error) {
	c := &domain.Car{}
	query := `SELECT id, company_id, number, COALESCE(brand, ''), COALESCE(model, ''), COALESCE(trim, ''),
	                 COALESCE(year, 0), COALESCE(fuel_type, ''), status
	          FROM cars WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.CompanyID, &c.Number, &c.Brand, &c.Model, &c.Trim,
		&c.Year, &c.FuelType, &c.Status)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("car %d", id))
	}
	return c, nil
}

func (r *carRepository) SetStatus(ctx context.Context, id int32, status domain.CarStatus) error {
	query := `UPDATE cars SET status = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: car %d", domain.ErrNotFound, id)
	}
	return nil
}
