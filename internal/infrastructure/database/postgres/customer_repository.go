package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"customer-service/internal/domain/customer"
	"customer-service/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const (
	selectAllCustomersQuery = `
        SELECT id, name, email, age
        FROM customer
        ORDER BY id ASC`

	selectCustomerByIDQuery = `
        SELECT id, name, email, age
        FROM customer
        WHERE id = $1`

	insertCustomerQuery = `
        INSERT INTO customer (name, email, age)
        VALUES ($1, $2, $3)
        RETURNING id`

	updateCustomerQuery = `
        UPDATE customer
        SET name = $1,
            email = $2,
            age = $3
        WHERE id = $4`

	deleteCustomerQuery = `DELETE FROM customer WHERE id = $1`

	countCustomersByEmailQuery = `SELECT COUNT(id) FROM customer WHERE email = $1`

	countCustomersByIDQuery = `SELECT COUNT(id) FROM customer WHERE id = $1`
)

// CustomerRepository is the direct-query customer store. Each method issues
// one statement that commits on its own.
type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.Repository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {

		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository", "backend", "pgx"),
	}
}

func (r *CustomerRepository) SelectAll(ctx context.Context) ([]*customer.Customer, error) {

	r.logger.InfoContext(ctx, "Attempting to select all customers")

	rows, err := r.db.Query(ctx, selectAllCustomersQuery)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query customers: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers := make([]*customer.Customer, 0)
	for rows.Next() {
		var cust customer.Customer
		if err := rows.Scan(&cust.ID, &cust.Name, &cust.Email, &cust.Age); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan customer row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan customer row: %w", apperrors.ErrDatabase, err)
		}
		customers = append(customers, &cust)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating customer rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating customer rows: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Finished selecting customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (r *CustomerRepository) SelectByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	logCtx := r.logger.With(slog.Int64("customerID", customerID))
	logCtx.InfoContext(ctx, "Attempting to select customer by ID")

	var cust customer.Customer
	err := r.db.QueryRow(ctx, selectCustomerByIDQuery, customerID).Scan(
		&cust.ID,
		&cust.Name,
		&cust.Email,
		&cust.Age,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logCtx.InfoContext(ctx, "No customer with this ID")
			return nil, nil
		}
		logCtx.ErrorContext(ctx, "Failed to query/scan customer by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get customer by ID: %w", apperrors.ErrDatabase, err)
	}

	logCtx.InfoContext(ctx, "Customer found successfully")
	return &cust, nil
}

func (r *CustomerRepository) Insert(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}

	r.logger.InfoContext(ctx, "Attempting to insert new customer", slog.String("email", cust.Email))

	err := r.db.QueryRow(ctx, insertCustomerQuery, cust.Name, cust.Email, cust.Age).Scan(&cust.ID)
	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert customer due to unique constraint violation")
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert customer: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Customer inserted successfully", slog.Int64("customerID", cust.ID))
	return nil
}

// Update overwrites every column of the row in a single statement. The caller
// is expected to pass an entity that already holds the merged values.
func (r *CustomerRepository) Update(ctx context.Context, cust *customer.Customer) error {
	if !cust.IsPersisted() {
		return fmt.Errorf("%w: customer id is required for update", apperrors.ErrInvalidArgument)
	}

	logCtx := r.logger.With(slog.Int64("customerID", cust.ID))
	logCtx.InfoContext(ctx, "Attempting to update customer")

	cmdTag, err := r.db.Exec(ctx, updateCustomerQuery, cust.Name, cust.Email, cust.Age, cust.ID)
	if err != nil {
		translatedErr := translateDBError(err, logCtx)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			logCtx.WarnContext(ctx, "Failed to update customer due to unique constraint violation", slog.Any("error", err))
			return translatedErr
		}
		logCtx.ErrorContext(ctx, "Failed to update customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update customer: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		logCtx.WarnContext(ctx, "Update affected zero rows, customer likely deleted concurrently")
		return apperrors.ErrNotFound
	}

	logCtx.InfoContext(ctx, "Customer updated successfully")
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, customerID int64) error {
	logCtx := r.logger.With(slog.Int64("customerID", customerID))
	logCtx.InfoContext(ctx, "Attempting to delete customer")

	cmdTag, err := r.db.Exec(ctx, deleteCustomerQuery, customerID)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to execute delete customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to delete customer: %w", apperrors.ErrDatabase, err)
	}

	logCtx.InfoContext(ctx, "Customer delete executed", slog.Int64("rowsAffected", cmdTag.RowsAffected()))
	return nil
}

func (r *CustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, countCustomersByEmailQuery, email)
}

func (r *CustomerRepository) ExistsByID(ctx context.Context, customerID int64) (bool, error) {
	return r.exists(ctx, countCustomersByIDQuery, customerID)
}

func (r *CustomerRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	if err := r.db.QueryRow(ctx, query, arg).Scan(&count); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count customers", slog.Any("error", err))
		return false, fmt.Errorf("%w: failed to count customers: %w", apperrors.ErrDatabase, err)
	}
	return count > 0, nil
}
