package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"customer-service/internal/domain/customer"
	"customer-service/internal/pkg/apperrors"

	"github.com/uptrace/bun"
)

type customerRecord struct {
	bun.BaseModel `bun:"table:customer"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Name  string `bun:"name,notnull"`
	Email string `bun:"email,notnull"`
	Age   int    `bun:"age,notnull"`
}

func toDomain(rec *customerRecord) *customer.Customer {
	return &customer.Customer{
		ID:    rec.ID,
		Name:  rec.Name,
		Email: rec.Email,
		Age:   rec.Age,
	}
}

func fromDomain(cust *customer.Customer) *customerRecord {
	return &customerRecord{
		ID:    cust.ID,
		Name:  cust.Name,
		Email: cust.Email,
		Age:   cust.Age,
	}
}

// CustomerRepository stores customers through the bun mapper.
type CustomerRepository struct {
	db     bun.IDB
	logger *slog.Logger
}

var _ customer.Repository = (*CustomerRepository)(nil)

func NewCustomerRepository(db bun.IDB, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("bun.IDB cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to orm.NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository", "backend", "bun"),
	}
}

func (r *CustomerRepository) SelectAll(ctx context.Context) ([]*customer.Customer, error) {
	var records []customerRecord
	if err := r.db.NewSelect().Model(&records).Order("id ASC").Scan(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to select customers", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to select customers: %w", apperrors.ErrDatabase, err)
	}

	customers := make([]*customer.Customer, 0, len(records))
	for i := range records {
		customers = append(customers, toDomain(&records[i]))
	}
	return customers, nil
}

func (r *CustomerRepository) SelectByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	rec := new(customerRecord)
	err := r.db.NewSelect().Model(rec).Where("id = ?", customerID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Failed to select customer by ID", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get customer by ID: %w", apperrors.ErrDatabase, err)
	}
	return toDomain(rec), nil
}

func (r *CustomerRepository) Insert(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}

	rec := fromDomain(cust)
	rec.ID = 0
	if _, err := r.db.NewInsert().Model(rec).Returning("id").Exec(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.String("email", cust.Email), slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert customer: %w", apperrors.ErrDatabase, err)
	}

	cust.ID = rec.ID
	r.logger.InfoContext(ctx, "Customer inserted successfully", slog.Int64("customerID", cust.ID))
	return nil
}

// Update replaces every mapped column of the row identified by cust.ID.
func (r *CustomerRepository) Update(ctx context.Context, cust *customer.Customer) error {
	if !cust.IsPersisted() {
		return fmt.Errorf("%w: customer id is required for update", apperrors.ErrInvalidArgument)
	}

	res, err := r.db.NewUpdate().Model(fromDomain(cust)).WherePK().Exec(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update customer", slog.Int64("customerID", cust.ID), slog.Any("error", err))
		return fmt.Errorf("%w: failed to update customer: %w", apperrors.ErrDatabase, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to read affected rows: %w", apperrors.ErrDatabase, err)
	}
	if affected == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows", slog.Int64("customerID", cust.ID))
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, customerID int64) error {
	_, err := r.db.NewDelete().
		Model((*customerRecord)(nil)).
		Where("id = ?", customerID).
		Exec(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete customer", slog.Int64("customerID", customerID), slog.Any("error", err))
		return fmt.Errorf("%w: failed to delete customer: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *CustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *CustomerRepository) ExistsByID(ctx context.Context, customerID int64) (bool, error) {
	return r.exists(ctx, "id = ?", customerID)
}

func (r *CustomerRepository) exists(ctx context.Context, where string, arg any) (bool, error) {
	ok, err := r.db.NewSelect().Model((*customerRecord)(nil)).Where(where, arg).Exists(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to check customer existence", slog.Any("error", err))
		return false, fmt.Errorf("%w: failed to check customer existence: %w", apperrors.ErrDatabase, err)
	}
	return ok, nil
}
