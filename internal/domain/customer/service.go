package customer

import (
	"context"
	"customer-service/internal/event"
	"customer-service/internal/infrastructure/monitoring"
	"customer-service/internal/pkg/apperrors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

const (
	msgCustomerNotFound = "Customer with id [%d] doesnt exist."
	msgEmailTaken       = "Customer with email [%s] already exists."
	msgNoChanges        = "No changes provided."
)

type CustomerService interface {
	GetAllCustomers(ctx context.Context) ([]*Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
	AddCustomer(ctx context.Context, req RegistrationRequest) error
	DeleteCustomer(ctx context.Context, customerID int64) error
	UpdateCustomer(ctx context.Context, customerID int64, req UpdateRequest) error
}

var _ CustomerService = (*customerService)(nil)

// customerService enforces email uniqueness with a check followed by a write.
// The two steps are not atomic, so concurrent registrations of one email can
// both succeed.
type customerService struct {
	repo   Repository
	pub    event.Publisher
	logger *slog.Logger
}

func NewCustomerService(repo Repository, publisher event.Publisher, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerService, using default stderr handler")
	}

	if publisher == nil {
		logger.Warn("Warning: No event publisher provided to NewCustomerService, events are disabled")
		publisher = event.NoopPublisher{}
	}

	return &customerService{
		repo:   repo,
		pub:    publisher,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func NewCustomerEvent(cust *Customer) event.CustomerEvent {
	evt := event.CustomerEvent{Timestamp: time.Now()}
	if cust == nil {
		return evt
	}
	evt.Payload = event.CustomerEventPayload{
		CustomerID: cust.ID,
		Name:       cust.Name,
		Email:      cust.Email,
		Age:        cust.Age,
	}
	return evt
}

func (s *customerService) GetAllCustomers(ctx context.Context) ([]*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to list all customers")

	customers, err := s.repo.SelectAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully listed customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	logCtx := s.logger.With(slog.Int64("customerID", customerID))
	logCtx.InfoContext(ctx, "Attempting to get customer by ID")

	cust, err := s.repo.SelectByID(ctx, customerID)
	if err != nil {
		logCtx.ErrorContext(ctx, "Repository error getting customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %d: %w", customerID, err)
	}
	if cust == nil {
		logCtx.WarnContext(ctx, "Customer not found by repository")
		monitoring.RecordRejection(monitoring.ReasonNotFound)
		return nil, apperrors.NewResourceNotFoundError(msgCustomerNotFound, customerID)
	}

	logCtx.InfoContext(ctx, "Successfully retrieved customer")
	return cust, nil
}

func (s *customerService) AddCustomer(ctx context.Context, req RegistrationRequest) error {
	logCtx := s.logger.With(slog.String("email", req.Email))
	logCtx.InfoContext(ctx, "Attempting to add customer")

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		logCtx.ErrorContext(ctx, "Repository error checking email", slog.Any("error", err))
		return fmt.Errorf("failed to check email for new customer: %w", err)
	}
	if exists {
		logCtx.WarnContext(ctx, "Email already taken")
		monitoring.RecordRejection(monitoring.ReasonDuplicate)
		return apperrors.NewDuplicateResourceError(msgEmailTaken, req.Email)
	}

	cust := NewCustomer(req.Name, req.Email, req.Age)
	if err := s.repo.Insert(ctx, cust); err != nil {
		logCtx.ErrorContext(ctx, "Repository failed to insert customer", slog.Any("error", err))
		return fmt.Errorf("failed to save new customer: %w", err)
	}

	logCtx = logCtx.With(slog.Int64("customerID", cust.ID))
	logCtx.InfoContext(ctx, "Successfully added customer, publishing registration event")
	if pubErr := s.pub.PublishCustomerRegistered(ctx, NewCustomerEvent(cust)); pubErr != nil {
		logCtx.ErrorContext(ctx, "Customer added, but FAILED to publish registration event", slog.Any("error", pubErr))
	}
	return nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, customerID int64) error {
	logCtx := s.logger.With(slog.Int64("customerID", customerID))
	logCtx.InfoContext(ctx, "Attempting to delete customer")

	cust, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, customerID); err != nil {
		logCtx.ErrorContext(ctx, "Repository failed to delete customer", slog.Any("error", err))
		return fmt.Errorf("failed to delete customer %d: %w", customerID, err)
	}

	logCtx.InfoContext(ctx, "Successfully deleted customer, publishing deletion event")
	if pubErr := s.pub.PublishCustomerDeleted(ctx, NewCustomerEvent(cust)); pubErr != nil {
		logCtx.ErrorContext(ctx, "Customer deleted, but FAILED to publish deletion event", slog.Any("error", pubErr))
	}
	return nil
}

// UpdateCustomer merges the non-nil fields of req into the stored customer and
// hands the fully merged entity to the repository. A field only counts as a
// change when its value differs from the stored one.
func (s *customerService) UpdateCustomer(ctx context.Context, customerID int64, req UpdateRequest) error {
	logCtx := s.logger.With(slog.Int64("customerID", customerID))
	logCtx.InfoContext(ctx, "Attempting to update customer")

	current, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	if req.IsEmpty() {
		return s.rejectNoChanges(ctx, logCtx, "Update request carries no fields")
	}

	merged := *current
	changed := false

	if req.Name != nil && *req.Name != current.Name {
		merged.Name = *req.Name
		changed = true
	}

	if req.Age != nil && *req.Age != current.Age {
		merged.Age = *req.Age
		changed = true
	}

	if req.Email != nil && *req.Email != current.Email {
		exists, err := s.repo.ExistsByEmail(ctx, *req.Email)
		if err != nil {
			logCtx.ErrorContext(ctx, "Repository error checking email", slog.Any("error", err))
			return fmt.Errorf("failed to check email for customer %d: %w", customerID, err)
		}
		if exists {
			logCtx.WarnContext(ctx, "Email already taken", slog.String("email", *req.Email))
			monitoring.RecordRejection(monitoring.ReasonDuplicate)
			return apperrors.NewDuplicateResourceError(msgEmailTaken, *req.Email)
		}
		merged.Email = *req.Email
		changed = true
	}

	if !changed {
		return s.rejectNoChanges(ctx, logCtx, "Update request carries no changes")
	}

	if err := s.repo.Update(ctx, &merged); err != nil {
		logCtx.ErrorContext(ctx, "Repository failed to update customer", slog.Any("error", err))
		return fmt.Errorf("failed to update customer %d: %w", customerID, err)
	}

	logCtx.InfoContext(ctx, "Successfully updated customer, publishing update event")
	if pubErr := s.pub.PublishCustomerUpdated(ctx, NewCustomerEvent(&merged)); pubErr != nil {
		logCtx.ErrorContext(ctx, "Customer updated, but FAILED to publish update event", slog.Any("error", pubErr))
	}
	return nil
}

func (s *customerService) rejectNoChanges(ctx context.Context, logCtx *slog.Logger, reason string) error {
	logCtx.WarnContext(ctx, reason)
	monitoring.RecordRejection(monitoring.ReasonNoChanges)
	return apperrors.NewRequestValidationError(msgNoChanges)
}
