package customer_test

import (
	"context"
	"customer-service/internal/domain/customer"
	"customer-service/internal/event"
	"customer-service/internal/pkg/apperrors"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTest() (*customer.MockCustomerRepository, customer.CustomerService) {
	mockRepo := new(customer.MockCustomerRepository)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := customer.NewCustomerService(mockRepo, event.NoopPublisher{}, logger)
	return mockRepo, service
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func baseCustomer() *customer.Customer {
	return &customer.Customer{ID: 2, Name: "Alex", Email: "alex@gmail.com", Age: 19}
}

func TestCustomerService_GetAllCustomers(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo, service := setupTest()
		stored := []*customer.Customer{baseCustomer(), {ID: 3, Name: "Jane", Email: "jane@example.com", Age: 30}}
		mockRepo.On("SelectAll", ctx).Return(stored, nil).Once()

		customers, err := service.GetAllCustomers(ctx)

		assert.NoError(t, err)
		assert.Equal(t, stored, customers)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Empty store", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectAll", ctx).Return([]*customer.Customer{}, nil).Once()

		customers, err := service.GetAllCustomers(ctx)

		assert.NoError(t, err)
		assert.Empty(t, customers)
	})

	t.Run("Error - Repository Failure", func(t *testing.T) {
		mockRepo, service := setupTest()
		dbError := errors.New("connection refused")
		mockRepo.On("SelectAll", ctx).Return(nil, dbError).Once()

		customers, err := service.GetAllCustomers(ctx)

		assert.Nil(t, customers)
		assert.ErrorIs(t, err, dbError)
		assert.Contains(t, err.Error(), "failed to list customers")
	})
}

func TestCustomerService_GetCustomer(t *testing.T) {
	ctx := context.Background()
	customerID := int64(3)

	t.Run("Success", func(t *testing.T) {
		mockRepo, service := setupTest()
		expected := &customer.Customer{ID: customerID, Name: "Alex", Email: "Alex@gmail.com", Age: 22}
		mockRepo.On("SelectByID", ctx, customerID).Return(expected, nil).Once()

		cust, err := service.GetCustomer(ctx, customerID)

		assert.NoError(t, err)
		assert.Equal(t, expected, cust)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Not Found", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, customerID).Return(nil, nil).Once()

		cust, err := service.GetCustomer(ctx, customerID)

		assert.Nil(t, cust)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.EqualError(t, err, "Customer with id [3] doesnt exist.")
		var notFound *apperrors.ResourceNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("Error - Repository Failure", func(t *testing.T) {
		mockRepo, service := setupTest()
		dbError := errors.New("internal server error")
		mockRepo.On("SelectByID", ctx, customerID).Return(nil, dbError).Once()

		cust, err := service.GetCustomer(ctx, customerID)

		assert.Nil(t, cust)
		assert.ErrorIs(t, err, dbError)
		assert.NotErrorIs(t, err, apperrors.ErrNotFound)
		assert.Contains(t, err.Error(), "failed to get customer 3")
	})
}

func TestCustomerService_AddCustomer(t *testing.T) {
	ctx := context.Background()
	req := customer.RegistrationRequest{Name: "Alex", Email: "alex@gmail.com", Age: 19}

	t.Run("Success", func(t *testing.T) {
		mockRepo, service := setupTest()
		var captured *customer.Customer
		mockRepo.On("ExistsByEmail", ctx, req.Email).Return(false, nil).Once()
		mockRepo.On("Insert", ctx, mock.AnythingOfType("*customer.Customer")).
			Run(func(args mock.Arguments) { captured = args.Get(1).(*customer.Customer) }).
			Return(nil).Once()

		err := service.AddCustomer(ctx, req)

		require.NoError(t, err)
		require.NotNil(t, captured)
		assert.Zero(t, captured.ID)
		assert.Equal(t, req.Name, captured.Name)
		assert.Equal(t, req.Email, captured.Email)
		assert.Equal(t, req.Age, captured.Age)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Email Exists", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("ExistsByEmail", ctx, req.Email).Return(true, nil).Once()

		err := service.AddCustomer(ctx, req)

		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
		assert.EqualError(t, err, "Customer with email [alex@gmail.com] already exists.")
		mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("Error - Exists Check Failure", func(t *testing.T) {
		mockRepo, service := setupTest()
		dbError := errors.New("timeout")
		mockRepo.On("ExistsByEmail", ctx, req.Email).Return(false, dbError).Once()

		err := service.AddCustomer(ctx, req)

		assert.ErrorIs(t, err, dbError)
		mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("Error - Insert Failure", func(t *testing.T) {
		mockRepo, service := setupTest()
		dbError := errors.New("disk full")
		mockRepo.On("ExistsByEmail", ctx, req.Email).Return(false, nil).Once()
		mockRepo.On("Insert", ctx, mock.AnythingOfType("*customer.Customer")).Return(dbError).Once()

		err := service.AddCustomer(ctx, req)

		assert.ErrorIs(t, err, dbError)
		assert.Contains(t, err.Error(), "failed to save new customer")
	})
}

func TestCustomerService_DeleteCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, int64(2)).Return(baseCustomer(), nil).Once()
		mockRepo.On("Delete", ctx, int64(2)).Return(nil).Once()

		err := service.DeleteCustomer(ctx, 2)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Not Found", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, int64(-1)).Return(nil, nil).Once()

		err := service.DeleteCustomer(ctx, -1)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.EqualError(t, err, "Customer with id [-1] doesnt exist.")
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("Error - Delete Failure", func(t *testing.T) {
		mockRepo, service := setupTest()
		dbError := errors.New("lock timeout")
		mockRepo.On("SelectByID", ctx, int64(2)).Return(baseCustomer(), nil).Once()
		mockRepo.On("Delete", ctx, int64(2)).Return(dbError).Once()

		err := service.DeleteCustomer(ctx, 2)

		assert.ErrorIs(t, err, dbError)
		assert.Contains(t, err.Error(), "failed to delete customer 2")
	})
}

func TestCustomerService_UpdateCustomer(t *testing.T) {
	ctx := context.Background()
	id := int64(2)

	captureUpdate := func(mockRepo *customer.MockCustomerRepository) *customer.Customer {
		captured := &customer.Customer{}
		mockRepo.On("Update", ctx, mock.AnythingOfType("*customer.Customer")).
			Run(func(args mock.Arguments) { *captured = *args.Get(1).(*customer.Customer) }).
			Return(nil).Once()
		return captured
	}

	t.Run("Update all properties", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, id).Return(baseCustomer(), nil).Once()
		mockRepo.On("ExistsByEmail", ctx, "alexandr@gmail.com").Return(false, nil).Once()
		captured := captureUpdate(mockRepo)

		err := service.UpdateCustomer(ctx, id, customer.UpdateRequest{
			Name:  strPtr("Alexandr"),
			Email: strPtr("alexandr@gmail.com"),
			Age:   intPtr(23),
		})

		require.NoError(t, err)
		assert.Equal(t, customer.Customer{ID: id, Name: "Alexandr", Email: "alexandr@gmail.com", Age: 23}, *captured)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Update only name preserves untouched fields", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, id).Return(baseCustomer(), nil).Once()
		captured := captureUpdate(mockRepo)

		err := service.UpdateCustomer(ctx, id, customer.UpdateRequest{Name: strPtr("Alexandr")})

		require.NoError(t, err)
		assert.Equal(t, customer.Customer{ID: 2, Name: "Alexandr", Email: "alex@gmail.com", Age: 19}, *captured)
		mockRepo.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
	})

	t.Run("Update only email", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, id).Return(baseCustomer(), nil).Once()
		mockRepo.On("ExistsByEmail", ctx, "alexandr@gmail.com").Return(false, nil).Once()
		captured := captureUpdate(mockRepo)

		err := service.UpdateCustomer(ctx, id, customer.UpdateRequest{Email: strPtr("alexandr@gmail.com")})

		require.NoError(t, err)
		assert.Equal(t, customer.Customer{ID: 2, Name: "Alex", Email: "alexandr@gmail.com", Age: 19}, *captured)
	})

	t.Run("Update only age", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, id).Return(baseCustomer(), nil).Once()
		captured := captureUpdate(mockRepo)

		err := service.UpdateCustomer(ctx, id, customer.UpdateRequest{Age: intPtr(22)})

		require.NoError(t, err)
		assert.Equal(t, customer.Customer{ID: 2, Name: "Alex", Email: "alex@gmail.com", Age: 22}, *captured)
	})

	t.Run("Error - No changes when values are equal", func(t *testing.T) {
		mockRepo, service := setupTest()
		current := baseCustomer()
		mockRepo.On("SelectByID", ctx, id).Return(current, nil).Once()

		err := service.UpdateCustomer(ctx, id, customer.UpdateRequest{
			Name:  strPtr(current.Name),
			Email: strPtr(current.Email),
			Age:   intPtr(current.Age),
		})

		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.EqualError(t, err, "No changes provided.")
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
	})

	t.Run("Error - No changes when request is empty", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, id).Return(baseCustomer(), nil).Once()

		err := service.UpdateCustomer(ctx, id, customer.UpdateRequest{})

		var validationErr *apperrors.RequestValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.EqualError(t, err, "No changes provided.")
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Missing customer wins over empty request", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, int64(99)).Return(nil, nil).Once()

		err := service.UpdateCustomer(ctx, 99, customer.UpdateRequest{})

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.EqualError(t, err, "Customer with id [99] doesnt exist.")
	})

	t.Run("Error - Email already taken", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, id).Return(baseCustomer(), nil).Once()
		mockRepo.On("ExistsByEmail", ctx, "alex1@gmail.com").Return(true, nil).Once()

		err := service.UpdateCustomer(ctx, id, customer.UpdateRequest{
			Name:  strPtr("Alexandr"),
			Email: strPtr("alex1@gmail.com"),
			Age:   intPtr(23),
		})

		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
		assert.EqualError(t, err, "Customer with email [alex1@gmail.com] already exists.")
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Error - Email taken is reported before no-changes", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, id).Return(baseCustomer(), nil).Once()
		mockRepo.On("ExistsByEmail", ctx, "taken@gmail.com").Return(true, nil).Once()

		err := service.UpdateCustomer(ctx, id, customer.UpdateRequest{Email: strPtr("taken@gmail.com")})

		var dup *apperrors.DuplicateResourceError
		assert.ErrorAs(t, err, &dup)
		assert.NotErrorIs(t, err, apperrors.ErrValidation)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Error - Customer not found", func(t *testing.T) {
		mockRepo, service := setupTest()
		mockRepo.On("SelectByID", ctx, int64(99)).Return(nil, nil).Once()

		err := service.UpdateCustomer(ctx, 99, customer.UpdateRequest{Name: strPtr("Ghost")})

		assert.EqualError(t, err, "Customer with id [99] doesnt exist.")
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Stored customer is not mutated on rejection", func(t *testing.T) {
		mockRepo, service := setupTest()
		current := baseCustomer()
		mockRepo.On("SelectByID", ctx, id).Return(current, nil).Once()
		mockRepo.On("ExistsByEmail", ctx, "taken@gmail.com").Return(true, nil).Once()

		_ = service.UpdateCustomer(ctx, id, customer.UpdateRequest{Name: strPtr("Other"), Email: strPtr("taken@gmail.com")})

		assert.Equal(t, baseCustomer(), current)
	})

	t.Run("Error - Repository update failure", func(t *testing.T) {
		mockRepo, service := setupTest()
		dbError := errors.New("serialization failure")
		mockRepo.On("SelectByID", ctx, id).Return(baseCustomer(), nil).Once()
		mockRepo.On("Update", ctx, mock.AnythingOfType("*customer.Customer")).Return(dbError).Once()

		err := service.UpdateCustomer(ctx, id, customer.UpdateRequest{Age: intPtr(40)})

		assert.ErrorIs(t, err, dbError)
		assert.Contains(t, err.Error(), "failed to update customer 2")
	})
}

func TestCustomerService_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Registration event carries assigned id", func(t *testing.T) {
		mockRepo := new(customer.MockCustomerRepository)
		mockPub := new(customer.MockEventPublisher)
		service := customer.NewCustomerService(mockRepo, mockPub, logger)

		mockRepo.On("ExistsByEmail", ctx, "jane@example.com").Return(false, nil).Once()
		mockRepo.On("Insert", ctx, mock.AnythingOfType("*customer.Customer")).
			Return(func(_ context.Context, c *customer.Customer) error {
				c.ID = 17
				return nil
			}).Once()
		mockPub.On("PublishCustomerRegistered", ctx, mock.MatchedBy(func(evt event.CustomerEvent) bool {
			return evt.Payload == event.CustomerEventPayload{CustomerID: 17, Name: "Jane Roe", Email: "jane@example.com", Age: 31}
		})).Return(nil).Once()

		err := service.AddCustomer(ctx, customer.RegistrationRequest{Name: "Jane Roe", Email: "jane@example.com", Age: 31})

		assert.NoError(t, err)
		mockPub.AssertExpectations(t)
	})

	t.Run("Publish failure does not fail the operation", func(t *testing.T) {
		mockRepo := new(customer.MockCustomerRepository)
		mockPub := new(customer.MockEventPublisher)
		service := customer.NewCustomerService(mockRepo, mockPub, logger)

		mockRepo.On("SelectByID", ctx, int64(2)).Return(baseCustomer(), nil).Once()
		mockRepo.On("Delete", ctx, int64(2)).Return(nil).Once()
		mockPub.On("PublishCustomerDeleted", ctx, mock.AnythingOfType("event.CustomerEvent")).Return(errors.New("broker down")).Once()

		err := service.DeleteCustomer(ctx, 2)

		assert.NoError(t, err)
		mockPub.AssertExpectations(t)
	})

	t.Run("No event on rejected update", func(t *testing.T) {
		mockRepo := new(customer.MockCustomerRepository)
		mockPub := new(customer.MockEventPublisher)
		service := customer.NewCustomerService(mockRepo, mockPub, logger)

		mockRepo.On("SelectByID", ctx, int64(2)).Return(baseCustomer(), nil).Once()

		err := service.UpdateCustomer(ctx, 2, customer.UpdateRequest{Name: strPtr("Alex")})

		assert.Error(t, err)
		mockPub.AssertNotCalled(t, "PublishCustomerUpdated", mock.Anything, mock.Anything)
	})
}

func TestNewCustomerService_PanicsWithoutRepository(t *testing.T) {
	assert.Panics(t, func() {
		customer.NewCustomerService(nil, nil, nil)
	})
}
