package customer

import (
	"context"
)

// Repository is the storage capability set shared by every customer store.
// Implementations do no validation beyond rejecting an Update without an ID.
type Repository interface {
	SelectAll(ctx context.Context) ([]*Customer, error)

	// SelectByID returns nil and no error when the id does not exist.
	SelectByID(ctx context.Context, customerID int64) (*Customer, error)

	// Insert stores a customer without an id and writes the assigned id back
	// into the argument.
	Insert(ctx context.Context, customer *Customer) error

	// Update overwrites name, email and age of the row matching customer.ID.
	Update(ctx context.Context, customer *Customer) error

	// Delete is a no-op when the id does not exist.
	Delete(ctx context.Context, customerID int64) error

	ExistsByEmail(ctx context.Context, email string) (bool, error)

	ExistsByID(ctx context.Context, customerID int64) (bool, error)
}
