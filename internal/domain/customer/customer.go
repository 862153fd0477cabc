package customer

// Customer is the persisted customer record. ID is zero until the store
// assigns one.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}

func NewCustomer(name, email string, age int) *Customer {
	return &Customer{
		Name:  name,
		Email: email,
		Age:   age,
	}
}

func (c *Customer) IsPersisted() bool {
	return c != nil && c.ID != 0
}

type RegistrationRequest struct {
	Name  string
	Email string
	Age   int
}

// UpdateRequest carries a partial update. Nil fields are left unchanged.
type UpdateRequest struct {
	Name  *string
	Email *string
	Age   *int
}

func (r UpdateRequest) IsEmpty() bool {
	return r.Name == nil && r.Email == nil && r.Age == nil
}
