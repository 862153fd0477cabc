package dto

import (
	"customer-service/internal/domain/customer"
	"customer-service/internal/pkg/apperrors"
	"strings"
)

type RegistrationRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}

func (r *RegistrationRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.NewValidationError("name", "name cannot be empty")
	}
	if strings.TrimSpace(r.Email) == "" {
		return apperrors.NewValidationError("email", "email cannot be empty")
	}
	if r.Age < 0 {
		return apperrors.NewValidationError("age", "age cannot be negative")
	}
	return nil
}

func (r *RegistrationRequest) ToDomain() customer.RegistrationRequest {
	return customer.RegistrationRequest{
		Name:  r.Name,
		Email: r.Email,
		Age:   r.Age,
	}
}

// UpdateRequest is a partial update; omitted or null fields stay unchanged.
type UpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Age   *int    `json:"age"`
}

func (r *UpdateRequest) Validate() error {
	if r.Age != nil && *r.Age < 0 {
		return apperrors.NewValidationError("age", "age cannot be negative")
	}
	return nil
}

func (r *UpdateRequest) ToDomain() customer.UpdateRequest {
	return customer.UpdateRequest{
		Name:  r.Name,
		Email: r.Email,
		Age:   r.Age,
	}
}

type CustomerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}
	return CustomerResponse{
		ID:    cust.ID,
		Name:  cust.Name,
		Email: cust.Email,
		Age:   cust.Age,
	}
}

func NewCustomerListResponse(customers []*customer.Customer) []CustomerResponse {
	resp := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		resp = append(resp, NewCustomerResponse(c))
	}
	return resp
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
