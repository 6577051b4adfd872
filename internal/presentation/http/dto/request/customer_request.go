package request

// CreateCustomerRequest represents a create customer request
type CreateCustomerRequest struct {
	Name     string  `json:"name" binding:"required,max=255"`
	Mobile   string  `json:"mobile" binding:"required,max=20"`
	Address  *string `json:"address"`
	Category string  `json:"category" binding:"omitempty,max=50"`
	Notes    *string `json:"notes"`
}

// UpdateCustomerRequest is shared by PUT and PATCH. PUT requires name and
// mobile, which the handler checks. A total due in the body is applied as a
// direct override, the same as PUT /customers/:id/total-due.
type UpdateCustomerRequest struct {
	Name          *string  `json:"name" binding:"omitempty,max=255"`
	Mobile        *string  `json:"mobile" binding:"omitempty,max=20"`
	Address       *string  `json:"address"`
	Category      *string  `json:"category" binding:"omitempty,max=50"`
	Notes         *string  `json:"notes"`
	IsActive      *bool    `json:"is_active"`
	TotalDue      *float64 `json:"total_due"`
	TotalDueCamel *float64 `json:"totalDue"`
}

// Due returns the requested total due, preferring total_due over totalDue
func (r *UpdateCustomerRequest) Due() *float64 {
	if r.TotalDue != nil {
		return r.TotalDue
	}
	return r.TotalDueCamel
}

// CustomerListQuery binds the customer list filters
type CustomerListQuery struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	HasDue   *bool  `form:"has_due"`
}
