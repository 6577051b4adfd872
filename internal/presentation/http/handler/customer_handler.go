package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sangkips/khata-api/internal/application/service"
	"github.com/sangkips/khata-api/internal/domain/repository"
	"github.com/sangkips/khata-api/internal/presentation/http/dto/request"
	"github.com/sangkips/khata-api/internal/presentation/http/dto/response"
	"github.com/sangkips/khata-api/pkg/apperror"
)

// CustomerHandler handles customer-related HTTP requests
type CustomerHandler struct {
	customerService *service.CustomerService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customerService *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// List handles listing customers (supports both page-based and cursor-based pagination)
func (h *CustomerHandler) List(c *gin.Context) {
	var query request.CustomerListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	filter := repository.CustomerFilter{
		Search:   query.Search,
		Category: query.Category,
		HasDue:   query.HasDue,
	}

	if wantsCursor(c) {
		cursor, items, err := h.customerService.ListCustomersWithCursor(c.Request.Context(), filter, cursorParams(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.SuccessWithCursor(c, "Customers retrieved successfully", items, cursor)
		return
	}

	result, err := h.customerService.ListCustomers(c.Request.Context(), filter, pageParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Customers retrieved successfully", result)
}

// Create handles creating a customer
func (h *CustomerHandler) Create(c *gin.Context) {
	var req request.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), &service.CreateCustomerInput{
		Name:     req.Name,
		Mobile:   req.Mobile,
		Address:  req.Address,
		Category: req.Category,
		Notes:    req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Customer created successfully", customer)
}

// Get handles getting a single customer
func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}

	customer, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Customer retrieved successfully", customer)
}

// Replace handles PUT, which requires name and mobile
func (h *CustomerHandler) Replace(c *gin.Context) {
	h.update(c, true)
}

// Patch handles PATCH, which only touches the fields present
func (h *CustomerHandler) Patch(c *gin.Context) {
	h.update(c, false)
}

func (h *CustomerHandler) update(c *gin.Context, full bool) {
	id, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}

	var req request.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	if full {
		var missing []apperror.FieldError
		if req.Name == nil {
			missing = append(missing, apperror.FieldError{Field: "name", Message: "is required"})
		}
		if req.Mobile == nil {
			missing = append(missing, apperror.FieldError{Field: "mobile", Message: "is required"})
		}
		if len(missing) > 0 {
			response.ValidationError(c, missing)
			return
		}
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), &service.UpdateCustomerInput{
		ID:       id,
		Name:     req.Name,
		Mobile:   req.Mobile,
		Address:  req.Address,
		Category: req.Category,
		Notes:    req.Notes,
		IsActive: req.IsActive,
		TotalDue: req.Due(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Customer updated successfully", customer)
}

// SetTotalDue overwrites the stored due without recording a transaction.
// The value comes from the total_due (or totalDue) query parameter.
func (h *CustomerHandler) SetTotalDue(c *gin.Context) {
	id, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}

	raw := firstQuery(c, "total_due", "totalDue")
	if raw == "" {
		response.ValidationError(c, []apperror.FieldError{{Field: "total_due", Message: "is required"}})
		return
	}
	totalDue, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		response.ValidationError(c, []apperror.FieldError{{Field: "total_due", Message: "must be a number"}})
		return
	}

	customer, err := h.customerService.SetTotalDue(c.Request.Context(), id, totalDue)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Customer total due updated", customer)
}

// Delete handles deleting a customer and its transactions
func (h *CustomerHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}

	if err := h.customerService.DeleteCustomer(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
