package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sangkips/khata-api/internal/application/service"
	"github.com/sangkips/khata-api/internal/presentation/http/dto/request"
	"github.com/sangkips/khata-api/internal/presentation/http/dto/response"
	"github.com/sangkips/khata-api/pkg/apperror"
)

// TransactionHandler handles ledger entry HTTP requests
type TransactionHandler struct {
	ledger *service.TransactionService
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(ledger *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// List handles listing transactions with optional filters
func (h *TransactionHandler) List(c *gin.Context) {
	var query request.TransactionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	customerID := query.CustomerID
	if customerID == "" {
		customerID = query.CustomerIDLegacy
	}
	kind := query.Kind
	if kind == "" {
		kind = query.Type
	}

	result, err := h.ledger.ListTransactions(c.Request.Context(), &service.TransactionQuery{
		CustomerID: customerID,
		Kind:       kind,
		Status:     query.Status,
		StartDate:  query.StartDate,
		EndDate:    query.EndDate,
	}, pageParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Transactions retrieved successfully", result)
}

// Create records a transaction and applies it to the customer's due
func (h *TransactionHandler) Create(c *gin.Context) {
	var req request.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		response.ValidationError(c, []apperror.FieldError{{Field: "customer_id", Message: "must be a valid UUID"}})
		return
	}
	h.create(c, customerID, &req)
}

// CreateForCustomer records a transaction for the customer in the path
func (h *TransactionHandler) CreateForCustomer(c *gin.Context) {
	customerID, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}

	var req request.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	h.create(c, customerID, &req)
}

func (h *TransactionHandler) create(c *gin.Context, customerID uuid.UUID, req *request.CreateTransactionRequest) {
	date, err := bodyDate("date", req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.ledger.CreateTransaction(c.Request.Context(), &service.CreateTransactionInput{
		CustomerID:    customerID,
		Kind:          req.Kind,
		Amount:        req.Amount,
		Date:          date,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Transaction recorded successfully", result)
}

// RecordPayment handles the payment shortcut
func (h *TransactionHandler) RecordPayment(c *gin.Context) {
	h.shortcut(c, h.ledger.RecordPayment, "Payment recorded successfully")
}

// RecordCredit handles the credit shortcut
func (h *TransactionHandler) RecordCredit(c *gin.Context) {
	h.shortcut(c, h.ledger.RecordCredit, "Credit recorded successfully")
}

type recordFunc func(ctx context.Context, input *service.PaymentInput) (*service.LedgerResult, error)

func (h *TransactionHandler) shortcut(c *gin.Context, record recordFunc, message string) {
	customerID, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}

	var req request.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	date, err := bodyDate("date", req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := record(c.Request.Context(), &service.PaymentInput{
		CustomerID:    customerID,
		Amount:        req.Amount,
		Date:          date,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, message, result)
}

// Get handles getting a single transaction
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}

	txn, err := h.ledger.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Transaction retrieved successfully", txn)
}

// Update edits a transaction's description, payment method and notes
func (h *TransactionHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}

	var req request.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	txn, err := h.ledger.UpdateTransaction(c.Request.Context(), &service.UpdateTransactionInput{
		ID:            id,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Transaction updated successfully", txn)
}

// Delete removes a transaction and reverses its effect on the due
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}

	result, err := h.ledger.DeleteTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Transaction deleted successfully", result)
}

// ChangeStatus moves a transaction to the status in the JSON body
func (h *TransactionHandler) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}

	var req request.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	h.changeStatus(c, id, req.Status)
}

// MarkPaid moves a transaction to the status in the query string,
// defaulting to Paid.
func (h *TransactionHandler) MarkPaid(c *gin.Context) {
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}
	h.changeStatus(c, id, c.DefaultQuery("status", "Paid"))
}

func (h *TransactionHandler) changeStatus(c *gin.Context, id uuid.UUID, status string) {
	result, err := h.ledger.ChangeStatus(c.Request.Context(), id, status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Transaction status updated", result)
}

// ListForCustomer lists the transactions of the customer in the path
func (h *TransactionHandler) ListForCustomer(c *gin.Context) {
	customerID, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}

	result, err := h.ledger.ListCustomerTransactions(c.Request.Context(), customerID, pageParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Transactions retrieved successfully", result)
}

// ListPending lists credits that have not been settled
func (h *TransactionHandler) ListPending(c *gin.Context) {
	result, err := h.ledger.ListPending(c.Request.Context(), pageParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Pending transactions retrieved successfully", result)
}

// ListOverdue lists pending credits older than the overdue window
func (h *TransactionHandler) ListOverdue(c *gin.Context) {
	result, err := h.ledger.ListOverdue(c.Request.Context(), pageParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Overdue transactions retrieved successfully", result)
}
