package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// TransactionStatus represents the settlement state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "Pending"
	TransactionStatusPaid      TransactionStatus = "Paid"
	TransactionStatusCancelled TransactionStatus = "Cancelled"
)

// ParseTransactionStatus accepts "Completed" as an alias of Paid.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return TransactionStatusPending, nil
	case "paid", "completed":
		return TransactionStatusPaid, nil
	case "cancelled", "canceled":
		return TransactionStatusCancelled, nil
	}
	return "", fmt.Errorf("unknown transaction status %q", s)
}

func (s TransactionStatus) String() string {
	return string(s)
}

func (s TransactionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *TransactionStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseTransactionStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s TransactionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *TransactionStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = TransactionStatus(v)
	case []byte:
		*s = TransactionStatus(v)
	case nil:
		*s = TransactionStatusPending
	default:
		return fmt.Errorf("cannot scan %T into TransactionStatus", value)
	}
	return nil
}
