package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// TransactionKind is the closed set of ledger movements
type TransactionKind string

const (
	TransactionKindCredit     TransactionKind = "Credit"
	TransactionKindPayment    TransactionKind = "Payment"
	TransactionKindAdjustment TransactionKind = "Adjustment"
)

// ParseTransactionKind matches case-insensitively and rejects anything
// outside the closed set.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit":
		return TransactionKindCredit, nil
	case "payment":
		return TransactionKindPayment, nil
	case "adjustment":
		return TransactionKindAdjustment, nil
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

func (k TransactionKind) String() string {
	return string(k)
}

func (k TransactionKind) IsValid() bool {
	switch k {
	case TransactionKindCredit, TransactionKindPayment, TransactionKindAdjustment:
		return true
	}
	return false
}

func (k TransactionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *TransactionKind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseTransactionKind(str)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k TransactionKind) Value() (driver.Value, error) {
	return string(k), nil
}

func (k *TransactionKind) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*k = TransactionKind(v)
	case []byte:
		*k = TransactionKind(v)
	case nil:
		*k = ""
	default:
		return fmt.Errorf("cannot scan %T into TransactionKind", value)
	}
	return nil
}
