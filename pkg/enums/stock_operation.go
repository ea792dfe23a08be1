package enums

import "fmt"

// StockOperation is the direction of a manual stock adjustment.
type StockOperation string

const (
	StockOperationAdd      StockOperation = "add"
	StockOperationSubtract StockOperation = "subtract"
)

var validStockOperations = []StockOperation{
	StockOperationAdd,
	StockOperationSubtract,
}

// String implements fmt.Stringer.
func (s StockOperation) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockOperation.
func (s StockOperation) IsValid() bool {
	for _, candidate := range validStockOperations {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockOperation converts raw input into a StockOperation.
func ParseStockOperation(value string) (StockOperation, error) {
	for _, candidate := range validStockOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock operation %q", value)
}

// Sign returns the multiplier applied to a positive quantity.
func (o StockOperation) Sign() int {
	if o == StockOperationSubtract {
		return -1
	}
	return 1
}
