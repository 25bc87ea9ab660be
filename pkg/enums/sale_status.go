package enums

import "fmt"

// SaleStatus tracks the settlement state of a sale.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "PENDING"
	SaleStatusCompleted SaleStatus = "COMPLETED"
	SaleStatusCancelled SaleStatus = "CANCELLED"
	SaleStatusRefunded  SaleStatus = "REFUNDED"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusPending,
	SaleStatusCompleted,
	SaleStatusCancelled,
	SaleStatusRefunded,
}

// CountedSaleStatuses are the statuses that add to the drawer and to reports.
var CountedSaleStatuses = []SaleStatus{SaleStatusCompleted, SaleStatusPending}

func (s SaleStatus) String() string {
	return string(s)
}

func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Counted reports whether the sale contributes to cash totals and reports.
func (s SaleStatus) Counted() bool {
	for _, candidate := range CountedSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
