package repositories

import "fmt"

// ProductNotFoundError is returned when an order references a product that
// does not exist in the catalog.
type ProductNotFoundError struct {
	ProductID uint
	Name      string
}

func (e *ProductNotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("Product %s not found", e.Name)
	}
	return fmt.Sprintf("Product %d not found", e.ProductID)
}

// InsufficientStockError is returned when a requested quantity exceeds the
// product's available stock, either during validation or when the guarded
// decrement loses a race to a concurrent order.
type InsufficientStockError struct {
	ProductID uint
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d",
		e.Name, e.Available, e.Requested)
}
