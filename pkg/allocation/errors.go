package allocation

import "fmt"

// InsufficientStockError reports that the candidate buckets could not
// cover the demand. Allocated is how much the snapshot could have
// supplied; Shortfall is Requested - Allocated.
type InsufficientStockError struct {
	Requested int64
	Allocated int64
	Shortfall int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, allocatable %d, short %d",
		e.Requested, e.Allocated, e.Shortfall)
}

// ErrUnknownStrategy is returned when Allocate is handed a strategy it
// does not implement.
var ErrUnknownStrategy = fmt.Errorf("allocation: unknown strategy")
