package booking

// SetAfterSeatAdjust installs a failure injected right after the seat
// counter moves inside Book ("book") or Cancel ("cancel").
func SetAfterSeatAdjust(e *Engine, fn func(op string) error) {
	e.hooks.afterSeatAdjust = fn
}

// SetOrderIDs replaces the order number generator.
func SetOrderIDs(e *Engine, fn func() string) {
	e.orderID = fn
}
