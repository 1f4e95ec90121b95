package domain

// ProductFilter narrows product listings. Zero values mean "no filter".
type ProductFilter struct {
	Category   string
	VendorID   string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// OrderStatusUpdate changes the mutable status fields of an order. When
// OnlyFrom is set the update applies only while the current order status
// is one of those values.
type OrderStatusUpdate struct {
	OrderStatus   *OrderStatus
	PaymentStatus *PaymentStatus
	OnlyFrom      []OrderStatus
}

// CancellableStatuses are the order statuses an owner may cancel from.
var CancellableStatuses = []OrderStatus{OrderPending, OrderProcessing}
