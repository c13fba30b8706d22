package broker

// OrderStatus is the broker-reported state of an order.
type OrderStatus string

const (
	StatusOpen               OrderStatus = "open"
	StatusFilled             OrderStatus = "filled"
	StatusRejected           OrderStatus = "rejected"
	StatusExpired            OrderStatus = "expired"
	StatusCanceled           OrderStatus = "canceled"
	StatusPending            OrderStatus = "pending"
	StatusPartiallyFilled    OrderStatus = "partially_filled"
	StatusCalculated         OrderStatus = "calculated"
	StatusAcceptedForBidding OrderStatus = "accepted_for_bidding"
	StatusError              OrderStatus = "error"
	StatusHeld               OrderStatus = "held"
)

// Disposition classifies an order status for the poll loop.
type Disposition int

const (
	// NonTerminal statuses stay in the pending set and are polled again.
	NonTerminal Disposition = iota
	// Filled is the only terminal success.
	Filled
	// Failed covers every terminal state other than a fill.
	Failed
)

// Disposition maps every status to exactly one classification. Statuses this
// build does not know about are treated as non-terminal so the poll loop
// keeps watching them instead of misreporting an outcome.
func (s OrderStatus) Disposition() Disposition {
	switch s {
	case StatusFilled:
		return Filled
	case StatusRejected, StatusExpired, StatusCanceled, StatusError:
		return Failed
	case StatusOpen, StatusPending, StatusPartiallyFilled,
		StatusCalculated, StatusAcceptedForBidding, StatusHeld:
		return NonTerminal
	default:
		return NonTerminal
	}
}

// Terminal reports whether no further transition can occur.
func (s OrderStatus) Terminal() bool {
	return s.Disposition() != NonTerminal
}

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderType is the execution type of an order.
type OrderType string

const (
	TypeMarket OrderType = "market"
	TypeStop   OrderType = "stop"
)

// Order is the broker's view of a submitted order.
type Order struct {
	ID               string
	Name             string
	Side             OrderSide
	Type             OrderType
	Status           OrderStatus
	ExecutedQuantity int
	AvgFillPrice     float64
}
