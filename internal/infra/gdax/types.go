package gdax

import (
	"time"

	"github.com/shopspring/decimal"
)

// orderBookResponse is the polled level-2 book: rows are
// [price, size, num_orders], best ask first / best bid first not guaranteed.
type orderBookResponse struct {
	Sequence int64               `json:"sequence"`
	Asks     [][]decimal.Decimal `json:"asks"`
	Bids     [][]decimal.Decimal `json:"bids"`
}

// doneMessage signals that an order left the book (filled or canceled).
type doneMessage struct {
	Type      string          `json:"type"`
	OrderID   string          `json:"order_id"`
	Reason    string          `json:"reason"`
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Time      time.Time       `json:"time"`
}

// matchMessage signals a trade between two orders.
type matchMessage struct {
	Type         string          `json:"type"`
	TradeID      int64           `json:"trade_id"`
	MakerOrderID string          `json:"maker_order_id"`
	TakerOrderID string          `json:"taker_order_id"`
	ProductID    string          `json:"product_id"`
	Price        decimal.Decimal `json:"price"`
	Size         decimal.Decimal `json:"size"`
	Time         time.Time       `json:"time"`
}

// subscriptionsMessage confirms the channels the feed is subscribed to.
type subscriptionsMessage struct {
	Type     string `json:"type"`
	Channels []struct {
		Name       string   `json:"name"`
		ProductIDs []string `json:"product_ids"`
	} `json:"channels"`
}

// subscribeMessage requests feed channels for a set of products.
type subscribeMessage struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}
