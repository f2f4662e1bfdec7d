package poloniex

import (
	"github.com/shopspring/decimal"
)

// orderBookResponse is the polled book. Poloniex mixes strings and floats in
// the rows and flags halted markets with isFrozen.
type orderBookResponse struct {
	Asks     [][]decimal.Decimal `json:"asks"`
	Bids     [][]decimal.Decimal `json:"bids"`
	IsFrozen string              `json:"isFrozen"`
	Seq      int64               `json:"seq"`
}

// command is the wire message that subscribes the push feed to a channel.
type command struct {
	Command string `json:"command"`
	Channel int    `json:"channel"`
}

// Reserved channel ids carrying informational (non-market) data.
const (
	trollboxChannelID  = 1001
	tickerChannelID    = 1002
	statsChannelID     = 1003
	heartbeatChannelID = 1010
)

// tradingChannels maps the exchange's pair notation (QUOTE_BASE) to its
// multiplexed channel id. Market messages arrive tagged with the id only.
var tradingChannels = map[string]int{
	"BTC_ETH":  148,
	"BTC_LTC":  50,
	"BTC_XRP":  117,
	"BTC_XMR":  114,
	"BTC_ZEC":  178,
	"USDT_BTC": 121,
	"USDT_ETH": 149,
	"USDT_LTC": 123,
	"USDT_XRP": 127,
	"ETH_ZEC":  179,
}
