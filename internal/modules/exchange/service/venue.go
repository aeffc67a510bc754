package service

import "multisignal_bot/internal/models"

// Venue: набор возможностей одной биржи. Paper и Binance реализуют все три.
type Venue struct {
	Name    string
	Account models.AccountCapability
	Market  models.MarketDataCapability
	Orders  models.OrderCapability
}

func PaperVenue(p *Paper) *Venue {
	return &Venue{Name: "paper", Account: p, Market: p, Orders: p}
}

func BinanceVenue(b *Binance) *Venue {
	return &Venue{Name: "binance", Account: b, Market: b, Orders: b}
}
