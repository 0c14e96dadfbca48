package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesEvent venta reportada por un minorista (solo se agrega, nunca se modifica).
type SalesEvent struct {
	ID         string
	RetailerID string
	ProductID  string
	Units      int64
	Price      decimal.Decimal // precio unitario al momento de la venta
	SoldAt     time.Time
}
