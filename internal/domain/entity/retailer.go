package entity

import "time"

// Retailer representa un minorista que compra lotes y reporta sus ventas.
type Retailer struct {
	ID        string
	Name      string
	Location  string
	Email     string
	Active    bool
	CreatedAt time.Time
}
