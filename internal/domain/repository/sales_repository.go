package repository

import "context"

// SalesLedger define el puerto de lectura de ventas reportadas por los minoristas.
// Existe una implementación relacional y otra documental (ventas embebidas por minorista).
type SalesLedger interface {
	// SoldByRetailers devuelve las unidades vendidas del producto por cada minorista indicado.
	// Los minoristas sin ventas pueden no aparecer en el mapa.
	SoldByRetailers(ctx context.Context, productID string, retailerIDs []string) (map[string]int64, error)
}
