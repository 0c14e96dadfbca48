package inventory

import (
	"math/bits"
	"sort"

	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// DefaultMaxCandidates cantidad máxima de minoristas devueltos por el ranking.
const DefaultMaxCandidates = 5

// RankedRetailer candidato para recibir un lote, con su eficiencia de venta del producto.
type RankedRetailer struct {
	RetailerID     string
	TotalPurchased int64
	TotalSold      int64
	// Efficiency = TotalSold / TotalPurchased. Puede superar 1.0 si el minorista vendió
	// stock que no compró por este sistema; no se recorta.
	Efficiency float64
}

// RankRetailers implementa el ranking de minoristas (servicio de dominio, sin E/S).
// Solo entran minoristas con compras > 0 y ventas > 0. Orden: eficiencia desc, vendidas desc,
// compradas desc y, para que el orden sea estable, ID de minorista asc. Devuelve como máximo limit.
func RankRetailers(purchases []repository.RetailerPurchaseTotal, sold map[string]int64, limit int) []RankedRetailer {
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}
	ranked := make([]RankedRetailer, 0, len(purchases))
	for _, p := range purchases {
		if p.TotalPurchased <= 0 {
			continue
		}
		s := sold[p.RetailerID]
		if s <= 0 {
			continue
		}
		ranked = append(ranked, RankedRetailer{
			RetailerID:     p.RetailerID,
			TotalPurchased: p.TotalPurchased,
			TotalSold:      s,
			Efficiency:     float64(s) / float64(p.TotalPurchased),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if c := compareEfficiency(a, b); c != 0 {
			return c > 0
		}
		if a.TotalSold != b.TotalSold {
			return a.TotalSold > b.TotalSold
		}
		if a.TotalPurchased != b.TotalPurchased {
			return a.TotalPurchased > b.TotalPurchased
		}
		return a.RetailerID < b.RetailerID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// compareEfficiency compara a.sold/a.purchased con b.sold/b.purchased sin pasar por float.
// Los productos cruzados se calculan en 128 bits: los totales son positivos y su producto
// puede superar int64.
func compareEfficiency(a, b RankedRetailer) int {
	lhi, llo := bits.Mul64(uint64(a.TotalSold), uint64(b.TotalPurchased))
	rhi, rlo := bits.Mul64(uint64(b.TotalSold), uint64(a.TotalPurchased))
	switch {
	case lhi != rhi:
		if lhi > rhi {
			return 1
		}
		return -1
	case llo != rlo:
		if llo > rlo {
			return 1
		}
		return -1
	}
	return 0
}

// SuggestedQuantity cantidad a ofrecer: unidades históricas vendidas (mínimo 1) sin superar el lote.
func SuggestedQuantity(totalSold, available int64) int64 {
	qty := totalSold
	if qty < 1 {
		qty = 1
	}
	if qty > available {
		qty = available
	}
	return qty
}
