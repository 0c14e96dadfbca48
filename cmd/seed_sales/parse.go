package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
)

// columnas esperadas en la cabecera (el orden puede variar).
var requiredColumns = []string{"id", "retailer_id", "product_id", "units", "price", "sold_at"}

// parseSales lee el CSV de ventas separado por ';'. latin1=true decodifica ISO-8859-1
// (exportaciones de los POS de los minoristas). Precio con coma o punto decimal.
func parseSales(r io.Reader, latin1 bool) ([]*entity.SalesEvent, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("leer cabecera: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("falta la columna %q", c)
		}
	}

	var out []*entity.SalesEvent
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		ev, err := toEvent(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func toEvent(rec []string, idx map[string]int) (*entity.SalesEvent, error) {
	get := func(col string) string { return strings.TrimSpace(rec[idx[col]]) }

	units, err := strconv.ParseInt(get("units"), 10, 64)
	if err != nil || units <= 0 {
		return nil, fmt.Errorf("units inválido: %q", get("units"))
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(get("price"), ",", "."))
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("price inválido: %q", get("price"))
	}
	soldAt, err := parseDate(get("sold_at"))
	if err != nil {
		return nil, err
	}
	ev := &entity.SalesEvent{
		ID:         get("id"),
		RetailerID: get("retailer_id"),
		ProductID:  get("product_id"),
		Units:      units,
		Price:      price,
		SoldAt:     soldAt,
	}
	if ev.ID == "" || ev.RetailerID == "" || ev.ProductID == "" {
		return nil, fmt.Errorf("id, retailer_id y product_id son requeridos")
	}
	return ev, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("sold_at inválido: %q", s)
}
