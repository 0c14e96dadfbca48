package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestParseSales_Latin1(t *testing.T) {
	src := "id;retailer_id;product_id;units;price;sold_at\n" +
		"V1;R-Peñón;P1;7;2500,50;2026-02-01\n" +
		"V2;R2;P1;3;1800;2026-02-02 10:30:00\n"
	encoded, err := charmap.ISO8859_1.NewEncoder().String(src)
	require.NoError(t, err)

	events, err := parseSales(bytes.NewReader([]byte(encoded)), true)

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "R-Peñón", events[0].RetailerID)
	assert.Equal(t, int64(7), events[0].Units)
	assert.Equal(t, "2500.5", events[0].Price.String())
	assert.True(t, time.Date(2026, 2, 2, 10, 30, 0, 0, time.UTC).Equal(events[1].SoldAt))
}

func TestParseSales_ColumnasEnOtroOrden(t *testing.T) {
	src := "product_id;id;units;retailer_id;sold_at;price\nP1;V1;2;R1;01/03/2026;10\n"

	events, err := parseSales(strings.NewReader(src), false)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "R1", events[0].RetailerID)
	assert.Equal(t, time.March, events[0].SoldAt.Month())
}

func TestParseSales_Errores(t *testing.T) {
	_, err := parseSales(strings.NewReader("id;retailer_id;product_id;units;price\n"), false)
	assert.ErrorContains(t, err, "sold_at")

	_, err = parseSales(strings.NewReader("id;retailer_id;product_id;units;price;sold_at\nV1;R1;P1;0;10;2026-01-01\n"), false)
	assert.ErrorContains(t, err, "línea 2")

	_, err = parseSales(strings.NewReader("id;retailer_id;product_id;units;price;sold_at\nV1;R1;P1;1;abc;2026-01-01\n"), false)
	assert.ErrorContains(t, err, "price")
}
