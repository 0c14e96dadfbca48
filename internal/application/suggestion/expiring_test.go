package suggestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/retail-suggestions/internal/domain"
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
)

func TestSuggestExpiring_SoloLotesDentroDelHorizonte(t *testing.T) {
	f := newFixture()
	f.store.addProduct("P", "Pan")
	f.store.addProduct("Q", "Jamón")
	f.store.addBatch("B1", "P", 10, f.now.Add(2*24*time.Hour))
	f.store.addBatch("B2", "Q", 10, f.now.Add(5*24*time.Hour))
	f.store.addBatch("B-lejos", "P", 10, f.now.Add(30*24*time.Hour))
	f.store.addHistory("R1", "P", 10, 7)

	outs, err := f.expiring.SuggestExpiring(context.Background(), false)

	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, "B1", outs[0].InventoryBatchID)
	assert.True(t, outs[0].OK())
	assert.Equal(t, "B2", outs[1].InventoryBatchID)
	assert.Equal(t, ReasonNoPurchaseHistory, outs[1].Reason)
	assert.Empty(t, f.store.activeFor("P", "B-lejos"))
}

func TestRunTick_OmiteLotesConSugerenciaActiva(t *testing.T) {
	f := newFixture()
	f.store.addProduct("P", "Pan")
	f.store.addBatch("B1", "P", 10, f.now.Add(2*24*time.Hour))
	f.store.addHistory("R1", "P", 10, 7)

	first, err := f.expiring.RunTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Suggested)

	second, err := f.expiring.RunTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Suggested)
	require.Len(t, second.Outcomes, 1)
	assert.Equal(t, ReasonAlreadyActive, second.Outcomes[0].Reason)
	assert.Len(t, f.store.activeFor("P", "B1"), 1)
}

func TestRunTick_NoReofreceLoteConCandidatosAgotados(t *testing.T) {
	f := newFixture()
	tresMinoristas(f)
	sugerencia(f, "R3", entity.SuggestionRejected, "R1", "R2")

	res, err := f.fallback.Reassign(context.Background(), "S", TriggerRejection)
	require.NoError(t, err)
	require.Equal(t, FallbackExhausted, res.Status)

	report, err := f.expiring.RunTick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Suggested)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, ReasonPreviouslyClosed, report.Outcomes[0].Reason)
	assert.Empty(t, f.store.activeFor("P", "B"))
	assert.Equal(t, entity.SuggestionExpired, f.store.suggestion("S").Status)
	assert.Empty(t, f.notifier.recipients())
}

func TestRunTick_RechazoPendienteQuedaParaElBarrido(t *testing.T) {
	f := newFixture()
	tresMinoristas(f)
	sugerencia(f, "R1", entity.SuggestionRejected)

	report, err := f.expiring.RunTick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Suggested)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, ReasonPreviouslyClosed, report.Outcomes[0].Reason)
	assert.Empty(t, f.store.activeFor("P", "B"))
	assert.Empty(t, f.notifier.recipients())
}

func TestRunTick_LoteConfirmadoConSaldoSeSugiereDeNuevo(t *testing.T) {
	f := newFixture()
	tresMinoristas(f)
	sugerencia(f, "R1", entity.SuggestionConfirmed)

	report, err := f.expiring.RunTick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Suggested)
	assert.Len(t, f.store.activeFor("P", "B"), 1)
}

func TestSuggestExpiring_FalloDeUnLoteSeReporta(t *testing.T) {
	f := newFixture()
	f.store.addProduct("P", "Pan")
	f.store.addBatch("B1", "P", 10, f.now.Add(2*24*time.Hour))
	f.store.addHistory("R1", "P", 10, 7)
	caida := errors.New("catálogo caído")
	f.store.failProductLookup = caida

	outs, err := f.expiring.SuggestExpiring(context.Background(), false)

	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "B1", outs[0].InventoryBatchID)
	assert.Equal(t, ReasonFailed, outs[0].Reason)
	assert.ErrorIs(t, outs[0].Err, caida)

	report, err := f.expiring.RunTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Suggested)
}

func TestRunTick_VenceLotesPasados(t *testing.T) {
	f := newFixture()
	f.store.addProduct("P", "Pan")
	f.store.addBatch("B-viejo", "P", 10, f.now.Add(-time.Hour))
	f.store.putSuggestion(&entity.Suggestion{
		ID: "S", ProductID: "P", InventoryBatchID: "B-viejo", RetailerID: "R1", Quantity: 4,
		Status: entity.SuggestionPending, Attempts: 1, Version: 1,
	})

	report, err := f.expiring.RunTick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.ExpiredBatches)
	assert.Equal(t, int64(1), report.ExpiredSuggestions)
	assert.Equal(t, entity.BatchStatusExpired, f.store.batch("B-viejo").Status)
	assert.Equal(t, entity.SuggestionExpired, f.store.suggestion("S").Status)
}

func TestQueries_ListPendingYRanking(t *testing.T) {
	f := newFixture()
	f.store.addProduct("P", "Pan")
	f.store.addBatch("B1", "P", 10, f.now.Add(2*24*time.Hour))
	f.store.addHistory("R1", "P", 20, 15)
	f.store.addHistory("R2", "P", 10, 10)
	_, err := f.engine.Suggest(context.Background(), "P", "B1")
	require.NoError(t, err)

	list, err := f.queries.ListPending(context.Background(), "R2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Pan", list[0].ProductName)
	assert.Equal(t, "L-B1", list[0].BatchCode)

	empty, err := f.queries.ListPending(context.Background(), "R1")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = f.queries.ListPending(context.Background(), "desconocido")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ranked, err := f.queries.Ranking(context.Background(), "P")
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "R2", ranked[0].RetailerID)

	_, err = f.queries.Ranking(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
