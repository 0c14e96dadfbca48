package suggestion

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/retail-suggestions/internal/domain"
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// memState datos en memoria; memStore los protege con un mutex para emular escrituras atómicas.
type memState struct {
	products    map[string]*entity.Product
	retailers   map[string]*entity.Retailer
	batches     map[string]*entity.InventoryBatch
	purchases   []*entity.PurchaseRecord
	sold        map[string]map[string]int64 // producto → minorista → unidades
	suggestions map[string]*entity.Suggestion
}

func (s *memState) clone() *memState {
	c := &memState{
		products:    s.products,
		retailers:   s.retailers,
		sold:        s.sold,
		batches:     make(map[string]*entity.InventoryBatch, len(s.batches)),
		purchases:   append([]*entity.PurchaseRecord(nil), s.purchases...),
		suggestions: make(map[string]*entity.Suggestion, len(s.suggestions)),
	}
	for k, v := range s.batches {
		b := *v
		c.batches[k] = &b
	}
	for k, v := range s.suggestions {
		c.suggestions[k] = copySuggestion(v)
	}
	return c
}

type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *memState

	// failPurchaseCreate simula una caída entre el descuento de stock y el registro de la compra.
	failPurchaseCreate error
	// failProductLookup simula una caída del catálogo de productos.
	failProductLookup error
}

func newMemStore() *memStore {
	return &memStore{st: &memState{
		products:    map[string]*entity.Product{},
		retailers:   map[string]*entity.Retailer{},
		batches:     map[string]*entity.InventoryBatch{},
		sold:        map[string]map[string]int64{},
		suggestions: map[string]*entity.Suggestion{},
	}}
}

func (m *memStore) addProduct(id, name string) {
	m.st.products[id] = &entity.Product{ID: id, Name: name, Category: "lácteos", Price: decimal.NewFromInt(2500)}
}

func (m *memStore) addRetailer(id string) {
	m.st.retailers[id] = &entity.Retailer{ID: id, Name: "Tienda " + id, Location: "Bogotá", Active: true}
}

func (m *memStore) addBatch(id, productID string, qty int64, expiry time.Time) {
	m.st.batches[id] = &entity.InventoryBatch{
		ID: id, ProductID: productID, BatchCode: "L-" + id, Quantity: qty,
		ExpiryDate: expiry, Status: entity.BatchStatusInInventory,
	}
}

// addHistory registra compras y ventas históricas de un minorista para el producto.
func (m *memStore) addHistory(retailerID, productID string, purchased, sold int64) {
	if _, ok := m.st.retailers[retailerID]; !ok {
		m.addRetailer(retailerID)
	}
	if purchased > 0 {
		m.st.purchases = append(m.st.purchases, &entity.PurchaseRecord{
			ID: "hist-" + retailerID, RetailerID: retailerID, Source: entity.PurchaseSourceCheckout,
			Items: []entity.PurchaseItem{{
				ProductID: productID, Quantity: purchased, UnitPrice: decimal.NewFromInt(2000),
				Status: entity.PurchaseItemFulfilled,
			}},
		})
	}
	if sold > 0 {
		if m.st.sold[productID] == nil {
			m.st.sold[productID] = map[string]int64{}
		}
		m.st.sold[productID][retailerID] += sold
	}
}

func (m *memStore) putSuggestion(s *entity.Suggestion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.suggestions[s.ID] = copySuggestion(s)
}

func (m *memStore) suggestion(id string) *entity.Suggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.st.suggestions[id]; ok {
		return copySuggestion(s)
	}
	return nil
}

func (m *memStore) batch(id string) entity.InventoryBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.st.batches[id]
}

func (m *memStore) activeFor(productID, batchID string) []*entity.Suggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Suggestion
	for _, s := range m.st.suggestions {
		if s.ProductID == productID && s.InventoryBatchID == batchID && s.Status.IsActive() {
			out = append(out, copySuggestion(s))
		}
	}
	return out
}

func (m *memStore) purchaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.purchases)
}

func copySuggestion(s *entity.Suggestion) *entity.Suggestion {
	c := *s
	c.TriedRetailers = append([]string{}, s.TriedRetailers...)
	return &c
}

// ── repositorios ─────────────────────────────────────────────────────────────

type memProducts struct{ m *memStore }

func (r memProducts) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failProductLookup != nil {
		return nil, r.m.failProductLookup
	}
	if p, ok := r.m.st.products[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

type memRetailers struct{ m *memStore }

func (r memRetailers) GetByID(_ context.Context, id string) (*entity.Retailer, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if p, ok := r.m.st.retailers[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

type memSales struct{ m *memStore }

func (r memSales) SoldByRetailers(_ context.Context, productID string, ids []string) (map[string]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := map[string]int64{}
	for _, id := range ids {
		if n := r.m.st.sold[productID][id]; n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

type memBatches struct{ m *memStore }

func (r memBatches) GetByID(_ context.Context, id string) (*entity.InventoryBatch, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if b, ok := r.m.st.batches[id]; ok {
		c := *b
		return &c, nil
	}
	return nil, nil
}

func (r memBatches) FindAvailable(_ context.Context, productID, batchID string) (*entity.InventoryBatch, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var best *entity.InventoryBatch
	for _, b := range r.m.st.batches {
		if b.ProductID != productID || !b.IsAvailable() {
			continue
		}
		if batchID != "" && b.ID != batchID {
			continue
		}
		if best == nil || b.ExpiryDate.Before(best.ExpiryDate) {
			best = b
		}
	}
	if best == nil {
		return nil, nil
	}
	c := *best
	return &c, nil
}

func (r memBatches) ListExpiring(_ context.Context, from, to time.Time) ([]*entity.InventoryBatch, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*entity.InventoryBatch
	for _, b := range r.m.st.batches {
		if b.IsAvailable() && !b.ExpiryDate.Before(from) && !b.ExpiryDate.After(to) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].ExpiryDate.Before(out[j].ExpiryDate)
	})
	return out, nil
}

func (r memBatches) ExpirePast(_ context.Context, now time.Time) ([]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ids []string
	for _, b := range r.m.st.batches {
		if b.Status == entity.BatchStatusInInventory && b.ExpiryDate.Before(now) {
			b.Status = entity.BatchStatusExpired
			ids = append(ids, b.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r memBatches) DecrementIfSufficient(_ context.Context, batchID string, qty int64) (*entity.InventoryBatch, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.st.batches[batchID]
	if !ok || b.Status != entity.BatchStatusInInventory || b.Quantity < qty {
		return nil, domain.ErrInsufficientStock
	}
	b.Quantity -= qty
	if b.Quantity == 0 {
		b.Status = entity.BatchStatusSold
	}
	c := *b
	return &c, nil
}

type memPurchases struct{ m *memStore }

func (r memPurchases) TotalsByRetailer(_ context.Context, productID string) ([]repository.RetailerPurchaseTotal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	totals := map[string]int64{}
	for _, p := range r.m.st.purchases {
		for _, it := range p.Items {
			if it.ProductID == productID && it.Status != entity.PurchaseItemCancelled {
				totals[p.RetailerID] += it.Quantity
			}
		}
	}
	out := make([]repository.RetailerPurchaseTotal, 0, len(totals))
	for id, n := range totals {
		out = append(out, repository.RetailerPurchaseTotal{RetailerID: id, TotalPurchased: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RetailerID < out[j].RetailerID })
	return out, nil
}

func (r memPurchases) Create(_ context.Context, rec *entity.PurchaseRecord) error {
	if r.m.failPurchaseCreate != nil {
		return r.m.failPurchaseCreate
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.st.purchases = append(r.m.st.purchases, rec)
	return nil
}

type memSuggestions struct{ m *memStore }

func (r memSuggestions) activeLocked(productID, batchID string) *entity.Suggestion {
	for _, s := range r.m.st.suggestions {
		if s.ProductID == productID && s.InventoryBatchID == batchID && s.Status.IsActive() {
			return s
		}
	}
	return nil
}

func (r memSuggestions) Upsert(_ context.Context, in repository.UpsertSuggestion) (*entity.Suggestion, entity.SuggestionChange, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s := r.activeLocked(in.ProductID, in.InventoryBatchID)
	if s == nil {
		s = &entity.Suggestion{
			ID: in.ID, ProductID: in.ProductID, RetailerID: in.RetailerID,
			InventoryBatchID: in.InventoryBatchID, Quantity: in.Quantity,
			Status: entity.SuggestionPending, Attempts: 1, TriedRetailers: []string{},
			Version: 1, CreatedAt: in.Now, UpdatedAt: in.Now,
		}
		r.m.st.suggestions[s.ID] = s
		return copySuggestion(s), entity.ChangeCreated, nil
	}
	switch {
	case s.RetailerID != in.RetailerID:
		if !s.HasTried(s.RetailerID) {
			s.TriedRetailers = append(s.TriedRetailers, s.RetailerID)
		}
		s.RetailerID = in.RetailerID
		s.Quantity = in.Quantity
		s.Status = entity.SuggestionReassigned
		s.Attempts++
		s.Version++
		s.UpdatedAt = in.Now
		return copySuggestion(s), entity.ChangeReassigned, nil
	case s.Quantity != in.Quantity:
		s.Quantity = in.Quantity
		s.Version++
		s.UpdatedAt = in.Now
		return copySuggestion(s), entity.ChangeQuantityUpdated, nil
	}
	return copySuggestion(s), entity.ChangeUnchanged, nil
}

func (r memSuggestions) GetByID(_ context.Context, id string) (*entity.Suggestion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s, ok := r.m.st.suggestions[id]; ok {
		return copySuggestion(s), nil
	}
	return nil, nil
}

func (r memSuggestions) GetForUpdate(ctx context.Context, id string) (*entity.Suggestion, error) {
	return r.GetByID(ctx, id)
}

func (r memSuggestions) FindActive(_ context.Context, productID, batchID string) (*entity.Suggestion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s := r.activeLocked(productID, batchID); s != nil {
		return copySuggestion(s), nil
	}
	return nil, nil
}

func (r memSuggestions) FindLatest(_ context.Context, productID, batchID string) (*entity.Suggestion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var latest *entity.Suggestion
	for _, s := range r.m.st.suggestions {
		if s.ProductID != productID || s.InventoryBatchID != batchID {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) ||
			(s.UpdatedAt.Equal(latest.UpdatedAt) && s.CreatedAt.After(latest.CreatedAt)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copySuggestion(latest), nil
}

func statusIn(st entity.SuggestionStatus, set []entity.SuggestionStatus) bool {
	for _, x := range set {
		if x == st {
			return true
		}
	}
	return false
}

func (r memSuggestions) Reassign(_ context.Context, id string, ver int64, retailerID string, qty int64, now time.Time) (*entity.Suggestion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.st.suggestions[id]
	if !ok || s.Version != ver || !statusIn(s.Status, reassignable) {
		return nil, domain.ErrConcurrentWrite
	}
	if other := r.activeLocked(s.ProductID, s.InventoryBatchID); other != nil && other.ID != s.ID {
		return nil, domain.ErrDuplicate
	}
	if !s.HasTried(s.RetailerID) {
		s.TriedRetailers = append(s.TriedRetailers, s.RetailerID)
	}
	s.RetailerID = retailerID
	s.Quantity = qty
	s.Status = entity.SuggestionReassigned
	s.Attempts++
	s.Version++
	s.UpdatedAt = now
	return copySuggestion(s), nil
}

func (r memSuggestions) Transition(_ context.Context, id string, ver int64, from []entity.SuggestionStatus, to entity.SuggestionStatus, now time.Time) (*entity.Suggestion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.st.suggestions[id]
	if !ok || s.Version != ver || !statusIn(s.Status, from) {
		return nil, domain.ErrConcurrentWrite
	}
	s.Status = to
	s.Version++
	s.UpdatedAt = now
	return copySuggestion(s), nil
}

func (r memSuggestions) view(s *entity.Suggestion) repository.SuggestionView {
	v := repository.SuggestionView{Suggestion: *copySuggestion(s)}
	if p, ok := r.m.st.products[s.ProductID]; ok {
		v.ProductName, v.ProductCategory = p.Name, p.Category
	}
	if b, ok := r.m.st.batches[s.InventoryBatchID]; ok {
		v.BatchCode, v.ExpiryDate = b.BatchCode, b.ExpiryDate
	}
	return v
}

func (r memSuggestions) ListActiveByRetailer(_ context.Context, retailerID string) ([]repository.SuggestionView, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []repository.SuggestionView
	for _, s := range r.m.st.suggestions {
		if s.RetailerID == retailerID && s.Status.IsActive() {
			out = append(out, r.view(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memSuggestions) ListByStatus(_ context.Context, status entity.SuggestionStatus, limit, offset int) ([]repository.SuggestionView, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []repository.SuggestionView
	for _, s := range r.m.st.suggestions {
		if s.Status == status {
			out = append(out, r.view(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memSuggestions) ListForSweep(_ context.Context, staleBefore time.Time, limit int) ([]*entity.Suggestion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*entity.Suggestion
	for _, s := range r.m.st.suggestions {
		if s.Status == entity.SuggestionRejected || (s.Status.IsActive() && s.UpdatedAt.Before(staleBefore)) {
			out = append(out, copySuggestion(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memSuggestions) ExpireActiveByBatches(_ context.Context, batchIDs []string, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	set := map[string]bool{}
	for _, id := range batchIDs {
		set[id] = true
	}
	var n int64
	for _, s := range r.m.st.suggestions {
		if set[s.InventoryBatchID] && s.Status.IsActive() {
			s.Status = entity.SuggestionExpired
			s.Version++
			s.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// memTxRunner ejecuta fn sobre una copia del estado y solo la publica si fn termina sin error.
type memTxRunner struct{ m *memStore }

func (t memTxRunner) Run(ctx context.Context, fn func(
	batchRepo repository.InventoryBatchRepository,
	purchaseRepo repository.PurchaseRepository,
	suggestionRepo repository.SuggestionRepository,
) error) error {
	t.m.txMu.Lock()
	defer t.m.txMu.Unlock()

	t.m.mu.Lock()
	tx := &memStore{st: t.m.st.clone(), failPurchaseCreate: t.m.failPurchaseCreate}
	t.m.mu.Unlock()

	if err := fn(memBatches{tx}, memPurchases{tx}, memSuggestions{tx}); err != nil {
		return err
	}
	t.m.mu.Lock()
	t.m.st = tx.st
	t.m.mu.Unlock()
	return nil
}

// ── notificador y ranker de prueba ───────────────────────────────────────────

type notification struct {
	RetailerID string
	Message    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, retailerID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification{RetailerID: retailerID, Message: message})
	return nil
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.RetailerID)
	}
	return out
}

var errBoom = errors.New("falla simulada")

// fixture conecta los casos de uso a un memStore con reloj fijo.
type fixture struct {
	store    *memStore
	notifier *recordingNotifier
	now      time.Time

	engine       *Engine
	fallback     *FallbackHandler
	confirmation *ConfirmationHandler
	expiring     *ExpiringUseCase
	queries      *QueryUseCase
}

func newFixture() *fixture {
	store := newMemStore()
	notifier := &recordingNotifier{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()
	log := zerolog.Nop()

	ranker := NewRetailerRanker(memPurchases{store}, memSales{store}, cfg.MaxCandidates)
	engine := NewEngine(memProducts{store}, memBatches{store}, memRetailers{store}, memSuggestions{store},
		ranker, notifier, nil, cfg, log)
	fallback := NewFallbackHandler(memProducts{store}, memBatches{store}, memSuggestions{store},
		ranker, notifier, nil, cfg, log)
	confirmation := NewConfirmationHandler(memTxRunner{store}, memSuggestions{store}, memProducts{store},
		fallback, nil, cfg, log)
	expiring := NewExpiringUseCase(engine, memBatches{store}, memSuggestions{store}, nil, cfg, log)
	queries := NewQueryUseCase(memSuggestions{store}, memProducts{store}, memRetailers{store}, ranker)

	f := &fixture{
		store: store, notifier: notifier, now: now,
		engine: engine, fallback: fallback, confirmation: confirmation, expiring: expiring, queries: queries,
	}
	clock := func() time.Time { return f.now }
	engine.now, fallback.now, confirmation.now, expiring.now = clock, clock, clock, clock
	return f
}
