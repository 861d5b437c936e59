package catalog

import (
	"context"
	"testing"

	"shopcore.dev/internal/apperr"
	"shopcore.dev/internal/events"
)

// recordEvents subscribes a recorder for the given names and returns the
// slice it appends to.
func recordEvents(t *testing.T, bus *events.Bus, names ...events.Name) *[]events.Event {
	t.Helper()
	var seen []events.Event
	for _, name := range names {
		if err := bus.Subscribe(name, func(ctx context.Context, e events.Event) error {
			seen = append(seen, e)
			return nil
		}); err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	}
	return &seen
}

func TestCreateProductValidation(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, ProductInput{})
	if apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("missing sku and name must fail validation, got %v", err)
	}
	var coded *apperr.Error
	if e, ok := apperr.As(err); ok {
		coded = e
	}
	if coded == nil || len(coded.Fields) != 2 {
		t.Fatalf("expected field errors for sku and name, got %+v", coded)
	}

	sku, name := "SKU-1", "Widget"
	neg := int64(-1)
	if _, err := svc.CreateProduct(ctx, ProductInput{SKU: &sku, Name: &name, Price: &neg}); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("negative price must fail validation, got %v", err)
	}
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	store := newMemStore()
	store.addProduct("p_1", "SKU-1", 1000, 1, "")
	svc, _, _ := newTestService(store)

	sku, name := "SKU-1", "Widget"
	_, err := svc.CreateProduct(context.Background(), ProductInput{SKU: &sku, Name: &name})
	if apperr.CodeOf(err) != apperr.CodeConflict {
		t.Fatalf("duplicate sku must conflict, got %v", err)
	}
}

func TestUpdateProductEmitsPriceAndStockChanges(t *testing.T) {
	store := newMemStore()
	store.addProduct("p_1", "SKU-1", 1000, 5, "")
	svc, bus, _ := newTestService(store)
	seen := recordEvents(t, bus, events.ProductPriceChanged, events.ProductStockChanged)

	price := int64(1200)
	stock := 3
	p, err := svc.UpdateProduct(context.Background(), "p_1", ProductInput{Price: &price, Stock: &stock})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if p.Price != 1200 || p.Stock != 3 {
		t.Fatalf("unexpected product state: %+v", p)
	}
	if len(*seen) != 2 {
		t.Fatalf("expected price and stock events, got %d", len(*seen))
	}
	pc, ok := (*seen)[0].(*events.PriceChangeEvent)
	if !ok || pc.OldPrice != 1000 || pc.NewPrice != 1200 {
		t.Fatalf("unexpected price event: %+v", (*seen)[0])
	}
	sc, ok := (*seen)[1].(*events.StockChangeEvent)
	if !ok || sc.OldStock != 5 || sc.NewStock != 3 {
		t.Fatalf("unexpected stock event: %+v", (*seen)[1])
	}
}

func TestUpdateProductUnchangedPriceEmitsNoChangeEvent(t *testing.T) {
	store := newMemStore()
	store.addProduct("p_1", "SKU-1", 1000, 5, "")
	svc, bus, _ := newTestService(store)
	seen := recordEvents(t, bus, events.ProductPriceChanged, events.ProductStockChanged)

	name := "Renamed"
	if _, err := svc.UpdateProduct(context.Background(), "p_1", ProductInput{Name: &name}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if len(*seen) != 0 {
		t.Fatalf("no-op price/stock must not emit change events, got %d", len(*seen))
	}
}

func TestUpdatePriceAndStockHelpers(t *testing.T) {
	store := newMemStore()
	store.addProduct("p_1", "SKU-1", 1000, 5, "")
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	p, err := svc.UpdatePrice(ctx, "p_1", 900)
	if err != nil {
		t.Fatalf("UpdatePrice: %v", err)
	}
	if p.Price != 900 {
		t.Fatalf("expected price 900, got %d", p.Price)
	}
	p, err = svc.UpdateStock(ctx, "p_1", 0)
	if err != nil {
		t.Fatalf("UpdateStock: %v", err)
	}
	if p.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", p.Stock)
	}
}

func TestProductMutationInvalidatesCaches(t *testing.T) {
	store := newMemStore()
	store.addProduct("p_1", "SKU-1", 1000, 5, "")
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	if _, err := svc.GetProduct(ctx, "p_1"); err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if _, err := svc.ListProducts(ctx, ""); err != nil {
		t.Fatalf("ListProducts: %v", err)
	}

	price := int64(500)
	if _, err := svc.UpdateProduct(ctx, "p_1", ProductInput{Price: &price}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	p, err := svc.GetProduct(ctx, "p_1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Price != 500 {
		t.Fatalf("stale cached product after update: %+v", p)
	}
}

func TestDeleteProduct(t *testing.T) {
	store := newMemStore()
	store.addProduct("p_1", "SKU-1", 1000, 5, "")
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	if err := svc.DeleteProduct(ctx, "p_1"); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if _, err := svc.GetProduct(ctx, "p_1"); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.DeleteProduct(ctx, "p_1"); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
