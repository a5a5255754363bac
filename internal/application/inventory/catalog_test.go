package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	"github.com/Zhima-Mochi/minishop-inventory/internal/application/inventory"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/memory"

	"github.com/shopspring/decimal"
)

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("prod-%d", s.n)
}

func createProduct(t *testing.T, store application.Store, ids *seqIDs, sku string, stock int) *domproduct.Product {
	t.Helper()
	p, err := inventory.NewCreateProductUseCase(store, ids, nil).Execute(context.Background(), inventory.CreateProductInput{
		SKU:   sku,
		Name:  "Item " + sku,
		Price: decimal.RequireFromString("3.50"),
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("create %s: %v", sku, err)
	}
	return p
}

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	store := memory.NewStore()
	ids := &seqIDs{}
	createProduct(t, store, ids, "A-1", 1)

	_, err := inventory.NewCreateProductUseCase(store, ids, nil).Execute(context.Background(), inventory.CreateProductInput{
		SKU: "A-1", Name: "Other", Price: decimal.RequireFromString("1"), Stock: 0,
	})
	if !errors.Is(err, domproduct.ErrDuplicateSKU) {
		t.Fatalf("want ErrDuplicateSKU, got %v", err)
	}

	_, err = inventory.NewCreateProductUseCase(store, ids, nil).Execute(context.Background(), inventory.CreateProductInput{
		SKU: "B-1", Name: "Free", Price: decimal.Zero, Stock: 0,
	})
	if !errors.Is(err, application.ErrValidation) || !errors.Is(err, domproduct.ErrInvalidPrice) {
		t.Fatalf("zero price: %v", err)
	}
}

func TestUpdateProduct(t *testing.T) {
	store := memory.NewStore()
	p := createProduct(t, store, &seqIDs{}, "A-1", 1)
	uc := inventory.NewUpdateProductUseCase(store, nil)
	ctx := context.Background()

	name := "Renamed"
	stock := 25
	price := decimal.RequireFromString("4.25")
	got, err := uc.Execute(ctx, inventory.UpdateProductInput{ID: p.ID, Name: &name, Stock: &stock, Price: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != name || got.Stock != 25 || !got.Price.Equal(price) || got.SKU != "A-1" {
		t.Fatalf("updated = %+v", got)
	}

	same := "A-1"
	if _, err := uc.Execute(ctx, inventory.UpdateProductInput{ID: p.ID, SKU: &same}); err != nil {
		t.Fatalf("unchanged sku: %v", err)
	}
	other := "A-2"
	if _, err := uc.Execute(ctx, inventory.UpdateProductInput{ID: p.ID, SKU: &other, Name: &name}); !errors.Is(err, application.ErrValidation) {
		t.Fatalf("sku change: %v", err)
	}
	negative := -1
	if _, err := uc.Execute(ctx, inventory.UpdateProductInput{ID: p.ID, Stock: &negative}); !errors.Is(err, application.ErrValidation) {
		t.Fatalf("negative stock: %v", err)
	}
	if _, err := uc.Execute(ctx, inventory.UpdateProductInput{ID: "missing", Name: &name}); !errors.Is(err, domproduct.ErrNotFound) {
		t.Fatalf("missing: %v", err)
	}

	stored, _ := inventory.NewGetProductUseCase(store, nil).Execute(ctx, inventory.GetProductInput{ID: p.ID})
	if stored.Stock != 25 {
		t.Fatalf("rejected update leaked: stock = %d", stored.Stock)
	}
}

func TestDeleteProductInUse(t *testing.T) {
	store := memory.NewStore()
	p := createProduct(t, store, &seqIDs{}, "A-1", 5)
	ctx := context.Background()

	o, _ := domorder.New("o-1", p.ID, 1)
	err := store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		return repos.Orders().Insert(ctx, o)
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	del := inventory.NewDeleteProductUseCase(store, nil)
	if _, err := del.Execute(ctx, inventory.DeleteProductInput{ID: p.ID}); !errors.Is(err, domproduct.ErrInUse) {
		t.Fatalf("delete with open order: %v", err)
	}

	err = store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		o.Status = domorder.StatusCanceled
		return repos.Orders().Update(ctx, o)
	})
	if err != nil {
		t.Fatalf("close order: %v", err)
	}
	if _, err := del.Execute(ctx, inventory.DeleteProductInput{ID: p.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := inventory.NewGetProductUseCase(store, nil).Execute(ctx, inventory.GetProductInput{ID: p.ID}); !errors.Is(err, domproduct.ErrNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
	if _, err := del.Execute(ctx, inventory.DeleteProductInput{ID: p.ID}); !errors.Is(err, domproduct.ErrNotFound) {
		t.Fatalf("delete twice: %v", err)
	}

	// The SKU is free again once the product is gone.
	createProduct(t, store, &seqIDs{n: 10}, "A-1", 1)
}

func TestListProductsPages(t *testing.T) {
	store := memory.NewStore()
	ids := &seqIDs{}
	for i := 0; i < 5; i++ {
		createProduct(t, store, ids, fmt.Sprintf("S-%d", i), i)
	}
	list := inventory.NewListProductsUseCase(store, nil)
	ctx := context.Background()

	all, err := list.Execute(ctx, inventory.ListProductsInput{})
	if err != nil || len(all) != 5 {
		t.Fatalf("list all: %d %v", len(all), err)
	}
	page, _ := list.Execute(ctx, inventory.ListProductsInput{Offset: 3, Limit: 10})
	if len(page) != 2 {
		t.Fatalf("page = %d, want 2", len(page))
	}
	empty, _ := list.Execute(ctx, inventory.ListProductsInput{Offset: 50})
	if len(empty) != 0 {
		t.Fatalf("past the end = %d", len(empty))
	}
	if _, err := list.Execute(ctx, inventory.ListProductsInput{Offset: -1}); !errors.Is(err, application.ErrValidation) {
		t.Fatalf("negative offset: %v", err)
	}
}

func TestPage(t *testing.T) {
	off, lim, err := inventory.Page(0, 0)
	if err != nil || off != 0 || lim != inventory.DefaultListLimit {
		t.Fatalf("defaults: %d %d %v", off, lim, err)
	}
	if _, _, err := inventory.Page(0, inventory.MaxListLimit+1); !errors.Is(err, application.ErrValidation) {
		t.Fatalf("limit over max: %v", err)
	}
}

func TestLedgerReleaseIsExact(t *testing.T) {
	store := memory.NewStore()
	p := createProduct(t, store, &seqIDs{}, "A-1", 10)
	ledger := inventory.NewLedger(nil)
	ctx := context.Background()

	o, _ := domorder.New("o-1", p.ID, 4)
	err := store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		if _, err := ledger.Reserve(ctx, repos, p.ID, 4); err != nil {
			return err
		}
		o.Reserved = 4
		released, err := ledger.Release(ctx, repos, o)
		if err != nil {
			return err
		}
		if released != 4 || o.Reserved != 0 {
			return fmt.Errorf("released %d, left %d", released, o.Reserved)
		}
		again, err := ledger.Release(ctx, repos, o)
		if err != nil || again != 0 {
			return fmt.Errorf("second release %d, %v", again, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	stored, _ := inventory.NewGetProductUseCase(store, nil).Execute(ctx, inventory.GetProductInput{ID: p.ID})
	if stored.Stock != 10 {
		t.Fatalf("stock = %d, want 10", stored.Stock)
	}
}
