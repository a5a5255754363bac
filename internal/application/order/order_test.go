package order_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	"github.com/Zhima-Mochi/minishop-inventory/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-inventory/internal/application/order"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-inventory/internal/domain/outbox"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/memory"

	"github.com/shopspring/decimal"
)

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID() string { return fmt.Sprintf("order-%d", s.n.Add(1)) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

type fixture struct {
	store     *memory.Store
	published *recordingPublisher
	create    *apporder.CreateOrderUseCase
	cancel    *apporder.CancelOrderUseCase
	setStatus *apporder.SetOrderStatusUseCase
	get       *apporder.GetOrderUseCase
	list      *apporder.ListOrdersUseCase
}

func newFixture(t *testing.T, policy apporder.Policy) *fixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	events := application.NewEventPublisher(pub, nil)
	ledger := inventory.NewLedger(nil)
	return &fixture{
		store:     store,
		published: pub,
		create:    apporder.NewCreateOrderUseCase(store, ledger, &seqIDs{}, events, nil),
		cancel:    apporder.NewCancelOrderUseCase(store, ledger, policy, events, nil),
		setStatus: apporder.NewSetOrderStatusUseCase(store, ledger, policy, events, nil),
		get:       apporder.NewGetOrderUseCase(store, nil),
		list:      apporder.NewListOrdersUseCase(store, nil),
	}
}

func (f *fixture) seedProduct(t *testing.T, id string, stock int) {
	t.Helper()
	p, err := domproduct.New(id, "SKU-"+id, "Widget "+id, decimal.RequireFromString("5.00"), stock)
	if err != nil {
		t.Fatalf("new product: %v", err)
	}
	err = f.store.Atomic(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		return repos.Products().Insert(ctx, p)
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	var stock int
	err := f.store.Atomic(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		p, err := repos.Products().Get(ctx, id)
		if err != nil {
			return err
		}
		stock = p.Stock
		return nil
	})
	if err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	out, err := f.list.Execute(context.Background(), apporder.ListOrdersInput{Limit: inventory.MaxListLimit})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return len(out)
}

func TestCreateOrderReservesStock(t *testing.T) {
	f := newFixture(t, apporder.DefaultPolicy())
	f.seedProduct(t, "p1", 10)

	o, err := f.create.Execute(context.Background(), apporder.CreateOrderInput{ProductID: "p1", Quantity: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != domorder.StatusPending || o.Reserved != 3 {
		t.Fatalf("order = %+v", o)
	}
	if got := f.stock(t, "p1"); got != 7 {
		t.Fatalf("stock = %d, want 7", got)
	}

	stored, err := f.get.Execute(context.Background(), apporder.GetOrderInput{ID: o.ID})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Quantity != 3 || stored.ProductID != "p1" {
		t.Fatalf("stored = %+v", stored)
	}

	names := f.published.names()
	if len(names) != 1 || names[0] != "order.created" {
		t.Fatalf("published %v", names)
	}
	created := f.published.events[0].(domorder.OrderCreatedEvent)
	if created.RemainingStock != 7 {
		t.Fatalf("remaining stock in event = %d", created.RemainingStock)
	}
}

func TestCreateOrderInsufficientStockLeavesNothing(t *testing.T) {
	f := newFixture(t, apporder.DefaultPolicy())
	f.seedProduct(t, "p1", 2)

	_, err := f.create.Execute(context.Background(), apporder.CreateOrderInput{ProductID: "p1", Quantity: 3})
	var serr *domproduct.InsufficientStockError
	if !errors.As(err, &serr) {
		t.Fatalf("want *InsufficientStockError, got %v", err)
	}
	if serr.Requested != 3 || serr.Available != 2 {
		t.Fatalf("detail = %+v", serr)
	}
	if got := f.stock(t, "p1"); got != 2 {
		t.Fatalf("stock = %d, want 2", got)
	}
	if n := f.orderCount(t); n != 0 {
		t.Fatalf("orders = %d, want 0", n)
	}
	if len(f.published.names()) != 0 {
		t.Fatalf("failed create published events")
	}
}

func TestCreateOrderErrors(t *testing.T) {
	f := newFixture(t, apporder.DefaultPolicy())
	f.seedProduct(t, "p1", 2)
	ctx := context.Background()

	if _, err := f.create.Execute(ctx, apporder.CreateOrderInput{ProductID: "missing", Quantity: 1}); !errors.Is(err, domproduct.ErrNotFound) {
		t.Fatalf("unknown product: %v", err)
	}
	if _, err := f.create.Execute(ctx, apporder.CreateOrderInput{ProductID: "p1", Quantity: 0}); !errors.Is(err, application.ErrValidation) {
		t.Fatalf("zero quantity: %v", err)
	}
	if _, err := f.create.Execute(ctx, apporder.CreateOrderInput{Quantity: 1}); !errors.Is(err, application.ErrValidation) {
		t.Fatalf("missing product id: %v", err)
	}
	if got := f.stock(t, "p1"); got != 2 {
		t.Fatalf("stock = %d", got)
	}
}

func TestConcurrentCreateNeverOversells(t *testing.T) {
	f := newFixture(t, apporder.DefaultPolicy())
	f.seedProduct(t, "p1", 10)

	const buyers = 25
	var (
		wg           sync.WaitGroup
		ok, rejected atomic.Int64
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.create.Execute(context.Background(), apporder.CreateOrderInput{ProductID: "p1", Quantity: 1})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domproduct.ErrInsufficientStock):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 10 || rejected.Load() != buyers-10 {
		t.Fatalf("ok=%d rejected=%d", ok.Load(), rejected.Load())
	}
	if got := f.stock(t, "p1"); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
	if n := f.orderCount(t); n != 10 {
		t.Fatalf("orders = %d, want 10", n)
	}
}

func TestCancelPendingRestoresStockOnce(t *testing.T) {
	f := newFixture(t, apporder.DefaultPolicy())
	f.seedProduct(t, "p1", 5)
	ctx := context.Background()

	o, err := f.create.Execute(ctx, apporder.CreateOrderInput{ProductID: "p1", Quantity: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	canceled, err := f.cancel.Execute(ctx, apporder.CancelOrderInput{ID: o.ID})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != domorder.StatusCanceled || canceled.Reserved != 0 {
		t.Fatalf("canceled = %+v", canceled)
	}
	if got := f.stock(t, "p1"); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}

	_, err = f.cancel.Execute(ctx, apporder.CancelOrderInput{ID: o.ID})
	var terr *domorder.TransitionError
	if !errors.As(err, &terr) || terr.Current != domorder.StatusCanceled {
		t.Fatalf("second cancel: %v", err)
	}
	if got := f.stock(t, "p1"); got != 5 {
		t.Fatalf("stock after second cancel = %d, want 5", got)
	}

	ev := f.published.events[len(f.published.events)-1].(domorder.OrderCanceledEvent)
	if ev.Released != 4 || ev.PreviousStatus != domorder.StatusPending {
		t.Fatalf("canceled event = %+v", ev)
	}
}

func TestCancelPaidFollowsPolicy(t *testing.T) {
	for _, release := range []bool{true, false} {
		f := newFixture(t, apporder.Policy{ReleaseOnPaidCancel: release})
		f.seedProduct(t, "p1", 5)
		ctx := context.Background()

		o, err := f.create.Execute(ctx, apporder.CreateOrderInput{ProductID: "p1", Quantity: 2})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := f.setStatus.Execute(ctx, apporder.SetOrderStatusInput{ID: o.ID, Status: "PAID"}); err != nil {
			t.Fatalf("pay: %v", err)
		}
		if _, err := f.cancel.Execute(ctx, apporder.CancelOrderInput{ID: o.ID}); err != nil {
			t.Fatalf("cancel paid: %v", err)
		}

		want := 3
		if release {
			want = 5
		}
		if got := f.stock(t, "p1"); got != want {
			t.Fatalf("release=%v: stock = %d, want %d", release, got, want)
		}
	}
}

func TestCancelShippedIsRejected(t *testing.T) {
	f := newFixture(t, apporder.DefaultPolicy())
	f.seedProduct(t, "p1", 5)
	ctx := context.Background()

	o, _ := f.create.Execute(ctx, apporder.CreateOrderInput{ProductID: "p1", Quantity: 1})
	for _, s := range []string{"PAID", "SHIPPED"} {
		if _, err := f.setStatus.Execute(ctx, apporder.SetOrderStatusInput{ID: o.ID, Status: s}); err != nil {
			t.Fatalf("set %s: %v", s, err)
		}
	}

	if _, err := f.cancel.Execute(ctx, apporder.CancelOrderInput{ID: o.ID}); !errors.Is(err, domorder.ErrInvalidTransition) {
		t.Fatalf("cancel shipped: %v", err)
	}
	if got := f.stock(t, "p1"); got != 4 {
		t.Fatalf("stock = %d, want 4", got)
	}
	got, _ := f.get.Execute(ctx, apporder.GetOrderInput{ID: o.ID})
	if got.Status != domorder.StatusShipped {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	f := newFixture(t, apporder.DefaultPolicy())
	if _, err := f.cancel.Execute(context.Background(), apporder.CancelOrderInput{ID: "nope"}); !errors.Is(err, domorder.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSetOrderStatus(t *testing.T) {
	f := newFixture(t, apporder.DefaultPolicy())
	f.seedProduct(t, "p1", 5)
	ctx := context.Background()

	o, _ := f.create.Execute(ctx, apporder.CreateOrderInput{ProductID: "p1", Quantity: 1})

	_, err := f.setStatus.Execute(ctx, apporder.SetOrderStatusInput{ID: o.ID, Status: "SHIPPED"})
	var terr *domorder.TransitionError
	if !errors.As(err, &terr) || terr.Current != domorder.StatusPending || terr.Requested != domorder.StatusShipped {
		t.Fatalf("PENDING -> SHIPPED: %v", err)
	}

	if _, err := f.setStatus.Execute(ctx, apporder.SetOrderStatusInput{ID: o.ID, Status: "pending"}); !errors.Is(err, domorder.ErrInvalidTransition) {
		t.Fatalf("PENDING -> PENDING: %v", err)
	}
	if _, err := f.setStatus.Execute(ctx, apporder.SetOrderStatusInput{ID: o.ID, Status: "LOST"}); !errors.Is(err, application.ErrValidation) {
		t.Fatalf("unknown status: %v", err)
	}

	paid, err := f.setStatus.Execute(ctx, apporder.SetOrderStatusInput{ID: o.ID, Status: "paid"})
	if err != nil || paid.Status != domorder.StatusPaid {
		t.Fatalf("pay: %+v %v", paid, err)
	}
	shipped, err := f.setStatus.Execute(ctx, apporder.SetOrderStatusInput{ID: o.ID, Status: "SHIPPED"})
	if err != nil || shipped.Status != domorder.StatusShipped {
		t.Fatalf("ship: %+v %v", shipped, err)
	}
	// Shipping consumes the reservation for good.
	if got := f.stock(t, "p1"); got != 4 {
		t.Fatalf("stock = %d, want 4", got)
	}

	want := []string{"order.created", "order.paid", "order.shipped"}
	got := f.published.names()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
}

func TestSetOrderStatusCanceledReleasesStock(t *testing.T) {
	f := newFixture(t, apporder.DefaultPolicy())
	f.seedProduct(t, "p1", 5)
	ctx := context.Background()

	o, _ := f.create.Execute(ctx, apporder.CreateOrderInput{ProductID: "p1", Quantity: 5})
	if got := f.stock(t, "p1"); got != 0 {
		t.Fatalf("stock = %d", got)
	}
	res, err := f.setStatus.Execute(ctx, apporder.SetOrderStatusInput{ID: o.ID, Status: "CANCELED"})
	if err != nil || res.Status != domorder.StatusCanceled {
		t.Fatalf("cancel via status: %+v %v", res, err)
	}
	if got := f.stock(t, "p1"); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}

func TestCanceledContextAppliesNothing(t *testing.T) {
	f := newFixture(t, apporder.DefaultPolicy())
	f.seedProduct(t, "p1", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.create.Execute(ctx, apporder.CreateOrderInput{ProductID: "p1", Quantity: 2}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if got := f.stock(t, "p1"); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
	if n := f.orderCount(t); n != 0 {
		t.Fatalf("orders = %d", n)
	}
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	f := newFixture(t, apporder.DefaultPolicy())
	f.seedProduct(t, "p1", 10)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		o, err := f.create.Execute(ctx, apporder.CreateOrderInput{ProductID: "p1", Quantity: 1})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, o.ID)
	}
	if _, err := f.cancel.Execute(ctx, apporder.CancelOrderInput{ID: ids[1]}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	pending, err := f.list.Execute(ctx, apporder.ListOrdersInput{Status: "pending"})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	canceled, _ := f.list.Execute(ctx, apporder.ListOrdersInput{Status: "CANCELED"})
	if len(canceled) != 1 || canceled[0].ID != ids[1] {
		t.Fatalf("canceled = %v", canceled)
	}

	page, _ := f.list.Execute(ctx, apporder.ListOrdersInput{Offset: 1, Limit: 1})
	if len(page) != 1 {
		t.Fatalf("page = %d", len(page))
	}

	if _, err := f.list.Execute(ctx, apporder.ListOrdersInput{Status: "LOST"}); !errors.Is(err, application.ErrValidation) {
		t.Fatalf("bad status: %v", err)
	}
	if _, err := f.list.Execute(ctx, apporder.ListOrdersInput{Limit: inventory.MaxListLimit + 1}); !errors.Is(err, application.ErrValidation) {
		t.Fatalf("bad limit: %v", err)
	}
}
