package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws/awstest"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/carts"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/idempotency"
)

const (
	ordersTable   = "orders-table"
	cartsTable    = "carts-table"
	productsTable = "products-table"
	idemTable     = "idem-table"
)

func newTestStore(t *testing.T) (*Store, *carts.Store, *awstest.DynamoDB) {
	t.Helper()
	db := awstest.NewDynamoDB(map[string]string{
		ordersTable:   "order_id",
		cartsTable:    "user_id",
		productsTable: "id",
		idemTable:     "idempotency_key",
	})
	s := NewStore(db, Tables{Orders: ordersTable, Carts: cartsTable, Products: productsTable})
	return s, carts.NewStore(db, cartsTable), db
}

func seedProduct(t *testing.T, db *awstest.DynamoDB, id string, qty int) {
	t.Helper()
	av, err := attributevalue.MarshalMap(map[string]interface{}{"id": id, "name": id, "price": 10.0, "quantity": qty})
	if err != nil {
		t.Fatalf("marshal product: %v", err)
	}
	db.Seed(productsTable, av)
}

func stock(t *testing.T, db *awstest.DynamoDB, id string) int {
	t.Helper()
	var p struct {
		Quantity int `dynamodbav:"quantity"`
	}
	if err := attributevalue.UnmarshalMap(db.Item(productsTable, id), &p); err != nil {
		t.Fatalf("unmarshal product: %v", err)
	}
	return p.Quantity
}

func putCart(t *testing.T, cs *carts.Store, userID string, lines ...carts.LineItem) *carts.Cart {
	t.Helper()
	c := &carts.Cart{UserID: userID}
	for _, l := range lines {
		c.Add(l)
	}
	if err := cs.Put(context.Background(), c); err != nil {
		t.Fatalf("put cart: %v", err)
	}
	stored, err := cs.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	return stored
}

func TestCheckout_CreatesOrderAndDeletesCart(t *testing.T) {
	s, cs, _ := newTestStore(t)
	ctx := context.Background()

	cart := putCart(t, cs, "u1",
		carts.LineItem{ProductID: "p1", ProductName: "Milk", ProductPrice: 100, Discount: 10, Quantity: 2},
		carts.LineItem{ProductID: "p2", ProductName: "Eggs", ProductPrice: 50, Quantity: 1},
	)

	o := &Order{OrderID: "o1", UserID: "u1", AddressID: "a1", PaymentID: "pay1", Tip: 5}
	if err := s.Checkout(ctx, o, cart, nil); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if o.Total != 230 {
		t.Fatalf("expected total 230, got %v", o.Total)
	}

	got, err := s.Get(ctx, "o1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusPending || len(got.Items) != 2 || got.Items[0].EffectivePrice != 90 {
		t.Fatalf("unexpected order: %+v", got)
	}
	if _, err := cs.Get(ctx, "u1"); !errors.Is(err, carts.ErrNotFound) {
		t.Fatalf("expected cart deleted, got %v", err)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	s, _, db := newTestStore(t)
	err := s.Checkout(context.Background(), &Order{OrderID: "o1"}, &carts.Cart{UserID: "u1"}, nil)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if db.TransactCalls != 0 {
		t.Fatalf("expected no transaction")
	}
}

func TestCheckout_CartChangedAfterRead(t *testing.T) {
	s, cs, db := newTestStore(t)
	ctx := context.Background()

	cart := putCart(t, cs, "u1", carts.LineItem{ProductID: "p1", ProductPrice: 10, Quantity: 1})

	// concurrent modification
	s2 := carts.NewStore(db, cartsTable)
	newer := *cart
	newer.Items = append([]carts.LineItem(nil), cart.Items...)
	newer.Items[0].Quantity = 3
	time.Sleep(time.Millisecond)
	if err := s2.Put(ctx, &newer); err != nil {
		t.Fatalf("put: %v", err)
	}

	err := s.Checkout(ctx, &Order{OrderID: "o1", UserID: "u1"}, cart, nil)
	if !errors.Is(err, ErrCartChanged) {
		t.Fatalf("expected ErrCartChanged, got %v", err)
	}
	if db.Len(ordersTable) != 0 {
		t.Fatalf("order must not be written")
	}
	if db.Len(cartsTable) != 1 {
		t.Fatalf("cart must survive")
	}
}

func TestCheckout_IdempotencyKeyReused(t *testing.T) {
	s, cs, db := newTestStore(t)
	ctx := context.Background()
	idem := idempotency.NewStore(db, idemTable, time.Hour)

	put, err := idem.TransactPut("key-1", "o1")
	if err != nil {
		t.Fatalf("TransactPut: %v", err)
	}
	cart := putCart(t, cs, "u1", carts.LineItem{ProductID: "p1", ProductPrice: 10, Quantity: 1})
	if err := s.Checkout(ctx, &Order{OrderID: "o1", UserID: "u1"}, cart, &put); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	rec, err := idem.Get(ctx, "key-1")
	if err != nil || rec == nil || rec.OrderID != "o1" {
		t.Fatalf("expected idempotency record for o1, got %+v err=%v", rec, err)
	}

	put2, _ := idem.TransactPut("key-1", "o2")
	cart = putCart(t, cs, "u1", carts.LineItem{ProductID: "p1", ProductPrice: 10, Quantity: 1})
	err = s.Checkout(ctx, &Order{OrderID: "o2", UserID: "u1"}, cart, &put2)
	if !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}
	if db.Len(ordersTable) != 1 {
		t.Fatalf("expected a single order, got %d", db.Len(ordersTable))
	}
}

func TestCheckout_TransactFailure(t *testing.T) {
	s, cs, db := newTestStore(t)
	cart := putCart(t, cs, "u1", carts.LineItem{ProductID: "p1", ProductPrice: 10, Quantity: 1})
	db.FailOn("TransactWriteItems", &types.InternalServerError{})

	err := s.Checkout(context.Background(), &Order{OrderID: "o1", UserID: "u1"}, cart, nil)
	if err == nil || errors.Is(err, ErrCartChanged) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func checkoutOrder(t *testing.T, s *Store, cs *carts.Store, orderID, userID string, lines ...carts.LineItem) {
	t.Helper()
	cart := putCart(t, cs, userID, lines...)
	if err := s.Checkout(context.Background(), &Order{OrderID: orderID, UserID: userID}, cart, nil); err != nil {
		t.Fatalf("Checkout %s: %v", orderID, err)
	}
}

func TestAccept_DecrementsStock(t *testing.T) {
	s, cs, db := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, db, "p1", 5)
	seedProduct(t, db, "p2", 1)

	checkoutOrder(t, s, cs, "o1", "u1",
		carts.LineItem{ProductID: "p1", ProductPrice: 10, Quantity: 3},
		carts.LineItem{ProductID: "p2", ProductPrice: 10, Quantity: 1},
	)

	o, err := s.UpdateStatus(ctx, "o1", StatusAccepted)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if o.Status != StatusAccepted {
		t.Fatalf("expected Accepted, got %s", o.Status)
	}
	if got := stock(t, db, "p1"); got != 2 {
		t.Fatalf("p1 stock: expected 2, got %d", got)
	}
	if got := stock(t, db, "p2"); got != 0 {
		t.Fatalf("p2 stock: expected 0, got %d", got)
	}

	// accepting twice must not decrement again
	if _, err := s.Accept(ctx, "o1"); !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}
	if got := stock(t, db, "p1"); got != 2 {
		t.Fatalf("p1 stock changed on second accept: %d", got)
	}
}

func TestAccept_InsufficientStockWritesNothing(t *testing.T) {
	s, cs, db := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, db, "p1", 5)
	seedProduct(t, db, "p2", 1)

	checkoutOrder(t, s, cs, "o1", "u1",
		carts.LineItem{ProductID: "p1", ProductPrice: 10, Quantity: 1},
		carts.LineItem{ProductID: "p2", ProductPrice: 10, Quantity: 2},
	)

	_, err := s.Accept(ctx, "o1")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := stock(t, db, "p1"); got != 5 {
		t.Fatalf("p1 stock must be untouched, got %d", got)
	}
	o, _ := s.Get(ctx, "o1")
	if o.Status != StatusPending {
		t.Fatalf("order must stay Pending, got %s", o.Status)
	}
}

func TestAccept_MissingProduct(t *testing.T) {
	s, cs, _ := newTestStore(t)
	checkoutOrder(t, s, cs, "o1", "u1", carts.LineItem{ProductID: "gone", ProductPrice: 10, Quantity: 1})

	if _, err := s.Accept(context.Background(), "o1"); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	s, cs, _ := newTestStore(t)
	ctx := context.Background()
	checkoutOrder(t, s, cs, "o1", "u1", carts.LineItem{ProductID: "p1", ProductPrice: 10, Quantity: 1})

	if _, err := s.UpdateStatus(ctx, "o1", "Shipped"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "missing", StatusDenied); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	o, err := s.UpdateStatus(ctx, "o1", StatusDenied)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if o.Status != StatusDenied || o.OrderID != "o1" {
		t.Fatalf("unexpected order %+v", o)
	}
	// non-Accepted transitions are unconditional
	if _, err := s.UpdateStatus(ctx, "o1", StatusPending); err != nil {
		t.Fatalf("UpdateStatus back to Pending: %v", err)
	}
}

func TestListQueries(t *testing.T) {
	s, cs, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.nowFunc = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	checkoutOrder(t, s, cs, "o1", "u1", carts.LineItem{ProductID: "p1", ProductPrice: 10, Quantity: 1})
	checkoutOrder(t, s, cs, "o2", "u1", carts.LineItem{ProductID: "p1", ProductPrice: 10, Quantity: 1})
	checkoutOrder(t, s, cs, "o3", "u2", carts.LineItem{ProductID: "p1", ProductPrice: 10, Quantity: 1})
	if _, err := s.UpdateStatus(ctx, "o3", StatusDenied); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	all, err := s.List(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("List: %v %d", err, len(all))
	}
	if all[0].OrderID != "o3" {
		t.Fatalf("expected newest first, got %s", all[0].OrderID)
	}

	mine, err := s.ListByUser(ctx, "u1")
	if err != nil || len(mine) != 2 || mine[0].OrderID != "o2" {
		t.Fatalf("ListByUser: %v %+v", err, mine)
	}

	pending, err := s.ListByStatus(ctx, StatusPending)
	if err != nil || len(pending) != 2 {
		t.Fatalf("ListByStatus: %v %d", err, len(pending))
	}
	if _, err := s.ListByStatus(ctx, "nope"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	none, err := s.ListByDeliveryMan(ctx, "d1")
	if err != nil || len(none) != 0 {
		t.Fatalf("ListByDeliveryMan: %v %d", err, len(none))
	}
}

func TestSnapshot_TotalIsSumOfLines(t *testing.T) {
	cart := &carts.Cart{UserID: "u1", Items: []carts.LineItem{
		{ProductID: "p1", ProductName: "Gum", ProductPrice: 0.99, Discount: 15, Quantity: 10},
		{ProductID: "p2", ProductName: "Tea", ProductPrice: 1.99, Discount: 33, Quantity: 3},
	}}

	items, total := Snapshot(cart)
	if items[0].EffectivePrice != 0.84 || items[0].LineTotal != 8.4 {
		t.Fatalf("unexpected first line %+v", items[0])
	}
	if items[1].LineTotal != 3.99 {
		t.Fatalf("unexpected second line %+v", items[1])
	}
	if total != 12.39 {
		t.Fatalf("expected total 12.39, got %v", total)
	}
}
