package delivery

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws/awstest"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/orders"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/users"
)

const (
	confTable   = "confirm-table"
	ordersTable = "orders-table"
	usersTable  = "users-table"
)

func newTestStore(t *testing.T, orderStatus string) (*Store, *awstest.DynamoDB) {
	t.Helper()
	db := awstest.NewDynamoDB(map[string]string{
		confTable:   "order_id",
		ordersTable: "order_id",
		usersTable:  "id",
	})
	seed := func(table string, v interface{}) {
		av, err := attributevalue.MarshalMap(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		db.Seed(table, av)
	}
	seed(ordersTable, orders.Order{OrderID: "o1", UserID: "cust", Status: orderStatus, Items: []orders.Item{}})
	seed(usersTable, users.User{ID: "dm1", Role: users.RoleDeliveryman, Status: users.StatusFree})
	seed(usersTable, users.User{ID: "dm2", Role: users.RoleDeliveryman, Status: users.StatusFree})

	s := NewStore(db, Tables{Confirmations: confTable, Orders: ordersTable, Users: usersTable}, 3)
	s.codeFunc = func() (string, error) { return "123456", nil }
	return s, db
}

func loadOrder(t *testing.T, db *awstest.DynamoDB) orders.Order {
	t.Helper()
	var o orders.Order
	if err := attributevalue.UnmarshalMap(db.Item(ordersTable, "o1"), &o); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}
	return o
}

func courierStatus(t *testing.T, db *awstest.DynamoDB, id string) string {
	t.Helper()
	var u users.User
	if err := attributevalue.UnmarshalMap(db.Item(usersTable, id), &u); err != nil {
		t.Fatalf("unmarshal user: %v", err)
	}
	return u.Status
}

func TestGenerateCode_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		n, err := strconv.Atoi(code)
		if err != nil || len(code) != 6 || n < 100000 || n > 999999 {
			t.Fatalf("code %q out of range", code)
		}
	}
}

func TestIssue_AssignsAndMarksBusy(t *testing.T) {
	s, db := newTestStore(t, orders.StatusAccepted)
	ctx := context.Background()

	conf, err := s.Issue(ctx, "o1", "dm1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if conf.CustomerID != "cust" || conf.Code != "123456" {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	if got := loadOrder(t, db).DeliveryManID; got != "dm1" {
		t.Fatalf("expected order assigned to dm1, got %q", got)
	}
	if got := courierStatus(t, db, "dm1"); got != users.StatusBusy {
		t.Fatalf("expected busy, got %s", got)
	}

	if _, err := s.Issue(ctx, "o1", "dm2"); !errors.Is(err, ErrAlreadyIssued) {
		t.Fatalf("expected ErrAlreadyIssued, got %v", err)
	}
	if got := loadOrder(t, db).DeliveryManID; got != "dm1" {
		t.Fatalf("second issue must not reassign, got %q", got)
	}
	if got := courierStatus(t, db, "dm2"); got != users.StatusFree {
		t.Fatalf("dm2 must stay free, got %s", got)
	}
}

func TestIssue_RequiresAcceptedOrder(t *testing.T) {
	s, db := newTestStore(t, orders.StatusPending)
	if _, err := s.Issue(context.Background(), "o1", "dm1"); !errors.Is(err, ErrOrderNotReady) {
		t.Fatalf("expected ErrOrderNotReady, got %v", err)
	}
	if _, err := s.Issue(context.Background(), "missing", "dm1"); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("expected orders.ErrNotFound, got %v", err)
	}
	if db.Len(confTable) != 0 {
		t.Fatalf("no confirmation expected")
	}
}

func TestVerify_CorrectCode(t *testing.T) {
	s, db := newTestStore(t, orders.StatusAccepted)
	ctx := context.Background()
	if _, err := s.Issue(ctx, "o1", "dm1"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := s.Verify(ctx, "o1", "dm1", "123456"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got := loadOrder(t, db).Status; got != orders.StatusDelivered {
		t.Fatalf("expected Delivered, got %s", got)
	}
	if db.Len(confTable) != 0 {
		t.Fatalf("confirmation must be removed")
	}
	if got := courierStatus(t, db, "dm1"); got != users.StatusFree {
		t.Fatalf("expected free, got %s", got)
	}
}

func TestVerify_WrongCodeAndAttemptLimit(t *testing.T) {
	s, db := newTestStore(t, orders.StatusAccepted)
	ctx := context.Background()
	if _, err := s.Issue(ctx, "o1", "dm1"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := s.Verify(ctx, "o1", "dm2", "123456"); !errors.Is(err, ErrNotAssigned) {
		t.Fatalf("expected ErrNotAssigned, got %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Verify(ctx, "o1", "dm1", "000000"); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("attempt %d: expected ErrCodeMismatch, got %v", i, err)
		}
	}
	if got := loadOrder(t, db).Status; got != orders.StatusAccepted {
		t.Fatalf("order must be unchanged, got %s", got)
	}
	if _, err := s.Verify(ctx, "o1", "dm1", "123456"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	conf, err := s.Get(ctx, "o1")
	if err != nil || conf.Attempts != 3 {
		t.Fatalf("expected 3 attempts recorded, got %+v %v", conf, err)
	}
}

func TestCancel_FreesCourier(t *testing.T) {
	s, db := newTestStore(t, orders.StatusAccepted)
	ctx := context.Background()
	if _, err := s.Issue(ctx, "o1", "dm1"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := s.Cancel(ctx, "o1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	o := loadOrder(t, db)
	if o.DeliveryManID != "" || o.Status != orders.StatusAccepted {
		t.Fatalf("unexpected order after cancel %+v", o)
	}
	if got := courierStatus(t, db, "dm1"); got != users.StatusFree {
		t.Fatalf("expected free, got %s", got)
	}
	if _, err := s.Cancel(ctx, "o1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// the order can be picked up again
	if _, err := s.Issue(ctx, "o1", "dm2"); err != nil {
		t.Fatalf("re-Issue: %v", err)
	}
}

func TestIssue_CourierHoldsOneDelivery(t *testing.T) {
	s, db := newTestStore(t, orders.StatusAccepted)
	ctx := context.Background()
	av, err := attributevalue.MarshalMap(orders.Order{OrderID: "o2", UserID: "cust2", Status: orders.StatusAccepted, Items: []orders.Item{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	db.Seed(ordersTable, av)

	if _, err := s.Issue(ctx, "o1", "dm1"); err != nil {
		t.Fatalf("Issue o1: %v", err)
	}
	if _, err := s.Issue(ctx, "o2", "dm1"); !errors.Is(err, ErrCourierBusy) {
		t.Fatalf("expected ErrCourierBusy, got %v", err)
	}
	if db.Len(confTable) != 1 {
		t.Fatalf("expected only the first confirmation, got %d", db.Len(confTable))
	}
	var o2 orders.Order
	if err := attributevalue.UnmarshalMap(db.Item(ordersTable, "o2"), &o2); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o2.DeliveryManID != "" {
		t.Fatalf("o2 must stay unassigned, got %q", o2.DeliveryManID)
	}
	if _, err := s.Issue(ctx, "o2", "ghost"); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("expected users.ErrNotFound, got %v", err)
	}

	// after delivering o1 the courier may take o2
	if _, err := s.Verify(ctx, "o1", "dm1", "123456"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if _, err := s.Issue(ctx, "o2", "dm1"); err != nil {
		t.Fatalf("Issue o2: %v", err)
	}
	if got := courierStatus(t, db, "dm1"); got != users.StatusBusy {
		t.Fatalf("expected busy, got %s", got)
	}
}

func TestVerify_ConcurrentGuessesRespectLimit(t *testing.T) {
	s, db := newTestStore(t, orders.StatusAccepted)
	ctx := context.Background()
	if _, err := s.Issue(ctx, "o1", "dm1"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const guesses = 20
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		mismatches int
		limited    int
	)
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Verify(ctx, "o1", "dm1", "000000")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrCodeMismatch):
				mismatches++
			case errors.Is(err, ErrTooManyAttempts):
				limited++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if mismatches != 3 || limited != guesses-3 {
		t.Fatalf("expected 3 compared and %d limited, got %d and %d", guesses-3, mismatches, limited)
	}
	conf, err := s.Get(ctx, "o1")
	if err != nil || conf.Attempts != 3 {
		t.Fatalf("expected 3 attempts recorded, got %+v %v", conf, err)
	}
	if got := loadOrder(t, db).Status; got != orders.StatusAccepted {
		t.Fatalf("order must be unchanged, got %s", got)
	}
}
