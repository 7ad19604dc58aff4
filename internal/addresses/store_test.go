package addresses

import (
	"context"
	"errors"
	"testing"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws/awstest"
)

func TestAddressLifecycle(t *testing.T) {
	db := awstest.NewDynamoDB(map[string]string{"addresses": "id"})
	s := NewStore(db, "addresses")
	ctx := context.Background()

	a := &Address{ID: "a1", UserID: "u1", Road: "Lake Rd", BuildingNo: "12"}
	if err := s.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, a); err == nil {
		t.Fatalf("expected duplicate id to fail")
	}
	if err := s.Create(ctx, &Address{ID: "a2", UserID: "u2", Road: "Main St", BuildingNo: "1"}); err != nil {
		t.Fatalf("Create a2: %v", err)
	}

	list, err := s.ListByUser(ctx, "u1")
	if err != nil || len(list) != 1 || list[0].ID != "a1" {
		t.Fatalf("ListByUser: %v %+v", err, list)
	}

	a.FloorNum = "3"
	if err := s.Replace(ctx, a); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, err := s.Get(ctx, "a1")
	if err != nil || got.FloorNum != "3" {
		t.Fatalf("Get after replace: %v %+v", err, got)
	}
	if err := s.Replace(ctx, &Address{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on replace, got %v", err)
	}

	if err := s.Delete(ctx, "a1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := s.Get(ctx, "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	empty, err := s.ListByUser(ctx, "nobody")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", empty, err)
	}
}
