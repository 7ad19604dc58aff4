package awstest

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestTransactWriteItems_AllOrNothing(t *testing.T) {
	db := NewDynamoDB(map[string]string{"stock": "id"})
	db.Seed("stock", item{"id": &types.AttributeValueMemberS{Value: "a"}, "qty": &types.AttributeValueMemberN{Value: "5"}})
	db.Seed("stock", item{"id": &types.AttributeValueMemberS{Value: "b"}, "qty": &types.AttributeValueMemberN{Value: "1"}})

	dec := func(id, n, neg string) types.TransactWriteItem {
		return types.TransactWriteItem{Update: &types.Update{
			TableName:           sdkaws.String("stock"),
			Key:                 item{"id": &types.AttributeValueMemberS{Value: id}},
			UpdateExpression:    sdkaws.String("ADD qty :neg"),
			ConditionExpression: sdkaws.String("qty >= :n"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":n":   &types.AttributeValueMemberN{Value: n},
				":neg": &types.AttributeValueMemberN{Value: neg},
			},
		}}
	}

	_, err := db.TransactWriteItems(context.Background(), &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{dec("a", "2", "-2"), dec("b", "2", "-2")},
	})
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		t.Fatalf("expected TransactionCanceledException, got %v", err)
	}
	if got := sdkaws.ToString(tce.CancellationReasons[1].Code); got != "ConditionalCheckFailed" {
		t.Fatalf("expected second reason to fail, got %s", got)
	}
	if q := db.Item("stock", "a")["qty"].(*types.AttributeValueMemberN).Value; q != "5" {
		t.Fatalf("first update must not apply, qty=%s", q)
	}

	if _, err := db.TransactWriteItems(context.Background(), &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{dec("a", "2", "-2"), dec("b", "1", "-1")},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q := db.Item("stock", "a")["qty"].(*types.AttributeValueMemberN).Value; q != "3" {
		t.Fatalf("expected qty 3, got %s", q)
	}
	if q := db.Item("stock", "b")["qty"].(*types.AttributeValueMemberN).Value; q != "0" {
		t.Fatalf("expected qty 0, got %s", q)
	}
}

func TestUpdateItem_SetAddRemove(t *testing.T) {
	db := NewDynamoDB(map[string]string{"t": "pk"})
	ctx := context.Background()

	out, err := db.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 sdkaws.String("t"),
		Key:                       item{"pk": &types.AttributeValueMemberS{Value: "k"}},
		UpdateExpression:          sdkaws.String("SET #n = :n ADD hits :one"),
		ExpressionAttributeNames:  map[string]string{"#n": "name"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":n": &types.AttributeValueMemberS{Value: "x"}, ":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if out.Attributes["hits"].(*types.AttributeValueMemberN).Value != "1" {
		t.Fatalf("expected hits=1, got %+v", out.Attributes["hits"])
	}

	if _, err := db.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           sdkaws.String("t"),
		Key:                 item{"pk": &types.AttributeValueMemberS{Value: "k"}},
		UpdateExpression:    sdkaws.String("REMOVE name"),
		ConditionExpression: sdkaws.String("attribute_exists(pk)"),
	}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := db.Item("t", "k")["name"]; ok {
		t.Fatalf("name should be removed")
	}

	_, err = db.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           sdkaws.String("t"),
		Key:                 item{"pk": &types.AttributeValueMemberS{Value: "missing"}},
		UpdateExpression:    sdkaws.String("ADD hits :one"),
		ConditionExpression: sdkaws.String("attribute_exists(pk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		t.Fatalf("expected conditional failure, got %v", err)
	}
}
