// Package awstest provides an in-memory DynamoDB for tests.
//
// The fake understands the expression subset used by the stores in this module:
// conditions joined by AND built from attribute_exists(x), attribute_not_exists(x) and
// comparisons (=, <>, <, <=, >, >=) against :values; update expressions with SET a = :v,
// ADD n :v and REMOVE a sections. Query ignores IndexName and evaluates the key condition
// as a filter. Transactions are all-or-nothing.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

// DynamoDB is a concurrency-safe in-memory table set keyed by a single hash key per table.
type DynamoDB struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]item
	fail   map[string]error

	TransactCalls int
}

// NewDynamoDB returns an empty fake. keys maps table name to its hash key attribute.
func NewDynamoDB(keys map[string]string) *DynamoDB {
	return &DynamoDB{
		keys:   keys,
		tables: map[string]map[string]item{},
		fail:   map[string]error{},
	}
}

// FailOn makes every subsequent call of op ("PutItem", "TransactWriteItems", ...) return err.
func (d *DynamoDB) FailOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[op] = err
}

// Seed stores it as-is.
func (d *DynamoDB) Seed(table string, it map[string]types.AttributeValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pk, err := d.pk(table, it)
	if err != nil {
		panic(err)
	}
	d.table(table)[pk] = copyItem(it)
}

// Item returns a copy of the stored item, or nil.
func (d *DynamoDB) Item(table, key string) map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	it, ok := d.table(table)[key]
	if !ok {
		return nil
	}
	return copyItem(it)
}

// Len is the number of items in table.
func (d *DynamoDB) Len(table string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.table(table))
}

func (d *DynamoDB) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail["PutItem"]; err != nil {
		return nil, err
	}
	table := sdkaws.ToString(in.TableName)
	pk, err := d.pk(table, in.Item)
	if err != nil {
		return nil, err
	}
	current := d.table(table)[pk]
	if ok, err := check(in.ConditionExpression, current, in.ExpressionAttributeNames, in.ExpressionAttributeValues); err != nil {
		return nil, err
	} else if !ok {
		return nil, conditionFailed()
	}
	d.table(table)[pk] = copyItem(in.Item)
	return &dyn.PutItemOutput{}, nil
}

func (d *DynamoDB) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail["GetItem"]; err != nil {
		return nil, err
	}
	table := sdkaws.ToString(in.TableName)
	pk, err := d.pk(table, in.Key)
	if err != nil {
		return nil, err
	}
	it, ok := d.table(table)[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(it)}, nil
}

func (d *DynamoDB) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail["UpdateItem"]; err != nil {
		return nil, err
	}
	table := sdkaws.ToString(in.TableName)
	pk, err := d.pk(table, in.Key)
	if err != nil {
		return nil, err
	}
	current := d.table(table)[pk]
	if ok, err := check(in.ConditionExpression, current, in.ExpressionAttributeNames, in.ExpressionAttributeValues); err != nil {
		return nil, err
	} else if !ok {
		return nil, conditionFailed()
	}
	next, err := update(current, in.Key, sdkaws.ToString(in.UpdateExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	d.table(table)[pk] = next
	out := &dyn.UpdateItemOutput{}
	if in.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = copyItem(next)
	}
	return out, nil
}

func (d *DynamoDB) DeleteItem(ctx context.Context, in *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail["DeleteItem"]; err != nil {
		return nil, err
	}
	table := sdkaws.ToString(in.TableName)
	pk, err := d.pk(table, in.Key)
	if err != nil {
		return nil, err
	}
	current := d.table(table)[pk]
	if ok, err := check(in.ConditionExpression, current, in.ExpressionAttributeNames, in.ExpressionAttributeValues); err != nil {
		return nil, err
	} else if !ok {
		return nil, conditionFailed()
	}
	delete(d.table(table), pk)
	return &dyn.DeleteItemOutput{}, nil
}

func (d *DynamoDB) Query(ctx context.Context, in *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail["Query"]; err != nil {
		return nil, err
	}
	items, err := d.filter(sdkaws.ToString(in.TableName), in.KeyConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if in.FilterExpression != nil {
		var kept []item
		for _, it := range items {
			ok, err := check(in.FilterExpression, it, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, it)
			}
		}
		items = kept
	}
	return &dyn.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (d *DynamoDB) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail["Scan"]; err != nil {
		return nil, err
	}
	items, err := d.filter(sdkaws.ToString(in.TableName), in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &dyn.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

func (d *DynamoDB) TransactWriteItems(ctx context.Context, in *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.TransactCalls++
	if err := d.fail["TransactWriteItems"]; err != nil {
		return nil, err
	}

	type op struct {
		table, pk string
		apply     func(current item) (item, error)
	}
	ops := make([]op, 0, len(in.TransactItems))
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	canceled := false

	for i, ti := range in.TransactItems {
		var (
			table     string
			key       item
			cond      *string
			names     map[string]string
			values    map[string]types.AttributeValue
			applyFunc func(current item) (item, error)
		)
		switch {
		case ti.Put != nil:
			p := ti.Put
			table, key, cond, names, values = sdkaws.ToString(p.TableName), p.Item, p.ConditionExpression, p.ExpressionAttributeNames, p.ExpressionAttributeValues
			newItem := copyItem(p.Item)
			applyFunc = func(item) (item, error) { return newItem, nil }
		case ti.Update != nil:
			u := ti.Update
			table, key, cond, names, values = sdkaws.ToString(u.TableName), u.Key, u.ConditionExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues
			expr := sdkaws.ToString(u.UpdateExpression)
			applyFunc = func(current item) (item, error) {
				return update(current, u.Key, expr, u.ExpressionAttributeNames, u.ExpressionAttributeValues)
			}
		case ti.Delete != nil:
			dl := ti.Delete
			table, key, cond, names, values = sdkaws.ToString(dl.TableName), dl.Key, dl.ConditionExpression, dl.ExpressionAttributeNames, dl.ExpressionAttributeValues
			applyFunc = func(item) (item, error) { return nil, nil }
		case ti.ConditionCheck != nil:
			cc := ti.ConditionCheck
			table, key, cond, names, values = sdkaws.ToString(cc.TableName), cc.Key, cc.ConditionExpression, cc.ExpressionAttributeNames, cc.ExpressionAttributeValues
		default:
			return nil, errors.New("empty transact item")
		}

		pk, err := d.pk(table, key)
		if err != nil {
			return nil, err
		}
		ok, err := check(cond, d.table(table)[pk], names, values)
		if err != nil {
			return nil, err
		}
		if ok {
			reasons[i] = types.CancellationReason{Code: sdkaws.String("None")}
		} else {
			canceled = true
			reasons[i] = types.CancellationReason{Code: sdkaws.String("ConditionalCheckFailed"), Message: sdkaws.String("The conditional request failed")}
		}
		if applyFunc != nil {
			ops = append(ops, op{table: table, pk: pk, apply: applyFunc})
		}
	}

	if canceled {
		return nil, &types.TransactionCanceledException{
			Message:             sdkaws.String("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	staged := make([]item, len(ops))
	for i, o := range ops {
		next, err := o.apply(d.table(o.table)[o.pk])
		if err != nil {
			return nil, err
		}
		staged[i] = next
	}
	for i, o := range ops {
		if staged[i] == nil {
			delete(d.table(o.table), o.pk)
			continue
		}
		d.table(o.table)[o.pk] = staged[i]
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (d *DynamoDB) table(name string) map[string]item {
	t, ok := d.tables[name]
	if !ok {
		t = map[string]item{}
		d.tables[name] = t
	}
	return t
}

func (d *DynamoDB) pk(table string, it item) (string, error) {
	name, ok := d.keys[table]
	if !ok {
		return "", fmt.Errorf("awstest: unknown table %q", table)
	}
	switch v := it[name].(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return v.Value, nil
	default:
		return "", fmt.Errorf("awstest: table %q: missing key attribute %q", table, name)
	}
}

func (d *DynamoDB) filter(table string, expr *string, names map[string]string, values map[string]types.AttributeValue) ([]item, error) {
	t := d.table(table)
	pks := make([]string, 0, len(t))
	for pk := range t {
		pks = append(pks, pk)
	}
	sort.Strings(pks)

	var out []item
	for _, pk := range pks {
		ok, err := check(expr, t[pk], names, values)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, copyItem(t[pk]))
		}
	}
	return out, nil
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: sdkaws.String("The conditional request failed")}
}

func copyItem(it item) item {
	if it == nil {
		return nil
	}
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func resolve(name string, names map[string]string) (string, error) {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "#") {
		real, ok := names[name]
		if !ok {
			return "", fmt.Errorf("awstest: undefined attribute name %s", name)
		}
		return real, nil
	}
	return name, nil
}

func value(token string, values map[string]types.AttributeValue) (types.AttributeValue, error) {
	token = strings.TrimSpace(token)
	v, ok := values[token]
	if !ok {
		return nil, fmt.Errorf("awstest: undefined attribute value %s", token)
	}
	return v, nil
}

var comparators = []string{"<>", ">=", "<=", "=", ">", "<"}

// check evaluates a condition against current (nil when the item does not exist).
func check(expr *string, current item, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if expr == nil || strings.TrimSpace(*expr) == "" {
		return true, nil
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		clause = strings.TrimSpace(clause)
		ok, err := checkClause(clause, current, names, values)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func checkClause(clause string, current item, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	for _, fn := range []string{"attribute_exists", "attribute_not_exists"} {
		if strings.HasPrefix(clause, fn+"(") && strings.HasSuffix(clause, ")") {
			attr, err := resolve(clause[len(fn)+1:len(clause)-1], names)
			if err != nil {
				return false, err
			}
			_, exists := current[attr]
			if fn == "attribute_exists" {
				return exists, nil
			}
			return !exists, nil
		}
	}

	for _, cmp := range comparators {
		idx := strings.Index(clause, " "+cmp+" ")
		if idx < 0 {
			continue
		}
		attr, err := resolve(clause[:idx], names)
		if err != nil {
			return false, err
		}
		want, err := value(clause[idx+len(cmp)+2:], values)
		if err != nil {
			return false, err
		}
		got, ok := current[attr]
		if !ok {
			return false, nil
		}
		c, err := compare(got, want)
		if err != nil {
			return false, err
		}
		switch cmp {
		case "=":
			return c == 0, nil
		case "<>":
			return c != 0, nil
		case ">=":
			return c >= 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		default:
			return c < 0, nil
		}
	}
	return false, fmt.Errorf("awstest: unsupported condition %q", clause)
}

func compare(a, b types.AttributeValue) (int, error) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 1, nil
		}
		return strings.Compare(av.Value, bv.Value), nil
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 1, nil
		}
		x, err := strconv.ParseFloat(av.Value, 64)
		if err != nil {
			return 0, err
		}
		y, err := strconv.ParseFloat(bv.Value, 64)
		if err != nil {
			return 0, err
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		if ok && av.Value == bv.Value {
			return 0, nil
		}
		return 1, nil
	}
	return 0, fmt.Errorf("awstest: cannot compare %T", a)
}

var sectionRe = regexp.MustCompile(`\b(SET|ADD|REMOVE)\s`)

// update applies an update expression to a copy of current, creating the item from key
// when it does not exist yet.
func update(current, key item, expr string, names map[string]string, values map[string]types.AttributeValue) (item, error) {
	next := copyItem(current)
	if next == nil {
		next = copyItem(key)
	}

	locs := sectionRe.FindAllStringSubmatchIndex(expr, -1)
	if len(locs) == 0 {
		return nil, fmt.Errorf("awstest: unsupported update expression %q", expr)
	}
	for i, loc := range locs {
		action := expr[loc[2]:loc[3]]
		end := len(expr)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		for _, part := range strings.Split(expr[loc[1]:end], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			switch action {
			case "SET":
				lhs, rhs, ok := strings.Cut(part, "=")
				if !ok {
					return nil, fmt.Errorf("awstest: bad SET clause %q", part)
				}
				attr, err := resolve(lhs, names)
				if err != nil {
					return nil, err
				}
				v, err := value(rhs, values)
				if err != nil {
					return nil, err
				}
				next[attr] = v
			case "ADD":
				fields := strings.Fields(part)
				if len(fields) != 2 {
					return nil, fmt.Errorf("awstest: bad ADD clause %q", part)
				}
				attr, err := resolve(fields[0], names)
				if err != nil {
					return nil, err
				}
				v, err := value(fields[1], values)
				if err != nil {
					return nil, err
				}
				inc, ok := v.(*types.AttributeValueMemberN)
				if !ok {
					return nil, fmt.Errorf("awstest: ADD supports numbers only")
				}
				delta, err := strconv.ParseFloat(inc.Value, 64)
				if err != nil {
					return nil, err
				}
				base := 0.0
				if cur, ok := next[attr].(*types.AttributeValueMemberN); ok {
					if base, err = strconv.ParseFloat(cur.Value, 64); err != nil {
						return nil, err
					}
				}
				next[attr] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(base+delta, 'f', -1, 64)}
			case "REMOVE":
				attr, err := resolve(part, names)
				if err != nil {
					return nil, err
				}
				delete(next, attr)
			}
		}
	}
	return next, nil
}
