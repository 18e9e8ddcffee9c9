// Package awstest provides in-memory stand-ins for the AWS clients used by
// the stores. The DynamoDB fake understands the small expression subset the
// stores emit: SET/ADD/REMOVE updates and AND/OR chains of =, <>, numeric <,
// attribute_exists and attribute_not_exists conditions, also used as Scan
// filters.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

type item = map[string]types.AttributeValue

// Dynamo is a goroutine-safe in-memory DynamoDB.
type Dynamo struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]item
	fail   map[string]error

	Calls map[string]int
}

func NewDynamo() *Dynamo {
	return &Dynamo{
		keys:   map[string]string{},
		tables: map[string]map[string]item{},
		fail:   map[string]error{},
		Calls:  map[string]int{},
	}
}

// CreateTable registers a table and its partition key attribute.
func (d *Dynamo) CreateTable(name, pk string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[name] = pk
	if _, ok := d.tables[name]; !ok {
		d.tables[name] = map[string]item{}
	}
}

// FailNext makes the next call of op (e.g. "PutItem") return err.
func (d *Dynamo) FailNext(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[op] = err
}

// Item returns a copy of the stored item, or nil.
func (d *Dynamo) Item(table, key string) map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	it, ok := d.tables[table][key]
	if !ok {
		return nil
	}
	return clone(it)
}

// Len returns the number of items in table.
func (d *Dynamo) Len(table string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tables[table])
}

// Seed stores it directly, bypassing conditions.
func (d *Dynamo) Seed(table string, it map[string]types.AttributeValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k, err := d.pkOf(table, it)
	if err != nil {
		panic(err)
	}
	d.tables[table][k] = clone(it)
}

func (d *Dynamo) enter(op string) error {
	d.Calls[op]++
	if err, ok := d.fail[op]; ok {
		delete(d.fail, op)
		return err
	}
	return nil
}

func (d *Dynamo) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("PutItem"); err != nil {
		return nil, err
	}
	table := *in.TableName
	k, err := d.pkOf(table, in.Item)
	if err != nil {
		return nil, err
	}
	ok, err := d.check(table, k, in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
	}
	d.tables[table][k] = clone(in.Item)
	return &dyn.PutItemOutput{}, nil
}

func (d *Dynamo) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("GetItem"); err != nil {
		return nil, err
	}
	table := *in.TableName
	k, err := d.pkOf(table, in.Key)
	if err != nil {
		return nil, err
	}
	it, ok := d.tables[table][k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: clone(it)}, nil
}

func (d *Dynamo) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("UpdateItem"); err != nil {
		return nil, err
	}
	table := *in.TableName
	k, err := d.pkOf(table, in.Key)
	if err != nil {
		return nil, err
	}
	ok, err := d.check(table, k, in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
	}
	next, err := d.applyUpdate(table, k, in.Key, *in.UpdateExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	d.tables[table][k] = next
	out := &dyn.UpdateItemOutput{}
	if in.ReturnValues != "" && in.ReturnValues != types.ReturnValueNone {
		out.Attributes = clone(next)
	}
	return out, nil
}

func (d *Dynamo) DeleteItem(ctx context.Context, in *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeleteItem"); err != nil {
		return nil, err
	}
	table := *in.TableName
	k, err := d.pkOf(table, in.Key)
	if err != nil {
		return nil, err
	}
	ok, err := d.check(table, k, in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
	}
	old, existed := d.tables[table][k]
	delete(d.tables[table], k)
	out := &dyn.DeleteItemOutput{}
	if existed && in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}

func (d *Dynamo) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("Scan"); err != nil {
		return nil, err
	}
	table := *in.TableName
	if _, ok := d.keys[table]; !ok {
		return nil, fmt.Errorf("awstest: unknown table %q", table)
	}
	keys := make([]string, 0, len(d.tables[table]))
	for k := range d.tables[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := &dyn.ScanOutput{}
	for _, k := range keys {
		it := d.tables[table][k]
		if in.FilterExpression != nil {
			ok, err := evalCondition(*in.FilterExpression, it, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out.Items = append(out.Items, clone(it))
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (d *Dynamo) TransactWriteItems(ctx context.Context, in *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("TransactWriteItems"); err != nil {
		return nil, err
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		table, key, cond, names, values, err := d.describe(ti)
		if err != nil {
			return nil, err
		}
		ok, err := d.check(table, key, cond, names, values)
		if err != nil {
			return nil, err
		}
		if ok {
			reasons[i] = types.CancellationReason{Code: strPtr("None")}
			continue
		}
		failed = true
		reasons[i] = types.CancellationReason{Code: strPtr("ConditionalCheckFailed"), Message: strPtr("The conditional request failed")}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             strPtr("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, ti := range in.TransactItems {
		switch {
		case ti.Put != nil:
			k, _ := d.pkOf(*ti.Put.TableName, ti.Put.Item)
			d.tables[*ti.Put.TableName][k] = clone(ti.Put.Item)
		case ti.Update != nil:
			u := ti.Update
			k, _ := d.pkOf(*u.TableName, u.Key)
			next, err := d.applyUpdate(*u.TableName, k, u.Key, *u.UpdateExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			d.tables[*u.TableName][k] = next
		case ti.Delete != nil:
			k, _ := d.pkOf(*ti.Delete.TableName, ti.Delete.Key)
			delete(d.tables[*ti.Delete.TableName], k)
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (d *Dynamo) describe(ti types.TransactWriteItem) (table, key string, cond *string, names map[string]string, values map[string]types.AttributeValue, err error) {
	switch {
	case ti.Put != nil:
		table, cond, names, values = *ti.Put.TableName, ti.Put.ConditionExpression, ti.Put.ExpressionAttributeNames, ti.Put.ExpressionAttributeValues
		key, err = d.pkOf(table, ti.Put.Item)
	case ti.Update != nil:
		table, cond, names, values = *ti.Update.TableName, ti.Update.ConditionExpression, ti.Update.ExpressionAttributeNames, ti.Update.ExpressionAttributeValues
		key, err = d.pkOf(table, ti.Update.Key)
	case ti.Delete != nil:
		table, cond, names, values = *ti.Delete.TableName, ti.Delete.ConditionExpression, ti.Delete.ExpressionAttributeNames, ti.Delete.ExpressionAttributeValues
		key, err = d.pkOf(table, ti.Delete.Key)
	case ti.ConditionCheck != nil:
		table, cond, names, values = *ti.ConditionCheck.TableName, ti.ConditionCheck.ConditionExpression, ti.ConditionCheck.ExpressionAttributeNames, ti.ConditionCheck.ExpressionAttributeValues
		key, err = d.pkOf(table, ti.ConditionCheck.Key)
	default:
		err = errors.New("awstest: empty transact item")
	}
	return
}

func (d *Dynamo) pkOf(table string, it item) (string, error) {
	pk, ok := d.keys[table]
	if !ok {
		return "", fmt.Errorf("awstest: unknown table %q", table)
	}
	switch v := it[pk].(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return v.Value, nil
	default:
		return "", fmt.Errorf("awstest: missing key %q for table %q", pk, table)
	}
}

func (d *Dynamo) check(table, key string, cond *string, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if cond == nil || *cond == "" {
		return true, nil
	}
	return evalCondition(*cond, d.tables[table][key], names, values)
}

func (d *Dynamo) applyUpdate(table, key string, keyAttrs item, expr string, names map[string]string, values map[string]types.AttributeValue) (item, error) {
	next := clone(d.tables[table][key])
	if next == nil {
		next = clone(keyAttrs)
	}
	for _, cl := range splitClauses(expr) {
		for _, part := range strings.Split(cl.body, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			switch cl.action {
			case "SET":
				lhs, rhs, found := strings.Cut(part, "=")
				if !found {
					return nil, fmt.Errorf("awstest: bad SET %q", part)
				}
				v, ok := values[strings.TrimSpace(rhs)]
				if !ok {
					return nil, fmt.Errorf("awstest: missing value %q", rhs)
				}
				next[resolve(strings.TrimSpace(lhs), names)] = v
			case "ADD":
				fields := strings.Fields(part)
				if len(fields) != 2 {
					return nil, fmt.Errorf("awstest: bad ADD %q", part)
				}
				name := resolve(fields[0], names)
				inc, ok := values[fields[1]].(*types.AttributeValueMemberN)
				if !ok {
					return nil, fmt.Errorf("awstest: ADD needs a number for %q", name)
				}
				cur := decimal.Zero
				if n, ok := next[name].(*types.AttributeValueMemberN); ok {
					cur = decimal.RequireFromString(n.Value)
				}
				next[name] = &types.AttributeValueMemberN{Value: cur.Add(decimal.RequireFromString(inc.Value)).String()}
			case "REMOVE":
				delete(next, resolve(part, names))
			}
		}
	}
	return next, nil
}

type clause struct {
	action string
	body   string
}

var clauseRE = regexp.MustCompile(`(?:^|\s)(SET|ADD|REMOVE)\s`)

func splitClauses(expr string) []clause {
	locs := clauseRE.FindAllStringSubmatchIndex(expr, -1)
	out := make([]clause, 0, len(locs))
	for i, loc := range locs {
		end := len(expr)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, clause{action: expr[loc[2]:loc[3]], body: expr[loc[1]:end]})
	}
	return out
}

func evalCondition(expr string, it item, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	for _, alt := range strings.Split(expr, " OR ") {
		all := true
		for _, atom := range strings.Split(alt, " AND ") {
			ok, err := evalAtom(strings.Trim(strings.TrimSpace(atom), "()"), it, names, values)
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

func evalAtom(atom string, it item, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	switch {
	case strings.HasPrefix(atom, "attribute_not_exists("):
		_, ok := it[resolve(strings.TrimPrefix(atom, "attribute_not_exists("), names)]
		return !ok, nil
	case strings.HasPrefix(atom, "attribute_exists("):
		_, ok := it[resolve(strings.TrimPrefix(atom, "attribute_exists("), names)]
		return ok, nil
	case strings.Contains(atom, " <> "):
		l, r, _ := strings.Cut(atom, " <> ")
		return !equal(it[resolve(strings.TrimSpace(l), names)], values[strings.TrimSpace(r)]), nil
	case strings.Contains(atom, " = "):
		l, r, _ := strings.Cut(atom, " = ")
		return equal(it[resolve(strings.TrimSpace(l), names)], values[strings.TrimSpace(r)]), nil
	case strings.Contains(atom, " < "):
		l, r, _ := strings.Cut(atom, " < ")
		x, ok1 := number(it[resolve(strings.TrimSpace(l), names)])
		y, ok2 := number(values[strings.TrimSpace(r)])
		return ok1 && ok2 && x.LessThan(y), nil
	}
	return false, fmt.Errorf("awstest: unsupported condition %q", atom)
}

func resolve(name string, names map[string]string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), ")")
	if strings.HasPrefix(name, "#") {
		if n, ok := names[name]; ok {
			return n
		}
	}
	return name
}

func equal(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		x, err1 := decimal.NewFromString(av.Value)
		y, err2 := decimal.NewFromString(bv.Value)
		return err1 == nil && err2 == nil && x.Equal(y)
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func number(av types.AttributeValue) (decimal.Decimal, bool) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.Value)
	return d, err == nil
}

func clone(it item) item {
	if it == nil {
		return nil
	}
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func strPtr(s string) *string { return &s }
