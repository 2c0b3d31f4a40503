package aggregation

import (
	"fmt"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// groupTable tracks groups in first-seen order. Each group keeps the field
// value that identifies it so results can echo it back.
type groupTable[S any] struct {
	groupByField int
	order        []string
	groupValues  map[string]types.Field
	states       map[string]*S
}

func newGroupTable[S any](groupByField int) *groupTable[S] {
	return &groupTable[S]{
		groupByField: groupByField,
		groupValues:  make(map[string]types.Field),
		states:       make(map[string]*S),
	}
}

// stateFor returns the running state of tup's group, creating it with
// init on first sight.
func (g *groupTable[S]) stateFor(tup *tuple.Tuple, init func() S) (*S, error) {
	key := "NO_GROUPING"
	var groupValue types.Field

	if g.groupByField != NoGrouping {
		f, err := tup.GetField(g.groupByField)
		if err != nil {
			return nil, fmt.Errorf("failed to get grouping field: %w", err)
		}
		groupValue = f
		key = f.Type().String() + ":" + f.String()
	}

	if s, ok := g.states[key]; ok {
		return s, nil
	}
	s := init()
	g.states[key] = &s
	g.groupValues[key] = groupValue
	g.order = append(g.order, key)
	return &s, nil
}

// results builds one output tuple per group. value renders the aggregate.
func (g *groupTable[S]) results(td *tuple.TupleDescription, value func(*S) int32) ([]*tuple.Tuple, error) {
	out := make([]*tuple.Tuple, 0, len(g.order))
	for _, key := range g.order {
		b := tuple.NewBuilder(td)
		if g.groupByField != NoGrouping {
			b.AddField(g.groupValues[key])
		}
		t, err := b.AddInt(value(g.states[key])).Build()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (g *groupTable[S]) empty() bool {
	return len(g.order) == 0
}

// resultDesc is (aggregate) or (group, aggregate), with the aggregate
// column named like "SUM(amount)".
func resultDesc(groupByField int, groupName string, groupType types.Type, op AggregateOp, aggName string) *tuple.TupleDescription {
	aggCol := fmt.Sprintf("%s(%s)", op, aggName)
	if groupByField == NoGrouping {
		return tuple.MustTupleDesc([]types.Type{types.IntType}, []string{aggCol})
	}
	return tuple.MustTupleDesc([]types.Type{groupType, types.IntType}, []string{groupName, aggCol})
}
