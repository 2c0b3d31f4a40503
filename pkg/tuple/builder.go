package tuple

import (
	"fmt"
	"heapstore/pkg/types"
)

// Builder provides a fluent interface for constructing tuples
type Builder struct {
	tuple        *Tuple
	currentIndex int
	err          error
}

func NewBuilder(td *TupleDescription) *Builder {
	return &Builder{tuple: NewTuple(td)}
}

func (b *Builder) AddInt(value int32) *Builder {
	return b.add(types.NewIntField(value))
}

func (b *Builder) AddString(value string) *Builder {
	return b.add(types.NewStringField(value))
}

// AddField appends an already constructed field.
func (b *Builder) AddField(f types.Field) *Builder {
	return b.add(f)
}

func (b *Builder) add(f types.Field) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.tuple.SetField(b.currentIndex, f); err != nil {
		b.err = fmt.Errorf("field %d: %w", b.currentIndex, err)
		return b
	}
	b.currentIndex++
	return b
}

// Build returns the tuple or the first error encountered while adding fields.
func (b *Builder) Build() (*Tuple, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.currentIndex != b.tuple.TupleDesc.NumFields() {
		return nil, fmt.Errorf("expected %d fields, got %d", b.tuple.TupleDesc.NumFields(), b.currentIndex)
	}
	return b.tuple, nil
}

// MustBuild is Build for tests and fixed data. It panics on error.
func (b *Builder) MustBuild() *Tuple {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
