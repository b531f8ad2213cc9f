package sprig

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Entity is anything with a stable string identity: container items and the
// snapshots that describe them.
type Entity interface {
	Identity() string
}

// CreateEvent describes an item that Create has set up.
type CreateEvent[T, S any] struct {
	Item T
	Data S
	// IsNew is true only on the first setup of a freshly allocated instance.
	IsNew bool
}

// DeletingEvent describes an item about to leave the live list.
type DeletingEvent[T any] struct {
	Item T
	// Evicted is true when the item is being recycled for a new identity
	// because the container is full, false for an explicit Delete.
	Evicted bool
}

// Container is a bounded pool of live items reconciled by identity against
// snapshots of type S. When full, Create recycles the item in slot 0 instead
// of allocating. A Container is driven from the main loop and is not safe
// for concurrent use.
type Container[T Entity, S Entity] struct {
	// Max bounds the live list; <= 0 means unbounded.
	Max int
	// New allocates a fresh instance.
	New func() T
	// Setup prepares an instance for data after the primitive fields were
	// assigned. It must initialize the instance when isNew is true and copy
	// any vector or nested fields itself.
	Setup func(ctx context.Context, item T, data S, isNew bool) error
	// Export builds a snapshot of a live item. Used by Snapshot.
	Export func(item T) S

	CreateNew   Event[CreateEvent[T, S]]
	CreateRenew Event[CreateEvent[T, S]]
	Created     Event[CreateEvent[T, S]]
	Deleting    Event[DeletingEvent[T]]
	Deleted     Event[string]

	items []T
}

// NewContainer creates a container holding at most max items.
func NewContainer[T Entity, S Entity](max int, newItem func() T, setup func(ctx context.Context, item T, data S, isNew bool) error) *Container[T, S] {
	return &Container[T, S]{Max: max, New: newItem, Setup: setup}
}

// Items returns the live items, oldest slot first. The returned slice MUST
// NOT be mutated by the caller.
func (c *Container[T, S]) Items() []T { return c.items }

// Len returns the number of live items.
func (c *Container[T, S]) Len() int { return len(c.items) }

// Get returns the live item with the given identity.
func (c *Container[T, S]) Get(id string) (T, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *Container[T, S]) index(id string) int {
	for i, it := range c.items {
		if it.Identity() == id {
			return i
		}
	}
	return -1
}

// Create makes data live. At capacity the item in slot 0 is evicted (with a
// Deleting event marked Evicted) and reused; otherwise New allocates one.
// The item joins the live list only after Setup and the create events
// succeed, so a failed setup never leaves a half-registered item.
func (c *Container[T, S]) Create(ctx context.Context, data S) (T, error) {
	var zero T
	id := data.Identity()
	if c.index(id) >= 0 {
		return zero, fmt.Errorf("%w: %q", ErrDuplicateEntity, id)
	}

	var item T
	isNew := false
	if c.Max > 0 && len(c.items) >= c.Max {
		item = c.items[0]
		c.Deleting.Emit(DeletingEvent[T]{Item: item, Evicted: true})
		c.items = append([]T(nil), c.items[1:]...)
	} else {
		item = c.New()
		isNew = true
	}

	c.Assign(item, data)
	if c.Setup != nil {
		if err := c.Setup(ctx, item, data, isNew); err != nil {
			return zero, fmt.Errorf("create %q: %w", id, err)
		}
	}
	ev := CreateEvent[T, S]{Item: item, Data: data, IsNew: isNew}
	if isNew {
		c.CreateNew.Emit(ev)
	} else {
		c.CreateRenew.Emit(ev)
	}
	c.Created.Emit(ev)

	items := make([]T, len(c.items), len(c.items)+1)
	copy(items, c.items)
	c.items = append(items, item)
	return item, nil
}

// Delete removes the live item with the given identity, firing Deleting
// before and Deleted after. Returns false if no such item is live.
func (c *Container[T, S]) Delete(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	item := c.items[i]
	c.Deleting.Emit(DeletingEvent[T]{Item: item})
	items := make([]T, 0, len(c.items)-1)
	items = append(items, c.items[:i]...)
	c.items = append(items, c.items[i+1:]...)
	c.Deleted.Emit(id)
	return true
}

// Update assigns every snapshot to its live item and then calls apply, if
// set, for the fields Assign does not cover. Snapshots whose identity is not
// live are replication errors: they are all reported, wrapped around
// ErrUnknownEntity, after the known ones were applied.
func (c *Container[T, S]) Update(collection []S, apply func(item T, data S) error) error {
	var errs []error
	for _, data := range collection {
		item, ok := c.Get(data.Identity())
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownEntity, data.Identity()))
			continue
		}
		c.Assign(item, data)
		if apply != nil {
			if err := apply(item, data); err != nil {
				errs = append(errs, fmt.Errorf("update %q: %w", data.Identity(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Snapshot exports every live item through Export, oldest slot first.
func (c *Container[T, S]) Snapshot() []S {
	if c.Export == nil {
		return nil
	}
	out := make([]S, len(c.items))
	for i, it := range c.items {
		out[i] = c.Export(it)
	}
	return out
}

// Assign copies the exported primitive fields (bools, numbers, strings) of
// data onto the same-named, same-kind fields of item. Other fields are left
// for Setup.
func (c *Container[T, S]) Assign(item T, data S) {
	assignPrimitives(reflect.ValueOf(item), reflect.ValueOf(data))
}

func assignPrimitives(dst, src reflect.Value) {
	for dst.Kind() == reflect.Pointer || dst.Kind() == reflect.Interface {
		if dst.IsNil() {
			return
		}
		dst = dst.Elem()
	}
	for src.Kind() == reflect.Pointer || src.Kind() == reflect.Interface {
		if src.IsNil() {
			return
		}
		src = src.Elem()
	}
	if dst.Kind() != reflect.Struct || src.Kind() != reflect.Struct {
		return
	}
	st, dt := src.Type(), dst.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() || !isPrimitiveKind(f.Type.Kind()) {
			continue
		}
		df, ok := dt.FieldByName(f.Name)
		if !ok || df.Type.Kind() != f.Type.Kind() {
			continue
		}
		v, err := dst.FieldByIndexErr(df.Index)
		if err != nil || !v.CanSet() {
			continue
		}
		v.Set(src.Field(i).Convert(v.Type()))
	}
}

func isPrimitiveKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
