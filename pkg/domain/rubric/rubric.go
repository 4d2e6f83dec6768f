// Package rubric models the ordered, weighted grading criteria a pull
// request is scored against.
package rubric

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names an editable property of an Item.
type Field string

const (
	FieldCriterion   Field = "criterion"
	FieldWeight      Field = "weight"
	FieldDescription Field = "description"
)

// ParseField converts user input into a Field.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldCriterion, FieldWeight, FieldDescription:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// Item is a single grading criterion. Weight is in percentage points and is
// not required to sum to 100 across the rubric.
type Item struct {
	Criterion   string  `json:"criterion" yaml:"criterion"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Description string  `json:"description" yaml:"description"`
}

// Ref identifies an item for an edit. It remembers the layout generation at
// the time the edit began so that edits never land on a shifted index.
type Ref struct {
	Index  int
	Layout uint64
}

// Rubric is an immutable ordered list of items. Every mutating operation
// returns a new Rubric backed by a fresh slice.
type Rubric struct {
	items  []Item
	layout uint64
}

// New builds a rubric from the given items in order.
func New(items ...Item) Rubric {
	return Rubric{items: append([]Item(nil), items...)}
}

// Default returns the starter rubric offered to new users.
func Default() Rubric {
	return New(
		Item{Criterion: "Code Quality", Weight: 25, Description: "Clean, readable, and maintainable code"},
		Item{Criterion: "Best Practices", Weight: 25, Description: "Following industry standards and patterns"},
		Item{Criterion: CodeCompletion, Weight: 25, Description: "Code completion is 100%, Modify score based on the percentage of code completion"},
	)
}

// CodeCompletion is the criterion whose score is derived from the backend's
// function analysis instead of the returned score.
const CodeCompletion = "Code Completion"

func (r Rubric) Len() int { return len(r.items) }

// Layout returns the current layout generation. It changes whenever an item
// is removed.
func (r Rubric) Layout() uint64 { return r.layout }

// Items returns a copy of the items. An empty rubric yields an empty,
// non-nil slice so it encodes as [].
func (r Rubric) Items() []Item {
	items := make([]Item, len(r.items))
	copy(items, r.items)
	return items
}

// At returns the item at index i.
func (r Rubric) At(i int) (Item, error) {
	if i < 0 || i >= len(r.items) {
		return Item{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return r.items[i], nil
}

// Ref returns an edit reference for index i bound to the current layout.
func (r Rubric) Ref(i int) Ref {
	return Ref{Index: i, Layout: r.layout}
}

// Add appends an empty item.
func (r Rubric) Add() Rubric {
	next := r.clone(len(r.items) + 1)
	next.items = append(next.items, Item{})
	return next
}

// Update sets one field of the referenced item. Weight values are coerced to
// numbers; input that is not a finite number is rejected and r is returned
// unchanged.
func (r Rubric) Update(ref Ref, field Field, value string) (Rubric, error) {
	if ref.Layout != r.layout {
		return r, ErrStaleEdit
	}
	if ref.Index < 0 || ref.Index >= len(r.items) {
		return r, fmt.Errorf("%w: %d", ErrIndexOutOfRange, ref.Index)
	}

	next := r.clone(len(r.items))
	item := &next.items[ref.Index]
	switch field {
	case FieldCriterion:
		item.Criterion = value
	case FieldDescription:
		item.Description = value
	case FieldWeight:
		w, err := ParseWeight(value)
		if err != nil {
			return r, err
		}
		item.Weight = w
	default:
		return r, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return next, nil
}

// Remove deletes the item at index i. Later items shift down by one and any
// outstanding Ref becomes stale.
func (r Rubric) Remove(i int) (Rubric, error) {
	if i < 0 || i >= len(r.items) {
		return r, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	next := Rubric{
		items:  make([]Item, 0, len(r.items)-1),
		layout: r.layout + 1,
	}
	next.items = append(next.items, r.items[:i]...)
	next.items = append(next.items, r.items[i+1:]...)
	return next, nil
}

// TotalWeight is the live sum of all weights. Non-finite weights count as 0.
func (r Rubric) TotalWeight() float64 {
	total := 0.0
	for _, it := range r.items {
		total += finiteOrZero(it.Weight)
	}
	return total
}

// Validate checks the rubric is fit to submit.
func (r Rubric) Validate() error {
	var errs []error
	for i, it := range r.items {
		if strings.TrimSpace(it.Criterion) == "" {
			errs = append(errs, &ItemError{Index: i, Err: ErrEmptyCriterion})
		}
		if it.Weight < 0 {
			errs = append(errs, &ItemError{Index: i, Err: ErrNegativeWeight})
		}
		if math.IsNaN(it.Weight) || math.IsInf(it.Weight, 0) {
			errs = append(errs, &ItemError{Index: i, Err: ErrInvalidWeight})
		}
	}
	return errors.Join(errs...)
}

// ParseWeight converts text to a weight the way a browser number field does:
// surrounding whitespace is ignored and an empty value is zero.
func ParseWeight(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeight, s)
	}
	return w, nil
}

// FormatWeight renders a weight without a trailing ".0" for whole numbers.
func FormatWeight(w float64) string {
	return strconv.FormatFloat(finiteOrZero(w), 'f', -1, 64)
}

func (r Rubric) clone(capacity int) Rubric {
	items := make([]Item, len(r.items), capacity)
	copy(items, r.items)
	return Rubric{items: items, layout: r.layout}
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
