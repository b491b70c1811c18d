// Package index provides the in-memory structures backing the record cache:
// a height-balanced ordered index keyed by record ID and a secondary index
// grouping member IDs under an owning record.
package index

import (
	"firmcore/pkg/domain"
	"fmt"
)

type node[T domain.Keyed] struct {
	rec    T
	height int
	left   *node[T]
	right  *node[T]
}

// BalancedIndex is an AVL tree of records ordered by Key. It is not safe for
// concurrent use; callers serialize access.
type BalancedIndex[T domain.Keyed] struct {
	entity domain.EntityType
	root   *node[T]
	size   int
}

// NewBalancedIndex returns an empty index whose errors report entity.
func NewBalancedIndex[T domain.Keyed](entity domain.EntityType) *BalancedIndex[T] {
	return &BalancedIndex[T]{entity: entity}
}

// Len returns the number of stored records.
func (b *BalancedIndex[T]) Len() int { return b.size }

// Height returns the height of the root, zero when empty.
func (b *BalancedIndex[T]) Height() int { return height(b.root) }

// Insert adds rec. A record with the same key yields ErrDuplicateKey and
// leaves the tree unchanged.
func (b *BalancedIndex[T]) Insert(rec T) error {
	root, err := b.insert(b.root, rec)
	if err != nil {
		return err
	}
	b.root = root
	b.size++
	return nil
}

// Find returns the record stored under key.
func (b *BalancedIndex[T]) Find(key int) (T, error) {
	n := b.root
	for n != nil {
		switch k := n.rec.Key(); {
		case key < k:
			n = n.left
		case key > k:
			n = n.right
		default:
			return n.rec, nil
		}
	}
	var zero T
	return zero, domain.ErrNotFound{Entity: b.entity, ID: key}
}

// Contains reports whether key is present.
func (b *BalancedIndex[T]) Contains(key int) bool {
	_, err := b.Find(key)
	return err == nil
}

// Replace overwrites the record stored under rec's key without changing the
// tree shape.
func (b *BalancedIndex[T]) Replace(rec T) error {
	key := rec.Key()
	n := b.root
	for n != nil {
		switch k := n.rec.Key(); {
		case key < k:
			n = n.left
		case key > k:
			n = n.right
		default:
			n.rec = rec
			return nil
		}
	}
	return domain.ErrNotFound{Entity: b.entity, ID: key}
}

// Remove deletes and returns the record stored under key. A missing key
// yields ErrNotFound and leaves the tree unchanged.
func (b *BalancedIndex[T]) Remove(key int) (T, error) {
	root, removed, err := b.remove(b.root, key)
	if err != nil {
		return removed, err
	}
	b.root = root
	b.size--
	return removed, nil
}

// Ascend calls fn for each record in increasing key order until fn returns false.
func (b *BalancedIndex[T]) Ascend(fn func(T) bool) {
	var stack []*node[T]
	n := b.root
	for n != nil || len(stack) > 0 {
		for n != nil {
			stack = append(stack, n)
			n = n.left
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n.rec) {
			return
		}
		n = n.right
	}
}

// Keys returns every key in increasing order.
func (b *BalancedIndex[T]) Keys() []int {
	keys := make([]int, 0, b.size)
	b.Ascend(func(rec T) bool {
		keys = append(keys, rec.Key())
		return true
	})
	return keys
}

// Values returns every record in increasing key order.
func (b *BalancedIndex[T]) Values() []T {
	out := make([]T, 0, b.size)
	b.Ascend(func(rec T) bool {
		out = append(out, rec)
		return true
	})
	return out
}

// Clear drops every record.
func (b *BalancedIndex[T]) Clear() {
	b.root = nil
	b.size = 0
}

// Validate walks the whole tree and reports the first cached height,
// balance factor, ordering, or size mismatch as InvariantViolation.
func (b *BalancedIndex[T]) Validate() error {
	count := 0
	if _, err := validate(b.root, nil, nil, &count); err != nil {
		return err
	}
	if count != b.size {
		return domain.InvariantViolation{Detail: fmt.Sprintf("size %d but %d nodes reachable", b.size, count)}
	}
	return nil
}

func validate[T domain.Keyed](n *node[T], lo, hi *int, count *int) (int, error) {
	if n == nil {
		return 0, nil
	}
	key := n.rec.Key()
	if (lo != nil && key <= *lo) || (hi != nil && key >= *hi) {
		return 0, domain.InvariantViolation{Detail: fmt.Sprintf("key %d out of order", key)}
	}
	*count++
	lh, err := validate(n.left, lo, &key, count)
	if err != nil {
		return 0, err
	}
	rh, err := validate(n.right, &key, hi, count)
	if err != nil {
		return 0, err
	}
	h := 1 + max(lh, rh)
	if n.height != h {
		return 0, domain.InvariantViolation{Detail: fmt.Sprintf("key %d cached height %d, actual %d", key, n.height, h)}
	}
	if bf := lh - rh; bf < -1 || bf > 1 {
		return 0, domain.InvariantViolation{Detail: fmt.Sprintf("key %d balance factor %d", key, bf)}
	}
	return h, nil
}

func (b *BalancedIndex[T]) insert(n *node[T], rec T) (*node[T], error) {
	if n == nil {
		return &node[T]{rec: rec, height: 1}, nil
	}
	key := rec.Key()
	switch k := n.rec.Key(); {
	case key < k:
		child, err := b.insert(n.left, rec)
		if err != nil {
			return n, err
		}
		n.left = child
	case key > k:
		child, err := b.insert(n.right, rec)
		if err != nil {
			return n, err
		}
		n.right = child
	default:
		return n, domain.ErrDuplicateKey{Entity: b.entity, ID: key}
	}
	return rebalance(n), nil
}

func (b *BalancedIndex[T]) remove(n *node[T], key int) (*node[T], T, error) {
	if n == nil {
		var zero T
		return nil, zero, domain.ErrNotFound{Entity: b.entity, ID: key}
	}
	var removed T
	switch k := n.rec.Key(); {
	case key < k:
		child, rec, err := b.remove(n.left, key)
		if err != nil {
			return n, rec, err
		}
		n.left, removed = child, rec
	case key > k:
		child, rec, err := b.remove(n.right, key)
		if err != nil {
			return n, rec, err
		}
		n.right, removed = child, rec
	default:
		removed = n.rec
		if n.left == nil {
			return n.right, removed, nil
		}
		if n.right == nil {
			return n.left, removed, nil
		}
		// two children: take the in-order successor's record, then unlink it
		var succ T
		n.right, succ = removeMin(n.right)
		n.rec = succ
	}
	return rebalance(n), removed, nil
}

func removeMin[T domain.Keyed](n *node[T]) (*node[T], T) {
	if n.left == nil {
		return n.right, n.rec
	}
	var rec T
	n.left, rec = removeMin(n.left)
	return rebalance(n), rec
}

func height[T domain.Keyed](n *node[T]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func (n *node[T]) fix() {
	n.height = 1 + max(height(n.left), height(n.right))
}

func balanceFactor[T domain.Keyed](n *node[T]) int {
	if n == nil {
		return 0
	}
	return height(n.left) - height(n.right)
}

func rotateRight[T domain.Keyed](y *node[T]) *node[T] {
	x := y.left
	y.left = x.right
	x.right = y
	y.fix()
	x.fix()
	return x
}

func rotateLeft[T domain.Keyed](x *node[T]) *node[T] {
	y := x.right
	x.right = y.left
	y.left = x
	x.fix()
	y.fix()
	return y
}

// rebalance refreshes n's height and restores |balance| <= 1 at n.
func rebalance[T domain.Keyed](n *node[T]) *node[T] {
	n.fix()
	switch bf := balanceFactor(n); {
	case bf > 1:
		if balanceFactor(n.left) < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	case bf < -1:
		if balanceFactor(n.right) > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}
