package utils

// OrderedSet is a map that remembers insertion order of its keys.
// It combines the benefits of both maps and slices:
// - Uses a map for O(1) lookups and to ensure key uniqueness
// - Uses a slice to maintain insertion order and enable ordered iteration
// It is not safe for concurrent use; the expander builds one per call.
type OrderedSet[K comparable, V any] struct {
	itemPos map[K]int // position of the item in the list
	items   []V
	keys    []K
}

func NewOrderedSet[K comparable, V any]() *OrderedSet[K, V] {
	return &OrderedSet[K, V]{
		itemPos: make(map[K]int),
	}
}

func (o *OrderedSet[K, V]) Put(key K, value V) {
	// Update existing entry
	if pos, exists := o.itemPos[key]; exists {
		o.items[pos] = value
		return
	}

	// Insert new entry
	o.itemPos[key] = len(o.items)
	o.items = append(o.items, value)
	o.keys = append(o.keys, key)
}

// PutIfAbsent inserts only when the key is not yet present and reports
// whether it inserted. The first write for a key always wins.
func (o *OrderedSet[K, V]) PutIfAbsent(key K, value V) bool {
	if _, exists := o.itemPos[key]; exists {
		return false
	}
	o.itemPos[key] = len(o.items)
	o.items = append(o.items, value)
	o.keys = append(o.keys, key)
	return true
}

func (o *OrderedSet[K, V]) Get(key K) (V, bool) {
	if pos, ok := o.itemPos[key]; ok {
		return o.items[pos], true
	}
	var zero V
	return zero, false
}

func (o *OrderedSet[K, V]) Size() int {
	return len(o.items)
}

// List returns a shallow copy of the set's value list in insertion order.
func (o *OrderedSet[K, V]) List() []V {
	values := make([]V, len(o.items))
	copy(values, o.items)
	return values
}

// Keys returns a slice of keys in their insertion order.
func (o *OrderedSet[K, V]) Keys() []K {
	keys := make([]K, len(o.keys))
	copy(keys, o.keys)
	return keys
}
