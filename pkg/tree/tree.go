package tree

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/aretw0/firestream/pkg/domain"
)

// Reserved keys. A leaf carrying a priority is stored as
// {".value": v, ".priority": p}; a branch keeps its priority next to its children.
const (
	priorityKey = ".priority"
	valueKey    = ".value"
)

func isMeta(key string) bool {
	return key == priorityKey || key == valueKey
}

// Normalize converts v into the canonical JSON form stored in the tree:
// numbers become float64, arrays become objects keyed by index, and empty
// objects or nil children disappear.
func Normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return canonical(out), nil
}

func canonical(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, c := range t {
			if c = canonical(c); c != nil {
				out[k] = c
			}
		}
		return collapse(out)
	case []any:
		out := make(map[string]any, len(t))
		for i, c := range t {
			if c = canonical(c); c != nil {
				out[strconv.Itoa(i)] = c
			}
		}
		return collapse(out)
	}
	return v
}

// collapse returns the stored form of m: nil without data, a bare leaf when
// only ".value" is left, m itself otherwise.
func collapse(m map[string]any) any {
	children := 0
	for k := range m {
		if !isMeta(k) {
			children++
		}
	}
	if children > 0 {
		delete(m, valueKey)
		return m
	}
	v, ok := m[valueKey]
	if !ok || v == nil {
		return nil
	}
	if p := m[priorityKey]; p != nil {
		return map[string]any{valueKey: v, priorityKey: p}
	}
	return v
}

// Get returns the stored node at path, or nil.
func Get(root any, path string) any {
	node := root
	for _, seg := range Split(path) {
		m, ok := node.(map[string]any)
		if !ok || isMeta(seg) {
			return nil
		}
		node = m[seg]
	}
	return node
}

// Value strips priorities from node and returns plain data.
func Value(node any) any {
	m, ok := node.(map[string]any)
	if !ok {
		return node
	}
	if v, ok := m[valueKey]; ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, c := range m {
		if !isMeta(k) {
			out[k] = Value(c)
		}
	}
	return out
}

// PriorityOf returns the priority stored on node.
func PriorityOf(node any) domain.Priority {
	if m, ok := node.(map[string]any); ok {
		return m[priorityKey]
	}
	return nil
}

// Set returns a new root with value written at path. A nil value removes the
// location and prunes parents left empty. root is never modified.
func Set(root any, path string, value any) (any, error) {
	if err := Validate(path); err != nil {
		return root, err
	}
	v, err := Normalize(value)
	if err != nil {
		return root, err
	}
	return setNode(root, Split(path), v), nil
}

// SetWithPriority is Set followed by attaching priority to the new node.
func SetWithPriority(root any, path string, value any, priority domain.Priority) (any, error) {
	if err := Validate(path); err != nil {
		return root, err
	}
	v, err := Normalize(value)
	if err != nil {
		return root, err
	}
	p, err := domain.NormalizePriority(priority)
	if err != nil {
		return root, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return setNode(root, Split(path), withPriority(v, p)), nil
}

// SetPriority changes the priority of the node at path. Empty locations are left alone.
func SetPriority(root any, path string, priority domain.Priority) (any, error) {
	if err := Validate(path); err != nil {
		return root, err
	}
	p, err := domain.NormalizePriority(priority)
	if err != nil {
		return root, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	node := Get(root, path)
	if node == nil {
		return root, nil
	}
	return setNode(root, Split(path), withPriority(node, p)), nil
}

func withPriority(node any, p domain.Priority) any {
	if node == nil {
		return nil
	}
	m := copyMap(node)
	if _, ok := node.(map[string]any); !ok {
		m[valueKey] = node
	}
	if p == nil {
		delete(m, priorityKey)
	} else {
		m[priorityKey] = p
	}
	return collapse(m)
}

// Update writes several locations below path in one step. Keys of values are
// relative slash paths; each named location is replaced as a whole and nil
// removes it. Keys must not overlap.
func Update(root any, path string, values map[string]any) (any, error) {
	if err := Validate(path); err != nil {
		return root, err
	}

	rels := make([]string, 0, len(values))
	for rel := range values {
		if err := Validate(rel); err != nil {
			return root, err
		}
		if len(Split(rel)) == 0 {
			return root, fmt.Errorf("%w: empty update key", domain.ErrInvalidPath)
		}
		rels = append(rels, Clean(rel))
	}
	slices.Sort(rels)
	for i := 1; i < len(rels); i++ {
		if IsAncestor(rels[i-1], rels[i]) {
			return root, fmt.Errorf("%w: update keys %q and %q overlap", domain.ErrInvalidPath, rels[i-1], rels[i])
		}
	}

	// Two merge patches: the first clears every target so the second
	// replaces instead of merging into what was there.
	clearPatch := map[string]any{}
	writePatch := map[string]any{}
	for rel, v := range values {
		nv, err := Normalize(v)
		if err != nil {
			return root, err
		}
		segs := Split(rel)
		putPatch(clearPatch, segs, nil)
		if nv != nil {
			putPatch(writePatch, segs, nv)
		}
	}

	base, ok := Get(root, path).(map[string]any)
	if !ok {
		base = map[string]any{}
	}
	doc, err := json.Marshal(base)
	if err != nil {
		return root, err
	}
	for _, patch := range []map[string]any{clearPatch, writePatch} {
		raw, err := json.Marshal(patch)
		if err != nil {
			return root, err
		}
		if doc, err = jsonpatch.MergePatch(doc, raw); err != nil {
			return root, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
	}

	var merged any
	if err := json.Unmarshal(doc, &merged); err != nil {
		return root, err
	}
	return setNode(root, Split(path), canonical(merged)), nil
}

func putPatch(m map[string]any, segs []string, v any) {
	for _, seg := range segs[:len(segs)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[seg] = next
		}
		m = next
	}
	m[segs[len(segs)-1]] = v
}

func setNode(node any, segs []string, v any) any {
	if len(segs) == 0 {
		return v
	}
	m := copyMap(node)
	if c := setNode(m[segs[0]], segs[1:], v); c == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = c
	}
	return collapse(m)
}

func copyMap(node any) map[string]any {
	src, _ := node.(map[string]any)
	m := make(map[string]any, len(src)+1)
	for k, v := range src {
		m[k] = v
	}
	return m
}

// Snapshot builds the snapshot of path in root.
func Snapshot(root any, path string) *domain.Snapshot {
	node := Get(root, path)
	return &domain.Snapshot{
		Key:      Base(path),
		Path:     Clean(path),
		Value:    Value(node),
		Priority: PriorityOf(node),
		Exists:   node != nil,
	}
}

// ChildKeys returns the keys of node's children in database order:
// by priority (none, numbers, strings), then by key.
func ChildKeys(node any) []string {
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if !isMeta(k) {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := comparePriority(PriorityOf(m[a]), PriorityOf(m[b])); c != 0 {
			return c
		}
		return compareKeys(a, b)
	})
	return keys
}

func priorityRank(p domain.Priority) int {
	switch p.(type) {
	case nil:
		return 0
	case float64:
		return 1
	}
	return 2
}

func comparePriority(a, b domain.Priority) int {
	if c := cmp.Compare(priorityRank(a), priorityRank(b)); c != 0 {
		return c
	}
	switch av := a.(type) {
	case float64:
		return cmp.Compare(av, b.(float64))
	case string:
		return cmp.Compare(av, b.(string))
	}
	return 0
}

// compareKeys orders 32-bit integer keys numerically before all other keys.
func compareKeys(a, b string) int {
	ai, aok := intKey(a)
	bi, bok := intKey(b)
	switch {
	case aok && bok:
		return cmp.Compare(ai, bi)
	case aok:
		return -1
	case bok:
		return 1
	}
	return cmp.Compare(a, b)
}

func intKey(k string) (int64, bool) {
	n, err := strconv.ParseInt(k, 10, 32)
	if err != nil || strconv.FormatInt(n, 10) != k {
		return 0, false
	}
	return n, true
}

// Transact runs fn on the value stored at path and writes back what it
// returns. When fn aborts, root is returned unchanged with Committed false.
// A panic in fn is reported as an error.
func Transact(root any, path string, fn domain.UpdateFunc) (any, domain.TransactionResult, error) {
	next, commit, err := runUpdate(fn, Value(Get(root, path)))
	if err != nil {
		return root, domain.TransactionResult{}, err
	}
	if !commit {
		return root, domain.TransactionResult{Snapshot: Snapshot(root, path)}, nil
	}
	after, err := Set(root, path, next)
	if err != nil {
		return root, domain.TransactionResult{}, err
	}
	return after, domain.TransactionResult{Committed: true, Snapshot: Snapshot(after, path)}, nil
}

func runUpdate(fn domain.UpdateFunc, current any) (next any, commit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transaction update panicked: %v", r)
		}
	}()
	next, commit = fn(current)
	return next, commit, nil
}
