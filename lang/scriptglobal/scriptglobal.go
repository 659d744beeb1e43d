// Package scriptglobal implements the tag store described in spec.md
// §4.6: a global, frozen-after-init registry of named tags per host
// "kind" (spec.md's TagData{display_name, max_index, factory,
// value_slots}, populated once via add_tag_kind<T>()/AddTag), separate
// from the per-host-object-instance ScriptValues vector that actually
// holds a tag's values. Every host object of a given kind shares one
// *KindRegistry to resolve tag names to stable integer handles, but owns
// its own *ScriptValues to store them — exactly as spec.md §3 describes a
// tagged host object's state: "a ScriptValues stores a dense vec<int>
// indexed by the tag index". Like lang/catalog and lang/symtab, the
// name-keyed registry uses github.com/dolthub/swiss.
package scriptglobal

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/just-dont/OpenXcom/lang/argkind"
	"github.com/just-dont/OpenXcom/lang/diag"
)

// valueSlot is one tag name a KindRegistry has registered, bound to a
// value kind and (for pointer-valued tags) a zero-value factory (spec.md
// §4.6 "value_slots: [{name, value_type_id}]").
type valueSlot struct {
	name    string
	kind    argkind.ArgKind
	isPtr   bool
	factory func() any // only set for pointer-valued slots; may be nil
}

// KindRegistry is the global TagData for one host object kind (spec.md
// §4.6 "for each registered tag-kind T, a TagData{display_name, max_index,
// factory, value_slots}"). A host builds one KindRegistry per kind during
// init — typically into a package-level var, the Go analogue of the
// original's add_tag_kind<T>() — then shares it across every ScriptValues
// instance of that kind and every ParserWriter that compiles scripts
// against objects of that kind. Like lang/catalog.Catalog, it is built
// once and expected to be frozen (by convention) before any script
// compiles against it.
type KindRegistry struct {
	DisplayName string
	MaxIndex    int

	slots  []valueSlot
	byName *swiss.Map[string, int]
}

// AddTagKind registers a new, empty tag kind with the given display name
// and index limit (spec.md §4.6 "add_tag_kind<T>() registers the kind's
// display name and index limit").
func AddTagKind(displayName string, maxIndex int) *KindRegistry {
	return &KindRegistry{
		DisplayName: displayName,
		MaxIndex:    maxIndex,
		byName:      swiss.NewMap[string, int](16),
	}
}

// Tag is a small integer handle to one tag name registered against a
// kind (spec.md §4.6 "host objects add tag names bound to a value-type,
// receiving a Tag<T> handle"). Unlike the old per-Store Tag[T], a Tag is
// not bound to any one instance's storage: the same handle indexes every
// ScriptValues built against the KindRegistry that issued it. Its fields
// are exported because a global-ref call argument's resolved index
// travels through the compiler as a plain catalog.Arg.RegOffset/ConstInt
// (lang/compiler has no notion of scriptglobal.Tag), so a ParseHook/
// runtime handler pair that wires a tag op must be able to reconstruct a
// Tag from that bare index on the far side of compilation.
type Tag struct {
	Index int
	IsPtr bool
}

// AddTag registers name as an int-valued tag of kind k and returns its
// handle.
func (k *KindRegistry) AddTag(name string, kind argkind.ArgKind) (Tag, error) {
	return k.addTag(name, kind, false, nil)
}

// AddPtrTag registers name as a pointer-valued tag of kind k. factory, if
// non-nil, lazily constructs the tag's zero value the first time GetPtr
// finds it absent on a given instance (spec.md §4.6 TagData's "factory").
func (k *KindRegistry) AddPtrTag(name string, kind argkind.ArgKind, factory func() any) (Tag, error) {
	return k.addTag(name, kind, true, factory)
}

func (k *KindRegistry) addTag(name string, kind argkind.ArgKind, isPtr bool, factory func() any) (Tag, error) {
	if _, ok := k.byName.Get(name); ok {
		return Tag{}, &diag.Error{Kind: diag.DuplicateTagName, Message: fmt.Sprintf("tag %q already declared for kind %q", name, k.DisplayName)}
	}
	if len(k.slots) >= k.MaxIndex {
		return Tag{}, &diag.Error{Kind: diag.UnknownTagValueType, Message: fmt.Sprintf("kind %q: tag index limit %d exceeded", k.DisplayName, k.MaxIndex)}
	}
	idx := len(k.slots)
	k.slots = append(k.slots, valueSlot{name: name, kind: kind, isPtr: isPtr, factory: factory})
	k.byName.Put(name, idx)
	return Tag{Index: idx, IsPtr: isPtr}, nil
}

// Resolve implements symtab.GlobalRefResolver: it looks up name among this
// kind's declared tags and reports the ArgKind a script should see. The
// returned offset is the tag's stable index within the kind — valid
// against any ScriptValues built from this KindRegistry, not a
// register-file byte offset. A script binding's actual register-file
// offset is assigned separately by lang/symtab's own DeclareInput/
// DeclareOutput bookkeeping; the global ref is bound to a live
// ScriptValues instance by a ParseHook/EmitExtra at the point of use
// (spec.md §4.3 "then in global shared refs").
func (k *KindRegistry) Resolve(name string) (kind argkind.ArgKind, offset int, ok bool) {
	idx, ok := k.byName.Get(name)
	if !ok {
		return argkind.ArgKind{}, 0, false
	}
	return k.slots[idx].kind, idx, true
}

// Lookup returns the Tag handle previously issued for name, if any.
func (k *KindRegistry) Lookup(name string) (Tag, bool) {
	idx, ok := k.byName.Get(name)
	if !ok {
		return Tag{}, false
	}
	return Tag{Index: idx, IsPtr: k.slots[idx].isPtr}, true
}

// ScriptValues is the dense vector<int> of tag values owned by one host
// object instance (spec.md §4.6, §3 "ScriptValues ... a dense vector<int>
// indexed by the Tag<T> integer; get returns 0 for absent indices, set
// grows the vector as needed"). Every ScriptValues of a given kind shares
// that kind's KindRegistry to interpret its indices, but each instance's
// storage is private to it — the fix this type exists for: the old Store
// kept exactly one copy of this storage for the whole process.
type ScriptValues struct {
	kind *KindRegistry
	ints []int64
	ptrs []any
}

// NewScriptValues returns an empty ScriptValues addressed by kind's tags.
func NewScriptValues(kind *KindRegistry) *ScriptValues {
	return &ScriptValues{kind: kind}
}

// GetInt returns t's current value on v, or 0 if v has never had t set.
func (v *ScriptValues) GetInt(t Tag) int64 {
	if t.Index >= len(v.ints) {
		return 0
	}
	return v.ints[t.Index]
}

// SetInt stores val as t's value on v, growing v's backing vector as
// needed.
func (v *ScriptValues) SetInt(t Tag, val int64) {
	v.growInts(t.Index)
	v.ints[t.Index] = val
}

func (v *ScriptValues) growInts(idx int) {
	for len(v.ints) <= idx {
		v.ints = append(v.ints, 0)
	}
}

// GetPtr returns t's current pointer value on v, typed as T. If v has
// never had t set and t's slot was registered with a factory, GetPtr
// invokes it once, stores the result, and returns it.
func GetPtr[T any](v *ScriptValues, t Tag) *T {
	if t.Index < len(v.ptrs) {
		if p, _ := v.ptrs[t.Index].(*T); p != nil {
			return p
		}
	}
	if t.Index < len(v.kind.slots) {
		if factory := v.kind.slots[t.Index].factory; factory != nil {
			p, _ := factory().(*T)
			SetPtr(v, t, p)
			return p
		}
	}
	return nil
}

// SetPtr stores val as t's pointer value on v, growing v's backing vector
// as needed.
func SetPtr[T any](v *ScriptValues, t Tag, val *T) {
	for len(v.ptrs) <= t.Index {
		v.ptrs = append(v.ptrs, nil)
	}
	v.ptrs[t.Index] = val
}

// Values is the save/load surface for one ScriptValues (spec.md §4.6
// "Persisted state: only ScriptValues — a mapping of tag-name (string) →
// adapter-serialized form"): every nonzero int-valued tag's name mapped to
// its current value. Pointer-valued tags are never persisted; spec.md
// §4.6 only describes integer slot persistence.
type Values map[string]int64

// Save walks v's nonzero int slots in index order and returns a
// name-keyed snapshot (spec.md §4.6 "save walks nonzero entries in index
// order").
func (v *ScriptValues) Save() Values {
	out := make(Values)
	for idx, slot := range v.kind.slots {
		if slot.isPtr || idx >= len(v.ints) || v.ints[idx] == 0 {
			continue
		}
		out[slot.name] = v.ints[idx]
	}
	return out
}

// Load restores int tag values from a snapshot previously returned by
// Save, resolving each key to a Tag index via v's KindRegistry (spec.md
// §4.6 "Load walks a key→node map, resolving each key to a Tag index").
// A name that is no longer a declared int tag is skipped rather than
// failing the whole load (spec.md §6 "Unknown tag names on load are
// ignored with a warning"); skipped names are returned so the host can
// surface them through its own warning channel.
func (v *ScriptValues) Load(snap Values) (ignored []string) {
	for name, val := range snap {
		idx, ok := v.kind.byName.Get(name)
		if !ok || v.kind.slots[idx].isPtr {
			ignored = append(ignored, name)
			continue
		}
		v.growInts(idx)
		v.ints[idx] = val
	}
	return ignored
}
