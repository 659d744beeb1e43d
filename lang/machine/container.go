package machine

// Container owns a compiled bytecode vector (spec.md §3 "Container"). It is
// truthy iff non-empty, move-only by convention (callers should treat a
// Container value as owned by exactly one place once built — see spec.md
// §5 "Scoped resources"), and immutable after compilation.
type Container struct {
	Code []byte
}

// Valid reports whether c holds compiled bytecode (spec.md §3 "truthy iff
// non-empty"; §7 "if the default itself fails, the Container is empty").
func (c *Container) Valid() bool { return c != nil && len(c.Code) > 0 }
