package scene

// MemoryDelegateOption is a functional option for populating a MemoryDelegate.
type MemoryDelegateOption func(*MemoryDelegate)

// WithPrim adds a prim, marking it with its initial dirty bits.
//
// Parameters:
//   - p: the prim to add
//
// Returns:
//   - MemoryDelegateOption: option function to apply
func WithPrim(p *Prim) MemoryDelegateOption {
	return func(d *MemoryDelegate) {
		d.AddPrim(p)
	}
}

// WithInstancer adds an instancer.
//
// Parameters:
//   - in: the instancer to add
//
// Returns:
//   - MemoryDelegateOption: option function to apply
func WithInstancer(in *Instancer) MemoryDelegateOption {
	return func(d *MemoryDelegate) {
		d.AddInstancer(in)
	}
}
