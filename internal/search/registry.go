package search

// Registry is the ordered collection of known lights. Iteration order is
// discovery order; lookup goes through an index keyed by identifier.
//
// Registry does no locking of its own; Search serialises access.
type Registry struct {
	devices []Device
	index   map[string]int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// Insert appends a device. The caller guarantees the identifier is new.
func (r *Registry) Insert(d Device) {
	r.index[d.ID()] = len(r.devices)
	r.devices = append(r.devices, d)
}

// FindByID returns the device with the given identifier
func (r *Registry) FindByID(id string) (Device, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.devices[i], true
}

// All returns a copy of every device in discovery order
func (r *Registry) All() []Device {
	out := make([]Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Len returns the number of known devices
func (r *Registry) Len() int {
	return len(r.devices)
}
