package atc

import "fmt"

// Registry holds every airport by name. It is filled once before the
// simulation starts and only read afterwards, so it carries no lock.
type Registry struct {
	airports map[string]*Airport
	order    []string
}

func NewRegistry(airports ...*Airport) (*Registry, error) {
	r := &Registry{airports: make(map[string]*Airport, len(airports))}
	for _, a := range airports {
		if err := r.add(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(a *Airport) error {
	if a == nil {
		return fmt.Errorf("%w: nil airport", ErrInvalidAirport)
	}
	if _, ok := r.airports[a.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, a.Name)
	}
	r.airports[a.Name] = a
	r.order = append(r.order, a.Name)
	return nil
}

func (r *Registry) Airport(name string) (*Airport, bool) {
	a, ok := r.airports[name]
	return a, ok
}

// Airports returns the airports in registration order
func (r *Registry) Airports() []*Airport {
	out := make([]*Airport, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.airports[name])
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }
