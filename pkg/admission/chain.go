package admission

import "context"

// Chain runs its plugins in order. Admit runs the mutators and Validate the
// validators, both stop at the first error.
type Chain []Interface

var (
	_ Mutator   = Chain{}
	_ Validator = Chain{}
)

func NewChain(plugins ...Interface) Chain {
	return Chain(plugins)
}

func (c Chain) Admit(ctx context.Context, a Attributes) error {
	for _, plugin := range c {
		if m, ok := plugin.(Mutator); ok && m.Handles(a.GetOperation()) {
			if err := m.Admit(ctx, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c Chain) Validate(ctx context.Context, a Attributes) error {
	for _, plugin := range c {
		if v, ok := plugin.(Validator); ok && v.Handles(a.GetOperation()) {
			if err := v.Validate(ctx, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// Handles reports whether any plugin takes part in operation.
func (c Chain) Handles(operation Operation) bool {
	for _, plugin := range c {
		if plugin.Handles(operation) {
			return true
		}
	}
	return false
}
