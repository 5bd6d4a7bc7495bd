package gepa

// ComponentSelectorKind is a closed set of component-selection strategies.
type ComponentSelectorKind int

const (
	ComponentSelectorRoundRobin ComponentSelectorKind = iota
	ComponentSelectorAll
)

// ComponentSelector picks which component names of a selected candidate to
// mutate. It is pure: round-robin's counter lives on State
// (next_component_for), updated by the engine when it creates the child,
// not by the selector — the design note moving mutable selector state back
// into State made concrete.
type ComponentSelector struct {
	Kind ComponentSelectorKind
}

// Select returns the component names to mutate for candidate k.
func (c ComponentSelector) Select(s *State, k int) []string {
	if c.Kind == ComponentSelectorAll {
		return append([]string{}, s.ComponentNames...)
	}
	if len(s.ComponentNames) == 0 {
		return nil
	}
	idx := s.NextComponentFor[k] % len(s.ComponentNames)
	return []string{s.ComponentNames[idx]}
}
