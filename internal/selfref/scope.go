package selfref

import "errors"

// scope releases acquired handles in reverse order. A guard released
// early is skipped when the scope closes.
type scope struct {
	guards   []*guard
	released func(name string)
}

type guard struct {
	name    string
	release func() error
	done    bool
	scope   *scope
}

func (s *scope) acquire(name string, release func() error) *guard {
	g := &guard{name: name, release: release, scope: s}
	s.guards = append(s.guards, g)
	return g
}

// Release runs the release function once. Later calls return nil.
func (g *guard) Release() error {
	if g.done {
		return nil
	}
	g.done = true
	if g.scope.released != nil {
		g.scope.released(g.name)
	}
	return g.release()
}

func (s *scope) Close() error {
	var errs []error
	for i := len(s.guards) - 1; i >= 0; i-- {
		errs = append(errs, s.guards[i].Release())
	}
	s.guards = nil
	return errors.Join(errs...)
}
