package matcher

// Resolution is the outcome of resolving one reported name.
type Resolution struct {
	Reported string
	Name     string
	Score    float64
	// Matched is set when Name came from the snapshot, including names
	// discovered earlier in the same session.
	Matched bool
	// New is set when this call added Reported to the snapshot.
	New bool
}

// Session is the roster snapshot for one processing run. Names that fail
// to match are added so later mentions of the same new entity resolve to
// the first spelling seen.
type Session struct {
	matcher *Matcher
	names   []string
	order   []string
}

func NewSession(m *Matcher, roster []string) *Session {
	names := make([]string, len(roster))
	copy(names, roster)
	return &Session{matcher: m, names: names}
}

func (s *Session) Resolve(reported string) Resolution {
	name, score, ok := s.matcher.Match(reported, s.names)
	if ok {
		return Resolution{Reported: reported, Name: name, Score: score, Matched: true}
	}
	s.names = append(s.names, reported)
	s.order = append(s.order, reported)
	return Resolution{Reported: reported, Name: reported, Score: score, New: true}
}

// Names returns the current snapshot including names added this run.
func (s *Session) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Added returns names discovered during this run, in discovery order.
func (s *Session) Added() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
