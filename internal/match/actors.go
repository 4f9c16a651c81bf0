package match

// Privileged is the set of actors allowed to override ownership checks.
type Privileged map[string]struct{}

// NewPrivileged builds a Privileged set from a list of actor ids.
func NewPrivileged(ids []string) Privileged {
	p := make(Privileged, len(ids))
	for _, id := range ids {
		if id != "" {
			p[id] = struct{}{}
		}
	}
	return p
}

// Has reports whether the actor is privileged.
func (p Privileged) Has(actorID string) bool {
	_, ok := p[actorID]
	return ok
}

// CanManage reports whether the actor may act on the match as its owner.
func (p Privileged) CanManage(m *Match, actorID string) bool {
	return m.CreatorID == actorID || p.Has(actorID)
}
