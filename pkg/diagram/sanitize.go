package diagram

// Sanitize repairs the link set so that the structural invariants hold:
//
//   - every link has two live endpoints
//   - exactly one endpoint is the "in" port and the other an "out" port
//   - an output port carries at most one link; the newest one is kept
//   - no link connects two ports of the same node
//
// Invalid links are removed, never reported. Afterwards port references to
// links no longer in the model are swept with [PruneDanglingLinks].
// Sanitize returns the number of links it removed and is idempotent.
func Sanitize(m *Model) int {
	removed := 0
	drop := func(l *Link) {
		if m.RemoveLink(l.id) {
			removed++
		}
	}

	for _, l := range m.Links() {
		if _, live := m.links[l.id]; !live {
			continue
		}

		src, tgt := l.source, l.target
		if !m.livePort(src) || !m.livePort(tgt) {
			drop(l)
			continue
		}
		if src.name != InPort && tgt.name != InPort {
			drop(l)
			continue
		}
		if !IsOutPort(src.name) && !IsOutPort(tgt.name) {
			drop(l)
			continue
		}

		for _, p := range []*Port{src, tgt} {
			if IsOutPort(p.name) && len(p.links) > 1 {
				removed += keepNewest(m, p)
			}
		}
		if _, live := m.links[l.id]; !live {
			continue
		}

		if src.node == tgt.node {
			drop(l)
		}
	}

	PruneDanglingLinks(m)
	return removed
}

// keepNewest removes every link on p except the most recently created one.
func keepNewest(m *Model, p *Port) int {
	var newest *Link
	for _, l := range p.links {
		if live, ok := m.links[l.id]; !ok || live != l {
			continue
		}
		if newest == nil || l.seq > newest.seq {
			newest = l
		}
	}
	removed := 0
	for _, l := range p.Links() {
		if l != newest && m.RemoveLink(l.id) {
			removed++
		}
	}
	return removed
}

// PruneDanglingLinks drops port references to links that are no longer part
// of the model, e.g. left behind by a node deletion, and returns how many
// references it dropped.
func PruneDanglingLinks(m *Model) int {
	pruned := 0
	for _, n := range m.order {
		for _, p := range n.Ports() {
			kept := p.links[:0]
			for _, l := range p.links {
				if live, ok := m.links[l.id]; ok && live == l {
					kept = append(kept, l)
				} else {
					pruned++
				}
			}
			clear(p.links[len(kept):])
			p.links = kept
		}
	}
	return pruned
}
