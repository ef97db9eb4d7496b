package rib

import (
	"fmt"

	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/nlri"
)

// watchdogGroup partitions the routes registered under one watchdog
// name into the routes currently eligible for announcement and those
// being held back.
type watchdogGroup struct {
	active   map[string]*Route
	inactive map[string]*Route
}

func newWatchdogGroup() *watchdogGroup {
	return &watchdogGroup{active: map[string]*Route{}, inactive: map[string]*Route{}}
}

// AdjRIBOut is the per-neighbor outgoing RIB: queued announces and
// withdraws waiting to be packed into UPDATE messages, the cache of
// what has already been sent, and watchdog-gated route groups.
type AdjRIBOut struct {
	pendingAnnounces map[string]map[bgp.Family]map[string]*Route // attr fingerprint -> family -> nlri index -> Route
	pendingWithdraws map[bgp.Family]map[string]nlri.NLRI         // family -> nlri index -> NLRI
	// withdrawAttrs holds attributes attached to a withdraw by the
	// `attributes ... withdraw ...` command form (§9 open question):
	// kept only for wire-identical replay bookkeeping, never inspected
	// or emitted by the assembler.
	withdrawAttrs  map[bgp.Family]map[string]*attribute.Collection
	seen           map[bgp.Family]map[string]seenEntry // family -> nlri index -> last-sent state
	watchdogs      map[string]*watchdogGroup
	refreshPending map[bgp.Family]bool
	flushCallbacks []func()
}

func NewAdjRIBOut() *AdjRIBOut {
	return &AdjRIBOut{
		pendingAnnounces: map[string]map[bgp.Family]map[string]*Route{},
		pendingWithdraws: map[bgp.Family]map[string]nlri.NLRI{},
		withdrawAttrs:    map[bgp.Family]map[string]*attribute.Collection{},
		seen:             map[bgp.Family]map[string]seenEntry{},
		watchdogs:        map[string]*watchdogGroup{},
		refreshPending:   map[bgp.Family]bool{},
	}
}

// OnFlush registers a callback fired every time a Drain's iterator is
// exhausted.
func (r *AdjRIBOut) OnFlush(cb func()) {
	r.flushCallbacks = append(r.flushCallbacks, cb)
}

func (r *AdjRIBOut) family(n nlri.NLRI) bgp.Family { return n.Family() }

// deleteWithdraw removes a matching pending withdraw for the same
// family/index, implementing "announce cancels withdraw".
func (r *AdjRIBOut) deleteWithdraw(family bgp.Family, index string) {
	if m, ok := r.pendingWithdraws[family]; ok {
		delete(m, index)
		if len(m) == 0 {
			delete(r.pendingWithdraws, family)
		}
	}
	if m, ok := r.withdrawAttrs[family]; ok {
		delete(m, index)
		if len(m) == 0 {
			delete(r.withdrawAttrs, family)
		}
	}
}

// deleteAnnounce removes a matching queued announce for the same
// family/index across every attribute group, implementing "withdraw
// cancels announce".
func (r *AdjRIBOut) deleteAnnounce(family bgp.Family, index string) {
	for fp, byFamily := range r.pendingAnnounces {
		m, ok := byFamily[family]
		if !ok {
			continue
		}
		delete(m, index)
		if len(m) == 0 {
			delete(byFamily, family)
		}
		if len(byFamily) == 0 {
			delete(r.pendingAnnounces, fp)
		}
	}
}

// AddToRib queues route for announcement, coalescing it with any other
// pending announce sharing the same attribute fingerprint, and cancels
// any pending withdraw for the same NLRI.
func (r *AdjRIBOut) AddToRib(route *Route) {
	family := r.family(route.NLRI())
	fp := ""
	if route.Attributes() != nil {
		fp = route.Attributes().Index()
	}
	byFamily, ok := r.pendingAnnounces[fp]
	if !ok {
		byFamily = map[bgp.Family]map[string]*Route{}
		r.pendingAnnounces[fp] = byFamily
	}
	m, ok := byFamily[family]
	if !ok {
		m = map[string]*Route{}
		byFamily[family] = m
	}
	m[route.Index()] = route
	r.deleteWithdraw(family, route.Index())
}

// DelFromRib queues n for withdrawal and cancels any pending announce
// for the same NLRI across all attribute groups. An optional attrs
// argument records attributes attached to this withdraw by the
// `attributes ... withdraw ...` command form; it carries no semantic
// guarantee and nothing downstream inspects it (§9 open question).
func (r *AdjRIBOut) DelFromRib(n nlri.NLRI, attrs ...*attribute.Collection) {
	family := r.family(n)
	m, ok := r.pendingWithdraws[family]
	if !ok {
		m = map[string]nlri.NLRI{}
		r.pendingWithdraws[family] = m
	}
	index := family.String() + "|" + n.Index()
	m[index] = n
	if len(attrs) > 0 && attrs[0] != nil {
		am, ok := r.withdrawAttrs[family]
		if !ok {
			am = map[string]*attribute.Collection{}
			r.withdrawAttrs[family] = am
		}
		am[index] = attrs[0]
	}
	r.deleteAnnounce(family, index)
}

// InCache reports whether route has already been sent with the same
// attribute fingerprint and next-hop, i.e. re-announcing it would be a
// no-op.
func (r *AdjRIBOut) InCache(route *Route) bool {
	family := r.family(route.NLRI())
	m, ok := r.seen[family]
	if !ok {
		return false
	}
	entry, ok := m[route.Index()]
	if !ok {
		return false
	}
	return entry.equalTo(route.Attributes(), route.NextHop())
}

// ReplaceRestart reconciles the RIB after a reconnect: every route
// present before but absent now is withdrawn; every route present now
// is (re-)announced, so the peer receives a full resync regardless of
// what it already held from before the session drop.
func (r *AdjRIBOut) ReplaceRestart(previous, current []*Route) {
	currentByIndex := make(map[string]*Route, len(current))
	for _, route := range current {
		currentByIndex[route.Index()] = route
	}
	for _, route := range previous {
		if _, stillPresent := currentByIndex[route.Index()]; !stillPresent {
			r.DelFromRib(route.NLRI())
		}
	}
	for _, route := range current {
		r.AddToRib(route)
	}
}

// ReplaceReload reconciles the RIB after a configuration reload: only
// routes that actually changed are touched, so unchanged routes do not
// generate pointless churn on the wire.
func (r *AdjRIBOut) ReplaceReload(previous, current []*Route) {
	previousByIndex := make(map[string]*Route, len(previous))
	for _, route := range previous {
		previousByIndex[route.Index()] = route
	}
	currentByIndex := make(map[string]*Route, len(current))
	for _, route := range current {
		currentByIndex[route.Index()] = route
	}
	for index, route := range previousByIndex {
		if _, stillPresent := currentByIndex[index]; !stillPresent {
			r.DelFromRib(route.NLRI())
		}
	}
	for index, route := range currentByIndex {
		old, existed := previousByIndex[index]
		if existed && old.Attributes() != nil && route.Attributes() != nil && old.Attributes().Index() == route.Attributes().Index() && old.NextHop().Equal(route.NextHop()) {
			continue
		}
		r.AddToRib(route)
	}
}

// AddToWatchdog registers route under a named watchdog group. When
// startInactive is set, the route is held back until
// AnnounceWatchdog(name) is called; otherwise it is announced
// immediately.
func (r *AdjRIBOut) AddToWatchdog(name string, route *Route, startInactive bool) {
	group, ok := r.watchdogs[name]
	if !ok {
		group = newWatchdogGroup()
		r.watchdogs[name] = group
	}
	if startInactive {
		group.inactive[route.Index()] = route
		return
	}
	group.active[route.Index()] = route
	r.AddToRib(route)
}

// AnnounceWatchdog moves every inactive route under name to active and
// queues it for announcement.
func (r *AdjRIBOut) AnnounceWatchdog(name string) {
	group, ok := r.watchdogs[name]
	if !ok {
		return
	}
	for index, route := range group.inactive {
		group.active[index] = route
		delete(group.inactive, index)
		r.AddToRib(route)
	}
}

// WithdrawWatchdog moves every active route under name to inactive and
// queues it for withdrawal.
func (r *AdjRIBOut) WithdrawWatchdog(name string) {
	group, ok := r.watchdogs[name]
	if !ok {
		return
	}
	for index, route := range group.active {
		group.inactive[index] = route
		delete(group.active, index)
		r.DelFromRib(route.NLRI())
	}
}

// Refresh marks family for a Begin-of-RIB / replay / End-of-RIB
// sequence: the caller (the update assembler, which owns message
// framing) consults DrainRefreshPending to learn which families need a
// BoRR/EoRR pair, and this call additionally re-queues every seen route
// in family so it rides out in the replay between them.
func (r *AdjRIBOut) Refresh(family bgp.Family) {
	r.refreshPending[family] = true
	for _, entry := range r.seen[family] {
		r.AddToRib(NewRoute(entry.nlri, entry.attrs, entry.nexthop))
	}
}

// DrainRefreshPending returns and clears the set of families awaiting
// a route-refresh Begin/End-of-RIB pair.
func (r *AdjRIBOut) DrainRefreshPending() []bgp.Family {
	if len(r.refreshPending) == 0 {
		return nil
	}
	out := make([]bgp.Family, 0, len(r.refreshPending))
	for family := range r.refreshPending {
		out = append(out, family)
	}
	r.refreshPending = map[bgp.Family]bool{}
	return out
}

// DrainKind distinguishes the two halves of a drain sequence.
type DrainKind int

const (
	DrainWithdraw DrainKind = iota
	DrainAnnounce
)

// DrainItem is one group worth of same-disposition, same-family (and,
// for announces, same-attribute-fingerprint) NLRIs: the unit the
// update assembler packs into one or more UPDATE message bodies
// (fragmenting further only if the group exceeds the negotiated
// message size).
type DrainItem struct {
	Kind       DrainKind
	Family     bgp.Family
	Attributes *attribute.Collection // set only for DrainAnnounce
	Withdrawn  []nlri.NLRI           // set only for DrainWithdraw
	Routes     []*Route              // set only for DrainAnnounce
}

// Drain is the withdraw-then-announce iterator returned by
// AdjRIBOut.Drain. Each call to Next yields one DrainItem; once the
// sequence is exhausted every registered flush callback runs. A
// reactor calling Next between writes gets a natural suspension point
// to service other neighbors between message bodies.
type Drain struct {
	out   *AdjRIBOut
	items []DrainItem
	pos   int
	done  bool
}

// Drain snapshots and clears every pending queue, builds the ordered
// withdraw-then-announce item sequence, and returns an iterator over
// it. Snapshotting up front (rather than mutating queues lazily as
// Next is called) is safe because this module's concurrency model is
// strictly single-threaded: nothing else can enqueue between the
// snapshot and the caller finishing the drain.
func (r *AdjRIBOut) Drain() *Drain {
	var items []DrainItem

	for family, byIndex := range r.pendingWithdraws {
		group := DrainItem{Kind: DrainWithdraw, Family: family}
		for _, n := range byIndex {
			group.Withdrawn = append(group.Withdrawn, n)
		}
		items = append(items, group)
	}
	r.pendingWithdraws = map[bgp.Family]map[string]nlri.NLRI{}

	for _, byFamily := range r.pendingAnnounces {
		for family, byIndex := range byFamily {
			routes := make([]*Route, 0, len(byIndex))
			for _, route := range byIndex {
				routes = append(routes, route)
			}
			var attrs *attribute.Collection
			if len(routes) > 0 {
				attrs = routes[0].Attributes()
			}
			items = append(items, DrainItem{Kind: DrainAnnounce, Family: family, Attributes: attrs, Routes: routes})
		}
	}
	r.pendingAnnounces = map[string]map[bgp.Family]map[string]*Route{}

	return &Drain{out: r, items: items}
}

// Next advances the iterator, recording the drained item into the seen
// cache before returning it. It reports false once exhausted, at which
// point every registered flush callback has already been invoked.
func (d *Drain) Next() (DrainItem, bool) {
	if d.pos >= len(d.items) {
		if !d.done {
			d.done = true
			for _, cb := range d.out.flushCallbacks {
				cb()
			}
		}
		return DrainItem{}, false
	}
	item := d.items[d.pos]
	d.pos++
	d.advanceSeen(item)
	return item, true
}

func (d *Drain) advanceSeen(item DrainItem) {
	switch item.Kind {
	case DrainWithdraw:
		m, ok := d.out.seen[item.Family]
		if !ok {
			return
		}
		for _, n := range item.Withdrawn {
			delete(m, item.Family.String()+"|"+n.Index())
		}
		if len(m) == 0 {
			delete(d.out.seen, item.Family)
		}
	case DrainAnnounce:
		m, ok := d.out.seen[item.Family]
		if !ok {
			m = map[string]seenEntry{}
			d.out.seen[item.Family] = m
		}
		for _, route := range item.Routes {
			m[item.Family.String()+"|"+route.NLRI().Index()] = seenEntry{nlri: route.NLRI(), attrs: item.Attributes, nexthop: route.NextHop()}
		}
	}
}

// Seen returns the routes already sent to the peer for family, i.e.
// what a `routes list` command should report: the cache Drain advances
// as it sends, not the still-pending queues.
func (r *AdjRIBOut) Seen(family bgp.Family) []*Route {
	m, ok := r.seen[family]
	if !ok {
		return nil
	}
	out := make([]*Route, 0, len(m))
	for _, e := range m {
		out = append(out, NewRoute(e.nlri, e.attrs, e.nexthop))
	}
	return out
}

func (r *AdjRIBOut) String() string {
	return fmt.Sprintf("AdjRIBOut{announces=%d withdraws=%d seen=%d}", len(r.pendingAnnounces), len(r.pendingWithdraws), len(r.seen))
}
