package speaker

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/ebgpd/ebgpd/api"
	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/capability"
	"github.com/ebgpd/ebgpd/config"
	"github.com/ebgpd/ebgpd/counter"
	"github.com/ebgpd/ebgpd/fsm"
	"github.com/ebgpd/ebgpd/message"
	"github.com/ebgpd/ebgpd/network"
	"github.com/ebgpd/ebgpd/nlri"
	"github.com/ebgpd/ebgpd/rib"
	"github.com/ebgpd/ebgpd/store"
	"github.com/ebgpd/ebgpd/stream"
	"github.com/ebgpd/ebgpd/timer"
	"github.com/ebgpd/ebgpd/update"
	"github.com/sirupsen/logrus"
)

// idleHoldInterval damps reconnection attempts after a dial failure,
// separate from the fixed 30s connect-retry timer used while actively
// retrying within the Connect/Active states.
const idleHoldInterval = 60 * time.Second

// inboundMessage wraps one decoded BGP message for delivery to the
// neighbor's single-goroutine event loop; exactly one of the fields
// is non-nil except on a read failure, where err is set instead. The
// one further exception is a received UPDATE carrying an RFC 7606
// treat-as-withdraw attribute error: typ and upd are set alongside
// err so handleInbound can still withdraw whatever NLRI it carried
// instead of tearing the session down.
type inboundMessage struct {
	typ   message.Type
	open  *message.Open
	upd   *message.Update
	notif *message.Notification
	err   error
}

// connOutcome is the result of an asynchronous dial, delivered back to
// the owning goroutine rather than blocking it for the round trip.
type connOutcome struct {
	conn net.Conn
	err  error
}

// Neighbor owns one configured BGP session end to end: the FSM that
// governs it, the connection carrying it, and the Adj-RIB-In/Out pair
// its UPDATEs flow through. Every field it touches after Run starts is
// owned exclusively by the goroutine Run spawns, matching the single-
// writer discipline the storage and RIB types are built around.
type Neighbor struct {
	cfg        config.Neighbor
	identifier bgp.Identifier
	log        *logrus.Entry

	fsm  *fsm.FSM
	conn net.Conn
	// negotiated is written once by onOpen on the owning goroutine and
	// read per-message by readLoop's goroutine (message size, ASN4
	// width); atomic.Value carries it across that boundary instead of
	// a bare field, which a race detector would rightly flag.
	negotiated atomic.Value // Negotiated

	ribIn  *rib.AdjRIBIn
	ribOut *rib.AdjRIBOut

	events   chan api.Event
	commands chan api.Command

	connectRetryTimer *timer.Timer
	idleHoldTimer     *timer.Timer
	holdTimer         *timer.Timer
	keepaliveTimer    *timer.Timer

	// ctx is the Run context, stashed so ActionInitiateTCPConnection can
	// start a dial without threading ctx through every action.
	ctx context.Context

	inbound    chan inboundMessage
	flushed    chan struct{}
	timerFired chan fsm.Event
	connResult chan connOutcome

	// msgsSent/msgsReceived back the `show neighbor` counters; every
	// wire write/read that crosses runAction/handleInbound ticks one.
	msgsSent     *counter.Counter
	msgsReceived *counter.Counter

	queries chan queryRequest

	// routeStore canonicalises announced routes through the reactor's
	// shared, reference-counted route table when set, so the same
	// route announced to many neighbors shares one allocation. Nil in
	// tests and any other caller that constructs a Neighbor standalone.
	routeStore *store.RouteStore
}

// SetRouteStore wires the reactor's shared route store into this
// neighbor; subsequent announce/withdraw commands canonicalise and
// release through it. Called once, before Run starts.
func (n *Neighbor) SetRouteStore(s *store.RouteStore) {
	n.routeStore = s
}

// queryRequest carries a read-only reactor query onto the owning
// goroutine so Snapshot/Routes never touch FSM or RIB state from
// outside Run's select loop.
type queryRequest struct {
	kind   api.Kind
	family bgp.Family
	resp   chan interface{}
}

// NewNeighbor builds a Neighbor from its configuration, ready for Run.
func NewNeighbor(cfg config.Neighbor, identifier bgp.Identifier, log *logrus.Logger) *Neighbor {
	n := &Neighbor{
		cfg:        cfg,
		identifier: identifier,
		log:        log.WithField("neighbor", cfg.PeerAddress),
		fsm:        fsm.New(),
		ribIn:      rib.NewAdjRIBIn(),
		ribOut:     rib.NewAdjRIBOut(),
		events:     make(chan api.Event, 256),
		commands:   make(chan api.Command, 64),
		inbound:    make(chan inboundMessage, 16),
		flushed:    make(chan struct{}, 1),
		timerFired: make(chan fsm.Event, 8),
		connResult: make(chan connOutcome, 1),

		msgsSent:     counter.New(),
		msgsReceived: counter.New(),
		queries:      make(chan queryRequest, 8),
	}
	n.ribOut.OnFlush(func() {
		select {
		case n.flushed <- struct{}{}:
		default:
		}
	})
	n.negotiated.Store(Negotiated{})
	return n
}

func (n *Neighbor) loadNegotiated() Negotiated {
	return n.negotiated.Load().(Negotiated)
}

// Events returns the channel the reactor drains to forward this
// neighbor's activity to subscribers.
func (n *Neighbor) Events() <-chan api.Event { return n.events }

// Submit hands a parsed command to this neighbor's event loop. It
// never blocks the caller beyond the channel's buffer.
func (n *Neighbor) Submit(cmd api.Command) {
	n.commands <- cmd
}

func (n *Neighbor) ref() api.NeighborRef {
	ip := net.ParseIP(n.cfg.PeerAddress)
	return api.NeighborRef{IP: ip, ASN: n.cfg.PeerAS}
}

// send writes one framed message to the session's connection and
// ticks msgsSent; it is the sole write path so the counter can never
// drift from what actually reached the socket.
func (n *Neighbor) send(b []byte) error {
	if err := stream.Write(n.conn, b); err != nil {
		return err
	}
	n.msgsSent.Increment()
	return nil
}

func (n *Neighbor) emit(ev api.Event) {
	select {
	case n.events <- ev:
	default:
		n.log.Warn("event channel full, dropping event")
	}
}

// Run drives the session until ctx is cancelled: dial/listen,
// negotiate, and then loop delivering timers, inbound messages, and
// commands to the FSM until teardown. It always returns nil; fatal
// conditions are reported as shutdown events rather than errors, since
// a dropped session is expected steady-state behavior, not a process
// failure.
func (n *Neighbor) Run(ctx context.Context) error {
	n.ctx = ctx
	n.apply(fsm.EventStart)

	for {
		select {
		case <-ctx.Done():
			n.teardown(bgp.SubAdministrativeShutdown)
			return nil
		case msg := <-n.inbound:
			n.handleInbound(msg)
		case cmd := <-n.commands:
			n.handleCommand(ctx, cmd)
		case <-n.flushed:
			n.drainAdjRIBOut()
		case event := <-n.timerFired:
			n.apply(event)
		case outcome := <-n.connResult:
			n.handleConnResult(outcome)
		case q := <-n.queries:
			q.resp <- n.handleQuery(q)
		}
	}
}

func (n *Neighbor) handleQuery(q queryRequest) interface{} {
	switch q.kind {
	case api.KindShowNeighbor:
		return n.snapshot()
	case api.KindRoutesList:
		return n.listRoutes(q.family)
	default:
		return nil
	}
}

// query sends req to the owning goroutine and blocks for its
// response; the reactor is the only caller, one query at a time per
// neighbor, so there is no risk of piling up queries behind a stalled
// session the way an unbounded command queue might.
func (n *Neighbor) query(kind api.Kind, family bgp.Family) interface{} {
	resp := make(chan interface{}, 1)
	n.queries <- queryRequest{kind: kind, family: family, resp: resp}
	return <-resp
}

// Snapshot returns a point-in-time view of this neighbor's session
// state for the `show neighbor` command.
func (n *Neighbor) Snapshot() NeighborSnapshot {
	return n.query(api.KindShowNeighbor, bgp.Family{}).(NeighborSnapshot)
}

// Routes returns the routes already sent to this neighbor for family,
// for the `routes list` command.
func (n *Neighbor) Routes(family bgp.Family) []*rib.Route {
	v := n.query(api.KindRoutesList, family)
	if v == nil {
		return nil
	}
	return v.([]*rib.Route)
}

// initiateConnection runs ActionInitiateTCPConnection: the FSM has
// already moved to Connect, so the dial itself happens off the owning
// goroutine and its outcome is delivered back over connResult rather
// than blocking Run for the round trip.
func (n *Neighbor) initiateConnection() {
	addr := net.ParseIP(n.cfg.PeerAddress)
	if addr == nil {
		n.connResult <- connOutcome{err: fmt.Errorf("speaker: bad peer address %q", n.cfg.PeerAddress)}
		return
	}
	port := n.cfg.Port
	if port == 0 {
		port = 179
	}
	opts := n.networkOptions()
	ctx := n.ctx
	go func() {
		conn, err := network.Dial(ctx, addr, port, opts)
		n.connResult <- connOutcome{conn: conn, err: err}
	}()
}

func (n *Neighbor) networkOptions() network.Options {
	return network.Options{
		MD5Password:     n.cfg.MD5Password,
		SourceInterface: n.cfg.SourceInterface,
		OutgoingTTL:     n.cfg.OutgoingTTL,
		MinIncomingTTL:  n.cfg.IncomingTTL,
	}
}

// PeerIP parses the configured peer address, for the reactor's
// inbound-connection dispatch: matching an accepted socket's remote
// address to the neighbor it belongs to.
func (n *Neighbor) PeerIP() net.IP {
	return net.ParseIP(n.cfg.PeerAddress)
}

// ConfiguredFamilies returns every address family this neighbor
// exchanges, for state-persistence dumps that need every family's
// route table rather than just the one family most commands name.
func (n *Neighbor) ConfiguredFamilies() []bgp.Family {
	out := make([]bgp.Family, 0, len(n.cfg.Families))
	for _, fc := range n.cfg.Families {
		family, err := fc.Family()
		if err != nil {
			continue
		}
		out = append(out, family)
	}
	return out
}

// ListenPort is the port this neighbor expects inbound connections on
// when ListensForInbound is true, defaulting to the well-known 179.
func (n *Neighbor) ListenPort() int {
	if n.cfg.Port != 0 {
		return n.cfg.Port
	}
	return 179
}

// ListensForInbound reports whether the reactor should route accepted
// connections matching this neighbor's peer address to it rather than
// waiting solely on an outbound dial.
func (n *Neighbor) ListensForInbound() bool {
	return n.cfg.Listen
}

// AcceptOptions exposes the MD5/TTL options ApplyAccepted needs once
// the reactor has matched an accepted socket's remote address to this
// neighbor.
func (n *Neighbor) AcceptOptions() network.Options {
	return n.networkOptions()
}

// Accept hands an inbound connection the reactor's listener accepted
// for this neighbor's peer address to the owning goroutine, over the
// same connResult path an outbound dial's result takes — handleConnResult
// treats the two uniformly once a socket exists.
func (n *Neighbor) Accept(conn net.Conn) {
	n.connResult <- connOutcome{conn: conn}
}

func (n *Neighbor) handleConnResult(outcome connOutcome) {
	if outcome.err != nil {
		n.log.WithError(outcome.err).Debug("connect attempt failed")
		n.apply(fsm.EventTCPConnectionFails)
		return
	}
	n.conn = outcome.conn
	go n.readLoop(outcome.conn)
	n.apply(fsm.EventTCPConnectionConfirmed)
}

func (n *Neighbor) readLoop(conn net.Conn) {
	for {
		neg := n.loadNegotiated()
		maxSize := neg.MsgSize
		if maxSize == 0 {
			maxSize = bgp.DefaultMaxMessageSize
		}
		header, err := stream.Read(conn, message.HeaderLength)
		if err != nil {
			n.inbound <- inboundMessage{err: err}
			return
		}
		length := int(header[16])<<8 | int(header[17])
		if length < message.HeaderLength {
			n.inbound <- inboundMessage{err: fmt.Errorf("speaker: message length %d below header size", length)}
			return
		}
		rest, err := stream.Read(conn, length-message.HeaderLength)
		if err != nil {
			n.inbound <- inboundMessage{err: err}
			return
		}
		full := append(header, rest...)
		typ, body, err := message.SplitHeader(full, maxSize)
		if err != nil {
			n.inbound <- inboundMessage{err: err}
			return
		}
		switch typ {
		case message.TypeOpen:
			open, err := message.ParseOpen(body)
			if err != nil {
				n.inbound <- inboundMessage{err: err}
				return
			}
			n.inbound <- inboundMessage{typ: typ, open: open}
		case message.TypeUpdate:
			upd, err := message.ParseUpdate(body, neg.ASN4)
			if err != nil && upd == nil {
				n.inbound <- inboundMessage{err: err}
				return
			}
			// upd non-nil alongside err is the RFC 7606 treat-as-
			// withdraw case: the session stays up, so keep reading.
			n.inbound <- inboundMessage{typ: typ, upd: upd, err: err}
		case message.TypeNotification:
			notif, err := message.ParseNotification(body)
			if err != nil {
				n.inbound <- inboundMessage{err: err}
				return
			}
			n.inbound <- inboundMessage{typ: typ, notif: notif}
		case message.TypeKeepalive, message.TypeRouteRefresh:
			n.inbound <- inboundMessage{typ: typ}
		}
	}
}

func (n *Neighbor) handleInbound(msg inboundMessage) {
	// A plain read/parse failure still tears the connection down via
	// TCPConnectionFails. An UPDATE-specific error is carried alongside
	// typ/upd instead (see inboundMessage) and onUpdate decides between
	// a NOTIFICATION-and-reset or an RFC 7606 treat-as-withdraw.
	if msg.err != nil && msg.typ != message.TypeUpdate {
		n.log.WithError(msg.err).Debug("read failed")
		n.apply(fsm.EventTCPConnectionFails)
		return
	}
	n.msgsReceived.Increment()
	switch msg.typ {
	case message.TypeOpen:
		n.onOpen(msg.open)
	case message.TypeUpdate:
		n.onUpdate(msg.upd, msg.err)
	case message.TypeNotification:
		n.emit(api.NewNotificationEvent(n.ref(), time.Now(), api.DirectionIn, msg.notif.Code(), 0))
		n.apply(fsm.EventNotificationReceived)
	case message.TypeKeepalive:
		n.apply(fsm.EventKeepaliveReceived)
	case message.TypeRouteRefresh:
		n.emit(api.Event{Neighbor: n.ref(), Type: api.EventRefresh, Time: time.Now()})
	}
}

func (n *Neighbor) onOpen(open *message.Open) {
	local := n.localCapabilities()
	n.negotiated.Store(Negotiate(n.cfg.LocalAS, n.cfg.PeerAS, local, open.Capabilities()))
	n.apply(fsm.EventOpenReceived)
	n.emit(api.Event{Neighbor: n.ref(), Type: api.EventOpen, Time: time.Now()})
}

func (n *Neighbor) localCapabilities() []capability.Capability {
	var caps []capability.Capability
	for _, f := range n.cfg.Families {
		family, err := f.Family()
		if err != nil {
			continue
		}
		caps = append(caps, capability.NewMultiprotocol(family))
		if f.AddPath != config.AddPathDisable && f.AddPath != "" {
			caps = append(caps, capability.NewAddPath(capability.AddPathEntry{
				Family:    family,
				Direction: addPathModeDirection(f.AddPath),
			}))
		}
	}
	caps = append(caps, capability.NewASN4(n.cfg.LocalAS))
	if n.cfg.RouteRefresh {
		caps = append(caps, capability.NewRouteRefresh())
	}
	return caps
}

func addPathModeDirection(mode config.AddPathMode) capability.AddPathDirection {
	switch mode {
	case config.AddPathSend:
		return capability.AddPathSend
	case config.AddPathReceive:
		return capability.AddPathReceive
	default:
		return capability.AddPathBoth
	}
}

// onUpdate applies a decoded UPDATE to the Adj-RIB-In. readErr is the
// RFC 7606 error attribute.ParseAll (via message.ParseUpdate) may have
// raised while decoding the attribute section. Its Category, derived
// mechanically from the attribute's header flags, already decided
// which of two outcomes applies: a malformed well-known attribute
// (bgp.ErrMalformedAttribute or any Kind other than
// bgp.ErrTreatAsWithdraw) sends a NOTIFICATION and terminates the
// session via EventUpdateMalformed; a malformed optional attribute
// whose category permits it (bgp.ErrTreatAsWithdraw) instead withdraws
// every NLRI this UPDATE carries and lets the session continue,
// per spec §8.1.8 / §4.1.4's error-policy split.
func (n *Neighbor) onUpdate(upd *message.Update, readErr error) {
	withdrawAnnounced := false
	if readErr != nil {
		pe, ok := readErr.(*bgp.ParseError)
		if !ok || pe.Kind != bgp.ErrTreatAsWithdraw {
			code, subcode := bgp.ErrUpdateMessage, bgp.SubMalformedAttributeList
			if ok {
				code, subcode = pe.Code, pe.Subcode
			}
			if n.conn != nil {
				notif := message.FromError(bgp.NewNotificationError(code, subcode, nil))
				_ = n.send(notif.Bytes())
				n.emit(api.NewNotificationEvent(n.ref(), time.Now(), api.DirectionOut, code, subcode))
			}
			n.apply(fsm.EventUpdateMalformed)
			return
		}
		n.log.WithError(readErr).Warn("treat-as-withdraw: malformed optional attribute")
		withdrawAnnounced = true
	}

	attrs := upd.Attributes()
	var nexthop net.IP
	announced := map[nlri.NLRI]*attribute.Collection{}
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}

	for _, a := range attrs.All() {
		if mp, ok := a.(*attribute.MPReach); ok {
			family = mp.Family()
			nexthop = mp.NextHopIP()
		}
	}

	var withdrawn []nlri.NLRI
	acceptOrWithdraw := func(r nlri.NLRI) {
		if withdrawAnnounced {
			n.ribIn.Withdraw(r)
			withdrawn = append(withdrawn, r)
			return
		}
		n.ribIn.Accept(r, attrs, nexthop)
		announced[r] = attrs
	}

	if len(upd.NLRI()) > 0 {
		routes, err := nlri.DecodeAll(family, upd.NLRI(), false)
		if err != nil {
			n.log.WithError(err).Warn("treat-as-withdraw: malformed legacy NLRI")
		} else {
			for _, r := range routes {
				acceptOrWithdraw(r)
			}
		}
	}
	if len(upd.MPReachNLRI()) > 0 {
		routes, err := nlri.DecodeAll(family, upd.MPReachNLRI(), false)
		if err != nil {
			n.log.WithError(err).Warn("treat-as-withdraw: malformed MP_REACH NLRI")
		} else {
			for _, r := range routes {
				acceptOrWithdraw(r)
			}
		}
	}

	if len(upd.WithdrawnRoutes()) > 0 {
		routes, err := nlri.DecodeAll(bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}, upd.WithdrawnRoutes(), true)
		if err == nil {
			for _, r := range routes {
				n.ribIn.Withdraw(r)
			}
			withdrawn = append(withdrawn, routes...)
		}
	}
	if len(upd.MPUnreachNLRI()) > 0 {
		routes, err := nlri.DecodeAll(family, upd.MPUnreachNLRI(), true)
		if err == nil {
			for _, r := range routes {
				n.ribIn.Withdraw(r)
			}
			withdrawn = append(withdrawn, routes...)
		}
	}

	n.apply(fsm.EventUpdateReceived)
	n.emit(api.NewUpdateEvent(n.ref(), time.Now(), api.DirectionIn, family, announced, withdrawn))
}

func (n *Neighbor) drainAdjRIBOut() {
	if n.conn == nil {
		return
	}
	neg := n.loadNegotiated()
	msgSize := neg.MsgSize
	if msgSize == 0 {
		msgSize = bgp.DefaultMaxMessageSize
	}
	assembler := update.NewAssembler(update.Negotiated{MsgSize: msgSize, Contexts: neg.Contexts})
	drain := n.ribOut.Drain()
	for {
		item, ok := drain.Next()
		if !ok {
			break
		}
		updates, err := assembler.Assemble(item)
		if err != nil {
			n.log.WithError(err).Error("failed to assemble UPDATE")
			continue
		}
		for _, u := range updates {
			if err := n.send(u.Bytes()); err != nil {
				n.apply(fsm.EventTCPConnectionFails)
				return
			}
		}
	}
}

// handleCommand applies an externally-submitted command to this
// neighbor's Adj-RIB-Out; route-specs are assumed already matched to
// this neighbor by the reactor's selector check. A single drain
// follows the whole command (including every sub-command of a
// KindGroup), so a batched `withdraw X ; announce X` collapses to the
// one UPDATE announce-cancels-withdraw already guarantees at the RIB
// level (§6.3 "batches into one UPDATE").
func (n *Neighbor) handleCommand(ctx context.Context, cmd api.Command) {
	if n.applyMutation(ctx, cmd) {
		n.drainAdjRIBOut()
	}
}

// applyMutation performs cmd's RIB/wire side effect and reports
// whether the caller should drain the Adj-RIB-Out afterward. Teardown
// is the one command that tears down the connection it would otherwise
// drain onto, so it reports false.
func (n *Neighbor) applyMutation(ctx context.Context, cmd api.Command) bool {
	switch cmd.Kind {
	case api.KindAnnounce, api.KindRoutesAdd:
		for _, spec := range cmd.Routes {
			route, err := routeFromSpec(spec)
			if err != nil {
				n.log.WithError(err).Warn("rejecting announce command")
				continue
			}
			if n.routeStore != nil {
				route = n.routeStore.Insert(route)
			}
			n.ribOut.AddToRib(route)
		}
	case api.KindWithdraw, api.KindRoutesRemove:
		if cmd.IndexHex != "" {
			n.log.Warn("routes remove by index is not supported without adj-rib-out index lookup")
			break
		}
		for _, spec := range cmd.Routes {
			route, err := routeFromSpec(spec)
			if err != nil {
				n.log.WithError(err).Warn("rejecting withdraw command")
				continue
			}
			if len(spec.Attributes) > 0 {
				n.ribOut.DelFromRib(route.NLRI(), route.Attributes())
			} else {
				n.ribOut.DelFromRib(route.NLRI())
			}
			if n.routeStore != nil {
				n.routeStore.Release(route.Index())
			}
		}
	case api.KindAnnounceRefresh:
		n.ribOut.Refresh(cmd.Family)
	case api.KindAnnounceEOR:
		n.sendEOR(cmd.Family)
	case api.KindGroup:
		for _, sub := range cmd.Sub {
			n.applyMutation(ctx, sub)
		}
	case api.KindTeardown:
		n.teardown(cmd.Subcode)
		return false
	}
	return true
}

// sendEOR writes a manual End-of-RIB marker for family: an UPDATE with
// empty withdrawn/attribute/NLRI sections for IPv4 unicast (RFC 4724
// §2), or an MP_UNREACH_NLRI with zero NLRIs for every other family.
func (n *Neighbor) sendEOR(family bgp.Family) {
	if n.conn == nil {
		return
	}
	var upd *message.Update
	if family == (bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}) {
		upd = message.NewUpdate(nil, nil, nil)
	} else {
		unreach := attribute.NewMPUnreach(family, nil)
		attrs, err := attribute.NewCollection([]attribute.Attribute{unreach})
		if err != nil {
			n.log.WithError(err).Error("failed to build EOR marker")
			return
		}
		upd = message.NewUpdate(nil, attrs, nil)
	}
	if err := n.send(upd.Bytes()); err != nil {
		n.apply(fsm.EventTCPConnectionFails)
	}
}

// NeighborSnapshot is the `show neighbor` response (§6.3): session
// identity, FSM state, and the wire message counters.
type NeighborSnapshot struct {
	PeerAddress  string
	PeerAS       bgp.ASN
	LocalAS      bgp.ASN
	State        string
	MessagesSent uint64
	MessagesRecv uint64
}

// snapshot builds the `show neighbor` response on the owning
// goroutine, per handleQuery.
func (n *Neighbor) snapshot() NeighborSnapshot {
	return NeighborSnapshot{
		PeerAddress:  n.cfg.PeerAddress,
		PeerAS:       n.cfg.PeerAS,
		LocalAS:      n.cfg.LocalAS,
		State:        n.fsm.State().String(),
		MessagesSent: n.msgsSent.Value(),
		MessagesRecv: n.msgsReceived.Value(),
	}
}

// listRoutes returns the routes already sent to this neighbor for
// family, for the `routes list` command. When a route store is
// attached its PrefixIndex supplies the ordering — ascending prefix
// order for families it can key, no defined order otherwise — rather
// than the Adj-RIB-Out's own unordered seen map.
func (n *Neighbor) listRoutes(family bgp.Family) []*rib.Route {
	seen := n.ribOut.Seen(family)
	if n.routeStore == nil {
		return seen
	}
	wanted := make(map[string]bool, len(seen))
	for _, r := range seen {
		wanted[r.Index()] = true
	}
	out := make([]*rib.Route, 0, len(seen))
	for _, r := range n.routeStore.Ordered(family) {
		if wanted[r.Index()] {
			out = append(out, r)
		}
	}
	return out
}

func routeFromSpec(spec api.RouteSpec) (*rib.Route, error) {
	if spec.Raw != "" {
		return nil, fmt.Errorf("speaker: route-spec family not yet structurally parsed: %q", spec.Raw)
	}
	n := nlri.NewPrefix(spec.Family, spec.Prefix, spec.PrefixLength)
	attrs, err := attribute.NewCollection(withDefaultOrigin(spec.Attributes))
	if err != nil {
		return nil, err
	}
	return rib.NewRoute(n, attrs, spec.NextHop), nil
}

// withDefaultOrigin fills in ORIGIN=IGP when the command left it
// unset. ORIGIN is well-known mandatory (RFC 4271 §5.1.1); a route
// originated locally always has one, and the command language has no
// "origin" default of its own beyond what an operator typed.
func withDefaultOrigin(attrs []attribute.Attribute) []attribute.Attribute {
	for _, a := range attrs {
		if a.Code() == attribute.CodeOrigin {
			return attrs
		}
	}
	return append(append([]attribute.Attribute{}, attrs...), attribute.NewOrigin(attribute.OriginIGP))
}

func (n *Neighbor) teardown(subcode int) {
	if n.conn != nil {
		if n.fsm.State() >= fsm.OpenSent {
			notif := message.FromError(bgp.NewNotificationError(bgp.ErrCease, subcode, nil))
			_ = n.send(notif.Bytes())
			n.emit(api.NewNotificationEvent(n.ref(), time.Now(), api.DirectionOut, bgp.ErrCease, subcode))
		}
		n.conn.Close()
		n.conn = nil
	}
	n.apply(fsm.EventStop)
	n.emit(api.NewShutdownEvent(n.ref(), time.Now(), "teardown requested"))
}

// apply runs one FSM event and carries out the actions it returns
// against this neighbor's timers and connection. Actions that need a
// socket or timer the session doesn't have yet (e.g. ActionSendOpen
// before connect) are no-ops, matching the FSM's own totality
// guarantee that an inapplicable event never panics.
func (n *Neighbor) apply(event fsm.Event) {
	before := n.fsm.State()
	actions := n.fsm.Apply(event)
	after := n.fsm.State()
	if before != after {
		n.emit(api.NewStateEvent(n.ref(), time.Now(), before.String(), after.String()))
	}
	for _, a := range actions {
		n.runAction(a)
	}
}

func (n *Neighbor) runAction(a fsm.Action) {
	switch a.Kind {
	case fsm.ActionInitiateTCPConnection:
		if n.cfg.Passive || n.cfg.Listen {
			// a passive or listen-only neighbor never dials; it waits in
			// Connect/Active for the reactor to hand off an accepted
			// connection via Accept.
			break
		}
		n.initiateConnection()
	case fsm.ActionResetConnectRetryCounter:
		// no backoff escalation is tracked beyond the fixed-interval
		// connect-retry timer; nothing to reset.
	case fsm.ActionStartIdleHoldTimer:
		n.startIdleHoldTimer()
	case fsm.ActionScheduleReconnect:
		// covered by ActionStartIdleHoldTimer, which re-issues
		// EventStart once the damping interval elapses.
	case fsm.ActionReleaseResources:
		if n.idleHoldTimer != nil {
			n.idleHoldTimer.Stop()
		}
	case fsm.ActionFireSessionUp:
		// the Established transition already emits a state event via apply.
	case fsm.ActionSoftResetViaRefresh:
		for family := range n.loadNegotiated().Contexts {
			n.ribOut.Refresh(family)
		}
	case fsm.ActionSendOpen:
		n.sendOpen()
	case fsm.ActionSendKeepalive:
		if n.conn != nil {
			_ = n.send(message.NewKeepalive().Bytes())
		}
	case fsm.ActionStartHoldTimer:
		n.startHoldTimer()
	case fsm.ActionStopHoldTimer:
		if n.holdTimer != nil {
			n.holdTimer.Stop()
		}
	case fsm.ActionStartKeepaliveTimer:
		n.startKeepaliveTimer()
	case fsm.ActionStopKeepaliveTimer:
		if n.keepaliveTimer != nil {
			n.keepaliveTimer.Stop()
		}
	case fsm.ActionStartConnectRetryTimer:
		n.startConnectRetryTimer()
	case fsm.ActionStopConnectRetryTimer:
		if n.connectRetryTimer != nil {
			n.connectRetryTimer.Stop()
		}
	case fsm.ActionSendNotification:
		if n.conn != nil && a.Notification != nil {
			_ = n.send(message.FromError(a.Notification).Bytes())
			n.emit(api.NewNotificationEvent(n.ref(), time.Now(), api.DirectionOut, a.Notification.Code, a.Notification.Subcode))
		}
	case fsm.ActionCloseConnection:
		if n.conn != nil {
			n.conn.Close()
			n.conn = nil
		}
	case fsm.ActionFireSessionDown:
		n.ribIn = rib.NewAdjRIBIn()
	case fsm.ActionDrainAdjRIBOut:
		n.drainAdjRIBOut()
	}
}

func (n *Neighbor) sendOpen() {
	if n.conn == nil {
		return
	}
	open := message.NewOpen(n.cfg.LocalAS, n.cfg.HoldTime, n.identifier, n.localCapabilities())
	_ = n.send(open.Bytes())
}

// Timer callbacks never touch n.fsm, n.conn, or the RIBs directly —
// time.AfterFunc runs them on their own goroutine, and every state
// mutation must happen on Run's owning goroutine. They only post the
// corresponding event to timerFired for Run to apply.
func (n *Neighbor) startHoldTimer() {
	d := time.Duration(n.cfg.HoldTime) * time.Second
	if n.holdTimer != nil {
		n.holdTimer.Stop()
	}
	n.holdTimer = timer.New(d, func() {
		n.timerFired <- fsm.EventHoldTimerExpires
	})
}

func (n *Neighbor) startKeepaliveTimer() {
	d := time.Duration(n.cfg.HoldTime/3) * time.Second
	if n.keepaliveTimer != nil {
		n.keepaliveTimer.Stop()
	}
	n.keepaliveTimer = timer.New(d, func() {
		n.timerFired <- fsm.EventKeepaliveTimerExpires
	})
}

// startIdleHoldTimer damps reconnection after a failed Active-state
// dial: the FSM has already settled into Idle, so firing EventStart
// (rather than EventIdleHoldTimerExpires, which Idle ignores) is what
// actually resumes connecting.
func (n *Neighbor) startIdleHoldTimer() {
	if n.idleHoldTimer != nil {
		n.idleHoldTimer.Stop()
	}
	n.idleHoldTimer = timer.New(idleHoldInterval, func() {
		n.timerFired <- fsm.EventStart
	})
}

func (n *Neighbor) startConnectRetryTimer() {
	if n.connectRetryTimer != nil {
		n.connectRetryTimer.Stop()
	}
	n.connectRetryTimer = timer.New(30*time.Second, func() {
		n.timerFired <- fsm.EventConnectRetryTimerExpires
	})
}
