// Package reactor is the cooperative scheduler and orchestrator: it
// owns the configured neighbor list, the external subscriber registry,
// and the command dispatcher that routes parsed commands to the
// neighbors a selector names. Each neighbor runs its own goroutine
// (speaker.Neighbor.Run already serialises all of its own state onto
// that goroutine), so "single-threaded cooperative" here means no
// protocol state is ever touched from outside the goroutine that owns
// it — this package only fans work out to those goroutines and fans
// events back in, plus a small bounded helper pool for the blocking
// disk/DNS work that must never be done on a neighbor's own goroutine.
package reactor

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/ebgpd/ebgpd/api"
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/config"
	"github.com/ebgpd/ebgpd/network"
	"github.com/ebgpd/ebgpd/queue"
	"github.com/ebgpd/ebgpd/speaker"
	"github.com/ebgpd/ebgpd/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// helperPoolWeight bounds how many blocking disk/DNS offloads the
// reactor lets run concurrently: enough that a route-store dump and a
// peer lookup never queue behind each other, small enough the offload
// can never starve the reactor's own goroutine of CPU.
const helperPoolWeight = 4

// Subscriber is one external consumer of the event stream. Its ID is a
// uuid rather than a connection-derived value so a reconnecting
// operator session never collides with one still draining.
type Subscriber struct {
	ID  string
	Out chan api.Event
}

// Reactor owns every configured neighbor, the subscriber registry
// that receives their events, and the command dispatcher that mutates
// them. It is the sole writer of anything neighbor-adjacent outside
// each neighbor's own goroutine; the helper pool is the one sanctioned
// escape hatch for blocking work, per the concurrency model's carve-out
// that protocol state itself is never mutated off the reactor.
type Reactor struct {
	log   *logrus.Logger
	store *store.RouteStore

	helperPool *semaphore.Weighted

	neighbors []*speaker.Neighbor
	byAddress map[string]*speaker.Neighbor

	mu          sync.Mutex
	subscribers map[string]*Subscriber

	stateDir      string
	persistQueue  *queue.Queue[persistJob]
	persistSignal chan struct{}
}

// New builds a Reactor from cfg. Neighbors are constructed but not
// started; call Run to start them and begin accepting commands.
func New(cfg *config.Configuration, log *logrus.Logger) (*Reactor, error) {
	identifier, err := routerIdentifier(cfg)
	if err != nil {
		return nil, err
	}

	r := &Reactor{
		log:           log,
		store:         store.NewRouteStore(),
		helperPool:    semaphore.NewWeighted(helperPoolWeight),
		byAddress:     map[string]*speaker.Neighbor{},
		subscribers:   map[string]*Subscriber{},
		stateDir:      cfg.StateDir,
		persistQueue:  queue.New[persistJob](),
		persistSignal: make(chan struct{}, 1),
	}
	for _, nc := range cfg.Neighbors {
		n := speaker.NewNeighbor(nc, identifier, log)
		n.SetRouteStore(r.store)
		r.neighbors = append(r.neighbors, n)
		r.byAddress[nc.PeerAddress] = n
	}
	log.AddHook(newStateHook(r))
	return r, nil
}

// routerIdentifier picks the BGP identifier every neighbor advertises:
// the first configured router-id, or a host address network.FindBGPIdentifier
// derives when none is configured.
func routerIdentifier(cfg *config.Configuration) (bgp.Identifier, error) {
	for _, n := range cfg.Neighbors {
		if n.RouterID == "" {
			continue
		}
		ip := net.ParseIP(n.RouterID)
		if ip == nil {
			return 0, fmt.Errorf("reactor: bad router-id %q", n.RouterID)
		}
		return bgp.NewIdentifier(ip)
	}
	raw, err := network.FindBGPIdentifier()
	if err != nil {
		return 0, fmt.Errorf("reactor: no router-id configured and none could be derived: %w", err)
	}
	return bgp.Identifier(raw), nil
}

// Run starts every configured neighbor, the listeners any Listen
// neighbor needs, and the event fan-out goroutines, then blocks until
// ctx is cancelled or a neighbor task returns a fatal error.
func (r *Reactor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, n := range r.neighbors {
		n := n
		g.Go(func() error { return n.Run(ctx) })
		g.Go(func() error { r.forwardEvents(ctx, n); return nil })
	}

	for port, group := range r.listenGroups() {
		port, group := port, group
		g.Go(func() error { return r.runListener(ctx, port, group) })
	}

	g.Go(func() error { return r.runPersistLoop(ctx) })

	return g.Wait()
}

// listenGroups buckets the neighbors configured to accept inbound
// connections by the port they listen on, so neighbors sharing the
// well-known port 179 share one listening socket demultiplexed by
// source address, matching how a single process fields many peers on
// the standard port.
func (r *Reactor) listenGroups() map[int][]*speaker.Neighbor {
	groups := map[int][]*speaker.Neighbor{}
	for _, n := range r.neighbors {
		if !n.ListensForInbound() {
			continue
		}
		port := n.ListenPort()
		groups[port] = append(groups[port], n)
	}
	return groups
}

// runListener accepts connections on port and dispatches each to the
// candidate neighbor whose configured peer address matches the
// connection's remote address, applying that neighbor's MD5/TTL
// options before handing the socket off.
func (r *Reactor) runListener(ctx context.Context, port int, candidates []*speaker.Neighbor) error {
	ln, err := network.Listen(ctx, net.IPv4zero, port, network.Options{})
	if err != nil {
		return fmt.Errorf("reactor: listening on port %d: %w", port, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.WithError(err).Warn("reactor: accept failed")
			continue
		}
		r.dispatchAccepted(conn, candidates)
	}
}

func (r *Reactor) dispatchAccepted(conn net.Conn, candidates []*speaker.Neighbor) {
	remote, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		conn.Close()
		return
	}
	for _, n := range candidates {
		if !n.PeerIP().Equal(remote.IP) {
			continue
		}
		if err := network.ApplyAccepted(conn, remote.IP, n.AcceptOptions()); err != nil {
			r.log.WithError(err).Warn("reactor: applying accepted-connection options failed")
			conn.Close()
			return
		}
		n.Accept(conn)
		return
	}
	r.log.WithField("remote", remote.IP).Warn("reactor: rejecting inbound connection from unconfigured peer")
	conn.Close()
}

// forwardEvents drains n's event channel to every subscriber until ctx
// is cancelled, fanning one neighbor's activity out to every
// registered subscriber's Out channel.
func (r *Reactor) forwardEvents(ctx context.Context, n *speaker.Neighbor) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-n.Events():
			if !ok {
				return
			}
			r.broadcast(ev)
		}
	}
}

func (r *Reactor) broadcast(ev api.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subscribers {
		select {
		case sub.Out <- ev:
		default:
			r.log.WithField("subscriber", sub.ID).Warn("reactor: subscriber event channel full, dropping event")
		}
	}
}

// Subscribe registers a new subscriber and returns it; the caller
// drains Out and calls Unsubscribe when done.
func (r *Reactor) Subscribe() *Subscriber {
	sub := &Subscriber{ID: uuid.NewString(), Out: make(chan api.Event, 256)}
	r.mu.Lock()
	r.subscribers[sub.ID] = sub
	r.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its Out channel.
func (r *Reactor) Unsubscribe(id string) {
	r.mu.Lock()
	sub, ok := r.subscribers[id]
	if ok {
		delete(r.subscribers, id)
	}
	r.mu.Unlock()
	if ok {
		close(sub.Out)
	}
}

// Dispatch parses line as a command and applies it to every configured
// neighbor its selector matches. Query commands (show neighbor, routes
// list) return their combined result; mutating commands return nil.
func (r *Reactor) Dispatch(line string) (interface{}, error) {
	cmd, err := api.ParseLine(line)
	if err != nil {
		return nil, err
	}
	return r.dispatch(cmd)
}

func (r *Reactor) dispatch(cmd api.Command) (interface{}, error) {
	switch cmd.Kind {
	case api.KindShowNeighbor:
		var snapshots []speaker.NeighborSnapshot
		for _, n := range r.matching(cmd.Selector) {
			snapshots = append(snapshots, n.Snapshot())
		}
		return snapshots, nil
	case api.KindRoutesList:
		var routes []interface{}
		for _, n := range r.matching(cmd.Selector) {
			for _, rt := range n.Routes(cmd.Family) {
				routes = append(routes, rt)
			}
		}
		return routes, nil
	default:
		matched := r.matching(cmd.Selector)
		if len(matched) == 0 {
			return nil, fmt.Errorf("reactor: command selector matched no configured neighbor")
		}
		for _, n := range matched {
			n.Submit(cmd)
			r.schedulePersist(n)
		}
		return nil, nil
	}
}

// matching returns the configured neighbors sel selects, in
// configuration order so a group command's per-neighbor ordering
// guarantee (same-subscriber commands apply in submission order) holds
// regardless of selector breadth.
func (r *Reactor) matching(sel api.Selector) []*speaker.Neighbor {
	var out []*speaker.Neighbor
	for _, n := range r.neighbors {
		if sel.Matches(n.PeerIP()) {
			out = append(out, n)
		}
	}
	return out
}

// Offload runs fn on the bounded helper pool, blocking until a slot is
// free or ctx is cancelled. It exists for the storage subsystem's
// fsync-heavy writes and any DNS resolution a command needs, the two
// kinds of blocking work the concurrency model permits off the
// reactor's own goroutine; protocol state must never be touched from
// inside fn.
func (r *Reactor) Offload(ctx context.Context, fn func() error) error {
	if err := r.helperPool.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.helperPool.Release(1)
	return fn()
}

// Store returns the reactor-owned, reference-counted route store
// shared across every neighbor's Adj-RIB-Out.
func (r *Reactor) Store() *store.RouteStore { return r.store }
