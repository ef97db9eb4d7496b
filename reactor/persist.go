package reactor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ebgpd/ebgpd/queue"
	"github.com/ebgpd/ebgpd/speaker"
	"github.com/ebgpd/ebgpd/storage"
	"gopkg.in/yaml.v3"
)

// persistJob is one neighbor's route table awaiting an atomic write to
// disk: dispatch pushes it as soon as a mutating command applies, and
// runPersistLoop drains it on the bounded helper pool so a slow fsync
// never blocks the goroutine that just handled the command.
type persistJob struct {
	neighbor *speaker.Neighbor
}

// routeRecord is the on-disk shape a persisted route takes: enough to
// reconstruct the neighbor's Adj-RIB-Out with `routes add` on restart,
// not a wire-accurate attribute dump.
type routeRecord struct {
	Family  string `yaml:"family"`
	Prefix  string `yaml:"prefix"`
	NextHop string `yaml:"next-hop"`
}

// schedulePersist queues n's current route table for a state dump. The
// dump is best-effort and eventually consistent: n's own goroutine may
// still be applying the command that triggered this call when
// persist's query round-trip runs, so a dump can occasionally reflect
// the state just before the latest command rather than just after it.
// A no-op when persistence is disabled (no state-dir configured).
func (r *Reactor) schedulePersist(n *speaker.Neighbor) {
	if r.stateDir == "" {
		return
	}
	r.persistQueue.Push(persistJob{neighbor: n})
	select {
	case r.persistSignal <- struct{}{}:
	default:
	}
}

// runPersistLoop drains queued persist jobs until ctx is cancelled.
// Disabled entirely (returns immediately) when no state-dir is
// configured, so a reactor that never enables persistence never spins
// up a goroutine for it.
func (r *Reactor) runPersistLoop(ctx context.Context) error {
	if r.stateDir == "" {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.persistSignal:
			for r.persistQueue.Length() > 0 {
				job := r.persistQueue.Pop()
				if err := r.Offload(ctx, func() error { return r.persist(job) }); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					r.log.WithError(err).Warn("reactor: persisting neighbor state failed")
				}
			}
		}
	}
}

// persist builds job.neighbor's current route-table snapshot and
// writes it atomically under the configured state directory. Large
// tables are marshalled in storage.Batches-sized chunks (the "yields
// every ~1000 routes" iterator the storage subsystem promises) so a
// multi-million-route dump builds its buffer incrementally rather than
// as one giant in-memory marshal, even though the final write is still
// a single atomic rename.
func (r *Reactor) persist(job persistJob) error {
	var records []routeRecord
	for _, family := range job.neighbor.ConfiguredFamilies() {
		for _, route := range job.neighbor.Routes(family) {
			records = append(records, routeRecord{
				Family:  family.String(),
				Prefix:  route.NLRI().String(),
				NextHop: route.NextHop().String(),
			})
		}
	}

	var buf []byte
	for _, batch := range storage.Batches(records, storage.DefaultBatchSize) {
		b, err := yaml.Marshal(batch)
		if err != nil {
			return fmt.Errorf("reactor: marshalling state for %s: %w", job.neighbor.PeerIP(), err)
		}
		buf = append(buf, b...)
	}

	path := filepath.Join(r.stateDir, job.neighbor.PeerIP().String()+".yaml")
	return storage.WriteAtomic(path, buf)
}
