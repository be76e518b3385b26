package broker

import (
	"fmt"
	"sync"

	"github.com/trezcool/shule/core"
)

// InProc is the in-process Broadcaster: a mutex-guarded map of group
// membership, suitable for single-instance deployments and tests.
type InProc struct {
	logger core.Logger

	mu     sync.RWMutex
	groups map[string]map[core.Subscriber]struct{}
}

var _ core.Broadcaster = (*InProc)(nil)

func NewInProc(logger core.Logger) *InProc {
	return &InProc{
		logger: logger,
		groups: make(map[string]map[core.Subscriber]struct{}),
	}
}

func (b *InProc) Subscribe(group string, sub core.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	members, ok := b.groups[group]
	if !ok {
		members = make(map[core.Subscriber]struct{})
		b.groups[group] = members
	}
	members[sub] = struct{}{}
}

func (b *InProc) Unsubscribe(group string, sub core.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	members, ok := b.groups[group]
	if !ok {
		return
	}
	delete(members, sub)
	if len(members) == 0 {
		delete(b.groups, group)
	}
}

// Broadcast delivers f to every current member of the group; an empty
// group is a no-op. Membership is snapshotted under the read lock so a
// concurrent Unsubscribe never exposes a torn set, and delivery happens
// outside the lock so a slow member cannot stall membership changes.
func (b *InProc) Broadcast(group string, f core.Frame) {
	b.mu.RLock()
	members := make([]core.Subscriber, 0, len(b.groups[group]))
	for sub := range b.groups[group] {
		members = append(members, sub)
	}
	b.mu.RUnlock()

	for _, sub := range members {
		if err := sub.Send(f); err != nil {
			b.logger.Debug(fmt.Sprintf("broker: dropping %s frame for group %s: %v", f.Type, group, err))
		}
	}
}

// MemberCount reports the current size of a group.
func (b *InProc) MemberCount(group string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.groups[group])
}
