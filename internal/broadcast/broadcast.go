// Package broadcast addresses outbound events to one connection, a lobby group or
// every connection. It keeps no queue of its own: each send goes straight into the
// connection's outbox, and a connection whose outbox is full is dropped.
package broadcast

import (
	"github.com/DoyleJ11/matchqueue-backend/internal/types"
)

type Outbox chan types.ServerMessage

// Broadcaster is owned by a single loop and is not safe for concurrent use.
type Broadcaster struct {
	clients map[string]Outbox
	groups  map[string]map[string]struct{}
	// member -> groups it is subscribed to, for cleanup on unregister
	memberOf map[string]map[string]struct{}
	onDrop   func(connID string)
}

// New returns an empty broadcaster. onDrop, if set, is called after a slow
// connection has been dropped.
func New(onDrop func(connID string)) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[string]Outbox),
		groups:   make(map[string]map[string]struct{}),
		memberOf: make(map[string]map[string]struct{}),
		onDrop:   onDrop,
	}
}

func (b *Broadcaster) Register(connID string, out Outbox) {
	if old, ok := b.clients[connID]; ok && old != out {
		close(old)
	}
	b.clients[connID] = out
}

// Unregister removes the connection from every group and closes its outbox.
func (b *Broadcaster) Unregister(connID string) bool {
	out, ok := b.clients[connID]
	if !ok {
		return false
	}
	for group := range b.memberOf[connID] {
		b.leave(group, connID)
	}
	delete(b.memberOf, connID)
	delete(b.clients, connID)
	close(out)
	return true
}

func (b *Broadcaster) Connected(connID string) bool {
	_, ok := b.clients[connID]
	return ok
}

// Subscribe adds a registered connection to group.
func (b *Broadcaster) Subscribe(group, connID string) bool {
	if _, ok := b.clients[connID]; !ok {
		return false
	}
	members, ok := b.groups[group]
	if !ok {
		members = make(map[string]struct{})
		b.groups[group] = members
	}
	members[connID] = struct{}{}

	groups, ok := b.memberOf[connID]
	if !ok {
		groups = make(map[string]struct{})
		b.memberOf[connID] = groups
	}
	groups[group] = struct{}{}
	return true
}

func (b *Broadcaster) Unsubscribe(group, connID string) {
	b.leave(group, connID)
	if groups, ok := b.memberOf[connID]; ok {
		delete(groups, group)
		if len(groups) == 0 {
			delete(b.memberOf, connID)
		}
	}
}

// CloseGroup forgets a group without touching its members' connections.
func (b *Broadcaster) CloseGroup(group string) {
	for connID := range b.groups[group] {
		b.Unsubscribe(group, connID)
	}
	delete(b.groups, group)
}

func (b *Broadcaster) GroupSize(group string) int { return len(b.groups[group]) }

func (b *Broadcaster) Len() int { return len(b.clients) }

// Unicast delivers to one connection.
func (b *Broadcaster) Unicast(connID, event string, payload any) {
	if out, ok := b.clients[connID]; ok {
		b.send(connID, out, types.ServerMessage{Event: event, Payload: payload})
	}
}

// Multicast delivers to every member of group.
func (b *Broadcaster) Multicast(group, event string, payload any) {
	msg := types.ServerMessage{Event: event, Payload: payload}
	for connID := range b.groups[group] {
		if out, ok := b.clients[connID]; ok {
			b.send(connID, out, msg)
		}
	}
}

// All delivers to every registered connection.
func (b *Broadcaster) All(event string, payload any) {
	msg := types.ServerMessage{Event: event, Payload: payload}
	for connID, out := range b.clients {
		b.send(connID, out, msg)
	}
}

// CloseAll closes every outbox.
func (b *Broadcaster) CloseAll() {
	for connID := range b.clients {
		b.Unregister(connID)
	}
	clear(b.groups)
}

func (b *Broadcaster) send(connID string, out Outbox, msg types.ServerMessage) {
	select {
	case out <- msg:
		// ok
	default:
		// Client is slow/full - drop them.
		b.Unregister(connID)
		if b.onDrop != nil {
			b.onDrop(connID)
		}
	}
}

func (b *Broadcaster) leave(group, connID string) {
	members, ok := b.groups[group]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(b.groups, group)
	}
}
