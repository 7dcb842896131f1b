package net

import (
	"errors"
	"fmt"
)

// NetID identifies an entity across machines. Local handles never cross the wire.
type NetID uint32

var ErrAlreadyMapped = errors.New("already mapped")

// NetIDMap is a bidirectional mapping between local entity handles and
// network ids. Each side maps to at most one value of the other.
type NetIDMap[H comparable] struct {
	byHandle map[H]NetID
	byID     map[NetID]H
}

// NewNetIDMap returns an empty map.
func NewNetIDMap[H comparable]() *NetIDMap[H] {
	return &NetIDMap[H]{
		byHandle: make(map[H]NetID),
		byID:     make(map[NetID]H),
	}
}

// Insert registers h <-> id. If either side is already mapped the map is
// left untouched and an ErrAlreadyMapped error is returned.
func (m *NetIDMap[H]) Insert(h H, id NetID) error {
	if old, ok := m.byHandle[h]; ok {
		return fmt.Errorf("insert net id %d: handle %v has net id %d: %w", id, h, old, ErrAlreadyMapped)
	}
	if old, ok := m.byID[id]; ok {
		return fmt.Errorf("insert net id %d: used by handle %v: %w", id, old, ErrAlreadyMapped)
	}
	m.byHandle[h] = id
	m.byID[id] = h
	return nil
}

// NetID returns the network id mapped to h.
func (m *NetIDMap[H]) NetID(h H) (NetID, bool) {
	id, ok := m.byHandle[h]
	return id, ok
}

// Entity returns the local handle mapped to id. Callers must treat a miss
// as "already gone", not as an error.
func (m *NetIDMap[H]) Entity(id NetID) (H, bool) {
	h, ok := m.byID[id]
	return h, ok
}

// Remove unmaps h. Code that despawns a networked entity must call this.
func (m *NetIDMap[H]) Remove(h H) (NetID, bool) {
	id, ok := m.byHandle[h]
	if !ok {
		return 0, false
	}
	delete(m.byHandle, h)
	delete(m.byID, id)
	return id, true
}

// RemoveNetID unmaps id and returns the handle it pointed at.
func (m *NetIDMap[H]) RemoveNetID(id NetID) (H, bool) {
	h, ok := m.byID[id]
	if !ok {
		return h, false
	}
	delete(m.byHandle, h)
	delete(m.byID, id)
	return h, true
}

// Len returns the number of mappings.
func (m *NetIDMap[H]) Len() int {
	return len(m.byID)
}

// Each calls fn for every mapping. fn must not modify the map.
func (m *NetIDMap[H]) Each(fn func(h H, id NetID)) {
	for id, h := range m.byID {
		fn(h, id)
	}
}

// Reset drops every mapping.
func (m *NetIDMap[H]) Reset() {
	m.byHandle = make(map[H]NetID)
	m.byID = make(map[NetID]H)
}

// NetIDAllocator hands out ids on the authority. Ids start at 1.
type NetIDAllocator struct {
	next NetID
}

// Next returns an id never handed out before by a.
func (a *NetIDAllocator) Next() NetID {
	a.next++
	return a.next
}
