package chathub

import (
	"sort"

	"roomchat/backend/internal/models"
)

// Groups is the presence registry: which connections receive a room's
// broadcasts. It is owned by the hub goroutine and is not safe for
// concurrent use.
type Groups struct {
	rooms   map[string]map[string]struct{}
	clients map[string]map[string]struct{}
}

func NewGroups() *Groups {
	return &Groups{
		rooms:   make(map[string]map[string]struct{}),
		clients: make(map[string]map[string]struct{}),
	}
}

// Add subscribes clientID to room and reports whether it was new.
func (g *Groups) Add(room, clientID string) bool {
	key := models.NormalizeName(room)
	if _, ok := g.rooms[key][clientID]; ok {
		return false
	}
	if g.rooms[key] == nil {
		g.rooms[key] = make(map[string]struct{})
	}
	if g.clients[clientID] == nil {
		g.clients[clientID] = make(map[string]struct{})
	}
	g.rooms[key][clientID] = struct{}{}
	g.clients[clientID][key] = struct{}{}
	return true
}

// Remove unsubscribes clientID from room and reports whether it was there.
func (g *Groups) Remove(room, clientID string) bool {
	key := models.NormalizeName(room)
	if _, ok := g.rooms[key][clientID]; !ok {
		return false
	}
	delete(g.rooms[key], clientID)
	if len(g.rooms[key]) == 0 {
		delete(g.rooms, key)
	}
	delete(g.clients[clientID], key)
	if len(g.clients[clientID]) == 0 {
		delete(g.clients, clientID)
	}
	return true
}

// RemoveClient drops clientID from every group.
func (g *Groups) RemoveClient(clientID string) {
	for key := range g.clients[clientID] {
		delete(g.rooms[key], clientID)
		if len(g.rooms[key]) == 0 {
			delete(g.rooms, key)
		}
	}
	delete(g.clients, clientID)
}

// DropRoom empties a room's group.
func (g *Groups) DropRoom(room string) {
	key := models.NormalizeName(room)
	for clientID := range g.rooms[key] {
		delete(g.clients[clientID], key)
		if len(g.clients[clientID]) == 0 {
			delete(g.clients, clientID)
		}
	}
	delete(g.rooms, key)
}

func (g *Groups) Has(room, clientID string) bool {
	_, ok := g.rooms[models.NormalizeName(room)][clientID]
	return ok
}

// Members returns the connection ids subscribed to room, sorted.
func (g *Groups) Members(room string) []string {
	return sortedKeys(g.rooms[models.NormalizeName(room)])
}

// Rooms returns the normalized room names clientID is subscribed to.
func (g *Groups) Rooms(clientID string) []string {
	return sortedKeys(g.clients[clientID])
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
