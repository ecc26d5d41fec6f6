package ws

import (
	"sync"

	"dm-service/internal/models"
)

type fakeHandle struct {
	id     string
	userID string
	full   bool

	mu     sync.Mutex
	events []models.ServerEvent
}

func newFakeHandle(id, userID string) *fakeHandle {
	return &fakeHandle{id: id, userID: userID}
}

func (f *fakeHandle) ID() string     { return f.id }
func (f *fakeHandle) UserID() string { return f.userID }

func (f *fakeHandle) Send(event models.ServerEvent) bool {
	if f.full {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return true
}

func (f *fakeHandle) received(name string) []models.ServerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ServerEvent
	for _, e := range f.events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeHandle) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

type snapshotListener struct {
	mu        sync.Mutex
	snapshots [][]string
}

func (l *snapshotListener) PresenceChanged(online []string, _ []Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = append(l.snapshots, online)
}
