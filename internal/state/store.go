package state

import (
	"sort"
	"sync"

	"github.com/danhigham/tgcli/internal/domain"
)

// Snapshot holds the dialog list of the current session. It is filled once
// per invocation and read by name resolution and the chats command.
type Snapshot struct {
	mu     sync.RWMutex
	loaded bool
	chats  []domain.ChatInfo
	byID   map[int64]int
}

func New() *Snapshot {
	return &Snapshot{byID: make(map[int64]int)}
}

// Set replaces the snapshot contents. Pinned dialogs come first, the rest
// by most recent activity.
func (s *Snapshot) Set(chats []domain.ChatInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats = make([]domain.ChatInfo, len(chats))
	copy(s.chats, chats)
	sort.SliceStable(s.chats, func(i, j int) bool {
		if s.chats[i].Pinned != s.chats[j].Pinned {
			return s.chats[i].Pinned
		}
		return s.chats[i].LastTime.After(s.chats[j].LastTime)
	})

	s.byID = make(map[int64]int, len(s.chats))
	for i, c := range s.chats {
		if _, dup := s.byID[c.ID]; !dup {
			s.byID[c.ID] = i
		}
	}
	s.loaded = true
}

func (s *Snapshot) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Snapshot) Chats() []domain.ChatInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChatInfo, len(s.chats))
	copy(out, s.chats)
	return out
}

// Lookup finds a dialog by marked ID.
func (s *Snapshot) Lookup(id int64) (domain.ChatInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return domain.ChatInfo{}, false
	}
	return s.chats[i], true
}
