package state_test

import (
	"testing"
	"time"

	"github.com/danhigham/tgcli/internal/domain"
	"github.com/danhigham/tgcli/internal/state"
)

func TestSnapshot_Set(t *testing.T) {
	s := state.New()
	if s.Loaded() {
		t.Fatal("new snapshot should not be loaded")
	}

	now := time.Now()
	s.Set([]domain.ChatInfo{
		{ID: 1, Title: "Alice", LastTime: now.Add(-time.Hour)},
		{ID: 2, Title: "Bob", LastTime: now},
		{ID: 3, Title: "Pinned", Pinned: true, LastTime: now.Add(-48 * time.Hour)},
	})

	if !s.Loaded() {
		t.Fatal("snapshot should be loaded after Set")
	}
	got := s.Chats()
	if len(got) != 3 {
		t.Fatalf("got %d chats, want 3", len(got))
	}
	want := []string{"Pinned", "Bob", "Alice"}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("chat[%d] = %q, want %q", i, got[i].Title, title)
		}
	}
}

func TestSnapshot_Lookup(t *testing.T) {
	s := state.New()
	s.Set([]domain.ChatInfo{
		{ID: 10, Title: "Alice"},
		{ID: -20, Title: "Team"},
	})

	c, ok := s.Lookup(-20)
	if !ok {
		t.Fatal("expected to find chat -20")
	}
	if c.Title != "Team" {
		t.Errorf("Title = %q, want Team", c.Title)
	}
	if _, ok := s.Lookup(99); ok {
		t.Error("unexpected match for unknown id")
	}
}

func TestSnapshot_ChatsIsCopy(t *testing.T) {
	s := state.New()
	s.Set([]domain.ChatInfo{{ID: 1, Title: "Alice"}})

	got := s.Chats()
	got[0].Title = "Mallory"

	if s.Chats()[0].Title != "Alice" {
		t.Error("Chats() must return a copy")
	}
}
