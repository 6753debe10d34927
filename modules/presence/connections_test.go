package presence

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestConnectionRegistry_Register(t *testing.T) {
	tests := []struct {
		name        string
		register    [][2]string
		wantOnline  []string
		wantConns   map[string][]string
		wantCounted [2]int
	}{
		{
			name:        "single connection",
			register:    [][2]string{{"alice", "c1"}},
			wantOnline:  []string{"alice"},
			wantConns:   map[string][]string{"alice": {"c1"}},
			wantCounted: [2]int{1, 1},
		},
		{
			name:        "same pair twice is idempotent",
			register:    [][2]string{{"alice", "c1"}, {"alice", "c1"}},
			wantOnline:  []string{"alice"},
			wantConns:   map[string][]string{"alice": {"c1"}},
			wantCounted: [2]int{1, 1},
		},
		{
			name:        "two tabs of one user",
			register:    [][2]string{{"alice", "c2"}, {"alice", "c1"}},
			wantOnline:  []string{"alice"},
			wantConns:   map[string][]string{"alice": {"c1", "c2"}},
			wantCounted: [2]int{1, 2},
		},
		{
			name:        "connection moves to another user",
			register:    [][2]string{{"alice", "c1"}, {"bob", "c1"}},
			wantOnline:  []string{"bob"},
			wantConns:   map[string][]string{"alice": {}, "bob": {"c1"}},
			wantCounted: [2]int{1, 1},
		},
		{
			name:        "online users are sorted",
			register:    [][2]string{{"carol", "c3"}, {"alice", "c1"}, {"bob", "c2"}},
			wantOnline:  []string{"alice", "bob", "carol"},
			wantConns:   map[string][]string{"alice": {"c1"}, "bob": {"c2"}, "carol": {"c3"}},
			wantCounted: [2]int{3, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewConnectionRegistry()
			for _, pair := range tt.register {
				r.Register(pair[0], pair[1])
			}

			if got := r.OnlineUserIDs(); !reflect.DeepEqual(got, tt.wantOnline) {
				t.Errorf("OnlineUserIDs() = %v, want %v", got, tt.wantOnline)
			}
			for user, want := range tt.wantConns {
				if got := r.ActiveConnections(user); !reflect.DeepEqual(got, want) {
					t.Errorf("ActiveConnections(%q) = %v, want %v", user, got, want)
				}
			}
			users, conns := r.Count()
			if users != tt.wantCounted[0] || conns != tt.wantCounted[1] {
				t.Errorf("Count() = (%d, %d), want (%d, %d)", users, conns, tt.wantCounted[0], tt.wantCounted[1])
			}
		})
	}
}

func TestConnectionRegistry_Unregister(t *testing.T) {
	r := NewConnectionRegistry()
	r.Register("alice", "c1")
	r.Register("alice", "c2")

	userID, ok := r.Unregister("c1")
	if !ok || userID != "alice" {
		t.Fatalf("Unregister(c1) = (%q, %v), want (alice, true)", userID, ok)
	}
	if got := r.OnlineUserIDs(); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Errorf("OnlineUserIDs() after first unregister = %v, want [alice]", got)
	}

	if _, ok := r.Unregister("c1"); ok {
		t.Error("Unregister(c1) twice should report false")
	}
	if _, ok := r.Unregister("unknown"); ok {
		t.Error("Unregister(unknown) should report false")
	}

	r.Unregister("c2")
	if got := r.OnlineUserIDs(); len(got) != 0 {
		t.Errorf("OnlineUserIDs() = %v, want empty", got)
	}
	if got := r.ActiveConnections("alice"); got == nil || len(got) != 0 {
		t.Errorf("ActiveConnections(alice) = %#v, want empty non-nil slice", got)
	}
	if _, ok := r.UserOf("c2"); ok {
		t.Error("UserOf(c2) should report false after unregister")
	}
}

func TestConnectionRegistry_Concurrent(t *testing.T) {
	r := NewConnectionRegistry()
	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", w%4)
			for i := 0; i < perWorker; i++ {
				conn := fmt.Sprintf("conn-%d-%d", w, i)
				r.Register(user, conn)
				_ = r.OnlineUserIDs()
				_ = r.ActiveConnections(user)
				r.Unregister(conn)
			}
		}(w)
	}
	wg.Wait()

	users, conns := r.Count()
	if users != 0 || conns != 0 {
		t.Errorf("Count() = (%d, %d), want (0, 0)", users, conns)
	}
}
