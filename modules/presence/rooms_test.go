package presence

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	domain "github.com/effectiveone/facebook-clone-backend/domain/presence"
)

func TestRoomRegistry_CreateRoom(t *testing.T) {
	r := NewRoomRegistry()

	roomID, err := r.CreateRoom("alice", "c1")
	if err != nil {
		t.Fatalf("CreateRoom() unexpected error: %v", err)
	}
	if roomID == "" {
		t.Fatal("CreateRoom() returned empty room id")
	}

	room, ok := r.Room(roomID)
	if !ok {
		t.Fatalf("Room(%q) not found", roomID)
	}
	want := []domain.Participant{{UserID: "alice", ConnectionID: "c1"}}
	if !reflect.DeepEqual(room.Participants, want) {
		t.Errorf("Participants = %v, want %v", room.Participants, want)
	}
	if room.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}

	if _, err := r.CreateRoom("alice", "c1"); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("CreateRoom() from a joined connection error = %v, want %v", err, ErrAlreadyJoined)
	}

	other, err := r.CreateRoom("alice", "c2")
	if err != nil {
		t.Fatalf("CreateRoom() second room unexpected error: %v", err)
	}
	if other == roomID {
		t.Error("CreateRoom() returned a duplicate room id")
	}
}

func TestRoomRegistry_CreateRoomRetriesOnCollision(t *testing.T) {
	ids := []string{"room-a", "room-a", "room-a", "room-b"}
	next := 0
	r := NewRoomRegistry(WithRoomIDGenerator(func() string {
		id := ids[next%len(ids)]
		next++
		return id
	}))

	first, err := r.CreateRoom("alice", "c1")
	if err != nil || first != "room-a" {
		t.Fatalf("CreateRoom() = (%q, %v), want (room-a, nil)", first, err)
	}
	second, err := r.CreateRoom("bob", "c2")
	if err != nil || second != "room-b" {
		t.Fatalf("CreateRoom() = (%q, %v), want (room-b, nil)", second, err)
	}
}

func TestRoomRegistry_CreateRoomGivesUpOnExhaustedIDs(t *testing.T) {
	r := NewRoomRegistry(WithRoomIDGenerator(func() string { return "same" }))

	if _, err := r.CreateRoom("alice", "c1"); err != nil {
		t.Fatalf("CreateRoom() unexpected error: %v", err)
	}
	if _, err := r.CreateRoom("bob", "c2"); err == nil {
		t.Error("CreateRoom() expected error when no unique id can be generated")
	}
	if _, ok := r.RoomOf("c2"); ok {
		t.Error("failed CreateRoom() must not attach the connection")
	}
}

func TestRoomRegistry_JoinRoom(t *testing.T) {
	r := NewRoomRegistry()
	roomID, _ := r.CreateRoom("alice", "c1")

	tests := []struct {
		name    string
		roomID  string
		userID  string
		connID  string
		wantErr error
		wantLen int
	}{
		{name: "join existing room", roomID: roomID, userID: "bob", connID: "c2", wantLen: 2},
		{name: "second tab of same user", roomID: roomID, userID: "bob", connID: "c3", wantLen: 3},
		{name: "unknown room", roomID: "nope", userID: "carol", connID: "c4", wantErr: ErrRoomNotFound},
		{name: "already joined connection", roomID: roomID, userID: "bob", connID: "c2", wantErr: ErrAlreadyJoined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			participants, err := r.JoinRoom(tt.roomID, tt.userID, tt.connID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("JoinRoom() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("JoinRoom() unexpected error: %v", err)
			}
			if len(participants) != tt.wantLen {
				t.Errorf("JoinRoom() returned %d participants, want %d", len(participants), tt.wantLen)
			}
			if participants[0].ConnectionID != "c1" {
				t.Errorf("creator should stay first, got %v", participants[0])
			}
			last := participants[len(participants)-1]
			if last.UserID != tt.userID || last.ConnectionID != tt.connID {
				t.Errorf("last participant = %v, want {%s %s}", last, tt.userID, tt.connID)
			}
		})
	}

	if _, ok := r.RoomOf("c4"); ok {
		t.Error("failed join must not attach the connection")
	}
}

func TestRoomRegistry_JoinReturnsCopy(t *testing.T) {
	r := NewRoomRegistry()
	roomID, _ := r.CreateRoom("alice", "c1")

	participants, err := r.JoinRoom(roomID, "bob", "c2")
	if err != nil {
		t.Fatalf("JoinRoom() unexpected error: %v", err)
	}
	participants[0].UserID = "mallory"

	room, _ := r.Room(roomID)
	if room.Participants[0].UserID != "alice" {
		t.Errorf("registry state changed through returned slice: %v", room.Participants)
	}
}

func TestRoomRegistry_LeaveRoom(t *testing.T) {
	r := NewRoomRegistry()
	roomID, _ := r.CreateRoom("alice", "c1")
	_, _ = r.JoinRoom(roomID, "bob", "c2")
	_, _ = r.JoinRoom(roomID, "carol", "c3")

	res, err := r.LeaveRoom(roomID, "c2")
	if err != nil {
		t.Fatalf("LeaveRoom() unexpected error: %v", err)
	}
	want := []domain.Participant{
		{UserID: "alice", ConnectionID: "c1"},
		{UserID: "carol", ConnectionID: "c3"},
	}
	if res.Deleted || !reflect.DeepEqual(res.Participants, want) {
		t.Errorf("LeaveRoom() = %+v, want participants %v", res, want)
	}

	if _, err := r.LeaveRoom(roomID, "c2"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("LeaveRoom() twice error = %v, want %v", err, ErrNotParticipant)
	}
	if !IsNotFound(fmt.Errorf("leave %s: %w", roomID, ErrNotParticipant)) {
		t.Error("IsNotFound() should match a wrapped ErrNotParticipant")
	}

	_, _ = r.LeaveRoom(roomID, "c1")
	res, err = r.LeaveRoom(roomID, "c3")
	if err != nil {
		t.Fatalf("LeaveRoom() last participant unexpected error: %v", err)
	}
	if !res.Deleted || res.Participants != nil {
		t.Errorf("LeaveRoom() last participant = %+v, want deleted", res)
	}
	if _, ok := r.Room(roomID); ok {
		t.Error("empty room should be deleted")
	}
	if _, err := r.LeaveRoom(roomID, "c1"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("LeaveRoom() on deleted room error = %v, want %v", err, ErrRoomNotFound)
	}
	if _, err := r.JoinRoom(roomID, "dave", "c9"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("JoinRoom() on deleted room error = %v, want %v", err, ErrRoomNotFound)
	}
}

func TestRoomRegistry_RemoveConnectionEverywhere(t *testing.T) {
	r := NewRoomRegistry()
	roomID, _ := r.CreateRoom("alice", "c1")
	_, _ = r.JoinRoom(roomID, "bob", "c2")

	gotRoom, res, ok := r.RemoveConnectionEverywhere("c2")
	if !ok || gotRoom != roomID {
		t.Fatalf("RemoveConnectionEverywhere(c2) = (%q, %v), want (%q, true)", gotRoom, ok, roomID)
	}
	if len(res.Participants) != 1 || res.Participants[0].ConnectionID != "c1" {
		t.Errorf("remaining participants = %v, want [c1]", res.Participants)
	}

	if _, _, ok := r.RemoveConnectionEverywhere("c2"); ok {
		t.Error("second RemoveConnectionEverywhere(c2) should be a no-op")
	}
	if _, _, ok := r.RemoveConnectionEverywhere("never-joined"); ok {
		t.Error("RemoveConnectionEverywhere() of an unknown connection should be a no-op")
	}

	_, res, ok = r.RemoveConnectionEverywhere("c1")
	if !ok || !res.Deleted {
		t.Errorf("removing the last participant = %+v ok=%v, want deleted", res, ok)
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

// A creates a room, B joins, A disconnects, B leaves: the room is gone.
func TestRoomRegistry_Lifecycle(t *testing.T) {
	r := NewRoomRegistry()

	roomID, err := r.CreateRoom("user-a", "conn-a")
	if err != nil {
		t.Fatalf("CreateRoom() unexpected error: %v", err)
	}
	participants, err := r.JoinRoom(roomID, "user-b", "conn-b")
	if err != nil {
		t.Fatalf("JoinRoom() unexpected error: %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("participants = %v, want 2 entries", participants)
	}

	_, res, _ := r.RemoveConnectionEverywhere("conn-a")
	want := []domain.Participant{{UserID: "user-b", ConnectionID: "conn-b"}}
	if !reflect.DeepEqual(res.Participants, want) {
		t.Errorf("after A disconnects participants = %v, want %v", res.Participants, want)
	}

	res, err = r.LeaveRoom(roomID, "conn-b")
	if err != nil {
		t.Fatalf("LeaveRoom() unexpected error: %v", err)
	}
	if !res.Deleted {
		t.Error("room should be deleted after the last participant leaves")
	}
	if _, err := r.JoinRoom(roomID, "user-c", "conn-c"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("JoinRoom() after deletion error = %v, want %v", err, ErrRoomNotFound)
	}
}

func TestRoomRegistry_RoomsOrderedByCreation(t *testing.T) {
	ids := []string{"zz", "aa", "mm"}
	next := 0
	r := NewRoomRegistry(WithRoomIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))
	for i, conn := range []string{"c1", "c2", "c3"} {
		if _, err := r.CreateRoom("user", conn); err != nil {
			t.Fatalf("CreateRoom(%d) unexpected error: %v", i, err)
		}
	}

	rooms := r.Rooms()
	if len(rooms) != 3 {
		t.Fatalf("Rooms() returned %d rooms, want 3", len(rooms))
	}
	for i := 1; i < len(rooms); i++ {
		if rooms[i].CreatedAt.Before(rooms[i-1].CreatedAt) {
			t.Errorf("Rooms() not ordered by creation: %v before %v", rooms[i-1].ID, rooms[i].ID)
		}
	}
}

func TestRoomRegistry_Concurrent(t *testing.T) {
	r := NewRoomRegistry()
	roomID, err := r.CreateRoom("owner", "owner-conn")
	if err != nil {
		t.Fatalf("CreateRoom() unexpected error: %v", err)
	}

	const workers = 16
	const rounds = 50

	errs := make(chan error, 64)
	report := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	done := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-done:
				return
			default:
			}
			for _, room := range r.Rooms() {
				if len(room.Participants) == 0 {
					report(fmt.Errorf("room %s is empty", room.ID))
				}
				seen := make(map[string]bool, len(room.Participants))
				for _, p := range room.Participants {
					if seen[p.ConnectionID] {
						report(fmt.Errorf("room %s lists %s twice", room.ID, p.ConnectionID))
					}
					seen[p.ConnectionID] = true
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", w)
			for i := 0; i < rounds; i++ {
				conn := fmt.Sprintf("conn-%d-%d", w, i)
				if _, err := r.JoinRoom(roomID, user, conn); err != nil {
					report(fmt.Errorf("JoinRoom(%s): %w", conn, err))
					continue
				}
				if _, err := r.JoinRoom(roomID, user, conn); !errors.Is(err, ErrAlreadyJoined) {
					report(fmt.Errorf("second JoinRoom(%s) error = %v, want %v", conn, err, ErrAlreadyJoined))
				}
				if i%2 == 0 {
					if _, err := r.LeaveRoom(roomID, conn); err != nil {
						report(fmt.Errorf("LeaveRoom(%s): %w", conn, err))
					}
				} else if _, _, ok := r.RemoveConnectionEverywhere(conn); !ok {
					report(fmt.Errorf("RemoveConnectionEverywhere(%s) found nothing", conn))
				}

				own := conn + "-own"
				if _, err := r.CreateRoom(user, own); err != nil {
					report(fmt.Errorf("CreateRoom(%s): %w", own, err))
					continue
				}
				if _, res, ok := r.RemoveConnectionEverywhere(own); !ok || !res.Deleted {
					report(fmt.Errorf("RemoveConnectionEverywhere(%s) = (%v, %v), want deleted room", own, res, ok))
				}
			}
		}(w)
	}
	wg.Wait()
	close(done)
	<-readerDone
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	rooms := r.Rooms()
	if len(rooms) != 1 || rooms[0].ID != roomID {
		t.Fatalf("Rooms() = %v, want only %s", rooms, roomID)
	}
	want := []domain.Participant{{UserID: "owner", ConnectionID: "owner-conn"}}
	if !reflect.DeepEqual(rooms[0].Participants, want) {
		t.Errorf("Participants = %v, want %v", rooms[0].Participants, want)
	}
	for _, p := range rooms[0].Participants {
		if got, ok := r.RoomOf(p.ConnectionID); !ok || got != roomID {
			t.Errorf("RoomOf(%s) = (%q, %v), want (%q, true)", p.ConnectionID, got, ok, roomID)
		}
	}
	if _, ok := r.RoomOf("conn-0-0"); ok {
		t.Error("RoomOf(conn-0-0) should report false after leaving")
	}

	res, err := r.LeaveRoom(roomID, "owner-conn")
	if err != nil || !res.Deleted {
		t.Fatalf("LeaveRoom(owner) = (%v, %v), want deleted room", res, err)
	}
	if n := r.Count(); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestRoomRegistry_MoveTo(t *testing.T) {
	r := NewRoomRegistry()
	first, _ := r.CreateRoom("alice", "c1")
	_, _ = r.JoinRoom(first, "bob", "c2")
	second, _ := r.CreateRoom("carol", "c3")

	res, err := r.MoveTo(second, "bob", "c2")
	if err != nil {
		t.Fatalf("MoveTo() unexpected error: %v", err)
	}
	if res.LeftRoomID != first || res.Left.Deleted {
		t.Errorf("left = (%q, deleted %v), want (%q, false)", res.LeftRoomID, res.Left.Deleted, first)
	}
	wantLeft := []domain.Participant{{UserID: "alice", ConnectionID: "c1"}}
	if !reflect.DeepEqual(res.Left.Participants, wantLeft) {
		t.Errorf("Left.Participants = %v, want %v", res.Left.Participants, wantLeft)
	}
	wantJoined := []domain.Participant{
		{UserID: "carol", ConnectionID: "c3"},
		{UserID: "bob", ConnectionID: "c2"},
	}
	if !reflect.DeepEqual(res.Participants, wantJoined) {
		t.Errorf("Participants = %v, want %v", res.Participants, wantJoined)
	}
	if got, _ := r.RoomOf("c2"); got != second {
		t.Errorf("RoomOf(c2) = %q, want %q", got, second)
	}

	// The last participant moving out deletes the old room.
	res, err = r.MoveTo(second, "alice", "c1")
	if err != nil {
		t.Fatalf("MoveTo() unexpected error: %v", err)
	}
	if res.LeftRoomID != first || !res.Left.Deleted {
		t.Errorf("left = (%q, deleted %v), want (%q, true)", res.LeftRoomID, res.Left.Deleted, first)
	}
	if _, ok := r.Room(first); ok {
		t.Errorf("Room(%q) should be deleted", first)
	}

	// Failed moves leave the connection where it was.
	if _, err := r.MoveTo("missing", "alice", "c1"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("MoveTo(missing) error = %v, want %v", err, ErrRoomNotFound)
	}
	if _, err := r.MoveTo(second, "alice", "c1"); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("MoveTo(same room) error = %v, want %v", err, ErrAlreadyJoined)
	}
	if got, _ := r.RoomOf("c1"); got != second {
		t.Errorf("RoomOf(c1) = %q, want %q", got, second)
	}

	// A connection in no room simply joins.
	res, err = r.MoveTo(second, "dave", "c4")
	if err != nil || res.LeftRoomID != "" {
		t.Errorf("MoveTo() = (%+v, %v), want a plain join", res, err)
	}
}
