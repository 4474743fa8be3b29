package registry

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/emberchat/ember/internal/domain"
	"github.com/emberchat/ember/internal/infrastructure/logging"
	"github.com/emberchat/ember/internal/infrastructure/metrics"
	"github.com/emberchat/ember/internal/infrastructure/ws"
)

// fakeHub records deliveries in order. Safe for concurrent use because
// countdown goroutines deliver from their own goroutines.
type fakeHub struct {
	mu        sync.Mutex
	delivered []delivery
}

type delivery struct {
	connIDs   []string // nil means broadcast to all
	broadcast bool
	msg       *ws.Envelope
}

func (h *fakeHub) Deliver(connIDs []string, msg *ws.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delivered = append(h.delivered, delivery{connIDs: slices.Clone(connIDs), msg: msg})
}

func (h *fakeHub) DeliverAll(msg *ws.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delivered = append(h.delivered, delivery{broadcast: true, msg: msg})
}

// byType returns deliveries carrying the given event type.
func (h *fakeHub) byType(eventType string) []delivery {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []delivery
	for _, d := range h.delivered {
		if d.msg.Type == eventType {
			out = append(out, d)
		}
	}
	return out
}

type fakeStore struct {
	mu    sync.Mutex
	saves int
	last  []domain.Room
}

func (s *fakeStore) Load(ctx context.Context) ([]domain.Room, error) { return nil, nil }

func (s *fakeStore) Save(rooms []domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.last = rooms
}

func newTestRegistry(t *testing.T) (*Registry, *fakeHub, *fakeStore) {
	t.Helper()

	hub := &fakeHub{}
	st := &fakeStore{}
	reg := New(Options{
		Hub:     hub,
		Store:   st,
		Logger:  logging.NewNop(),
		Metrics: metrics.New(prometheus.NewRegistry()),
	})
	return reg, hub, st
}

func TestCreateRejectsInvalidDuration(t *testing.T) {
	t.Parallel()

	reg, hub, st := newTestRegistry(t)

	for _, minutes := range []int{0, domain.MaxDurationMinutes + 1} {
		if _, err := reg.Create("conn-1", "general", "alice", minutes); !errors.Is(err, domain.ErrInvalidDuration) {
			t.Errorf("Create(duration=%d) error = %v, want ErrInvalidDuration", minutes, err)
		}
	}

	if got := len(reg.ListAll()); got != 0 {
		t.Errorf("registry holds %d rooms after rejected creates, want 0", got)
	}
	if got := len(hub.byType(ws.RoomCreated)); got != 0 {
		t.Errorf("%d room.created broadcasts after rejected creates, want 0", got)
	}
	if st.saves != 0 {
		t.Errorf("store saved %d times after rejected creates, want 0", st.saves)
	}
}

func TestCreateAnnouncesAndPersists(t *testing.T) {
	t.Parallel()

	reg, hub, st := newTestRegistry(t)

	room, err := reg.Create("conn-1", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}

	created := hub.byType(ws.RoomCreated)
	if len(created) != 1 || !created[0].broadcast {
		t.Fatalf("room.created deliveries = %+v, want one broadcast", created)
	}
	if st.saves != 1 {
		t.Errorf("store saves = %d, want 1", st.saves)
	}
	if got := reg.ListAll(); len(got) != 1 || got[0].ID != room.ID {
		t.Errorf("ListAll = %+v, want the created room", got)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t)

	if err := reg.Join("missing", "conn-1", "user-1", "bob"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("Join(missing room) error = %v, want ErrRoomNotFound", err)
	}
}

func TestJoinTwiceDoesNotInflateCount(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t)

	room, err := reg.Create("conn-owner", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}

	if err := reg.Join(room.ID, "conn-1", "user-1", "bob"); err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(room.ID, "conn-1", "user-1", "bob"); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Errorf("second join error = %v, want ErrAlreadyJoined", err)
	}

	if got := reg.ListAll()[0].MembersCount; got != 1 {
		t.Errorf("MembersCount = %d, want 1", got)
	}
}

func TestJoinNoticeReachesWholeRoom(t *testing.T) {
	t.Parallel()

	reg, hub, _ := newTestRegistry(t)

	room, err := reg.Create("conn-owner", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(room.ID, "conn-1", "user-1", "bob"); err != nil {
		t.Fatal(err)
	}

	joined := hub.byType(ws.MemberJoined)
	if len(joined) != 1 {
		t.Fatalf("member.joined deliveries = %d, want 1", len(joined))
	}
	// The joining connection itself is part of the audience.
	if !slices.Contains(joined[0].connIDs, "conn-1") {
		t.Errorf("join notice audience %v does not include the joiner", joined[0].connIDs)
	}
}

func TestLeaveNeverDropsCountBelowZero(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t)

	room, err := reg.Create("conn-owner", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(room.ID, "conn-1", "user-1", "bob"); err != nil {
		t.Fatal(err)
	}

	reg.Leave(room.ID, "conn-1", "user-1", "bob")
	reg.Leave(room.ID, "conn-1", "user-1", "bob")
	reg.Leave(room.ID, "conn-1", "user-1", "bob")

	if got := reg.ListAll()[0].MembersCount; got != 0 {
		t.Errorf("MembersCount = %d, want 0", got)
	}
}

func TestLeaveAbsentRoomIsNoOp(t *testing.T) {
	t.Parallel()

	reg, hub, st := newTestRegistry(t)

	reg.Leave("missing", "conn-1", "user-1", "bob")

	if got := len(hub.byType(ws.MemberLeft)); got != 0 {
		t.Errorf("%d member.left deliveries for an absent room, want 0", got)
	}
	if st.saves != 0 {
		t.Errorf("store saves = %d, want 0", st.saves)
	}
}

func TestLeaveNoticeExcludesLeaver(t *testing.T) {
	t.Parallel()

	reg, hub, _ := newTestRegistry(t)

	room, err := reg.Create("conn-owner", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(room.ID, "conn-1", "user-1", "bob"); err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(room.ID, "conn-2", "user-2", "carol"); err != nil {
		t.Fatal(err)
	}

	reg.Leave(room.ID, "conn-1", "user-1", "bob")

	left := hub.byType(ws.MemberLeft)
	if len(left) != 1 {
		t.Fatalf("member.left deliveries = %d, want 1", len(left))
	}
	if slices.Contains(left[0].connIDs, "conn-1") {
		t.Errorf("leave notice audience %v includes the leaver", left[0].connIDs)
	}
	if !slices.Contains(left[0].connIDs, "conn-2") {
		t.Errorf("leave notice audience %v misses the remaining member", left[0].connIDs)
	}
}

func TestDeleteByNonOwnerIsIgnored(t *testing.T) {
	t.Parallel()

	reg, hub, _ := newTestRegistry(t)

	room, err := reg.Create("conn-owner", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}

	reg.Delete(room.ID, "conn-stranger", "Owner deleted room")

	if got := len(reg.ListAll()); got != 1 {
		t.Errorf("room count after non-owner delete = %d, want 1", got)
	}
	if got := len(hub.byType(ws.RoomDeleted)); got != 0 {
		t.Errorf("%d room.deleted deliveries after non-owner delete, want 0", got)
	}
}

func TestDeleteByOwner(t *testing.T) {
	t.Parallel()

	reg, hub, _ := newTestRegistry(t)

	room, err := reg.Create("conn-owner", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(room.ID, "conn-1", "user-1", "bob"); err != nil {
		t.Fatal(err)
	}

	reg.Delete(room.ID, "conn-owner", "Owner deleted room")

	if got := len(reg.ListAll()); got != 0 {
		t.Errorf("room count after delete = %d, want 0", got)
	}

	deleted := hub.byType(ws.RoomDeleted)
	if len(deleted) != 1 {
		t.Fatalf("room.deleted deliveries = %d, want 1", len(deleted))
	}
	payload, ok := deleted[0].msg.Data.(ws.RoomClosedPayload)
	if !ok {
		t.Fatalf("room.deleted payload type %T", deleted[0].msg.Data)
	}
	if payload.Reason != "Owner deleted room" {
		t.Errorf("reason = %q, want %q", payload.Reason, "Owner deleted room")
	}
}

func TestExpireAfterDeleteIsNoOp(t *testing.T) {
	t.Parallel()

	reg, hub, _ := newTestRegistry(t)

	room, err := reg.Create("conn-owner", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}

	reg.Delete(room.ID, "conn-owner", "Owner deleted room")
	reg.expire(room.ID)

	// Exactly one terminal event: the delete. The late expiry callback
	// finds the room gone and emits nothing.
	if got := len(hub.byType(ws.RoomExpired)); got != 0 {
		t.Errorf("%d room.expired deliveries after a delete won the race, want 0", got)
	}
	if got := len(hub.byType(ws.RoomDeleted)); got != 1 {
		t.Errorf("%d room.deleted deliveries, want 1", got)
	}
}

func TestDeleteAfterExpireIsNoOp(t *testing.T) {
	t.Parallel()

	reg, hub, _ := newTestRegistry(t)

	room, err := reg.Create("conn-owner", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}

	reg.expire(room.ID)
	reg.Delete(room.ID, "conn-owner", "Owner deleted room")

	if got := len(hub.byType(ws.RoomExpired)); got != 1 {
		t.Errorf("%d room.expired deliveries, want 1", got)
	}
	if got := len(hub.byType(ws.RoomDeleted)); got != 0 {
		t.Errorf("%d room.deleted deliveries after expiry won the race, want 0", got)
	}
}

func TestDeleteCancelsTimers(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t)

	room, err := reg.Create("conn-owner", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}

	reg.mu.Lock()
	_, scheduled := reg.timers[room.ID]
	reg.mu.Unlock()
	if !scheduled {
		t.Fatal("no timer scheduled for the created room")
	}

	reg.Delete(room.ID, "conn-owner", "Owner deleted room")

	reg.mu.Lock()
	_, scheduled = reg.timers[room.ID]
	reg.mu.Unlock()
	if scheduled {
		t.Error("timer handle still present after delete")
	}
}

func TestDisconnectDestroysOwnedRooms(t *testing.T) {
	t.Parallel()

	reg, hub, _ := newTestRegistry(t)

	owned, err := reg.Create("conn-owner", "mine", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	other, err := reg.Create("conn-other", "theirs", "bob", 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(other.ID, "conn-owner", "user-owner", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(other.ID, "conn-2", "user-2", "carol"); err != nil {
		t.Fatal(err)
	}

	reg.Disconnect("conn-owner")

	rooms := reg.ListAll()
	if len(rooms) != 1 || rooms[0].ID != other.ID {
		t.Fatalf("rooms after disconnect = %+v, want only %s", rooms, other.ID)
	}
	if rooms[0].MembersCount != 1 {
		t.Errorf("occupied room MembersCount = %d, want 1", rooms[0].MembersCount)
	}

	deleted := hub.byType(ws.RoomDeleted)
	if len(deleted) != 1 {
		t.Fatalf("room.deleted deliveries = %d, want 1", len(deleted))
	}
	payload := deleted[0].msg.Data.(ws.RoomClosedPayload)
	if payload.RoomID != owned.ID || payload.Reason != "Owner left" {
		t.Errorf("delete payload = %+v, want room %s with reason %q", payload, owned.ID, "Owner left")
	}
}

func TestRegisterDeliversRoomListToThatConnectionOnly(t *testing.T) {
	t.Parallel()

	reg, hub, _ := newTestRegistry(t)

	if _, err := reg.Create("conn-owner", "general", "alice", 10); err != nil {
		t.Fatal(err)
	}

	reg.Register("conn-1", "bob")

	lists := hub.byType(ws.RoomList)
	if len(lists) != 1 {
		t.Fatalf("room.list deliveries = %d, want 1", len(lists))
	}
	if lists[0].broadcast || !slices.Equal(lists[0].connIDs, []string{"conn-1"}) {
		t.Errorf("room.list delivery = %+v, want targeted at conn-1", lists[0])
	}
}

func TestRelaySkipsSenderAndKeepsPayloadOpaque(t *testing.T) {
	t.Parallel()

	reg, hub, _ := newTestRegistry(t)

	room, err := reg.Create("conn-owner", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(room.ID, "conn-1", "user-1", "bob"); err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(room.ID, "conn-2", "user-2", "carol"); err != nil {
		t.Fatal(err)
	}

	raw := json.RawMessage(`{"room":"` + room.ID + `","senderid":"user-1","ciphertext":"0a1b2c"}`)
	reg.Relay(room.ID, "conn-1", raw)

	received := hub.byType(ws.MessageReceived)
	if len(received) != 1 {
		t.Fatalf("message.received deliveries = %d, want 1", len(received))
	}
	if slices.Contains(received[0].connIDs, "conn-1") {
		t.Errorf("relay audience %v includes the sender", received[0].connIDs)
	}

	got, ok := received[0].msg.Data.(json.RawMessage)
	if !ok {
		t.Fatalf("relayed payload type %T, want json.RawMessage", received[0].msg.Data)
	}
	if string(got) != string(raw) {
		t.Errorf("relayed payload = %s, want it byte-identical to the input", got)
	}
}

func TestRelayUnknownRoomDeliversNothing(t *testing.T) {
	t.Parallel()

	reg, hub, _ := newTestRegistry(t)

	reg.Relay("missing", "conn-1", json.RawMessage(`{}`))

	if got := len(hub.byType(ws.MessageReceived)); got != 0 {
		t.Errorf("%d message.received deliveries for an unknown room, want 0", got)
	}
}

func TestListAllPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t)

	first, err := reg.Create("conn-1", "first", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	second, err := reg.Create("conn-2", "second", "bob", 10)
	if err != nil {
		t.Fatal(err)
	}
	third, err := reg.Create("conn-3", "third", "carol", 10)
	if err != nil {
		t.Fatal(err)
	}

	reg.Delete(second.ID, "conn-2", "Owner deleted room")

	rooms := reg.ListAll()
	if len(rooms) != 2 || rooms[0].ID != first.ID || rooms[1].ID != third.ID {
		t.Errorf("ListAll order = %+v, want [%s %s]", rooms, first.ID, third.ID)
	}
}

func TestRestoreSeedsRooms(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t)

	room, err := domain.NewRoom("conn-gone", "restored", "alice", 30)
	if err != nil {
		t.Fatal(err)
	}
	room.MembersCount = 3

	reg.Restore([]domain.Room{*room})

	rooms := reg.ListAll()
	if len(rooms) != 1 {
		t.Fatalf("ListAll after restore = %d rooms, want 1", len(rooms))
	}
	if rooms[0].ID != room.ID || rooms[0].MembersCount != 3 {
		t.Errorf("restored room = %+v, want %+v", rooms[0], *room)
	}
}
