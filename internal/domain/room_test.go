package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewRoomValidDuration(t *testing.T) {
	t.Parallel()

	for _, minutes := range []int{MinDurationMinutes, 30, MaxDurationMinutes} {
		room, err := NewRoom("conn-1", "general", "alice", minutes)
		if err != nil {
			t.Fatalf("NewRoom(%d) returned error: %v", minutes, err)
		}
		if room.ID == "" {
			t.Error("room id is empty")
		}
		if room.Duration != minutes {
			t.Errorf("Duration = %d, want %d", room.Duration, minutes)
		}

		want := room.CreatedAt.Add(time.Duration(minutes) * time.Minute)
		if !room.ExpiresAt.Equal(want) {
			t.Errorf("ExpiresAt = %v, want %v", room.ExpiresAt, want)
		}
	}
}

func TestNewRoomInvalidDuration(t *testing.T) {
	t.Parallel()

	for _, minutes := range []int{-1, 0, MaxDurationMinutes + 1, 100000} {
		room, err := NewRoom("conn-1", "general", "alice", minutes)
		if !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("NewRoom(%d) error = %v, want ErrInvalidDuration", minutes, err)
		}
		if room != nil {
			t.Errorf("NewRoom(%d) returned a room despite invalid duration", minutes)
		}
	}
}

func TestIsOwner(t *testing.T) {
	t.Parallel()

	room, err := NewRoom("conn-1", "general", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}

	if !room.IsOwner("conn-1") {
		t.Error("IsOwner(owner) = false, want true")
	}
	if room.IsOwner("conn-2") {
		t.Error("IsOwner(stranger) = true, want false")
	}

	empty := Room{}
	if empty.IsOwner("") {
		t.Error("empty owner id must never match")
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	t.Parallel()

	room, err := NewRoom("conn-1", "general", "alice", 1)
	if err != nil {
		t.Fatal(err)
	}

	if got := room.Remaining(room.CreatedAt); got != 60 {
		t.Errorf("Remaining at creation = %d, want 60", got)
	}
	if got := room.Remaining(room.ExpiresAt.Add(time.Hour)); got != 0 {
		t.Errorf("Remaining after expiry = %d, want 0", got)
	}
}

func TestExpired(t *testing.T) {
	t.Parallel()

	room, err := NewRoom("conn-1", "general", "alice", 5)
	if err != nil {
		t.Fatal(err)
	}

	if room.Expired(room.CreatedAt) {
		t.Error("room expired at creation")
	}
	if !room.Expired(room.ExpiresAt) {
		t.Error("room not expired at its own deadline")
	}
}
