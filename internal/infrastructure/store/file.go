package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/emberchat/ember/internal/domain"
	"github.com/emberchat/ember/internal/infrastructure/logging"
)

// FileStore keeps the room table as a JSON file. Writes are debounced:
// Save only records the latest snapshot, and a worker goroutine flushes it
// to disk after a quiet period, so the registry never waits on I/O.
type FileStore struct {
	path     string
	debounce time.Duration
	logger   logging.Logger

	mu         sync.Mutex
	pending    []domain.Room
	hasPending bool

	kick chan struct{}
}

func NewFileStore(path string, debounce time.Duration, logger logging.Logger) *FileStore {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	return &FileStore{
		path:     path,
		debounce: debounce,
		logger:   logger,
		kick:     make(chan struct{}, 1),
	}
}

// Load reads the persisted rooms, discarding any record whose expiry is
// already in the past. A missing file is an empty registry, not an error.
func (s *FileStore) Load(ctx context.Context) ([]domain.Room, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read room snapshot: %w", err)
	}

	var rooms []domain.Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("decode room snapshot: %w", err)
	}

	now := time.Now()
	live := rooms[:0]
	for _, room := range rooms {
		if room.Expired(now) {
			continue
		}
		live = append(live, room)
	}

	return live, nil
}

// Save records the snapshot and wakes the flush worker. Never blocks.
func (s *FileStore) Save(rooms []domain.Room) {
	s.mu.Lock()
	s.pending = rooms
	s.hasPending = true
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run flushes pending snapshots until ctx is cancelled, writing one final
// flush on the way out.
func (s *FileStore) Run(ctx context.Context) {
	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-s.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.debounce)

		case <-timer.C:
			s.flush()

		case <-ctx.Done():
			s.flush()
			return
		}
	}
}

func (s *FileStore) flush() {
	s.mu.Lock()
	if !s.hasPending {
		s.mu.Unlock()
		return
	}
	snapshot := s.pending
	s.hasPending = false
	s.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		s.logger.Error(logging.Persistence, logging.Snapshot, "encode room snapshot", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		// Durability is best-effort: live state stays authoritative.
		s.logger.Error(logging.Persistence, logging.Snapshot, "write room snapshot", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
			logging.Path:         s.path,
		})
	}
}
