// /internal/storage/storage.go
package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/keshon/datastore"
)

const (
	playHistoryLimit = 50
	recordKey        = "soundboard"
)

type Storage struct {
	mu sync.Mutex
	ds *datastore.DataStore
}

// PlayRecord is one admitted playback request.
type PlayRecord struct {
	GuildID  string    `json:"guild_id"`
	UserID   string    `json:"user_id"`
	ClipID   string    `json:"clip_id"`
	Datetime time.Time `json:"datetime"`
}

type Record struct {
	PlayHistory []PlayRecord   `json:"play_history"`
	PlayCounts  map[string]int `json:"play_counts"` // key = clip id
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

func (s *Storage) getOrCreateRecord() (*Record, error) {
	data, exists := s.ds.Get(recordKey)
	if !exists {
		newRecord := &Record{
			PlayHistory: []PlayRecord{},
			PlayCounts:  map[string]int{},
		}
		s.ds.Add(recordKey, newRecord)
		return newRecord, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error marshalling data: %w", err)
	}

	var record Record
	err = json.Unmarshal(jsonData, &record)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling to *Record: %w", err)
	}

	if record.PlayCounts == nil {
		record.PlayCounts = map[string]int{}
	}

	if len(record.PlayHistory) > playHistoryLimit {
		record.PlayHistory = record.PlayHistory[len(record.PlayHistory)-playHistoryLimit:]
	}

	return &record, nil
}

// RecordPlay appends a play event and bumps the clip's play count. Failures
// only cost statistics, so they are logged rather than propagated.
func (s *Storage) RecordPlay(guildID, userID, clipID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateRecord()
	if err != nil {
		log.Println("[WARN] Failed to record play event:", err)
		return
	}

	record.PlayHistory = append(record.PlayHistory, PlayRecord{
		GuildID:  guildID,
		UserID:   userID,
		ClipID:   clipID,
		Datetime: time.Now(),
	})
	if len(record.PlayHistory) > playHistoryLimit {
		record.PlayHistory = record.PlayHistory[len(record.PlayHistory)-playHistoryLimit:]
	}
	record.PlayCounts[clipID]++

	s.ds.Add(recordKey, record)
}

// PlayCounts returns the play count per clip id.
func (s *Storage) PlayCounts() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateRecord()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(record.PlayCounts))
	for id, n := range record.PlayCounts {
		counts[id] = n
	}
	return counts, nil
}

// RecentPlays returns up to limit most recent play events, newest last.
func (s *Storage) RecentPlays(limit int) ([]PlayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateRecord()
	if err != nil {
		return nil, err
	}

	history := record.PlayHistory
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	out := make([]PlayRecord, len(history))
	copy(out, history)
	return out, nil
}
