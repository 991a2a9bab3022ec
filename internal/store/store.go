package store

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/db"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

const (
	KeySSID     = "wifi_ssid"
	KeyPassword = "wifi_pass"
	KeySchedule = "irrigation_schedule"
)

// ScheduleBlobSize is the exact length of a stored schedule: one byte per
// zone followed by the update time as big-endian unix milliseconds.
const ScheduleBlobSize = 3 + 8

var ErrNotFound = errors.New("key not found")

// Store is the durable key-value store for credentials and the last
// schedule. Any error other than ErrNotFound means the backing storage is
// unusable.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(conn *sql.DB) *Store {
	return &Store{db: conn, now: time.Now}
}

func (s *Store) Put(key string, value []byte) error {
	return db.PutValues(s.db, s.now(), db.KV{Key: key, Value: value})
}

// Get returns the value under key or ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	v, err := db.GetValue(s.db, key)
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SaveCredentials writes name and secret together.
func (s *Store) SaveCredentials(c model.Credentials) error {
	err := db.PutValues(s.db, s.now(),
		db.KV{Key: KeySSID, Value: []byte(c.SSID)},
		db.KV{Key: KeyPassword, Value: []byte(c.Password)},
	)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// LoadCredentials reports ok=false when either half was never saved.
func (s *Store) LoadCredentials() (model.Credentials, bool, error) {
	ssid, err := s.Get(KeySSID)
	if errors.Is(err, ErrNotFound) {
		return model.Credentials{}, false, nil
	}
	if err != nil {
		return model.Credentials{}, false, fmt.Errorf("load ssid: %w", err)
	}

	pass, err := s.Get(KeyPassword)
	if errors.Is(err, ErrNotFound) {
		return model.Credentials{}, false, nil
	}
	if err != nil {
		return model.Credentials{}, false, fmt.Errorf("load password: %w", err)
	}

	return model.Credentials{SSID: string(ssid), Password: string(pass)}, true, nil
}

func (s *Store) ClearCredentials() error {
	if err := db.DeleteValues(s.db, KeySSID, KeyPassword); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (s *Store) SaveSchedule(sch model.Schedule) error {
	if err := s.Put(KeySchedule, EncodeSchedule(sch)); err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

// LoadSchedule reports ok=false when nothing was saved or the stored record
// has the wrong size.
func (s *Store) LoadSchedule() (model.Schedule, bool, error) {
	b, err := s.Get(KeySchedule)
	if errors.Is(err, ErrNotFound) {
		return model.Schedule{}, false, nil
	}
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("load schedule: %w", err)
	}

	sch, ok := DecodeSchedule(b)
	if !ok {
		log.Warn().Int("size", len(b)).Int("expected", ScheduleBlobSize).Msg("Stored schedule size mismatch - ignoring")
		return model.Schedule{}, false, nil
	}
	return sch, true, nil
}

func (s *Store) ClearSchedule() error {
	if err := db.DeleteValues(s.db, KeySchedule); err != nil {
		return fmt.Errorf("clear schedule: %w", err)
	}
	return nil
}

func EncodeSchedule(sch model.Schedule) []byte {
	b := make([]byte, ScheduleBlobSize)
	for i, on := range sch.Zones() {
		if on {
			b[i] = 1
		}
	}
	var ms int64
	if sch.Received() {
		ms = sch.LastUpdate.UnixMilli()
	}
	binary.BigEndian.PutUint64(b[3:], uint64(ms))
	return b
}

func DecodeSchedule(b []byte) (model.Schedule, bool) {
	if len(b) != ScheduleBlobSize {
		return model.Schedule{}, false
	}
	sch := model.Schedule{
		Zone1: b[0] != 0,
		Zone2: b[1] != 0,
		Zone3: b[2] != 0,
	}
	if ms := int64(binary.BigEndian.Uint64(b[3:])); ms != 0 {
		sch.LastUpdate = time.UnixMilli(ms).UTC()
	}
	return sch, true
}
