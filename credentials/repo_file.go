package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

var _ Repo = (*FileRepo)(nil)

// FileRepo persists credentials as a single JSON object keyed by the
// stringified Telegram user id. All mutations go through an in-memory map
// guarded by one mutex and are flushed to disk as a whole, so concurrent
// writers for different users never lose each other's entries.
//
// Durability is best effort: a failed flush is logged and the in-memory
// effect stands for the rest of the process.
type FileRepo struct {
	path string

	mu      sync.Mutex
	records map[string]Record
	loaded  bool

	log zerolog.Logger
}

// NewFileRepo creates a file-backed credential repository. The file is
// read lazily on first use and the storage directory is created lazily on
// first write.
func NewFileRepo(path string, logger zerolog.Logger) *FileRepo {
	return &FileRepo{
		path: path,
		log:  logger.With().Str("component", "credentials").Logger(),
	}
}

func (r *FileRepo) Put(telegramID int64, access, refresh string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureLoaded()
	r.records[strconv.FormatInt(telegramID, 10)] = Record{
		AccessToken:  access,
		RefreshToken: refresh,
		StoredAt:     NowTimeFunc().Format("2006-01-02T15:04:05"),
	}
	r.flush()
	r.log.Info().Int64("telegram_id", telegramID).Msg("credentials stored")
	return nil
}

func (r *FileRepo) Get(telegramID int64) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureLoaded()
	rec, ok := r.records[strconv.FormatInt(telegramID, 10)]
	if !ok {
		return nil, false
	}
	return &rec, true
}

func (r *FileRepo) Delete(telegramID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureLoaded()
	key := strconv.FormatInt(telegramID, 10)
	if _, ok := r.records[key]; !ok {
		return nil
	}
	delete(r.records, key)
	r.flush()
	r.log.Info().Int64("telegram_id", telegramID).Msg("credentials removed")
	return nil
}

// ensureLoaded reads the store file once. Any I/O or decode error yields
// an empty store so callers never crash on a missing or corrupt file.
// Callers must hold r.mu.
func (r *FileRepo) ensureLoaded() {
	if r.loaded {
		return
	}
	r.loaded = true
	r.records = map[string]Record{}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.log.Error().Err(err).Str("path", r.path).Msg("failed to load credential store")
		}
		return
	}
	if err := json.Unmarshal(data, &r.records); err != nil {
		r.log.Error().Err(err).Str("path", r.path).Msg("credential store is corrupt, treating as empty")
		r.records = map[string]Record{}
	}
}

// flush writes the whole store back to disk. Callers must hold r.mu.
func (r *FileRepo) flush() {
	if err := r.write(); err != nil {
		r.log.Error().Err(err).Str("path", r.path).Msg("failed to save credential store")
	}
}

func (r *FileRepo) write() error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(r.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential store: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return fmt.Errorf("write credential store: %w", err)
	}
	return nil
}
