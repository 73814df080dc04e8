package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonesrussell/goindexer/internal/logger"
)

const (
	keysDirMode = 0o755
	keyFileMode = 0o600
)

// Store holds the loaded credentials and rotates through them. Rotation
// is safe for concurrent use.
type Store struct {
	dir   string
	creds []*Credential

	mu   sync.Mutex
	next int

	logger logger.Interface
}

// Load reads every *.json file in dir, in lexical order, into a Store.
// The directory is created if it does not exist. Files that fail to
// parse or validate are skipped with a warning so one broken key never
// blocks the rest. Returns ErrNoCredentials when no valid key remains.
// The logger is optional and can be nil.
func Load(dir string, log logger.Interface) (*Store, error) {
	if log == nil {
		log = logger.NewNoOp()
	}

	if err := os.MkdirAll(dir, keysDirMode); err != nil {
		return nil, fmt.Errorf("create API keys directory: %w", err)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan API keys directory: %w", err)
	}

	store := &Store{dir: dir, logger: log}
	for _, path := range paths {
		cred, loadErr := LoadFile(path)
		if loadErr != nil {
			log.Warn("Skipping invalid API key file", "path", path, "error", loadErr)
			continue
		}
		store.creds = append(store.creds, cred)
		log.Debug("Loaded API key", "path", path, "account", cred.ID())
	}

	if len(store.creds) == 0 {
		return nil, ErrNoCredentials
	}

	log.Info("Loaded API keys", "dir", dir, "count", len(store.creds))
	return store, nil
}

// Next returns the next credential in round-robin order.
func (s *Store) Next() *Credential {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred := s.creds[s.next]
	s.next = (s.next + 1) % len(s.creds)
	return cred
}

// List returns the loaded credentials in load order.
func (s *Store) List() []*Credential {
	result := make([]*Credential, len(s.creds))
	copy(result, s.creds)
	return result
}

// Len returns the number of loaded credentials.
func (s *Store) Len() int {
	return len(s.creds)
}

// Add validates the key file at srcPath and copies it into dir, which
// is created if missing. Copying is skipped when the file already lives
// in dir. Returns the parsed credential.
func Add(dir, srcPath string, log logger.Interface) (*Credential, error) {
	if log == nil {
		log = logger.NewNoOp()
	}

	cred, err := LoadFile(srcPath)
	if err != nil {
		return nil, err
	}

	if mkErr := os.MkdirAll(dir, keysDirMode); mkErr != nil {
		return nil, fmt.Errorf("create API keys directory: %w", mkErr)
	}

	dstPath := filepath.Join(dir, filepath.Base(srcPath))
	samePath, err := sameFile(srcPath, dstPath)
	if err != nil {
		return nil, err
	}
	if samePath {
		log.Debug("API key already in place", "path", dstPath)
		return cred, nil
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if writeErr := os.WriteFile(dstPath, data, keyFileMode); writeErr != nil {
		return nil, fmt.Errorf("copy key file: %w", writeErr)
	}

	cred.Path = dstPath
	log.Info("Added API key", "path", dstPath, "account", cred.ID())
	return cred, nil
}

// sameFile reports whether src and dst resolve to the same existing
// file.
func sameFile(src, dst string) (bool, error) {
	dstInfo, err := os.Stat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat key file: %w", err)
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("stat key file: %w", err)
	}
	return os.SameFile(srcInfo, dstInfo), nil
}
