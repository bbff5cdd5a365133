package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
	nonceLen = 24
)

var _ Store = (*FileStore)(nil)

// fileDocument is the on-disk layout. The token sits under StorageKey.
type fileDocument struct {
	Token     string `json:"token,omitempty"`
	Encrypted bool   `json:"encrypted,omitempty"`
}

// FileStore persists the token in a small JSON document so it survives process
// restarts. Writes go to a temporary file that is renamed into place.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  *[32]byte
}

// FileStoreOption defines a function type to modify the FileStore instance.
type FileStoreOption func(*FileStore)

// WithEncryptionKey seals the token at rest with NaCl secretbox.
func WithEncryptionKey(key [32]byte) FileStoreOption {
	return func(fs *FileStore) {
		k := key
		fs.key = &k
	}
}

// NewFileStore creates a store backed by the file at path. The file is created on
// the first SetToken.
func NewFileStore(path string, options ...FileStoreOption) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("[NewFileStore] path is required")
	}
	fs := &FileStore{path: path}
	for _, opt := range options {
		opt(fs)
	}
	return fs, nil
}

func (fs *FileStore) Token(_ context.Context) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "[FileStore.Token] read")
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", false, errors.Wrap(ErrCorruptStore, err.Error())
	}
	if doc.Token == "" {
		return "", false, nil
	}
	if !doc.Encrypted {
		return doc.Token, true, nil
	}

	token, err := fs.open(doc.Token)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func (fs *FileStore) SetToken(_ context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc := fileDocument{Token: token}
	if fs.key != nil {
		sealed, err := fs.seal(token)
		if err != nil {
			return err
		}
		doc = fileDocument{Token: sealed, Encrypted: true}
	}
	return fs.write(doc)
}

func (fs *FileStore) ClearToken(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "[FileStore.ClearToken] remove")
	}
	return nil
}

func (fs *FileStore) write(doc fileDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "[FileStore.write] marshal")
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return errors.Wrap(err, "[FileStore.write] mkdir")
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return errors.Wrap(err, "[FileStore.write] create temp")
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // no-op after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "[FileStore.write] write")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "[FileStore.write] sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FileStore.write] close")
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		return errors.Wrap(err, "[FileStore.write] chmod")
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		return errors.Wrap(err, "[FileStore.write] rename")
	}
	return nil
}

func (fs *FileStore) seal(token string) (string, error) {
	var nonce [nonceLen]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", errors.Wrap(err, "[FileStore.seal] nonce")
	}
	box := secretbox.Seal(nonce[:], []byte(token), &nonce, fs.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (fs *FileStore) open(sealed string) (string, error) {
	if fs.key == nil {
		return "", errors.Wrap(ErrDecryptFailed, "no encryption key configured")
	}
	box, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(box) < nonceLen+secretbox.Overhead {
		return "", ErrCorruptStore
	}
	var nonce [nonceLen]byte
	copy(nonce[:], box[:nonceLen])
	plain, ok := secretbox.Open(nil, box[nonceLen:], &nonce, fs.key)
	if !ok {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}
