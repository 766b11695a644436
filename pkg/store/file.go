package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailroom/pkg/message"
)

// DefaultListLimit caps List results when no limit is given.
const DefaultListLimit = 100

const (
	messagesDir    = "messages"
	attachmentsDir = "attachments"
	logsDir        = "logs"

	dirPerm  = 0o755
	filePerm = 0o644
)

// FileStore implements Store over flat files: one JSON envelope per message
// under <root>/messages and one file per attachment under <root>/attachments.
// Directories are created lazily on first use. Concurrent writers cannot
// collide because every Put generates a fresh key.
type FileStore struct {
	root string
}

// NewFileStore creates a file-backed store rooted at the given path.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) Put(_ context.Context, msg *message.Message) (string, error) {
	if err := s.ensureDir(messagesDir); err != nil {
		return "", err
	}

	key := "msg_" + uuid.NewString()
	env := envelope{
		StorageKey: key,
		StoredAt:   time.Now().Format(time.RFC3339),
		Message:    msg,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.WriteFile(s.messagePath(key), data, filePerm); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return key, nil
}

func (s *FileStore) Get(_ context.Context, key string) (*message.Message, error) {
	env, err := s.readEnvelope(s.messagePath(key))
	if err != nil {
		return nil, err
	}
	return env.Message, nil
}

func (s *FileStore) List(_ context.Context, opts ListOptions) ([]Summary, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}

	files, err := filepath.Glob(filepath.Join(s.root, messagesDir, "*.json"))
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, min(len(files), opts.Limit))
	skipped := 0
	for _, path := range files {
		env, err := s.readEnvelope(path)
		if err != nil {
			// Corrupt records are invisible rather than fatal.
			continue
		}
		if opts.Domain != "" && env.Message.Domain != opts.Domain {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		if len(summaries) >= opts.Limit {
			break
		}
		summaries = append(summaries, Summary{
			StorageKey: env.StorageKey,
			StoredAt:   env.StoredAt,
			MessageID:  env.Message.ID,
			Domain:     env.Message.Domain,
			From:       env.Message.From,
			To:         env.Message.To,
			Subject:    env.Message.Subject,
			Timestamp:  env.Message.Timestamp,
		})
	}
	return summaries, nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.messagePath(key))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) PutAttachment(_ context.Context, originalName string, r io.Reader, size int64, contentType string) (*Attachment, error) {
	if err := s.ensureDir(attachmentsDir); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	filename := id + filepath.Ext(originalName)
	path := filepath.Join(s.root, attachmentsDir, filename)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if size > 0 && written != size {
		os.Remove(path)
		return nil, fmt.Errorf("%w: short copy: %d of %d bytes", ErrWriteFailed, written, size)
	}

	return &Attachment{
		ID:           id,
		Filename:     filename,
		OriginalName: originalName,
		Size:         written,
		ContentType:  contentType,
		Path:         path,
	}, nil
}

// GetAttachment locates a stored attachment by its generated id.
func (s *FileStore) GetAttachment(_ context.Context, id string) (*Attachment, error) {
	matches, err := filepath.Glob(filepath.Join(s.root, attachmentsDir, id+".*"))
	if err != nil || len(matches) == 0 {
		// Attachments stored from extension-less uploads have no dot suffix.
		bare := filepath.Join(s.root, attachmentsDir, id)
		if _, statErr := os.Stat(bare); statErr == nil {
			matches = []string{bare}
		} else {
			return nil, ErrAttachmentNotFound
		}
	}

	path := matches[0]
	info, err := os.Stat(path)
	if err != nil {
		return nil, ErrAttachmentNotFound
	}
	return &Attachment{
		ID:       id,
		Filename: filepath.Base(path),
		Size:     info.Size(),
		Path:     path,
	}, nil
}

func (s *FileStore) Cleanup(_ context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention).Unix()

	files, err := filepath.Glob(filepath.Join(s.root, messagesDir, "*.json"))
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, path := range files {
		env, err := s.readEnvelope(path)
		if err != nil {
			continue
		}
		if env.Message.Timestamp >= cutoff {
			continue
		}
		if err := os.Remove(path); err != nil {
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *FileStore) ClearAll(_ context.Context) (int, int, error) {
	msgFiles, err := filepath.Glob(filepath.Join(s.root, messagesDir, "*.json"))
	if err != nil {
		return 0, 0, err
	}
	attFiles, err := filepath.Glob(filepath.Join(s.root, attachmentsDir, "*"))
	if err != nil {
		return 0, 0, err
	}

	messages := 0
	for _, path := range msgFiles {
		if os.Remove(path) == nil {
			messages++
		}
	}
	attachments := 0
	for _, path := range attFiles {
		if os.Remove(path) == nil {
			attachments++
		}
	}
	return messages, attachments, nil
}

func (s *FileStore) Stats(_ context.Context) (*Stats, error) {
	msgFiles, err := filepath.Glob(filepath.Join(s.root, messagesDir, "*.json"))
	if err != nil {
		return nil, err
	}
	attFiles, err := filepath.Glob(filepath.Join(s.root, attachmentsDir, "*"))
	if err != nil {
		return nil, err
	}

	var total int64
	for _, path := range append(append([]string{}, msgFiles...), attFiles...) {
		if info, err := os.Stat(path); err == nil {
			total += info.Size()
		}
	}

	return &Stats{
		TotalMessages:    len(msgFiles),
		TotalAttachments: len(attFiles),
		TotalSizeBytes:   total,
		TotalSizeMB:      float64(total) / (1 << 20),
		StoragePath:      s.root,
	}, nil
}

func (s *FileStore) messagePath(key string) string {
	return filepath.Join(s.root, messagesDir, key+".json")
}

func (s *FileStore) ensureDir(sub string) error {
	for _, dir := range []string{sub, logsDir} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), dirPerm); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
	}
	return nil
}

// readEnvelope parses one stored record. Any read or decode failure, or an
// envelope without a message, reads as not-found.
func (s *FileStore) readEnvelope(path string) (*envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrNotFound
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Message == nil {
		return nil, ErrNotFound
	}
	return &env, nil
}
