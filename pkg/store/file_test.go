package store_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/message"
	"github.com/dmitrymomot/mailroom/pkg/store"
)

func testMessage(domain string) *message.Message {
	return message.New(domain, message.SendRequest{
		From:    "Sender <s@x.com>",
		To:      []string{"r@x.com"},
		Subject: "Hello",
		Text:    "body",
	}, nil)
}

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s := store.NewFileStore(t.TempDir())
	ctx := context.Background()

	msg := testMessage("example.com")
	key, err := s.Put(ctx, msg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "msg_"))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestFileStore_FreshKeys(t *testing.T) {
	t.Parallel()

	s := store.NewFileStore(t.TempDir())
	ctx := context.Background()

	msg := testMessage("example.com")
	k1, err := s.Put(ctx, msg)
	require.NoError(t, err)
	k2, err := s.Put(ctx, msg)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestFileStore_GetNotFound(t *testing.T) {
	t.Parallel()

	s := store.NewFileStore(t.TempDir())
	_, err := s.Get(context.Background(), "msg_missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFileStore_CorruptRecordReadsAsNotFound(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := store.NewFileStore(root)
	ctx := context.Background()

	key, err := s.Put(ctx, testMessage("example.com"))
	require.NoError(t, err)

	path := filepath.Join(root, "messages", key+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFileStore_List(t *testing.T) {
	t.Parallel()

	s := store.NewFileStore(t.TempDir())
	ctx := context.Background()

	for range 3 {
		_, err := s.Put(ctx, testMessage("a.com"))
		require.NoError(t, err)
	}
	for range 2 {
		_, err := s.Put(ctx, testMessage("b.com"))
		require.NoError(t, err)
	}

	all, err := s.List(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	filtered, err := s.List(ctx, store.ListOptions{Domain: "b.com"})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, sum := range filtered {
		assert.Equal(t, "b.com", sum.Domain)
	}

	paged, err := s.List(ctx, store.ListOptions{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
}

func TestFileStore_Delete(t *testing.T) {
	t.Parallel()

	s := store.NewFileStore(t.TempDir())
	ctx := context.Background()

	key, err := s.Put(ctx, testMessage("example.com"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, key), store.ErrNotFound)
}

func TestFileStore_PutAttachment(t *testing.T) {
	t.Parallel()

	s := store.NewFileStore(t.TempDir())
	ctx := context.Background()

	content := "attachment bytes"
	att, err := s.PutAttachment(ctx, "report.pdf", strings.NewReader(content), int64(len(content)), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", att.OriginalName)
	assert.Equal(t, att.ID+".pdf", att.Filename)
	assert.Equal(t, int64(len(content)), att.Size)
	assert.Equal(t, "application/pdf", att.ContentType)

	stored, err := os.ReadFile(att.Path)
	require.NoError(t, err)
	assert.Equal(t, content, string(stored))

	found, err := s.GetAttachment(ctx, att.ID)
	require.NoError(t, err)
	assert.Equal(t, att.Path, found.Path)

	_, err = s.GetAttachment(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrAttachmentNotFound)
}

func TestFileStore_PutAttachment_SizeMismatch(t *testing.T) {
	t.Parallel()

	s := store.NewFileStore(t.TempDir())
	_, err := s.PutAttachment(context.Background(), "x.bin", strings.NewReader("short"), 100, "application/octet-stream")
	assert.ErrorIs(t, err, store.ErrWriteFailed)
}

func TestFileStore_Cleanup(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := store.NewFileStore(root)
	ctx := context.Background()

	oldMsg := testMessage("example.com")
	oldMsg.Timestamp = time.Now().Add(-40 * 24 * time.Hour).Unix()
	_, err := s.Put(ctx, oldMsg)
	require.NoError(t, err)

	_, err = s.Put(ctx, testMessage("example.com"))
	require.NoError(t, err)

	deleted, err := s.Cleanup(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	// Idempotent: nothing old remains on the second pass.
	deleted, err = s.Cleanup(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	remaining, err := s.List(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestFileStore_CleanupDoesNotTouchAttachments(t *testing.T) {
	t.Parallel()

	s := store.NewFileStore(t.TempDir())
	ctx := context.Background()

	att, err := s.PutAttachment(ctx, "f.txt", strings.NewReader("x"), 1, "text/plain")
	require.NoError(t, err)

	msg := testMessage("example.com")
	msg.Timestamp = 0
	msg.Attachments = []message.Attachment{{Name: "f.txt", Size: 1, ContentType: "text/plain", Path: att.Path}}
	_, err = s.Put(ctx, msg)
	require.NoError(t, err)

	deleted, err := s.Cleanup(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	// Existing behavior: the orphaned attachment file survives retention.
	_, err = os.Stat(att.Path)
	assert.NoError(t, err)
}

func TestFileStore_ClearAll(t *testing.T) {
	t.Parallel()

	s := store.NewFileStore(t.TempDir())
	ctx := context.Background()

	_, err := s.Put(ctx, testMessage("example.com"))
	require.NoError(t, err)
	_, err = s.PutAttachment(ctx, "f.txt", strings.NewReader("x"), 1, "text/plain")
	require.NoError(t, err)

	messages, attachments, err := s.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, messages)
	assert.Equal(t, 1, attachments)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalMessages)
	assert.Zero(t, stats.TotalAttachments)
}

func TestFileStore_Stats(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := store.NewFileStore(root)
	ctx := context.Background()

	_, err := s.Put(ctx, testMessage("example.com"))
	require.NoError(t, err)
	_, err = s.PutAttachment(ctx, "f.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalMessages)
	assert.Equal(t, 1, stats.TotalAttachments)
	assert.Greater(t, stats.TotalSizeBytes, int64(5))
	assert.Equal(t, root, stats.StoragePath)
}
