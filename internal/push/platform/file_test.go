package platform

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pushboard-backend/internal/push/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const descriptorJSON = `{"endpoint":"https://fcm.googleapis.com/fcm/send/abc","keys":{"p256dh":"BNcR","auth":"tBHI"},"expirationTime":null}`

func newTestFile(t *testing.T, input string) (*File, string) {
	t.Helper()
	dir := t.TempDir()
	descriptor := filepath.Join(dir, "subscription.json")
	require.NoError(t, os.WriteFile(descriptor, []byte(descriptorJSON), 0o600))
	return NewFile(filepath.Join(dir, "state", "session.json"), descriptor, strings.NewReader(input), &bytes.Buffer{}), descriptor
}

func TestFile_PromptAnswers(t *testing.T) {
	tests := []struct {
		input string
		want  domain.PermissionState
	}{
		{"y\n", domain.PermissionGranted},
		{"YES\n", domain.PermissionGranted},
		{"n\n", domain.PermissionDenied},
		{"\n", domain.PermissionDefault},
		{"", domain.PermissionDefault},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			f, _ := newTestFile(t, tt.input)
			state, err := f.PromptPermission(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
			assert.Equal(t, tt.want, f.Permission())
		})
	}
}

func TestFile_PromptHonoursContext(t *testing.T) {
	dir := t.TempDir()
	blocked, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()
	defer blocked.Close()

	f := NewFile(filepath.Join(dir, "session.json"), "", blocked, &bytes.Buffer{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = f.PromptPermission(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFile_SubscribePersistsAcrossInstances(t *testing.T) {
	f, descriptor := newTestFile(t, "")
	key := []byte{0x04, 1, 2, 3}

	sub, err := f.Subscribe(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "https://fcm.googleapis.com/fcm/send/abc", sub.Endpoint)

	reopened := NewFile(f.path, descriptor, strings.NewReader(""), &bytes.Buffer{})
	existing, err := reopened.GetSubscription(context.Background())
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, sub.Endpoint, existing.Endpoint)

	again, err := reopened.Subscribe(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, sub.Endpoint, again.Endpoint)
}

func TestFile_SubscribeWithDifferentKey(t *testing.T) {
	f, _ := newTestFile(t, "")
	_, err := f.Subscribe(context.Background(), []byte{0x04, 1})
	require.NoError(t, err)

	_, err = f.Subscribe(context.Background(), []byte{0x04, 2})
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestFile_SubscribeWithoutDescriptor(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "session.json"), "", strings.NewReader(""), &bytes.Buffer{})
	_, err := f.Subscribe(context.Background(), []byte{0x04})
	assert.ErrorIs(t, err, ErrNoDescriptor)
}

func TestFile_Unsubscribe(t *testing.T) {
	f, _ := newTestFile(t, "")
	sub, err := f.Subscribe(context.Background(), []byte{0x04})
	require.NoError(t, err)

	require.NoError(t, f.Unsubscribe(context.Background(), sub))
	existing, err := f.GetSubscription(context.Background())
	require.NoError(t, err)
	assert.Nil(t, existing)

	assert.Error(t, f.Unsubscribe(context.Background(), sub))
}
