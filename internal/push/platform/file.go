// Package platform implements a headless client platform for operator
// tooling: the push registration is a subscription descriptor exported
// from a browser, and permission prompts are answered on a terminal.
package platform

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pushboard-backend/internal/push/domain"
)

// ErrNoDescriptor is returned by Subscribe when no descriptor file is set.
var ErrNoDescriptor = errors.New("no subscription descriptor to register")

// ErrKeyMismatch mirrors the browser's InvalidStateError when a
// subscription exists for a different applicationServerKey.
var ErrKeyMismatch = errors.New("a subscription with a different application server key already exists")

// session is what survives between CLI invocations.
type session struct {
	Permission           domain.PermissionState   `json:"permission,omitempty"`
	Subscription         *domain.PushSubscription `json:"subscription,omitempty"`
	ApplicationServerKey string                   `json:"applicationServerKey,omitempty"`
}

// File is a Platform and Registrar backed by a session file.
type File struct {
	mu         sync.Mutex
	path       string
	descriptor string
	in         *bufio.Reader
	out        io.Writer
}

// NewFile creates a platform whose state lives at sessionPath. descriptor
// is the browser-exported PushSubscription JSON used on Subscribe and may
// be empty.
func NewFile(sessionPath, descriptor string, in io.Reader, out io.Writer) *File {
	return &File{
		path:       sessionPath,
		descriptor: descriptor,
		in:         bufio.NewReader(in),
		out:        out,
	}
}

func (f *File) SupportsPush() bool { return true }

func (f *File) Permission() domain.PermissionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.load()
	if err != nil || s.Permission == "" {
		return domain.PermissionDefault
	}
	return s.Permission
}

// PromptPermission asks on out and reads y/n from in. An empty answer
// dismisses the prompt and leaves the permission at default.
func (f *File) PromptPermission(ctx context.Context) (domain.PermissionState, error) {
	fmt.Fprint(f.out, "Allow notifications? [y/n] ")

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		line, err := f.in.ReadString('\n')
		answers <- answer{line: line, err: err}
	}()

	var line string
	select {
	case <-ctx.Done():
		return domain.PermissionDefault, ctx.Err()
	case a := <-answers:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return domain.PermissionDefault, a.err
		}
		line = a.line
	}

	state := domain.PermissionDefault
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		state = domain.PermissionGranted
	case "n", "no":
		state = domain.PermissionDenied
	}
	if state == domain.PermissionDefault {
		return state, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.load()
	if err != nil {
		return domain.PermissionDefault, err
	}
	s.Permission = state
	return state, f.save(s)
}

func (f *File) GetSubscription(_ context.Context) (*domain.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.load()
	if err != nil {
		return nil, err
	}
	return s.Subscription, nil
}

// Subscribe registers the descriptor for applicationServerKey. An existing
// registration for the same key is returned as is.
func (f *File) Subscribe(_ context.Context, applicationServerKey []byte) (*domain.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.load()
	if err != nil {
		return nil, err
	}

	key := base64.RawURLEncoding.EncodeToString(applicationServerKey)
	if s.Subscription != nil {
		if s.ApplicationServerKey != key {
			return nil, ErrKeyMismatch
		}
		return s.Subscription, nil
	}

	if f.descriptor == "" {
		return nil, ErrNoDescriptor
	}
	data, err := os.ReadFile(f.descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to read subscription descriptor: %w", err)
	}
	var sub domain.PushSubscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("failed to parse subscription descriptor: %w", err)
	}
	if !sub.Complete() {
		return nil, fmt.Errorf("subscription descriptor %s lacks endpoint or keys", f.descriptor)
	}

	s.Subscription = &sub
	s.ApplicationServerKey = key
	if err := f.save(s); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (f *File) Unsubscribe(_ context.Context, sub *domain.PushSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.load()
	if err != nil {
		return err
	}
	if s.Subscription == nil || (sub != nil && s.Subscription.Endpoint != sub.Endpoint) {
		return errors.New("subscription is not registered on this platform")
	}
	s.Subscription = nil
	s.ApplicationServerKey = ""
	return f.save(s)
}

func (f *File) load() (*session, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return &session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &s, nil
}

func (f *File) save(s *session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
