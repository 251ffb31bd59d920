// Package prompt supplies the system prompt prepended to every model
// context. The prompt comes from a file when configured, with optional
// live reload, and falls back to a built-in default.
package prompt

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPrompt is used when no prompt file is configured.
const DefaultPrompt = "You are a helpful assistant. Some personal details in the " +
	"conversation have been replaced with placeholders like {{NAME}} or " +
	"{{EMAIL}}; treat them as opaque values and never try to guess what " +
	"they stand for."

const debounceInterval = 100 * time.Millisecond

// Source holds the current system prompt. Get is safe for concurrent
// use with reloads.
type Source struct {
	mu     sync.RWMutex
	prompt string

	path    string
	watcher *fsnotify.Watcher

	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped sync.Once
}

// NewStatic returns a source with a fixed prompt and no file backing.
func NewStatic(prompt string) *Source {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &Source{prompt: prompt}
}

// NewFromFile loads the prompt from path. When watch is true the file is
// re-read on change; a broken rewrite keeps the previous prompt.
func NewFromFile(path string, watch bool) (*Source, error) {
	text, err := readPromptFile(path)
	if err != nil {
		return nil, err
	}

	s := &Source{
		prompt: text,
		path:   path,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if !watch {
		return s, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch prompt file %q: %w", path, err)
	}
	s.watcher = watcher

	go s.watchLoop()

	slog.Info("prompt file watcher started", "path", path)
	return s, nil
}

// Get returns the current system prompt.
func (s *Source) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

// Close stops the watcher if one is running.
func (s *Source) Close() error {
	if s.watcher == nil {
		return nil
	}
	s.stopped.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
	return s.watcher.Close()
}

func (s *Source) watchLoop() {
	defer close(s.doneCh)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-s.stopCh:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			// Editors often fire several events per save; coalesce them.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, s.reload)

			// Re-add the path after rename/remove (atomic saves).
			if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				s.watcher.Add(s.path)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("prompt watcher error", "error", err)
		}
	}
}

func (s *Source) reload() {
	text, err := readPromptFile(s.path)
	if err != nil {
		slog.Error("prompt reload failed, keeping previous prompt",
			"path", s.path,
			"error", err,
		)
		return
	}

	s.mu.Lock()
	changed := s.prompt != text
	s.prompt = text
	s.mu.Unlock()

	if changed {
		slog.Info("system prompt reloaded", "path", s.path)
	}
}

func readPromptFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %q: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("prompt file %q is empty", path)
	}
	return text, nil
}
