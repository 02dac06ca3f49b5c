package services

import (
	"log"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/patrickmn/go-cache"
)

const promptCacheKey = "system_prompt"

// defaultSystemPrompt is used when no prompt file is configured or readable
const defaultSystemPrompt = `You are Maestro, a friendly and encouraging music tutor. You help students
practice their instrument through conversation, recordings, and interactive
widgets.

Guidelines:
- Keep responses short and focused on one actionable point at a time.
- When a student plays something, analyze it before commenting on it.
- Never invent performance metrics. Only cite numbers that come from an
  actual analysis of a recording.
- Use widgets (metronome, tuner, notation) when they help the student
  practice, not as decoration.`

// PromptService serves the system prompt. The prompt is read from disk once
// and cached; an fsnotify watcher invalidates the cache on edit so prompt
// changes apply to new sessions without a restart.
type PromptService struct {
	path    string
	store   *cache.Cache
	watcher *fsnotify.Watcher
}

// NewPromptService loads the prompt and starts the file watcher. A missing
// file is not an error; the built-in prompt is used instead.
func NewPromptService(path string) *PromptService {
	ps := &PromptService{
		path:  path,
		store: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
	ps.store.Set(promptCacheKey, ps.read(), cache.NoExpiration)

	if path != "" {
		if watcher, err := fsnotify.NewWatcher(); err == nil {
			if err := watcher.Add(path); err == nil {
				ps.watcher = watcher
				go ps.watch()
			} else {
				log.Printf("⚠️ Prompt watcher not attached (%s): %v", path, err)
				watcher.Close()
			}
		}
	}
	return ps
}

// Get returns the current system prompt
func (ps *PromptService) Get() string {
	if cached, ok := ps.store.Get(promptCacheKey); ok {
		return cached.(string)
	}
	prompt := ps.read()
	ps.store.Set(promptCacheKey, prompt, cache.NoExpiration)
	return prompt
}

// Close stops the file watcher
func (ps *PromptService) Close() {
	if ps.watcher != nil {
		ps.watcher.Close()
	}
}

func (ps *PromptService) read() string {
	if ps.path == "" {
		return defaultSystemPrompt
	}
	data, err := os.ReadFile(ps.path)
	if err != nil {
		log.Printf("⚠️ System prompt file unreadable (%s), using built-in: %v", ps.path, err)
		return defaultSystemPrompt
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}

func (ps *PromptService) watch() {
	for {
		select {
		case event, ok := <-ps.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				ps.store.Set(promptCacheKey, ps.read(), cache.NoExpiration)
				log.Printf("🔄 System prompt reloaded from %s", ps.path)
			}
		case err, ok := <-ps.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️ Prompt watcher error: %v", err)
		}
	}
}
