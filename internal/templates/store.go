// Package templates gives read-only, cached access to the prompt template and
// the numbered example texts embedded in every analysis request.
package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"zanzara-go/internal/config"
	"zanzara-go/internal/logger"
)

// ErrMissingTemplate means the prompt template file does not exist. Analysis
// cannot run without it; transcription-only invocations are unaffected.
var ErrMissingTemplate = errors.New("prompt template not found")

// ErrUnreadableTemplate means the template exists but could not be read.
var ErrUnreadableTemplate = errors.New("prompt template unreadable")

type WarningCode string

const (
	WarnMissingExample    WarningCode = "missing_example"
	WarnUnreadableExample WarningCode = "unreadable_example"
	WarnNoExamples        WarningCode = "no_examples"
	WarnExampleShortfall  WarningCode = "example_shortfall"
)

// Warning is a non-fatal problem found while loading examples.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// ExampleSet holds the examples that loaded, in file index order.
type ExampleSet struct {
	Texts    []string  `json:"-"`
	Expected int       `json:"expected"`
	Warnings []Warning `json:"warnings,omitempty"`
}

func (e ExampleSet) Loaded() int { return len(e.Texts) }

// Shortfall is how many configured examples are missing.
func (e ExampleSet) Shortfall() int { return e.Expected - len(e.Texts) }

type Options struct {
	PromptFile     string
	ExamplesDir    string
	ExamplePattern string
	NumExamples    int
	Logger         *logger.Logger
}

// Store caches the template and examples for the process lifetime. A failed
// template read is not cached so the file can be fixed without a restart.
type Store struct {
	opts Options
	log  *logger.Logger

	mu          sync.Mutex
	template    string
	hasTemplate bool
	examples    *ExampleSet
}

func NewStore(opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = logger.New()
	}
	return &Store{opts: opts, log: log.With("component", "templates")}
}

func NewStoreFromConfig(cfg config.Templates, log *logger.Logger) *Store {
	return NewStore(Options{
		PromptFile:     cfg.PromptFile,
		ExamplesDir:    cfg.ExamplesDir,
		ExamplePattern: cfg.ExamplePattern,
		NumExamples:    cfg.NumExamples,
		Logger:         log,
	})
}

// LoadTemplate returns the trimmed template text.
func (s *Store) LoadTemplate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasTemplate {
		return s.template, nil
	}

	b, err := os.ReadFile(s.opts.PromptFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.WithField("path", s.opts.PromptFile).Error("prompt template missing")
			return "", fmt.Errorf("%w: %s", ErrMissingTemplate, filepath.Base(s.opts.PromptFile))
		}
		s.log.WithError(err).WithField("path", s.opts.PromptFile).Error("prompt template unreadable")
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadableTemplate, filepath.Base(s.opts.PromptFile), err)
	}

	s.template = strings.TrimSpace(string(b))
	s.hasTemplate = true
	s.log.WithField("path", s.opts.PromptFile).WithField("bytes", len(s.template)).Debug("prompt template loaded")
	return s.template, nil
}

// LoadExamples tries every numbered example file once and caches the result.
// Missing or unreadable files are skipped with a warning.
func (s *Store) LoadExamples() ExampleSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.examples != nil {
		return *s.examples
	}

	set := ExampleSet{Expected: s.opts.NumExamples}
	for i := 1; i <= s.opts.NumExamples; i++ {
		name := fmt.Sprintf(s.opts.ExamplePattern, i)
		path := filepath.Join(s.opts.ExamplesDir, name)
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			set.Warnings = append(set.Warnings, Warning{
				Code:    WarnMissingExample,
				Message: fmt.Sprintf("example file %q not found in %q", name, filepath.Base(s.opts.ExamplesDir)),
			})
			continue
		case err != nil:
			set.Warnings = append(set.Warnings, Warning{
				Code:    WarnUnreadableExample,
				Message: fmt.Sprintf("example file %q unreadable: %v", name, err),
			})
			continue
		}
		set.Texts = append(set.Texts, strings.TrimSpace(string(b)))
	}

	switch {
	case set.Expected > 0 && set.Loaded() == 0:
		set.Warnings = append(set.Warnings, Warning{
			Code:    WarnNoExamples,
			Message: fmt.Sprintf("no example files found in %q; analysis will run without examples", filepath.Base(s.opts.ExamplesDir)),
		})
	case set.Shortfall() > 0:
		set.Warnings = append(set.Warnings, Warning{
			Code:    WarnExampleShortfall,
			Message: fmt.Sprintf("loaded %d of %d expected examples", set.Loaded(), set.Expected),
		})
	}

	for _, w := range set.Warnings {
		s.log.WithField("code", w.Code).Warn(w.Message)
	}
	s.examples = &set
	return set
}
