package service

import (
	"context"
	"sync"

	"github.com/helpbench/support-console/internal/assembler"
	"github.com/helpbench/support-console/internal/llm"
	"github.com/helpbench/support-console/pkg/logger"
)

// WidgetService owns the assistant widget sessions. Each widget instance maps
// to one assembler; the assembler's session handle is created lazily on the
// first send and reused until the widget closes.
type WidgetService struct {
	llmClient  llm.Client
	sessionCfg llm.SessionConfig
	logger     *logger.Logger

	mu      sync.Mutex
	widgets map[string]*assembler.Assembler
}

// NewWidgetService creates a widget service with the fixed session
// configuration every widget uses.
func NewWidgetService(llmClient llm.Client, cfg llm.SessionConfig, log *logger.Logger) *WidgetService {
	return &WidgetService{
		llmClient:  llmClient,
		sessionCfg: cfg,
		logger:     log,
		widgets:    make(map[string]*assembler.Assembler),
	}
}

// Widget returns the assembler for a widget instance, creating it on first
// use.
func (s *WidgetService) Widget(widgetID string) *assembler.Assembler {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.widgets[widgetID]; ok {
		return a
	}

	a := assembler.New(s.sessionFactory(), nil, s.logger)
	s.widgets[widgetID] = a
	return a
}

// Close tears down a widget instance. In-flight streams stop mutating its
// transcript.
func (s *WidgetService) Close(widgetID string) {
	s.mu.Lock()
	a, ok := s.widgets[widgetID]
	if ok {
		delete(s.widgets, widgetID)
	}
	s.mu.Unlock()

	if ok {
		a.Close()
	}
}

func (s *WidgetService) sessionFactory() assembler.SessionFactory {
	return func(ctx context.Context) (assembler.Session, error) {
		return llm.NewChatSession(s.llmClient, s.sessionCfg)
	}
}
