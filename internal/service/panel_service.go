package service

import (
	"context"
	"errors"
	"time"

	"rag-lab-ui/internal/pkg/logger"
	"rag-lab-ui/internal/repository/memory"
	"rag-lab-ui/pkg/interaction"
	"rag-lab-ui/pkg/store"

	"github.com/google/uuid"
)

const panelModule = "PANEL"

var ErrSessionNotFound = errors.New("session not found")

// Backend is the RAG service as seen by both controllers.
type Backend interface {
	interaction.Ingester
	interaction.Asker
}

type IPanelService interface {
	CreateSession(ctx context.Context) (*store.Session, error)
	Snapshot(ctx context.Context, sessionId string) (*store.Snapshot, error)
	SelectFile(ctx context.Context, sessionId string, file interaction.SelectedFile) (*store.Snapshot, error)
	Ingest(ctx context.Context, sessionId string) (*store.Snapshot, error)
	SetQuestion(ctx context.Context, sessionId string, question string) (*store.Snapshot, error)
	Ask(ctx context.Context, sessionId string) (*store.Snapshot, error)
}

type panelService struct {
	sessions *memory.SessionRepository
	backend  Backend
	notifier interaction.Notifier
	policy   interaction.SettlePolicy
	logger   logger.ILogger
}

func NewPanelService(
	sessions *memory.SessionRepository,
	backend Backend,
	notifier interaction.Notifier,
	policy interaction.SettlePolicy,
	log logger.ILogger,
) IPanelService {
	return &panelService{
		sessions: sessions,
		backend:  backend,
		notifier: notifier,
		policy:   policy,
		logger:   log,
	}
}

func (s *panelService) CreateSession(ctx context.Context) (*store.Session, error) {
	id := uuid.New().String()
	opts := []interaction.Option{
		interaction.WithSessionID(id),
		interaction.WithPolicy(s.policy),
		interaction.WithNotifier(s.notifier),
		interaction.WithLogger(s.logger),
	}

	session := &store.Session{
		ID:        id,
		Ingestion: interaction.NewIngestionController(s.backend, opts...),
		Query:     interaction.NewQueryController(s.backend, opts...),
		CreatedAt: time.Now(),
	}
	s.sessions.Save(session)

	s.logger.Info(panelModule, "Session created", map[string]interface{}{
		"session_id": id,
		"policy":     s.policy.String(),
	})
	return session, nil
}

func (s *panelService) Snapshot(ctx context.Context, sessionId string) (*store.Snapshot, error) {
	session, err := s.find(sessionId)
	if err != nil {
		return nil, err
	}
	snap := session.Snapshot()
	return &snap, nil
}

func (s *panelService) SelectFile(ctx context.Context, sessionId string, file interaction.SelectedFile) (*store.Snapshot, error) {
	session, err := s.find(sessionId)
	if err != nil {
		return nil, err
	}
	session.Ingestion.SelectFile(file)
	snap := session.Snapshot()
	return &snap, nil
}

// Ingest returns the snapshot together with interaction.ErrNoFileSelected
// when there is nothing to upload.
func (s *panelService) Ingest(ctx context.Context, sessionId string) (*store.Snapshot, error) {
	session, err := s.find(sessionId)
	if err != nil {
		return nil, err
	}

	_, ingestErr := session.Ingestion.Ingest(ctx)
	snap := session.Snapshot()
	return &snap, ingestErr
}

func (s *panelService) SetQuestion(ctx context.Context, sessionId string, question string) (*store.Snapshot, error) {
	session, err := s.find(sessionId)
	if err != nil {
		return nil, err
	}
	session.Query.SetQuestion(ctx, question)
	snap := session.Snapshot()
	return &snap, nil
}

// Ask returns the snapshot together with interaction.ErrEmptyQuestion when
// the draft is blank; the state is untouched in that case.
func (s *panelService) Ask(ctx context.Context, sessionId string) (*store.Snapshot, error) {
	session, err := s.find(sessionId)
	if err != nil {
		return nil, err
	}

	_, askErr := session.Query.Ask(ctx)
	snap := session.Snapshot()
	return &snap, askErr
}

func (s *panelService) find(sessionId string) (*store.Session, error) {
	session, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
