package store

import (
	"time"

	"rag-lab-ui/pkg/interaction"
)

// Session is one open panel: the pair of controllers a single user drives.
// It lives in memory only and disappears when it expires.
type Session struct {
	ID        string
	Ingestion *interaction.IngestionController
	Query     *interaction.QueryController
	CreatedAt time.Time
}

// Snapshot is the serializable view of a session.
type Snapshot struct {
	ID        string                     `json:"id"`
	Ingestion interaction.IngestionState `json:"ingestion"`
	Query     interaction.QueryState     `json:"query"`
	File      *interaction.SelectedFile  `json:"file,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        s.ID,
		Ingestion: s.Ingestion.State(),
		Query:     s.Query.State(),
		CreatedAt: s.CreatedAt,
	}
	if f, ok := s.Ingestion.SelectedFile(); ok {
		snap.File = &f
	}
	return snap
}
