package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

// SetQuestionRequest carries the draft verbatim; an empty string is a valid
// draft, a missing field is not.
type SetQuestionRequest struct {
	Question *string `json:"question" validate:"required"`
}

type SelectedFileDTO struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      int    `json:"size"`
}

type IngestionPanelDTO struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Inserted int    `json:"inserted,omitempty"`
	Seq      uint64 `json:"seq"`
	Version  uint64 `json:"version"`
}

type QueryPanelDTO struct {
	Question string   `json:"question"`
	Status   string   `json:"status"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Seq      uint64   `json:"seq"`
	Version  uint64   `json:"version"`
}

type PanelSnapshotResponse struct {
	Id        uuid.UUID         `json:"id"`
	File      *SelectedFileDTO  `json:"file,omitempty"`
	Ingestion IngestionPanelDTO `json:"ingestion"`
	Query     QueryPanelDTO     `json:"query"`
	CreatedAt time.Time         `json:"created_at"`
}
