package mapper

import (
	"rag-lab-ui/internal/dto"
	"rag-lab-ui/pkg/store"

	"github.com/google/uuid"
)

type PanelMapper struct{}

func NewPanelMapper() *PanelMapper {
	return &PanelMapper{}
}

func (m *PanelMapper) ToSnapshotResponse(s *store.Snapshot) *dto.PanelSnapshotResponse {
	if s == nil {
		return nil
	}

	id, _ := uuid.Parse(s.ID)

	res := &dto.PanelSnapshotResponse{
		Id: id,
		Ingestion: dto.IngestionPanelDTO{
			Status:   string(s.Ingestion.Status),
			Message:  s.Ingestion.Message,
			Inserted: s.Ingestion.Inserted,
			Seq:      s.Ingestion.Seq,
			Version:  s.Ingestion.Version,
		},
		Query: dto.QueryPanelDTO{
			Question: s.Query.Question,
			Status:   string(s.Query.Status),
			Answer:   s.Query.Answer,
			Sources:  append([]string{}, s.Query.Sources...),
			Seq:      s.Query.Seq,
			Version:  s.Query.Version,
		},
		CreatedAt: s.CreatedAt,
	}

	if s.File != nil {
		res.File = &dto.SelectedFileDTO{
			Name:      s.File.Name,
			MediaType: s.File.MediaType,
			Size:      len(s.File.Data),
		}
	}

	return res
}
