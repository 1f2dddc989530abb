package interaction

import "errors"

// Display texts shown while a call is outstanding or after it settled.
const (
	UploadingText    = "Uploading…"
	ThinkingText     = "Thinking…"
	EmptyAnswerText  = "(empty)"
	ChooseFileNotice = "Choose a file first"
	QueryErrorPrefix = "Error: "

	insertedFormat = "Inserted chunks: %d"
)

// Local validation failures. Neither reaches the network.
var (
	ErrNoFileSelected = errors.New("interaction: no file selected")
	ErrEmptyQuestion  = errors.New("interaction: question is empty")
)

// SelectedFile is the document picked by the user, held until replaced.
type SelectedFile struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"-"`
}

type IngestionStatus string

const (
	IngestionIdle      IngestionStatus = "idle"
	IngestionUploading IngestionStatus = "uploading"
	IngestionDone      IngestionStatus = "done"
	IngestionFailed    IngestionStatus = "failed"
)

// IngestionState is what the ingestion panel shows. Seq is the request it
// reflects (0 before the first trigger); Version grows on every change.
type IngestionState struct {
	Status   IngestionStatus `json:"status"`
	Message  string          `json:"message"`
	Inserted int             `json:"inserted,omitempty"`
	Seq      uint64          `json:"seq"`
	Version  uint64          `json:"version"`
}

func (s IngestionState) Pending() bool {
	return s.Status == IngestionUploading
}

type QueryStatus string

const (
	QueryIdle     QueryStatus = "idle"
	QueryThinking QueryStatus = "thinking"
	QueryAnswered QueryStatus = "answered"
	QueryFailed   QueryStatus = "failed"
)

// SourceList keeps backend order. It is replaced wholesale on every
// successful answer, never appended to.
type SourceList []string

// QueryState is what the question panel shows. Answer carries the display
// text: the placeholder, the answer, or the prefixed error.
type QueryState struct {
	Question string      `json:"question"`
	Status   QueryStatus `json:"status"`
	Answer   string      `json:"answer"`
	Sources  SourceList  `json:"sources"`
	Seq      uint64      `json:"seq"`
	Version  uint64      `json:"version"`
}

func (s QueryState) Pending() bool {
	return s.Status == QueryThinking
}

func (s QueryState) clone() QueryState {
	out := s
	out.Sources = append(SourceList{}, s.Sources...)
	return out
}
