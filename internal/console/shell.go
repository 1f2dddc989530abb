package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"rag-lab-ui/pkg/interaction"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

const helpText = `commands:
  file <path>      select a document
  ingest           upload the selected document
  question <text>  edit the draft question
  ask [text]       send the draft (or <text>, which becomes the draft)
  state            print both panels
  wait             block until nothing is pending
  quit             leave
`

// Shell drives one ingestion and one query controller from text commands.
type Shell struct {
	Ingestion *interaction.IngestionController
	Query     *interaction.QueryController
	Renderer  *Renderer
	Out       io.Writer

	// ReadFile loads a selected path; tests replace it.
	ReadFile func(path string) (interaction.SelectedFile, error)
}

// Run reads commands until EOF or quit.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(s.Out, "> ")
	for scanner.Scan() {
		err := s.Exec(ctx, scanner.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(s.Out, err)
		}
		fmt.Fprint(s.Out, "> ")
	}
	return scanner.Err()
}

// Exec runs a single command line. Triggers return as soon as the pending
// state is visible; results arrive through the renderer.
func (s *Shell) Exec(ctx context.Context, line string) error {
	// Drafts are kept verbatim: only the single space after the command
	// word is consumed.
	cmd, draft, _ := strings.Cut(strings.TrimLeft(line, " \t"), " ")
	arg := strings.TrimSpace(draft)

	switch strings.ToLower(cmd) {
	case "":
		return nil

	case "file":
		if arg == "" {
			return errors.New("usage: file <path>")
		}
		read := s.ReadFile
		if read == nil {
			read = interaction.ReadSelectedFile
		}
		file, err := read(arg)
		if err != nil {
			return err
		}
		s.Ingestion.SelectFile(file)
		fmt.Fprintf(s.Out, "selected %s (%s)\n", file.Name, file.MediaType)
		return nil

	case "ingest":
		// a missing file is reported by the notice
		if _, err := s.Ingestion.Ingest(ctx); err != nil && !errors.Is(err, interaction.ErrNoFileSelected) {
			return err
		}
		return nil

	case "question":
		s.Query.SetQuestion(ctx, draft)
		return nil

	case "ask":
		if arg != "" {
			s.Query.SetQuestion(ctx, draft)
		}
		if _, err := s.Query.Ask(ctx); err != nil && !errors.Is(err, interaction.ErrEmptyQuestion) {
			return err
		}
		return nil

	case "state":
		var file *interaction.SelectedFile
		if f, ok := s.Ingestion.SelectedFile(); ok {
			file = &f
		}
		s.Renderer.PrintState(s.Ingestion.State(), s.Query.State(), file)
		return nil

	case "wait":
		// With a synchronous bus this also means the results are printed.
		s.Ingestion.WaitIdle()
		s.Query.WaitIdle()
		return nil

	case "help":
		fmt.Fprint(s.Out, helpText)
		return nil

	case "quit", "exit":
		return ErrQuit
	}
	return fmt.Errorf("unknown command %q (try help)", cmd)
}
