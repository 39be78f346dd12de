package render

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/spigell/assessment-finder/internal/query"
)

const wordWrap = 100

// Terminal writes rendered states to a terminal or a plain stream.
type Terminal struct {
	out    io.Writer
	render func(string) (string, error)
}

// NewTerminal returns a renderer writing to out. With styled set the markdown
// is rendered by glamour, otherwise it is written as is.
func NewTerminal(out io.Writer, styled bool) (*Terminal, error) {
	t := &Terminal{
		out:    out,
		render: func(md string) (string, error) { return md, nil },
	}

	if !styled {
		return t, nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	t.render = r.Render

	return t, nil
}

// Render writes st to the output. Idle states produce no output.
func (t *Terminal) Render(st query.State) error {
	md := Markdown(st)
	if md == "" {
		return nil
	}

	out, err := t.render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}

	_, err = io.WriteString(t.out, out)
	return err
}

// PrintBanner writes the application banner.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()

	title := termenv.String("  Assessment Finder").Bold().Foreground(p.Color("#4f46e5"))
	subtitle := termenv.String("  Discover the perfect assessments for your hiring needs").Foreground(p.Color("#6b7280"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, subtitle)
	fmt.Fprintln(w)
}
