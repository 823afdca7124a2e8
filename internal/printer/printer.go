// Package printer writes colored CLI output.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"idcard/internal/blob"
	"idcard/pkg/domain"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

var statusColors = map[domain.Status]*color.Color{
	domain.StatusActive:    green,
	domain.StatusSuspended: yellow,
	domain.StatusRevoked:   color.New(color.FgRed),
}

// Printer writes to an output and an error stream.
type Printer struct {
	out io.Writer
	err io.Writer
}

// New returns a printer; nil writers default to stdout and stderr.
func New(out, errw io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errw == nil {
		errw = os.Stderr
	}
	return &Printer{out: out, err: errw}
}

// Success prints a green message with a checkmark prefix.
func (p *Printer) Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprintln(p.out, msg)
}

func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}

// Warning prints a yellow message to the error stream.
func (p *Printer) Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprintln(p.err, msg)
}

// Step prints a cyan progress line.
func (p *Printer) Step(format string, a ...any) {
	cyan.Fprintf(p.out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Error prints a title, explanation and suggestions to the error stream and
// returns a plain error for cobra.
func (p *Printer) Error(title, explanation string, suggestions []string) error {
	red.Fprintf(p.err, "%s\n", title)
	if explanation != "" {
		fmt.Fprintf(p.err, "\n%s\n", explanation)
	}
	if len(suggestions) == 1 {
		fmt.Fprintf(p.err, "\n%s\n", suggestions[0])
	} else if len(suggestions) > 1 {
		fmt.Fprintf(p.err, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(p.err, "  %d. %s\n", i+1, s)
		}
	}
	return fmt.Errorf("%s", title)
}

// Member prints every field of m.
func (p *Printer) Member(m domain.Member) {
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	row := func(k, v string) { fmt.Fprintf(tw, "%s\t%s\n", bold.Sprint(k), v) }
	row("ID", m.ID)
	row("Name", m.Name)
	row("Role", m.Role)
	row("Status", statusText(m.Status))
	row("Issued", m.IssuedOn)
	row("Internal Ref", m.InternalID)
	if m.OwnerRef != "" {
		row("Owner", m.OwnerRef)
	}
	_ = tw.Flush()
}

// Members prints one line per member.
func (p *Printer) Members(members []domain.Member) {
	if len(members) == 0 {
		fmt.Fprintln(p.out, "No members.")
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", bold.Sprint("ID"), bold.Sprint("NAME"), bold.Sprint("ROLE"), bold.Sprint("STATUS"))
	for _, m := range members {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Role, statusText(m.Status))
	}
	_ = tw.Flush()
}

// Cards prints archived card objects, oldest first.
func (p *Printer) Cards(infos []blob.Info) {
	if len(infos) == 0 {
		fmt.Fprintln(p.out, "No archived cards.")
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\n", bold.Sprint("KEY"), bold.Sprint("SIZE"), bold.Sprint("CREATED"))
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Key, info.Size, info.LastModified.UTC().Format(time.RFC3339))
	}
	_ = tw.Flush()
}

func statusText(s domain.Status) string {
	if c, ok := statusColors[s]; ok {
		return c.Sprint(string(s))
	}
	return string(s)
}
