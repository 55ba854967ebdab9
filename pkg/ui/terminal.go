package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Banner is printed once at startup
const Banner = `
 ╦ ╦╔═╗╦  ╦  ╦ ╦╔═╗╦═╗╦  ╦╔═╗╔═╗╔╦╗
 ║║║╠═╣║  ║  ╠═╣╠═╣╠╦╝╚╗╔╝║╣ ╚═╗ ║
 ╚╩╝╩ ╩╩═╝╩═╝╩ ╩╩ ╩╩╚═ ╚╝ ╚═╝╚═╝ ╩ `

var (
	accent  = lipgloss.Color("#00B7C3")
	gold    = lipgloss.Color("#E5C07B")
	green   = lipgloss.Color("#98C379")
	red     = lipgloss.Color("#E06C75")
	magenta = lipgloss.Color("#C678DD")
	grey    = lipgloss.Color("#7F848E")
)

type styles struct {
	banner  lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	dim     lipgloss.Style
	panel   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		banner:  r.NewStyle().Foreground(accent).Bold(true),
		label:   r.NewStyle().Foreground(accent).Bold(true),
		value:   r.NewStyle().Foreground(gold),
		success: r.NewStyle().Foreground(green).Bold(true),
		warning: r.NewStyle().Foreground(gold).Bold(true),
		failure: r.NewStyle().Foreground(red).Bold(true),
		dim:     r.NewStyle().Foreground(grey),
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(magenta).
			Padding(0, 2),
	}
}

// Printer writes human-facing output. Colors follow the writer's terminal
// capabilities unless disabled.
type Printer struct {
	out    io.Writer
	quiet  bool
	styles styles
}

// NewPrinter creates a Printer on out. quiet suppresses the banner and informational lines.
func NewPrinter(out io.Writer, noColor, quiet bool) *Printer {
	r := lipgloss.NewRenderer(out)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{out: out, quiet: quiet, styles: newStyles(r)}
}

// PrintBanner prints the banner and version
func (p *Printer) PrintBanner(version string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.styles.banner.Render(Banner))
	fmt.Fprintln(p.out, p.styles.dim.Render("  wallpaper collection harvester "+version))
	fmt.Fprintln(p.out)
}

// PrintInfo prints a labelled value
func (p *Printer) PrintInfo(label, value string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s: %s\n", p.styles.label.Render(label), p.styles.value.Render(value))
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(msg string) {
	fmt.Fprintln(p.out, p.styles.success.Render("✓ "+msg))
}

// PrintWarning prints a warning message
func (p *Printer) PrintWarning(msg string) {
	fmt.Fprintln(p.out, p.styles.warning.Render("⚠ "+msg))
}

// PrintError prints an error message with its cause
func (p *Printer) PrintError(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(p.out, p.styles.failure.Render("✗ "+msg))
}
