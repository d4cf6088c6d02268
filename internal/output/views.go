package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/panbanda/vigil/pkg/models"
)

// ReportView renders an analysis report. Diagnostics are grouped by file
// in the text and markdown forms; the structured forms emit the report.
type ReportView struct {
	Report *models.Report
}

func (v ReportView) RenderData() any { return v.Report }

func (v ReportView) RenderText(w io.Writer, colored bool) error {
	r := v.Report
	for _, group := range byFile(r.Diagnostics) {
		if colored {
			color.New(color.Bold, color.Underline).Fprintln(w, group.file)
		} else {
			fmt.Fprintln(w, group.file)
		}
		for _, d := range group.diags {
			sev := string(d.Severity)
			if colored {
				sev = SeverityColor(d.Severity, sev)
			}
			fmt.Fprintf(w, "  %d:%d  %s  %s  [%s]\n", d.Location.Line, d.Location.Column, sev, d.Message, d.Rule)
			for _, s := range d.Secondary {
				fmt.Fprintf(w, "      %s%s\n", s.Location, suffix(s.Message))
			}
		}
		fmt.Fprintln(w)
	}
	for _, e := range r.Errors {
		if colored {
			color.New(color.FgRed).Fprintf(w, "error: %s\n", e)
		} else {
			fmt.Fprintf(w, "error: %s\n", e)
		}
	}
	return v.summaryTable().RenderText(w, colored)
}

func (v ReportView) RenderMarkdown(w io.Writer) error {
	r := v.Report
	fmt.Fprintf(w, "# vigil report\n\n")
	fmt.Fprintf(w, "%d files analyzed, %d issues.\n\n", r.Files, r.Summary.Total)
	for _, group := range byFile(r.Diagnostics) {
		rows := make([][]string, 0, len(group.diags))
		for _, d := range group.diags {
			rows = append(rows, []string{
				fmt.Sprintf("%d:%d", d.Location.Line, d.Location.Column),
				string(d.Severity),
				"`" + d.Rule + "`",
				d.Message,
			})
		}
		table := NewTable(group.file, []string{"Location", "Severity", "Rule", "Message"}, rows, nil, nil)
		if err := table.RenderMarkdown(w); err != nil {
			return err
		}
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "## Errors\n\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "- %s\n", e)
		}
		fmt.Fprintln(w)
	}
	return v.summaryTable().RenderMarkdown(w)
}

// summaryTable counts issues per severity, most severe first.
func (v ReportView) summaryTable() *Table {
	r := v.Report
	var rows [][]string
	for _, sev := range []models.Severity{
		models.SeverityBlocker, models.SeverityCritical, models.SeverityMajor,
		models.SeverityMinor, models.SeverityInfo,
	} {
		if n := r.Summary.BySeverity[sev]; n > 0 {
			rows = append(rows, []string{string(sev), strconv.Itoa(n)})
		}
	}
	footer := []string{"total", strconv.Itoa(r.Summary.Total)}
	return NewTable("Summary", []string{"Severity", "Issues"}, rows, footer, nil)
}

type fileGroup struct {
	file  string
	diags []models.Diagnostic
}

// byFile groups sorted diagnostics by file, keeping their order.
func byFile(diags []models.Diagnostic) []fileGroup {
	var out []fileGroup
	for _, d := range diags {
		if n := len(out); n > 0 && out[n-1].file == d.Location.File {
			out[n-1].diags = append(out[n-1].diags, d)
			continue
		}
		out = append(out, fileGroup{file: d.Location.File, diags: []models.Diagnostic{d}})
	}
	return out
}

func suffix(msg string) string {
	if msg == "" {
		return ""
	}
	return "  " + msg
}

// RulesView renders the rule catalog.
type RulesView struct {
	Descriptors []models.Descriptor
}

func (v RulesView) RenderData() any { return v.Descriptors }

func (v RulesView) table() *Table {
	rows := make([][]string, 0, len(v.Descriptors))
	for _, d := range v.Descriptors {
		enabled := "off"
		if d.DefaultEnabled {
			enabled = "on"
		}
		rows = append(rows, []string{d.ID, enabled, string(d.DefaultSeverity), d.Name})
	}
	return NewTable("Rules", []string{"ID", "Default", "Severity", "Name"}, rows, nil, nil)
}

func (v RulesView) RenderText(w io.Writer, colored bool) error {
	return v.table().RenderText(w, colored)
}

func (v RulesView) RenderMarkdown(w io.Writer) error {
	return v.table().RenderMarkdown(w)
}

// Explain describes one descriptor with its parameters.
func Explain(d models.Descriptor) *Section {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nDefault: %s, %s", d.Description, onOff(d.DefaultEnabled), d.DefaultSeverity)
	s := &Section{Title: d.ID + ": " + d.Name, Content: b.String(), Data: d}
	if len(d.Params) > 0 {
		var p strings.Builder
		for i, param := range d.Params {
			if i > 0 {
				p.WriteString("\n")
			}
			fmt.Fprintf(&p, "- %s (default %v): %s", param.Name, param.Default, param.Description)
		}
		s.Sections = append(s.Sections, Section{Title: "Parameters", Content: p.String()})
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
