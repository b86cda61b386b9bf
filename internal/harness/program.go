package harness

import (
	"strings"
)

// Section orders the parts of a generated program.
type Section int

const (
	SectionImports Section = iota
	SectionUserCode
	SectionHelpers
	SectionEntryOpen
	SectionInput
	SectionCall
	SectionOutput
	SectionEntryClose
)

func (s Section) String() string {
	switch s {
	case SectionImports:
		return "imports"
	case SectionUserCode:
		return "user-code"
	case SectionHelpers:
		return "helpers"
	case SectionEntryOpen:
		return "entry-open"
	case SectionInput:
		return "input"
	case SectionCall:
		return "call"
	case SectionOutput:
		return "output"
	case SectionEntryClose:
		return "entry-close"
	}
	return "unknown"
}

type Fragment struct {
	Section Section
	Text    string
}

// Program is an ordered list of fragments; Source joins them.
type Program struct {
	Language  string
	Fragments []Fragment
}

func (p *Program) add(section Section, text string) {
	if text == "" {
		return
	}
	p.Fragments = append(p.Fragments, Fragment{Section: section, Text: text})
}

// Section returns the fragments of one section in program order.
func (p *Program) Section(s Section) []Fragment {
	var out []Fragment
	for _, f := range p.Fragments {
		if f.Section == s {
			out = append(out, f)
		}
	}
	return out
}

func (p *Program) Has(s Section) bool {
	return len(p.Section(s)) > 0
}

// Source assembles the program text. Top-level sections are separated by a
// blank line; the entry body is joined line by line.
func (p *Program) Source() string {
	var b strings.Builder
	for i, f := range p.Fragments {
		if i > 0 {
			b.WriteString("\n")
			if f.Section != p.Fragments[i-1].Section && f.Section <= SectionEntryOpen {
				b.WriteString("\n")
			}
		}
		b.WriteString(strings.TrimRight(f.Text, "\n"))
	}
	b.WriteString("\n")
	return b.String()
}
