package parser

import (
	"strings"
	"testing"
)

func TestTextSource_MarkersStartFragments(t *testing.T) {
	input := "Plan\n1. Setup\n- Buy servers\n- Configure\n  network cabling\n\nClosing note line one.\nline two."
	p := &TextSource{}
	frags, err := p.Fragments(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"Plan",
		"1. Setup",
		"- Buy servers",
		"- Configure network cabling",
		"Closing note line one. line two.",
	}
	if len(frags) != len(want) {
		t.Fatalf("expected %d fragments, got %d: %+v", len(want), len(frags), frags)
	}
	for i, w := range want {
		if frags[i].Text != w {
			t.Errorf("frag[%d]: expected %q, got %q", i, w, frags[i].Text)
		}
	}
}

func TestTextSource_EmptyInput(t *testing.T) {
	p := &TextSource{}
	frags, err := p.Fragments(strings.NewReader(""), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 0 {
		t.Errorf("expected 0 fragments for empty input, got %d", len(frags))
	}
}

func TestTextSource_UnderlinedHeadings(t *testing.T) {
	input := "Project Plan\n============\n\nScope\n-----\nBody text."
	p := &TextSource{}
	frags, err := p.Fragments(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments, got %d: %+v", len(frags), frags)
	}
	if frags[0].Style != "Heading 1" || frags[0].Text != "Project Plan" {
		t.Errorf("unexpected first fragment %+v", frags[0])
	}
	if frags[1].Style != "Heading 2" || frags[1].Text != "Scope" {
		t.Errorf("unexpected second fragment %+v", frags[1])
	}
	if frags[2].Style != "" {
		t.Errorf("body should have no style, got %q", frags[2].Style)
	}
}

func TestTextSource_Indent(t *testing.T) {
	input := "Top\n\n        deep paragraph\n\n\tone tab"
	p := &TextSource{}
	frags, err := p.Fragments(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(frags))
	}
	if frags[0].Indent != 0 || frags[1].Indent != 2 || frags[2].Indent != 1 {
		t.Errorf("unexpected indents: %d %d %d", frags[0].Indent, frags[1].Indent, frags[2].Indent)
	}
}

func TestTextSource_LineTooLong(t *testing.T) {
	input := "Intro\n" + strings.Repeat("x", 2*1024*1024) + "\n- tail item\n"
	p := &TextSource{}
	frags, err := p.Fragments(strings.NewReader(input), Options{})
	if err == nil {
		t.Fatalf("expected an error, got %d fragments", len(frags))
	}
	if frags != nil {
		t.Errorf("expected no fragments on error, got %+v", frags)
	}
}
