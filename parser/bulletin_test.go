package parser

import (
	"errors"
	"os"
	"testing"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func TestBulletinFindSection(t *testing.T) {
	doc, err := NewBulletin("misc", loadFixture(t, "misc_bulletin.html"))
	if err != nil {
		t.Fatalf("new bulletin: %v", err)
	}

	section, err := doc.FindSection("More Information", "Tuesday, June 13, 2023")
	if err != nil {
		t.Fatalf("find section: %v", err)
	}

	var leads []string
	for _, l := range section.ChildLists() {
		leads = append(leads, l.LeadText())
	}
	want := []string{
		"2023-06 Security Update for Windows Malicious Software Removal Tool (KB890830)",
		"2023-06 Cumulative Update for Windows 11 (KB5027231)",
		"Servicing stack update notes",
		"2023-06 Dynamic Update for Windows 10 (KB5027537)",
	}
	if len(leads) != len(want) {
		t.Fatalf("leads=%q, want %q", leads, want)
	}
	for i := range want {
		if leads[i] != want[i] {
			t.Fatalf("lead[%d]=%q, want %q", i, leads[i], want[i])
		}
	}
}

func TestBulletinFindOlderMonth(t *testing.T) {
	doc, err := NewBulletin("misc", loadFixture(t, "misc_bulletin.html"))
	if err != nil {
		t.Fatalf("new bulletin: %v", err)
	}

	section, err := doc.FindSection("More Information", "Tuesday, May 9, 2023")
	if err != nil {
		t.Fatalf("find section: %v", err)
	}
	lists := section.ChildLists()
	if len(lists) != 1 {
		t.Fatalf("lists=%d, want 1", len(lists))
	}
}

func TestBulletinMissingMonth(t *testing.T) {
	doc, err := NewBulletin("misc", loadFixture(t, "misc_bulletin.html"))
	if err != nil {
		t.Fatalf("new bulletin: %v", err)
	}

	_, err = doc.FindSection("More Information", "Tuesday, July 11, 2023")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("err=%v, want ErrSectionNotFound", err)
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err=%v is not a ParseError", err)
	}
}

func TestBulletinWithoutArticle(t *testing.T) {
	_, err := NewBulletin("misc", "<html><body><p>maintenance</p></body></html>")
	if !errors.Is(err, ErrNoArticle) {
		t.Fatalf("err=%v, want ErrNoArticle", err)
	}
}

func TestParseKbTitle(t *testing.T) {
	tests := []struct {
		name      string
		lead      string
		wantTitle string
		wantKb    string
		wantOK    bool
	}{
		{
			name:      "cumulative update",
			lead:      "2023-06 Cumulative Update for Windows 11 (KB5027231)",
			wantTitle: "Cumulative Update for Windows 11",
			wantKb:    "5027231",
			wantOK:    true,
		},
		{
			name:      "title with parentheses",
			lead:      "2023-06 Update for Windows (x64) (KB890830)",
			wantTitle: "Update for Windows (x64)",
			wantKb:    "890830",
			wantOK:    true,
		},
		{
			name:   "no kb",
			lead:   "Servicing stack update notes",
			wantOK: false,
		},
		{
			name:   "empty kb number",
			lead:   "2023-06 Placeholder (KB)",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, kb, ok := ParseKbTitle(tt.lead)
			if ok != tt.wantOK {
				t.Fatalf("ok=%v, want %v", ok, tt.wantOK)
			}
			if title != tt.wantTitle || kb != tt.wantKb {
				t.Fatalf("ParseKbTitle(%q) = %q, %q; want %q, %q", tt.lead, title, kb, tt.wantTitle, tt.wantKb)
			}
		})
	}
}
