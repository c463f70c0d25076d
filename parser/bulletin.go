package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrSectionNotFound means no section carries the requested heading and
	// sub-heading.
	ErrSectionNotFound = errors.New("section not found")
	// ErrNoArticle means the page has no article container.
	ErrNoArticle = errors.New("no article container")
)

// kbTitlePattern matches lead texts such as
// "2023-06 Security Update for Windows (KB5027231)".
var kbTitlePattern = regexp.MustCompile(`\d*-\d* ([\S\s]*)\(KB(\d*)\)`)

// Document is the query surface the bulletin merge needs from a page.
type Document interface {
	// FindSection returns the subsection of the section headed heading whose
	// own sub-heading is subheading.
	FindSection(heading, subheading string) (Section, error)
}

// Section is one bulletin subsection.
type Section interface {
	// ChildLists returns the unordered lists directly under the section.
	ChildLists() []List
}

// List is one unordered list of a section.
type List interface {
	// LeadText returns the bold lead text of the first item.
	LeadText() string
}

// NewBulletin parses an HTML bulletin page.
func NewBulletin(source, html string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	article := doc.Find("article").First()
	if article.Length() == 0 {
		return nil, &ParseError{Source: source, Err: ErrNoArticle}
	}
	return &bulletin{source: source, article: article}, nil
}

type bulletin struct {
	source  string
	article *goquery.Selection
}

func (b *bulletin) FindSection(heading, subheading string) (Section, error) {
	var found *goquery.Selection
	b.article.Find("section.ocpSection").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Find("h2").First().Text()) != heading {
			return true
		}
		s.Find("section").EachWithBreak(func(_ int, sub *goquery.Selection) bool {
			if strings.TrimSpace(sub.Find("h3").First().Text()) == subheading {
				found = sub
				return false
			}
			return true
		})
		return found == nil
	})
	if found == nil {
		return nil, &ParseError{
			Source: b.source,
			Err:    fmt.Errorf("%w: %q / %q", ErrSectionNotFound, heading, subheading),
		}
	}
	return &section{sel: found}, nil
}

type section struct {
	sel *goquery.Selection
}

func (s *section) ChildLists() []List {
	var lists []List
	s.sel.ChildrenFiltered("ul").Each(func(_ int, ul *goquery.Selection) {
		lists = append(lists, &list{sel: ul})
	})
	return lists
}

type list struct {
	sel *goquery.Selection
}

func (l *list) LeadText() string {
	return l.sel.Find("li").First().Find("p").First().Find("b").First().Text()
}

// ParseKbTitle extracts the update title and numeric KB id from a lead text.
// ok is false when the text does not name a KB.
func ParseKbTitle(lead string) (title, kb string, ok bool) {
	m := kbTitlePattern.FindStringSubmatch(lead)
	if m == nil || m[2] == "" {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), m[2], true
}
