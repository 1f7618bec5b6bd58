package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The source CMS renders each metric under several markup variants depending
// on page vintage. Each field carries an ordered strategy list; the first
// selector yielding usable text wins, so adding a newly observed variant is a
// one-line change.
var performanceStrategies = []struct {
	field     func(*Performance) *string
	selectors []string
}{
	{func(p *Performance) *string { return &p.Attendance }, []string{
		".mp-attendance .field-name-field-attendance .field-item.even",
		".mp-attendance .field-name-field-attendance .field-item",
		".field-name-field-attendance .field-item",
		".mp-parliamentary-performance .mp-attendance .field-item",
	}},
	{func(p *Performance) *string { return &p.NationalAttendance }, []string{
		".mp-attendance .field-name-field-national-attendance .field-item.even",
		".field-name-field-national-attendance .field-item",
	}},
	{func(p *Performance) *string { return &p.StateAttendance }, []string{
		".mp-attendance .field-name-field-state-attendance .field-item.even",
		".field-name-field-state-attendance .field-item",
	}},
	{func(p *Performance) *string { return &p.Debates }, []string{
		".mp-debate .field-name-field-author .field-item.even",
		".mp-debate .field-name-field-author .field-item",
		".field-name-field-author .field-item",
		".mp-parliamentary-performance .mp-debate .field-item",
	}},
	{func(p *Performance) *string { return &p.NationalDebates }, []string{
		".mp-debate .field-name-field-national-debate .field-item.even",
		".field-name-field-national-debate .field-item",
	}},
	{func(p *Performance) *string { return &p.StateDebates }, []string{
		".mp-debate .field-name-field-state-debate .field-item.even",
		".field-name-field-state-debate .field-item",
	}},
	{func(p *Performance) *string { return &p.Questions }, []string{
		".mp-questions .field-name-field-total-expenses-railway .field-item.even",
		".mp-questions .field-name-field-total-expenses-railway .field-item",
		".field-name-field-total-expenses-railway .field-item",
		".mp-parliamentary-performance .mp-questions .field-item",
	}},
	{func(p *Performance) *string { return &p.NationalQuestions }, []string{
		".mp-questions .field-name-field-national-questions .field-item.even",
		".field-name-field-national-questions .field-item",
	}},
	{func(p *Performance) *string { return &p.StateQuestions }, []string{
		".mp-questions .field-name-field-state-questions .field-item.even",
		".field-name-field-state-questions .field-item",
	}},
	{func(p *Performance) *string { return &p.PrivateMemberBills }, []string{
		".mp-pmb .field-name-field-source .field-item.even",
		".mp-pmb .field-name-field-source .field-item",
		".field-name-field-source .field-item",
		".mp-parliamentary-performance .mp-pmb .field-item",
	}},
	{func(p *Performance) *string { return &p.NationalPMB }, []string{
		".mp-pmb .field-name-field-national-pmb .field-item.even",
		".field-name-field-national-pmb .field-item",
	}},
}

var imageSelectors = []string{
	".field-name-field-image img",
	".field-name-field-mla-profile-image img",
	`img[src*="profile"]`,
	`img[src*="mla"]`,
	`img[src*="mp"]`,
}

var (
	reMoreMembers = regexp.MustCompile(`(?i)\(\s*\d+\s*more\s*(MPs?|MLAs?)\s*\)`)
	reLabelPrefix = regexp.MustCompile(`(?i)^(Age|Gender|Education)\s*:\s*`)
	reTermLabel   = regexp.MustCompile(`(?i)(No\.\s*of\s*Term\s*:\s*|Terms?\s*Served\s*:\s*)`)
)

// ParseProfile turns a legislator profile page into a structured record.
// Absent fields come back as sentinels; ImageURL stays as found in the
// markup, relative or not, and is resolved by the caller against the page
// URL.
func ParseProfile(html string) (*ProfileRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse profile document: %w", err)
	}

	rec := &ProfileRecord{
		State:        Unknown,
		Constituency: Unknown,
		Party:        Unknown,
	}

	for _, sel := range imageSelectors {
		if src, ok := doc.Find(sel).First().Attr("src"); ok && src != "" {
			rec.ImageURL = src
			break
		}
	}

	rec.State = parseStateLine(doc, "State", 0)
	rec.Party = parseStateLine(doc, "Party", -1)
	rec.Constituency = parseConstituency(doc)

	for _, strat := range performanceStrategies {
		*strat.field(&rec.Performance) = valueOr(firstSelectorText(doc, strat.selectors))
	}
	rec.Personal = parsePersonal(doc)
	return rec, nil
}

// parseStateLine reads one labeled line of the .mp_state/.mla_state header
// block. fallbackIdx allows the unlabeled first line to serve as the state
// on older pages; pass -1 to require the label.
func parseStateLine(doc *goquery.Document, label string, fallbackIdx int) string {
	out := Unknown
	doc.Find(".mp_state, .mla_state").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, label) && i != fallbackIdx {
			return true
		}
		v := s.Find("a").First().Text()
		if v == "" {
			v = text
		}
		v = strings.ReplaceAll(v, label+" :", "")
		v = collapseSpace(reMoreMembers.ReplaceAllString(v, ""))
		if v != "" && v != Unknown {
			out = v
			return false
		}
		return true
	})
	return out
}

func parseConstituency(doc *goquery.Document) string {
	for _, sel := range []string{".mp_constituency", ".mla_constituency"} {
		v := collapseSpace(strings.ReplaceAll(doc.Find(sel).First().Text(), "Constituency :", ""))
		if v != "" {
			return v
		}
	}
	if div := smallestContaining(doc, "div", "Constituency"); div != nil {
		if v := collapseSpace(strings.ReplaceAll(div.Text(), "Constituency :", "")); v != "" {
			return v
		}
	}
	return Unknown
}

func parsePersonal(doc *goquery.Document) Personal {
	p := Personal{
		Age:       NotAvailable,
		Gender:    NotAvailable,
		Education: NotAvailable,
		TermStart: NotAvailable,
		TermEnd:   NotAvailable,
		Terms:     NotAvailable,
	}

	doc.Find(".gender, .age").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "Age") {
			return true
		}
		p.Age = collapseSpace(reLabelPrefix.ReplaceAllString(collapseSpace(text), ""))
		return false
	})
	if p.Age == NotAvailable || p.Age == "" {
		p.Age = valueOr(firstSelectorText(doc, []string{
			".field-name-field-mla-age .field-item",
			".field-name-field-age .field-item",
		}))
	}

	doc.Find(".gender").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, "Age") || (!strings.Contains(text, "Male") && !strings.Contains(text, "Female")) {
			return true
		}
		v := s.Find("a").First().Text()
		if v == "" {
			v = strings.ReplaceAll(text, "Gender :", "")
		}
		p.Gender = collapseSpace(v)
		return false
	})

	p.Education = valueOr(firstSelectorText(doc, []string{
		".education a",
		".education .field-item",
		".field-name-field-education a",
	}))
	p.TermStart = valueOr(firstSelectorText(doc, []string{
		".term_start .date-display-single",
		".field-name-field-date-of-introduction .date-display-single",
	}))
	p.TermEnd = valueOr(firstSelectorText(doc, []string{
		".term_end .field-item",
		".field-name-field-end-of-term .field-item",
	}))
	p.Terms = parseTerms(doc)
	return p
}

// parseTerms pulls the "No. of Term" line out of the profile header without
// dragging the rest of the page along, which the broad :contains fallback
// is prone to do.
func parseTerms(doc *goquery.Document) string {
	out := NotAvailable
	doc.Find(".mp_profile_header_info .age, .mla_profile_header_info .age").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "Term") {
			return true
		}
		if v := firstLine(reTermLabel.ReplaceAllString(text, "")); v != "" {
			out = v
			return false
		}
		return true
	})
	if out != NotAvailable {
		return out
	}
	if div := smallestContaining(doc, ".personal_profile_parent div", "Term"); div != nil {
		if v := firstLine(reTermLabel.ReplaceAllString(div.Text(), "")); v != "" {
			return v
		}
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i != -1 {
		s = s[:i]
	}
	return collapseSpace(s)
}

// firstSelectorText returns the first selector's usable text, with any
// leading field label stripped. "" means no strategy matched.
func firstSelectorText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		text := collapseSpace(doc.Find(sel).First().Text())
		text = reLabelPrefix.ReplaceAllString(text, "")
		if text != "" && text != NotAvailable {
			return text
		}
	}
	return ""
}

func valueOr(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
