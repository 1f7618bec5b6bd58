package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reParty       = regexp.MustCompile(`Party:\s*([^\n]+)`)
	reRelation    = regexp.MustCompile(`S/o\|D/o\|W/o:\s*([^\n]+)`)
	reAge         = regexp.MustCompile(`Age:\s*(\d+)`)
	reVoter       = regexp.MustCompile(`Name Enrolled as Voter in:\s*([^\n]+)`)
	reCaseCount   = regexp.MustCompile(`Number of Criminal Cases:\s*(\d+)`)
	reCharges     = regexp.MustCompile(`(?i)^(\d+)\s*charges related to\s*(.+)$`)
	reDoubleBreak = regexp.MustCompile(`(?i)<br\s*/?>\s*<br\s*/?>`)
	reIncomeBreak = regexp.MustCompile(`(?i)<br\s*/?>`)
	reSpanTag     = regexp.MustCompile(`(?i)</?span[^>]*>`)
	reImmovField  = regexp.MustCompile(`(?i)(Total Area|Built Up Area|Whether Inherited|Purchase Date|Purchase Cost)[:\s]*<span class="immov">([^<]+)`)
)

// ParseAffidavit turns a fully rendered affidavit page into a structured
// record. Each section is parsed independently: a table that never loaded
// yields an empty list, never an error, because partial affidavits are the
// norm on the source site.
func ParseAffidavit(html string) (*AffidavitRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse affidavit document: %w", err)
	}

	rec := &AffidavitRecord{
		ChargeSummaries: []ChargeSummary{},
		CriminalCases:   []CriminalCase{},
		MovableAssets:   []AssetLine{},
		ImmovableAssets: []AssetLine{},
		Liabilities:     []LiabilityLine{},
		IncomeTax:       []IncomeTaxRecord{},
	}

	rec.Candidate = parseCandidate(doc)
	rec.CriminalCaseCount, rec.ChargeSummaries = parseCrimeSummary(doc)
	rec.CriminalCases = parsePendingCases(doc)
	rec.IncomeTax = parseIncomeTax(doc)
	rec.MovableAssets = parseAssetTable(doc, "#movable_assets", movableDenied, parseMultiEntryCell)
	rec.ImmovableAssets = parseAssetTable(doc, "#immovable_assets", immovableDenied, parsePropertyCell)
	rec.Liabilities = parseLiabilities(doc)
	rec.Contracts = parseContracts(doc)
	rec.TotalAssets, rec.TotalLiabilities = parseSummary(doc)

	return rec, nil
}

func parseCandidate(doc *goquery.Document) CandidateInfo {
	info := CandidateInfo{
		Party:            Unknown,
		Relation:         NotAvailable,
		VoterEnrollment:  NotAvailable,
		Education:        NotAvailable,
		SelfProfession:   NotAvailable,
		SpouseProfession: NotAvailable,
	}

	info.Name = collapseSpace(strings.ReplaceAll(doc.Find("h2").First().Text(), "(Winner)", ""))
	info.Constituency = collapseSpace(doc.Find("h5").First().Text())

	if s := divMatch(doc, "Party:", reParty); s != "" {
		info.Party = s
	}
	if s := divMatch(doc, "S/o|D/o|W/o:", reRelation); s != "" {
		info.Relation = s
	}
	if s := divMatch(doc, "Age:", reAge); s != "" {
		info.Age, _ = strconv.Atoi(s)
	}
	if s := divMatch(doc, "Name Enrolled as Voter in:", reVoter); s != "" {
		info.VoterEnrollment = s
	}

	if edu := smallestContaining(doc, "div", "Educational Details"); edu != nil {
		if after := textAfterMarker(edu.Text(), "Educational Details"); after != "" {
			if cleaned := CleanFreeText(after); cleaned != "" {
				info.Education = cleaned
			}
		}
	}

	prof := doc.Find("#profession table.w3-table")
	if s := boldCell(prof, 0); s != "" {
		info.SelfProfession = s
	}
	if s := boldCell(prof, 1); s != "" {
		info.SpouseProfession = s
	}
	return info
}

// divMatch scans the smallest div containing marker and applies re to its
// text, returning the first capture group.
func divMatch(doc *goquery.Document, marker string, re *regexp.Regexp) string {
	div := smallestContaining(doc, "div", marker)
	if div == nil {
		return ""
	}
	if m := re.FindStringSubmatch(div.Text()); m != nil {
		return collapseSpace(m[1])
	}
	return ""
}

// smallestContaining returns the element of the given tag with the shortest
// text that still contains marker. A ":contains" lookup otherwise lands on
// an enclosing layout div whose text holds the whole page.
func smallestContaining(doc *goquery.Document, tag, marker string) *goquery.Selection {
	var best *goquery.Selection
	bestLen := -1
	doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
		t := s.Text()
		if !strings.Contains(t, marker) {
			return
		}
		if bestLen == -1 || len(t) < bestLen {
			best, bestLen = s, len(t)
		}
	})
	return best
}

func boldCell(table *goquery.Selection, row int) string {
	return collapseSpace(table.Find("tr").Eq(row).Find("td").Eq(1).Find("b").Text())
}

func parseCrimeSummary(doc *goquery.Document) (int, []ChargeSummary) {
	count := 0
	if m := reCaseCount.FindStringSubmatch(doc.Text()); m != nil {
		count, _ = strconv.Atoi(m[1])
	}

	summaries := []ChargeSummary{}
	doc.Find("ul li").Each(func(_ int, li *goquery.Selection) {
		m := reCharges.FindStringSubmatch(collapseSpace(li.Text()))
		if m == nil {
			return
		}
		n, _ := strconv.Atoi(m[1])
		summaries = append(summaries, ChargeSummary{Count: n, Section: strings.TrimSpace(m[2])})
	})
	return count, summaries
}

func parsePendingCases(doc *goquery.Document) []CriminalCase {
	cases := []CriminalCase{}
	doc.Find("#cases tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 9 {
			return
		}
		serial := cellText(cells.Eq(0))
		if serial == Nil || serial == "Serial No." || strings.Contains(serial, "No Cases") {
			return
		}
		c := CriminalCase{
			SerialNo:          serial,
			FIRNo:             cellText(cells.Eq(1)),
			CaseNo:            cellText(cells.Eq(2)),
			Court:             cellText(cells.Eq(3)),
			Sections:          cellText(cells.Eq(4)),
			OtherDetails:      cellText(cells.Eq(5)),
			ChargesFramed:     cellText(cells.Eq(6)),
			DateChargesFramed: cellText(cells.Eq(7)),
			AppealFiled:       cellText(cells.Eq(8)),
			AppealDetails:     Nil,
		}
		if cells.Length() > 9 {
			c.AppealDetails = cellText(cells.Eq(9))
		}
		cases = append(cases, c)
	})
	return cases
}

func parseIncomeTax(doc *goquery.Document) []IncomeTaxRecord {
	records := []IncomeTaxRecord{}
	doc.Find("#income_tax tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		raw, _ := cells.Eq(3).Html()
		income := reIncomeBreak.ReplaceAllString(raw, " ** ")
		income = strings.ReplaceAll(income, "&nbsp;", " ")
		income = strings.ReplaceAll(income, " ", " ")
		income = reSpanTag.ReplaceAllString(income, "")
		income = strings.ReplaceAll(income, "~", "")
		records = append(records, IncomeTaxRecord{
			Relation: cellText(cells.Eq(0)),
			PANGiven: cellText(cells.Eq(1)),
			Year:     cellText(cells.Eq(2)),
			Income:   collapseSpace(income),
		})
	})
	return records
}

// Aggregate rows are computed by the source page's own scripts and would
// double-count every declared amount if carried into the record.
func movableDenied(serial, desc string) bool {
	d := strings.ToLower(desc)
	return strings.Contains(d, "gross total") ||
		strings.Contains(d, "total value") ||
		strings.Contains(d, "totals") ||
		strings.Contains(strings.ToLower(serial), "total")
}

func immovableDenied(serial, desc string) bool {
	d := strings.ToLower(desc)
	return strings.Contains(d, "total current market") ||
		strings.Contains(d, "totals calculated") ||
		strings.Contains(strings.ToLower(serial), "total")
}

var reSerialNum = regexp.MustCompile(`^\d+$`)

func liabilityDenied(serial, desc string) bool {
	d := strings.ToLower(desc)
	if strings.Contains(d, "grand total") ||
		strings.Contains(d, "totals calculated") ||
		strings.Contains(d, "govt dues") ||
		strings.Contains(d, "dues to departments") ||
		strings.Contains(d, "tax dues") ||
		strings.Contains(d, "whether any other") {
		return true
	}
	switch serial {
	case "ii", "iii", "iv":
		return true
	}
	return serial != "i" && !reSerialNum.MatchString(serial)
}

type cellParser func(*goquery.Selection) string

func parseAssetTable(doc *goquery.Document, selector string, denied func(serial, desc string) bool, selfCell cellParser) []AssetLine {
	lines := []AssetLine{}
	doc.Find(selector + " tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 8 {
			return
		}
		serial := cellText(cells.Eq(0))
		desc := cellText(cells.Eq(1))
		if serial == "Sr No" || desc == "Description" || serial == Nil {
			return
		}
		if denied(serial, desc) {
			return
		}
		lines = append(lines, AssetLine{
			SerialNo:     serial,
			Description:  desc,
			OwnerAmounts: ownerColumns(cells, selfCell),
			Total:        totalColumn(cells),
		})
	})
	return lines
}

func parseLiabilities(doc *goquery.Document) []LiabilityLine {
	lines := []LiabilityLine{}
	doc.Find("#liabilities tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 8 {
			return
		}
		serial := cellText(cells.Eq(0))
		desc := cellText(cells.Eq(1))
		if serial == "Sr No" || desc == "Description" || serial == Nil {
			return
		}
		if liabilityDenied(serial, desc) {
			return
		}
		lines = append(lines, LiabilityLine{
			SerialNo:     serial,
			Description:  desc,
			OwnerAmounts: ownerColumns(cells, parseMultiEntryCell),
			Total:        totalColumn(cells),
		})
	})
	return lines
}

func ownerColumns(cells *goquery.Selection, selfCell cellParser) OwnerAmounts {
	return OwnerAmounts{
		Self:       selfCell(cells.Eq(2)),
		Spouse:     cellText(cells.Eq(3)),
		HUF:        cellText(cells.Eq(4)),
		Dependent1: cellText(cells.Eq(5)),
		Dependent2: cellText(cells.Eq(6)),
		Dependent3: cellText(cells.Eq(7)),
	}
}

func totalColumn(cells *goquery.Selection) string {
	if cells.Length() <= 8 {
		return Nil
	}
	raw, _ := cells.Eq(8).Html()
	return ExtractAmount(raw)
}

func parseContracts(doc *goquery.Document) ContractsSummary {
	c := ContractsSummary{
		Candidate:        NotAvailable,
		Spouse:           NotAvailable,
		Dependents:       NotAvailable,
		HUF:              NotAvailable,
		Partnerships:     NotAvailable,
		PrivateCompanies: NotAvailable,
	}
	doc.Find("#contractdetails tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		desc := strings.ToLower(cellText(cells.Eq(0)))
		details := collapseSpace(cells.Eq(1).Find("b").Text())
		if details == "" {
			details = cellText(cells.Eq(1))
		}
		switch {
		case strings.Contains(desc, "candidate"):
			c.Candidate = details
		case strings.Contains(desc, "spouse"):
			c.Spouse = details
		case strings.Contains(desc, "dependent"):
			c.Dependents = details
		case strings.Contains(desc, "hindu undivided"):
			c.HUF = details
		case strings.Contains(desc, "partnership"):
			c.Partnerships = details
		case strings.Contains(desc, "private companies"):
			c.PrivateCompanies = details
		}
	})
	return c
}

func parseSummary(doc *goquery.Document) (assets, liabilities string) {
	assets, liabilities = NotAvailable, NotAvailable
	if td := smallestContaining(doc, "td", "Assets:"); td != nil {
		if s := collapseSpace(td.Next().Text()); s != "" {
			assets = s
		}
	}
	if td := smallestContaining(doc, "td", "Liabilities:"); td != nil {
		if s := collapseSpace(td.Next().Text()); s != "" {
			liabilities = s
		}
	}
	return assets, liabilities
}

// cellText flattens a table cell to normalized text. Empty cells read as Nil
// so callers never distinguish a missing cell from a declared-nil one.
func cellText(cell *goquery.Selection) string {
	t := collapseSpace(cell.Text())
	if t == "" {
		return Nil
	}
	return t
}

// parseMultiEntryCell handles cells where several declared entries are
// stacked with double line breaks, each with its own description span and
// amount. Entries collapse to "description: amount" lines.
func parseMultiEntryCell(cell *goquery.Selection) string {
	raw, err := cell.Html()
	text := collapseSpace(cell.Text())
	if err != nil || raw == "" || text == "" || text == Nil {
		return Nil
	}

	var parsed []string
	for _, entry := range reDoubleBreak.Split(raw, -1) {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		desc := fragmentSelectorText(entry, ".desc")
		amount := ExtractAmount(entry)
		switch {
		case desc != "":
			parsed = append(parsed, desc+": "+amount)
		case amount != Nil:
			parsed = append(parsed, amount)
		}
	}
	if len(parsed) == 0 {
		return text
	}
	return strings.Join(parsed, "\n")
}

// parsePropertyCell handles immovable-asset cells, which pack area, purchase
// and valuation details into labeled spans per property.
func parsePropertyCell(cell *goquery.Selection) string {
	raw, err := cell.Html()
	text := collapseSpace(cell.Text())
	if err != nil || raw == "" || text == "" || text == Nil {
		return Nil
	}

	var parsed []string
	for _, prop := range reDoubleBreak.Split(raw, -1) {
		if strings.TrimSpace(prop) == "" {
			continue
		}
		desc := fragmentSelectorText(prop, ".desc")
		if desc == "" {
			continue
		}
		parts := []string{desc}
		fields := map[string]string{}
		for _, m := range reImmovField.FindAllStringSubmatch(prop, -1) {
			fields[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
		}
		if v := fields["total area"]; v != "" {
			parts = append(parts, "Area: "+v)
		}
		if v := fields["built up area"]; v != "" {
			parts = append(parts, "Built: "+v)
		}
		if v := fields["whether inherited"]; v != "" {
			inherited := "No"
			if strings.HasPrefix(strings.ToUpper(v), "Y") {
				inherited = "Yes"
			}
			parts = append(parts, "Inherited: "+inherited)
		}
		if v := fields["purchase date"]; v != "" && v != "0000-00-00" {
			parts = append(parts, "Date: "+v)
		}
		if m := reBeforeSep.FindStringSubmatch(prop); m != nil {
			parts = append(parts, "Value: Rs "+strings.ReplaceAll(m[1], ",", ""))
		}
		parsed = append(parsed, strings.Join(parts, " | "))
	}
	if len(parsed) == 0 {
		return text
	}
	return strings.Join(parsed, "\n\n")
}

// fragmentSelectorText parses a detached HTML fragment and returns the text
// of the first node matching selector.
func fragmentSelectorText(fragment, selector string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + fragment + "</div>"))
	if err != nil {
		return ""
	}
	return collapseSpace(doc.Find(selector).First().Text())
}
