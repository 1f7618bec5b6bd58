package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// searchURL builds the affidavit portal's candidate search address.
func searchURL(baseURL, name string) string {
	return fmt.Sprintf("%s/search_myneta.php?q=%s", baseURL, url.QueryEscape(name))
}

// matchSearchResult scans a search-results page for the row whose name,
// constituency and party all match the query after normalization, and
// returns the candidate's affidavit URL resolved against baseURL. Name and
// constituency must match exactly; party comparison goes through the alias
// table. No match returns ok=false, never an error: an empty results table
// is an ordinary outcome.
func matchSearchResult(html string, q AffidavitQuery, baseURL string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	wantName := normalizeText(q.Name)
	wantConstituency := normalizeConstituency(q.Constituency)
	wantParty := normalizeParty(q.Party)

	var found string
	doc.Find("table.w3-table tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i == 0 {
			return true
		}
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 5 {
			return true
		}
		anchor := cells.Eq(0).Find("a")
		if normalizeText(anchor.Text()) != wantName {
			return true
		}
		if normalizeConstituency(cells.Eq(2).Text()) != wantConstituency {
			return true
		}
		if normalizeParty(cells.Eq(1).Text()) != wantParty {
			return true
		}
		href, ok := anchor.Attr("href")
		if !ok || href == "" {
			return true
		}
		found = resolveHref(baseURL, href)
		return false
	})
	return found, found != ""
}

func resolveHref(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
