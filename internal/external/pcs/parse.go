package pcs

import (
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Competitor is one entry of a top-competitors table
type Competitor struct {
	Slug string `json:"slug"`
	Rank int    `json:"rank"`
}

// Placing is one classified rider of a race result
type Placing struct {
	Slug string `json:"slug"`
	Rank int    `json:"rank"`
}

// ParseStartlist extracts unique rider slugs from a start list page,
// keeping the order of first appearance
func ParseStartlist(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	riders := []string{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimPrefix(href, "/")
		if !strings.HasPrefix(href, "rider/") {
			return
		}
		slug := strings.TrimPrefix(href, "rider/")
		if slug == "" || strings.Contains(slug, "/") || seen[slug] {
			return
		}
		seen[slug] = true
		riders = append(riders, slug)
	})
	return riders, nil
}

// ParseTopCompetitors reads the ranked rows of the first basic table
func ParseTopCompetitors(r io.Reader) ([]Competitor, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	competitors := []Competitor{}
	doc.Find("table.basic").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 2 {
			return
		}
		rank, ok := parseRank(tds.First().Text())
		if !ok {
			return
		}
		if slug, ok := rowRider(tr); ok {
			competitors = append(competitors, Competitor{Slug: slug, Rank: rank})
		}
	})
	return competitors, nil
}

// ParseResults reads a results table, keeping ranks 1..maxRank
func ParseResults(r io.Reader, maxRank int) ([]Placing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	placings := []Placing{}
	seen := make(map[string]bool)
	doc.Find("table.basic.results").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 4 {
			return
		}
		rank, ok := parseRank(tds.First().Text())
		if !ok || rank > maxRank {
			return
		}
		slug, ok := rowRider(tr)
		if !ok || seen[slug] {
			return
		}
		seen[slug] = true
		placings = append(placings, Placing{Slug: slug, Rank: rank})
	})
	return placings, nil
}

func parseRank(text string) (int, bool) {
	rank, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || rank <= 0 {
		return 0, false
	}
	return rank, true
}

// rowRider returns the slug of the first rider link in a table row
func rowRider(tr *goquery.Selection) (string, bool) {
	var slug string
	tr.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		idx := strings.Index(href, "rider/")
		if idx < 0 {
			return true
		}
		slug = strings.SplitN(href[idx+len("rider/"):], "/", 2)[0]
		return slug == ""
	})
	return slug, slug != ""
}
