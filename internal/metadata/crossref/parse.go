package crossref

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// typeMap maps Crossref work types onto reference type names.
var typeMap = map[string]string{
	"journal-article":     "article",
	"proceedings-article": "inproceedings",
	"book":                "book",
	"book-chapter":        "inbook",
	"reference-entry":     "misc",
}

// TypeFor returns the reference type for a Crossref work type. Unknown types map to "misc".
func TypeFor(crossrefType string) string {
	if t, ok := typeMap[crossrefType]; ok {
		return t
	}
	return "misc"
}

// Metadata is a parsed DOI record. Fields uses the reference field vocabulary
// (author, title, journal, year, ...) and never holds blank values.
type Metadata struct {
	DOI          string
	CrossrefType string
	Type         string
	Fields       map[string]string
}

// text accepts a JSON string, number or array and keeps the first non-empty scalar.
// CSL-JSON is loose about which of these it emits for titles and numbers.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*t = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
	case '[':
		var items []text
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*t = ""
		for _, item := range items {
			if item != "" {
				*t = item
				break
			}
		}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = text(n.String())
	}
	return nil
}

type cslName struct {
	Given   string `json:"given"`
	Family  string `json:"family"`
	Literal string `json:"literal"`
}

type cslDate struct {
	DateParts [][]text `json:"date-parts"`
}

// cslItem is the subset of a CSL-JSON record the parser reads.
type cslItem struct {
	Type           string    `json:"type"`
	Title          text      `json:"title"`
	ContainerTitle text      `json:"container-title"`
	Author         []cslName `json:"author"`
	Issued         cslDate   `json:"issued"`
	Page           text      `json:"page"`
	Volume         text      `json:"volume"`
	Issue          text      `json:"issue"`
	Publisher      text      `json:"publisher"`
	DOI            text      `json:"DOI"`
	URL            text      `json:"URL"`
	ISSN           text      `json:"ISSN"`
}

// Parse decodes a CSL-JSON document into Metadata.
func Parse(data []byte) (*Metadata, error) {
	var item cslItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	m := &Metadata{
		DOI:          string(item.DOI),
		CrossrefType: item.Type,
		Type:         TypeFor(item.Type),
		Fields:       map[string]string{},
	}

	set := func(key string, v text) {
		if s := strings.TrimSpace(string(v)); s != "" {
			m.Fields[key] = s
		}
	}

	set("author", text(joinAuthors(item.Author)))
	set("title", item.Title)
	// Only one of these survives binding: articles carry journal, proceedings booktitle.
	set("journal", item.ContainerTitle)
	set("booktitle", item.ContainerTitle)
	if len(item.Issued.DateParts) > 0 {
		parts := item.Issued.DateParts[0]
		if len(parts) > 0 {
			set("year", parts[0])
		}
		if len(parts) > 1 {
			set("month", parts[1])
		}
	}
	set("pages", item.Page)
	set("volume", item.Volume)
	set("number", item.Issue)
	set("publisher", item.Publisher)
	set("doi", item.DOI)
	set("url", item.URL)
	set("issn", item.ISSN)

	return m, nil
}

func joinAuthors(names []cslName) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		full := strings.TrimSpace(n.Given + " " + n.Family)
		if full == "" {
			full = strings.TrimSpace(n.Literal)
		}
		if full != "" {
			out = append(out, full)
		}
	}
	return strings.Join(out, ", ")
}
