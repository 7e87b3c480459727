package auditor

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Row and cell positions on the summary page. Rows are counted across the
// whole document in order, nested tables included.
const (
	rowSchoolDistrict = 1
	divSchoolDistrict = 3
	rowDeedType       = 15
	rowAcreage        = 18
	rowOwnerResidence = 23
	rowForeclosure    = 24
	valueCell         = 1
)

// Attributes are the fields read from a parcel summary page. Empty strings
// and a nil Acreage are missing values.
type Attributes struct {
	SchoolDistrict string   `json:"school_district,omitempty"`
	DeedType       string   `json:"deed_type,omitempty"`
	Acreage        *float64 `json:"acreage,omitempty"`
	OwnerResidence string   `json:"owner_residence,omitempty"`
	Foreclosure    string   `json:"foreclosure,omitempty"`
}

// Empty reports whether no field was found.
func (a Attributes) Empty() bool {
	return a.SchoolDistrict == "" && a.DeedType == "" && a.Acreage == nil &&
		a.OwnerResidence == "" && a.Foreclosure == ""
}

// Parse extracts the attributes from a summary page. Each field is read
// independently; a field whose row or cell is absent stays empty.
func Parse(r io.Reader) (*Attributes, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "auditor: parse html")
	}

	rows := descendants(doc, atom.Tr)
	attrs := &Attributes{
		SchoolDistrict: nthText(rows, rowSchoolDistrict, atom.Div, divSchoolDistrict),
		DeedType:       nthText(rows, rowDeedType, atom.Td, valueCell),
		OwnerResidence: nthText(rows, rowOwnerResidence, atom.Td, valueCell),
		Foreclosure:    nthText(rows, rowForeclosure, atom.Td, valueCell),
	}
	if s := nthText(rows, rowAcreage, atom.Td, valueCell); s != "" {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
			attrs.Acreage = &v
		}
	}
	return attrs, nil
}

// ParseBytes is Parse over an in-memory page.
func ParseBytes(page []byte) (*Attributes, error) {
	return Parse(bytes.NewReader(page))
}

// nthText returns the text of the idx-th a element under rows[row].
func nthText(rows []*html.Node, row int, a atom.Atom, idx int) string {
	if row >= len(rows) {
		return ""
	}
	cells := descendants(rows[row], a)
	if idx >= len(cells) {
		return ""
	}
	return textContent(cells[idx])
}

// descendants lists the elements of type a below n in document order.
func descendants(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// textContent joins the text below n with single spaces.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
