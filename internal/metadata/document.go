package metadata

import (
	"bytes"
	"encoding/xml"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html/charset"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
)

// LatestPath is the node the resolver reads the version from.
const LatestPath = "/metadata/versioning/latest"

// Document is the subset of a maven-metadata.xml document guidebuilder reads.
type Document struct {
	XMLName    xml.Name    `xml:"metadata"`
	GroupID    string      `xml:"groupId"`
	ArtifactID string      `xml:"artifactId"`
	Versioning *Versioning `xml:"versioning"`
}

// Versioning mirrors the <versioning> element. Latest keeps every <latest>
// element in document order; the first one is authoritative. Release is a
// pointer to distinguish a missing element from an empty one.
type Versioning struct {
	Latest      []string `xml:"latest"`
	Release     *string  `xml:"release"`
	Versions    []string `xml:"versions>version"`
	LastUpdated string   `xml:"lastUpdated"`
}

// Parse decodes a metadata document. Documents declaring a non-UTF-8
// encoding are transcoded. Only whitespace, comments and processing
// instructions may follow the root element.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.WrapError(err, errors.CategoryParse, "malformed metadata document").
			Fatal().
			Build()
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return &doc, nil
}

func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.WrapError(err, errors.CategoryParse, "malformed metadata document").
				Fatal().
				Build()
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return errors.ParseError("unexpected text after the metadata root element").
					Fatal().
					WithContext("offset", dec.InputOffset()).
					Build()
			}
		default:
			return errors.ParseError("unexpected content after the metadata root element").
				Fatal().
				WithContext("offset", dec.InputOffset()).
				Build()
		}
	}
}

// Latest returns the trimmed text of /metadata/versioning/latest.
func (d *Document) Latest() (string, error) {
	if d.Versioning == nil || len(d.Versioning.Latest) == 0 {
		return "", errors.ParseError("metadata document has no " + LatestPath + " node").
			WithContext("artifact", d.coordinates()).
			Build()
	}
	latest := strings.TrimSpace(d.Versioning.Latest[0])
	if latest == "" {
		return "", errors.ParseError("metadata node " + LatestPath + " is empty").
			WithContext("artifact", d.coordinates()).
			Build()
	}
	return latest, nil
}

// Release returns the trimmed <release> value, or "" when absent.
func (d *Document) Release() string {
	if d.Versioning == nil || d.Versioning.Release == nil {
		return ""
	}
	return strings.TrimSpace(*d.Versioning.Release)
}

// LastUpdated returns the <lastUpdated> timestamp (yyyyMMddHHmmss), or "".
func (d *Document) LastUpdated() string {
	if d.Versioning == nil {
		return ""
	}
	return strings.TrimSpace(d.Versioning.LastUpdated)
}

// SortedVersions returns the published versions, oldest first, using Maven ordering.
func (d *Document) SortedVersions() []string {
	if d.Versioning == nil {
		return nil
	}
	out := make([]string, 0, len(d.Versioning.Versions))
	for _, v := range d.Versioning.Versions {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return CompareVersion(out[i], out[j]) < 0
	})
	return out
}

func (d *Document) coordinates() string {
	if d.GroupID == "" && d.ArtifactID == "" {
		return ""
	}
	return d.GroupID + ":" + d.ArtifactID
}
