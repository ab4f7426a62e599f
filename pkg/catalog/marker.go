package catalog

import (
	"strings"
	"time"

	"github.com/hashicorp/go-version"
)

// dateLayouts are tried in order when parsing a marker as a date.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04",
	"2006/01/02",
	"02-Jan-2006 15:04",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC1123,
}

type markerKind int

const (
	markerEmpty markerKind = iota
	markerDate
	markerVersion
	markerInvalid
)

type parsedMarker struct {
	kind    markerKind
	date    time.Time
	version *version.Version
	raw     string
}

func parseMarker(s string) parsedMarker {
	s = strings.TrimSpace(s)
	if s == "" {
		return parsedMarker{kind: markerEmpty}
	}
	if t, ok := parseDate(s); ok {
		return parsedMarker{kind: markerDate, date: t, raw: s}
	}
	if v, err := version.NewVersion(s); err == nil {
		return parsedMarker{kind: markerVersion, version: v, raw: s}
	}
	return parsedMarker{kind: markerInvalid, raw: s}
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidMarker reports whether s is empty or parses as a date or a version.
func ValidMarker(s string) bool {
	return parseMarker(s).kind != markerInvalid
}

// CompareMarkers orders two build markers. Dates compare chronologically and versions
// numerically. An empty marker sorts before everything else. Mixed or unparsable
// markers fall back to lexical order.
func CompareMarkers(a, b string) int {
	pa, pb := parseMarker(a), parseMarker(b)
	switch {
	case pa.kind == markerEmpty && pb.kind == markerEmpty:
		return 0
	case pa.kind == markerEmpty:
		return -1
	case pb.kind == markerEmpty:
		return 1
	case pa.kind == markerDate && pb.kind == markerDate:
		return pa.date.Compare(pb.date)
	case pa.kind == markerVersion && pb.kind == markerVersion:
		return pa.version.Compare(pb.version)
	default:
		return strings.Compare(pa.raw, pb.raw)
	}
}
