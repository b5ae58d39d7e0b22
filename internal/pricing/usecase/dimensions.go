package usecase

import (
	"regexp"
	"strconv"
)

// Customers write sizes every way imaginable: "24x36", "24 X 36", "4'x8'",
// `24"x36"`, "24in x 36in", "2 × 3". The parser accepts number, optional
// unit mark, separator (x/X/×), number, optional unit mark.
var dimensionPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:"|”|'|in\b|inch(?:es)?\b|ft\b|feet\b)?\s*[xX×]\s*(\d+(?:\.\d+)?)\s*(?:"|”|'|in\b|inch(?:es)?\b|ft\b|feet\b)?`)

const (
	defaultWidthIn  = 24
	defaultHeightIn = 24
)

// parseDimensions turns a free-text size into width/height in inches.
// defaulted reports that the fallback 24x24 was used.
//
// When both parsed numbers are <= 10 they are read as feet and converted:
// nobody orders a 2-inch by 3-inch sign, but "2x3" meaning feet is common.
func parseDimensions(size string) (widthIn, heightIn float64, defaulted bool) {
	m := dimensionPattern.FindStringSubmatch(size)
	if m == nil {
		return defaultWidthIn, defaultHeightIn, true
	}

	w, err1 := strconv.ParseFloat(m[1], 64)
	h, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return defaultWidthIn, defaultHeightIn, true
	}

	if w <= 10 && h <= 10 {
		w *= 12
		h *= 12
	}
	return w, h, false
}
