package services

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Rating-Muster in Prüfreihenfolge. Die Kandidaten werden anschließend auf [0, 5] geprüft.
var (
	ratingLabelRE = regexp.MustCompile(`(?i)rating[:\s]+([0-9.]+)`)
	ratingScaleRE = regexp.MustCompile(`(?i)([0-9.]+)\s*(?:/|out of)\s*5`)
	// eigenständige Zahl: nicht Teil einer größeren Zahl wie "6.0" oder "12"
	// und nicht an ein Wort geklebt wie "3pm", "4th" oder "Top3"
	ratingStandaloneRE = regexp.MustCompile(`(?:^|[^0-9\pL_.])([0-4](?:\.[0-9]+)?|5(?:\.0+)?)(?:$|[^0-9\pL_.]|\.(?:$|[^0-9]))`)

	ratingPatterns = []*regexp.Regexp{ratingLabelRE, ratingScaleRE, ratingStandaloneRE}
)

var ligatureReplacer = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬀ", "ff",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬆ", "st",
)

// TextExtractor zerlegt den generierten Text in Beschreibung und Rating
type TextExtractor struct {
	logger      *zap.Logger
	placeholder string
}

func NewTextExtractor(logger *zap.Logger, placeholder string) *TextExtractor {
	return &TextExtractor{logger: logger, placeholder: placeholder}
}

// Extract liefert Beschreibung und Rating. Fehlt der Text, wird der Platzhalter
// verwendet und das Rating bleibt leer.
func (te *TextExtractor) Extract(blob string) (description, rating string) {
	paragraphs := splitParagraphs(blob)
	if len(paragraphs) == 0 {
		return te.placeholder, ""
	}

	description = CleanText(paragraphs[0])
	if description == "" {
		description = CleanText(blob)
	}
	if description == "" {
		description = te.placeholder
	}

	for _, p := range paragraphs[1:] {
		if r := ExtractRating(p); r != "" {
			return description, r
		}
	}
	rating = ExtractRating(blob)
	if rating == "" {
		te.logger.Debug("No rating found in text", zap.Int("paragraphs", len(paragraphs)))
	}
	return description, rating
}

// ExtractRating sucht ein Rating im Bereich 0-5 und gibt es als Dezimal-String zurück
func ExtractRating(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "*", "")
	for _, re := range ratingPatterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if r, ok := parseRating(m[1]); ok {
			return r
		}
	}
	return ""
}

func parseRating(s string) (string, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || f > 5 {
		return "", false
	}
	return FormatRating(f), true
}

// FormatRating schreibt immer mindestens eine Nachkommastelle ("4" -> "4.0")
func FormatRating(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// CleanText entfernt Markdown-Hervorhebungen und fasst Whitespace zusammen
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = normalizeUnicode(s)
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	return strings.Join(strings.Fields(s), " ")
}

// normalizeUnicode führt NFC-Normalisierung durch und ersetzt gängige Ligaturen
func normalizeUnicode(s string) string {
	s = ligatureReplacer.Replace(s)
	normalized, _, err := transform.String(norm.NFC, s)
	if err != nil {
		return s
	}
	return normalized
}

func splitParagraphs(s string) []string {
	// normalisiere Windows-Zeilenumbrüche
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(s, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
