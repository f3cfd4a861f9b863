package tendercrawler

import (
	"regexp"
	"strconv"
	"strings"
)

// RelevanceThreshold is the number of distinct domain keywords a coal tender contains at least.
const RelevanceThreshold = 2

// CoalKeywords are matched case-insensitively as substrings.
var CoalKeywords = []string{
	"유연탄", "석탄", "연료", "thermal coal", "bituminous",
	"발열량", "calorific", "kcal", "NAR", "GAR",
	"황분", "sulfur", "유황",
	"회분", "ash",
	"인도네시아", "호주", "러시아",
}

const (
	numberPattern = `(\d[\d,]*(?:\.\d+)?)`
	labelGap      = `[^0-9\n]*`
)

func labelled(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + label + labelGap + numberPattern)
}

var (
	calorificPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)발열량[:\s]*(\d{4,5})\s*kcal`),
		labelled(`(?:발열량|GCV|gross\s*calorific\s*value|calorific\s*value)`),
		regexp.MustCompile(`(?i)(\d{4,5})\s*kcal/kg`),
		regexp.MustCompile(`(?i)\bNAR[:\s]*(\d{4,5})`),
		regexp.MustCompile(`(?i)\bGAR[:\s]*(\d{4,5})`),
	}
	sulfurPatterns = []*regexp.Regexp{
		labelled(`(?:유황분|황분|유황|total\s*sulfur|sulfur)`),
		regexp.MustCompile(`(?i)\bS[:\s]*(\d+(?:\.\d+)?)\s*%\s*(?:이하|max)`),
	}
	ashPatterns = []*regexp.Regexp{
		labelled(`(?:회\s*분|\bash\b)`),
	}
	moisturePatterns = []*regexp.Regexp{
		labelled(`(?:전\s*수\s*분|수\s*분|total\s*moisture|moisture)`),
		regexp.MustCompile(`(?i)\bTM[:\s]*(\d+(?:\.\d+)?)\s*%`),
	}
	volatilePatterns = []*regexp.Regexp{
		labelled(`(?:휘\s*발\s*분|volatile\s*matter|volatile)`),
	}
	quantityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)` + numberPattern + `\s*(?:M/T|MT|톤|tons?)`),
		labelled(`(?:물\s*량|quantity)`),
	}

	deliveryTermPattern   = regexp.MustCompile(`(?i)\b(FOB|CIF|CFR|DES|DAP)\b`)
	calorificBasisPattern = regexp.MustCompile(`(?i)\b(NAR|GAR|ADB)\b`)
	originLabelPattern    = regexp.MustCompile(`(?i)(?:원산지|origin)\s*[:：]?\s*([^\n,;/]+)`)
	deliveryPortPattern   = regexp.MustCompile(`(?i)(?:하역항|양하항|납품항|도착항|discharge\s*port|delivery\s*port)\s*[:：]?\s*([^\n,;]+)`)
)

// originCountries maps country mentions to the name stored on the specification.
var originCountries = []struct {
	token string
	name  string
}{
	{"인도네시아", "Indonesia"},
	{"indonesia", "Indonesia"},
	{"호주", "Australia"},
	{"australia", "Australia"},
	{"러시아", "Russia"},
	{"russia", "Russia"},
	{"남아공", "South Africa"},
	{"south africa", "South Africa"},
	{"콜롬비아", "Colombia"},
	{"colombia", "Colombia"},
	{"캐나다", "Canada"},
	{"canada", "Canada"},
}

// SpecExtractor finds coal specifications in tender text. It holds no state.
type SpecExtractor struct{}

func NewSpecExtractor() *SpecExtractor {
	return &SpecExtractor{}
}

// Relevance reports the domain keywords found in text. Latin keywords must not
// be part of a longer word, so "cash" does not count as "ash" while "6000kcal" counts as "kcal".
func (e *SpecExtractor) Relevance(text string) RelevanceSignal {
	lower := strings.ToLower(text)
	found := []string{}
	for _, kw := range CoalKeywords {
		if containsKeyword(lower, strings.ToLower(kw)) {
			found = append(found, kw)
		}
	}
	return RelevanceSignal{Keywords: found, Relevant: len(found) >= RelevanceThreshold}
}

func containsKeyword(text, kw string) bool {
	if !isLatinLetter(kw[0]) {
		return strings.Contains(text, kw)
	}
	for from := 0; ; {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(kw)
		if (start == 0 || !isLatinLetter(text[start-1])) && (end == len(text) || !isLatinLetter(text[end])) {
			return true
		}
		from = start + 1
	}
}

func isLatinLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// Extract reads every specification field independently.
func (e *SpecExtractor) Extract(text string) CoalSpecification {
	var spec CoalSpecification

	spec.CalorificMin, spec.CalorificMax = extractCalorific(text)
	spec.SulfurMax = firstFloat(sulfurPatterns, text)
	spec.AshMax = firstFloat(ashPatterns, text)
	spec.MoistureMax = firstFloat(moisturePatterns, text)
	spec.VolatileMatter = firstFloat(volatilePatterns, text)
	spec.QuantityMT = firstFloat(quantityPatterns, text)

	if m := deliveryTermPattern.FindStringSubmatch(text); m != nil {
		term := DeliveryTerm(strings.ToUpper(m[1]))
		spec.DeliveryTerms = &term
	}
	if m := calorificBasisPattern.FindStringSubmatch(text); m != nil {
		basis := strings.ToUpper(m[1])
		spec.CalorificBasis = &basis
	}
	spec.Origin = extractOrigin(text)
	if m := deliveryPortPattern.FindStringSubmatch(text); m != nil {
		if port := strings.TrimSpace(m[1]); port != "" {
			spec.DeliveryPort = &port
		}
	}
	return spec
}

// Analyze returns the relevance of text and, for relevant text only, its specification.
func (e *SpecExtractor) Analyze(text string) (RelevanceSignal, *CoalSpecification) {
	rel := e.Relevance(text)
	if !rel.Relevant {
		return rel, nil
	}
	spec := e.Extract(text)
	return rel, &spec
}

// extractCalorific keeps the first value as the lower bound and the next
// distinct value found by a later pattern as the upper bound.
func extractCalorific(text string) (lower, upper *int) {
	for _, p := range calorificPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, ok := parseInt(m[1])
		if !ok {
			continue
		}
		if lower == nil {
			lower = &v
			continue
		}
		if v != *lower {
			upper = &v
			break
		}
	}
	return lower, upper
}

func extractOrigin(text string) *string {
	if m := originLabelPattern.FindStringSubmatch(text); m != nil {
		if origin := strings.TrimSpace(m[1]); origin != "" {
			return &origin
		}
	}
	lower := strings.ToLower(text)
	best, name := -1, ""
	for _, c := range originCountries {
		if i := strings.Index(lower, c.token); i >= 0 && (best < 0 || i < best) {
			best, name = i, c.name
		}
	}
	if best < 0 {
		return nil
	}
	return &name
}

func firstFloat(patterns []*regexp.Regexp, text string) *float64 {
	for _, p := range patterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			return &v
		}
	}
	return nil
}

func parseInt(s string) (int, bool) {
	s = strings.ReplaceAll(s, ",", "")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}
