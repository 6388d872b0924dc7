package generator

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const offlineFiller = "Not stated in source text."

var roundSizePattern = regexp.MustCompile(`(?i)\$\s?(\d+(?:\.\d+)?)\s*(thousand|million|billion|mm|k|m|b)?\b`)

var categoryKeywords = map[string][]string{
	"fintech":      {"fintech", "payment", "banking", "lending", "insurtech", "neobank"},
	"deep tech":    {"deep tech", "quantum", "semiconductor", "robotics", "biotech", "machine learning"},
	"climate tech": {"climate", "carbon", "solar", "battery", "renewable", "emissions"},
}

// Offline builds a brief from keyword heuristics without calling a model.
// It is meant for local development and demos.
type Offline struct{}

type offlineBrief struct {
	InvestmentBrief []string       `json:"investment_brief"`
	Entities        offlineEntity  `json:"entities"`
	Tags            offlineTagInfo `json:"tags"`
}

type offlineEntity struct {
	Company        *string  `json:"company"`
	Founders       []string `json:"founders"`
	Sector         *string  `json:"sector"`
	Geography      *string  `json:"geography"`
	Stage          string   `json:"stage"`
	RoundSizeUSD   *float64 `json:"round_size_usd"`
	NotableMetrics []string `json:"notable_metrics"`
}

type offlineTagInfo struct {
	Category []string `json:"category"`
	Stage    string   `json:"stage"`
}

// Generate implements Generator.
func (Offline) Generate(ctx context.Context, req Request) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	text := strings.TrimSpace(req.RawText)
	if text == "" {
		return Failure("no deal text supplied"), nil
	}

	stage := detectStage(text)
	tagStage := stage
	if tagStage == "Unknown" {
		tagStage = "Seed"
	}
	categories := detectCategories(text)
	var sector *string
	if len(categories) > 0 {
		sector = &categories[0]
	}

	out := offlineBrief{
		InvestmentBrief: offlineBullets(text),
		Entities: offlineEntity{
			Company:        detectCompany(text),
			Founders:       []string{},
			Sector:         sector,
			Stage:          stage,
			RoundSizeUSD:   detectRoundSize(text),
			NotableMetrics: []string{},
		},
		Tags: offlineTagInfo{
			Category: categories,
			Stage:    tagStage,
		},
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return Outcome{}, err
	}
	return Success(payload), nil
}

func offlineBullets(text string) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	bullets := make([]string, 0, 10)
	for _, s := range sentences {
		if len(bullets) == 10 {
			break
		}
		if trimmed := strings.Join(strings.Fields(s), " "); trimmed != "" {
			bullets = append(bullets, trimmed)
		}
	}
	for len(bullets) < 10 {
		bullets = append(bullets, offlineFiller)
	}
	return bullets
}

func detectStage(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "series b"):
		return "Series B"
	case strings.Contains(lower, "series a"):
		return "Series A"
	case strings.Contains(lower, "seed"):
		return "Seed"
	default:
		return "Unknown"
	}
}

func detectCategories(text string) []string {
	lower := strings.ToLower(text)
	out := []string{}
	for _, category := range []string{"fintech", "deep tech", "climate tech"} {
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(lower, kw) {
				out = append(out, category)
				break
			}
		}
	}
	return out
}

func detectCompany(text string) *string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	name := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if name == "" {
		return nil
	}
	if first := []rune(name)[0]; !unicode.IsUpper(first) {
		return nil
	}
	return &name
}

func detectRoundSize(text string) *float64 {
	m := roundSizePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		value *= 1_000
	case "m", "mm", "million":
		value *= 1_000_000
	case "b", "billion":
		value *= 1_000_000_000
	}
	return &value
}

var _ Generator = Offline{}
