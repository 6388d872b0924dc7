package briefs

// JSON Schema (BriefSchema):
// {
//   "investment_brief": ["string", ... exactly 10],
//   "entities": {
//     "company": "string | null",
//     "founders": ["string"],
//     "sector": "string | null",
//     "geography": "string | null",
//     "stage": "Seed | Series A | Series B | Unknown",
//     "round_size_usd": "number | null",
//     "notable_metrics": ["string"]
//   },
//   "tags": {
//     "category": ["fintech | deep tech | climate tech"],
//     "stage": "Seed | Series A | Series B"
//   }
// }

// BulletCount is the exact number of investment_brief items.
const BulletCount = 10

// Stage is a funding stage label.
type Stage string

const (
	StageSeed    Stage = "Seed"
	StageSeriesA Stage = "Series A"
	StageSeriesB Stage = "Series B"
	// StageUnknown is only valid in the entity block.
	StageUnknown Stage = "Unknown"
)

// Category is a sector label from the closed tag enumeration.
type Category string

const (
	CategoryFintech     Category = "fintech"
	CategoryDeepTech    Category = "deep tech"
	CategoryClimateTech Category = "climate tech"
)

// EntityStages lists the stages accepted in entities.stage.
var EntityStages = []Stage{StageSeed, StageSeriesA, StageSeriesB, StageUnknown}

// TagStages lists the stages accepted in tags.stage.
var TagStages = []Stage{StageSeed, StageSeriesA, StageSeriesB}

// Categories lists the accepted tags.category values.
var Categories = []Category{CategoryFintech, CategoryDeepTech, CategoryClimateTech}

// Brief is the validated investment brief.
type Brief struct {
	InvestmentBrief []string `json:"investment_brief" validate:"len=10"`
	Entities        Entities `json:"entities"`
	Tags            Tags     `json:"tags"`
}

type Entities struct {
	Company        *string  `json:"company"`
	Founders       []string `json:"founders"`
	Sector         *string  `json:"sector"`
	Geography      *string  `json:"geography"`
	Stage          Stage    `json:"stage" validate:"entity_stage"`
	RoundSizeUSD   *float64 `json:"round_size_usd"`
	NotableMetrics []string `json:"notable_metrics"`
}

type Tags struct {
	Category []Category `json:"category" validate:"dive,category"`
	Stage    Stage      `json:"stage" validate:"tag_stage"`
}

func (s Stage) validEntity() bool {
	for _, v := range EntityStages {
		if s == v {
			return true
		}
	}
	return false
}

func (s Stage) validTag() bool {
	for _, v := range TagStages {
		if s == v {
			return true
		}
	}
	return false
}

func (c Category) valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}
