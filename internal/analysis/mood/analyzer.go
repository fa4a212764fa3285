package mood

import (
	"strings"
)

// Label 表示场景氛围标签，用于决定插图的光影风格。
type Label string

const (
	Calm    Label = "calm"
	Joyful  Label = "joyful"
	Tense   Label = "tense"
	Somber  Label = "somber"
	Eerie   Label = "eerie"
	Epic    Label = "epic"
	Romance Label = "romance"
)

// Decision is the detected mood and how strongly the text supports it.
type Decision struct {
	Mood  Label
	Score int
}

var keywordBuckets = map[Label][]string{
	Joyful: {
		"笑", "喜び", "嬉し", "楽し", "歓声", "祝", "宴", "陽気", "微笑", "晴れ",
		"joy", "laugh", "celebrat",
	},
	Tense: {
		"剣", "戦", "敵", "襲", "追", "逃げ", "危険", "叫", "刃", "血", "鼓動", "息を呑",
		"緊張", "焦", "爆", "fight", "chase", "danger",
	},
	Somber: {
		"涙", "悲し", "別れ", "喪", "孤独", "寂", "失", "墓", "雨", "沈黙", "後悔",
		"sorrow", "grief", "alone",
	},
	Eerie: {
		"闇", "影", "不気味", "囁", "霧", "気配", "幽", "呪", "冷たい", "悲鳴", "廃",
		"静寂", "ghost", "shadow", "whisper",
	},
	Epic: {
		"王", "竜", "伝説", "運命", "神", "軍", "玉座", "英雄", "魔力", "光が", "天空",
		"dragon", "legend", "destiny",
	},
	Romance: {
		"恋", "頬", "見つめ", "手を握", "胸が高鳴", "愛", "ときめ", "寄り添",
		"love", "blush",
	},
}

var punctuationBoost = map[Label]int{
	Tense:  2,
	Joyful: 1,
}

// Analyze scores narrative text against the keyword buckets. Text with no
// signal is reported as Calm.
func Analyze(text string) Decision {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Decision{Mood: Calm}
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if word == "" {
				continue
			}
			scores[label] += 3 * strings.Count(normalized, strings.ToLower(word))
		}
	}

	exclamations := strings.Count(text, "！") + strings.Count(text, "!")
	if exclamations > 0 {
		scores[Tense] += exclamations * punctuationBoost[Tense]
		scores[Joyful] += exclamations * punctuationBoost[Joyful]
	}

	best := Calm
	bestScore := 0
	// 固定顺序遍历，保证同分时结果稳定
	for _, label := range orderedLabels {
		if s := scores[label]; s > bestScore {
			best = label
			bestScore = s
		}
	}

	return Decision{Mood: best, Score: bestScore}
}

var orderedLabels = []Label{Tense, Eerie, Somber, Epic, Romance, Joyful}

var styleByMood = map[Label]string{
	Calm:    "soft natural light, tranquil atmosphere",
	Joyful:  "warm golden light, vibrant and cheerful colors",
	Tense:   "dramatic high-contrast lighting, dynamic composition, motion",
	Somber:  "overcast muted tones, melancholic atmosphere",
	Eerie:   "dim fog, cold blue shadows, unsettling atmosphere",
	Epic:    "sweeping wide shot, god rays, grand scale",
	Romance: "soft pastel glow, gentle bokeh, intimate framing",
}

// StyleSuffix returns the English lighting hint appended to image prompts.
func StyleSuffix(label Label) string {
	if style, ok := styleByMood[label]; ok {
		return style
	}
	return styleByMood[Calm]
}
