package preset

// Genre captures the narrative flavour offered on the setup form.
type Genre struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Tone       string `json:"tone"`
	PromptHint string `json:"promptHint"`
	ImageStyle string `json:"imageStyle,omitempty"` // 插图风格提示（英文）
}

// Options is the payload backing the setup form.
type Options struct {
	Genders        []string `json:"genders"`
	Genres         []Genre  `json:"genres"`
	DefaultGender  string   `json:"defaultGender"`
	DefaultAge     string   `json:"defaultAge"`
	DefaultGenre   string   `json:"defaultGenre"`
	DefaultSetting string   `json:"defaultSetting"`
}

// Genders lists the selectable protagonist genders.
func Genders() []string {
	return []string{"男性", "女性", "ノンバイナリー", "不明"}
}

// DefaultSetting is the premise pre-filled on the setup form.
const DefaultSetting = "中世ファンタジーの世界。魔法と剣が支配する冒険の旅。主人公は多くの魔力を持っており、クラフトスキルを所持しているいわゆるチートである。"

// Seed provides the built-in genres.
func Seed() []Genre {
	return []Genre{
		{
			ID:         "fantasy",
			Name:       "ファンタジー",
			Tone:       "壮大、神秘的",
			PromptHint: "剣と魔法の世界観を丁寧に描写し、冒険の高揚感を大切にする。",
			ImageStyle: "epic fantasy painting, rich colors",
		},
		{
			ID:         "sf",
			Name:       "SF",
			Tone:       "知的、壮大",
			PromptHint: "科学技術の手触りと未来社会の空気を具体的に描く。",
			ImageStyle: "science fiction concept art, cinematic",
		},
		{
			ID:         "mystery",
			Name:       "ミステリー",
			Tone:       "緊張感、論理的",
			PromptHint: "手がかりを少しずつ提示し、読者に推理の余地を残す。",
			ImageStyle: "noir illustration, muted palette",
		},
		{
			ID:         "horror",
			Name:       "ホラー",
			Tone:       "不穏、静謐",
			PromptHint: "直接的な描写よりも気配と違和感で恐怖を積み上げる。",
			ImageStyle: "dark horror illustration, heavy shadows",
		},
		{
			ID:         "cyberpunk",
			Name:       "サイバーパンク",
			Tone:       "退廃的、疾走感",
			PromptHint: "ネオンと雨、巨大企業と路地裏の対比を意識する。",
			ImageStyle: "cyberpunk digital art, neon glow",
		},
		{
			ID:         "historical",
			Name:       "歴史",
			Tone:       "重厚、写実的",
			PromptHint: "時代考証に配慮し、当時の生活感と言葉遣いを再現する。",
			ImageStyle: "historical oil painting",
		},
		{
			ID:         "slice-of-life",
			Name:       "日常",
			Tone:       "穏やか、温かい",
			PromptHint: "小さな出来事の機微と登場人物の感情の揺れを描く。",
			ImageStyle: "soft watercolor illustration",
		},
	}
}
