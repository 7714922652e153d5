package models

// RiskLevel is the ordinal classification of a score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very-high"
)

// RiskLevels lists the levels in ascending order.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskVeryHigh}

// Rank returns the ordinal position of the level, -1 for unknown values.
func (r RiskLevel) Rank() int {
	for i, l := range RiskLevels {
		if l == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is one of the four levels.
func (r RiskLevel) Valid() bool { return r.Rank() >= 0 }

// RiskPresentation is how a risk level is shown to users.
type RiskPresentation struct {
	Level  RiskLevel     `json:"level"`
	Label  LocalizedText `json:"label"`
	Badge  string        `json:"badge"` // Badge colour token used by every client
	Advice LocalizedText `json:"advice"`
}

// RiskPresentations is the single mapping from risk level to label, badge and advice.
var RiskPresentations = map[RiskLevel]RiskPresentation{
	RiskLow: {
		Level:  RiskLow,
		Label:  LocalizedText{LanguageThai: "ความเสี่ยงต่ำ", LanguageEnglish: "Low risk"},
		Badge:  "green",
		Advice: LocalizedText{LanguageThai: "ดูแลสุขภาพต่อเนื่องและประเมินซ้ำตามระยะ", LanguageEnglish: "Keep up your healthy habits and re-check periodically."},
	},
	RiskMedium: {
		Level:  RiskMedium,
		Label:  LocalizedText{LanguageThai: "ความเสี่ยงปานกลาง", LanguageEnglish: "Medium risk"},
		Badge:  "yellow",
		Advice: LocalizedText{LanguageThai: "ปรับพฤติกรรมและติดตามอาการอย่างใกล้ชิด", LanguageEnglish: "Adjust your routine and keep an eye on your symptoms."},
	},
	RiskHigh: {
		Level:  RiskHigh,
		Label:  LocalizedText{LanguageThai: "ความเสี่ยงสูง", LanguageEnglish: "High risk"},
		Badge:  "orange",
		Advice: LocalizedText{LanguageThai: "ควรปรึกษาแพทย์หรือผู้เชี่ยวชาญ", LanguageEnglish: "Please consult a doctor or specialist."},
	},
	RiskVeryHigh: {
		Level:  RiskVeryHigh,
		Label:  LocalizedText{LanguageThai: "ความเสี่ยงสูงมาก", LanguageEnglish: "Very high risk"},
		Badge:  "red",
		Advice: LocalizedText{LanguageThai: "ควรพบแพทย์โดยเร็วที่สุด", LanguageEnglish: "Please see a doctor as soon as possible."},
	},
}

// Presentation returns the canonical presentation for the level. Unknown levels present as low.
func (r RiskLevel) Presentation() RiskPresentation {
	if p, ok := RiskPresentations[r]; ok {
		return p
	}
	return RiskPresentations[RiskLow]
}
