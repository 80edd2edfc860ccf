package summarizer

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/lexsum/internal/config"
	"github.com/dgallion1/lexsum/internal/model"
)

// Length is a summary length preset.
type Length string

const (
	Brief    Length = "brief"
	Standard Length = "standard"
	Detailed Length = "detailed"
)

// Focus selects which aspect of the document the summary emphasizes.
type Focus string

const (
	General     Focus = "general"
	Obligations Focus = "obligations"
	Parties     Focus = "parties"
	Dates       Focus = "dates"
)

// Params are the per-request summary settings.
type Params struct {
	Length   Length `json:"length"`
	Focus    Focus  `json:"focus"`
	MaxWords int    `json:"max_words"`
}

// Sanitize replaces an unknown length or focus with the default and
// resolves MaxWords: non-positive takes the preset's word budget, explicit
// values are clamped to [config.MinMaxWords, config.MaxMaxWords]. It
// never fails; substitutions are logged at warn.
func Sanitize(log *slog.Logger, p Params) Params {
	if _, ok := config.SummaryLengths[string(p.Length)]; !ok {
		log.Warn("invalid summary length, using default", "length", string(p.Length), "default", config.DefaultLength)
		p.Length = Length(config.DefaultLength)
	}
	if !validFocus(p.Focus) {
		log.Warn("invalid summary focus, using default", "focus", string(p.Focus), "default", config.DefaultFocus)
		p.Focus = Focus(config.DefaultFocus)
	}

	switch {
	case p.MaxWords <= 0:
		p.MaxWords = config.WordLimitsFor(string(p.Length)).MaxWords
	case p.MaxWords < config.MinMaxWords:
		log.Warn("max words out of range", "max_words", p.MaxWords, "using", config.MinMaxWords)
		p.MaxWords = config.MinMaxWords
	case p.MaxWords > config.MaxMaxWords:
		log.Warn("max words out of range", "max_words", p.MaxWords, "using", config.MaxMaxWords)
		p.MaxWords = config.MaxMaxWords
	}
	return p
}

func validFocus(f Focus) bool {
	for _, v := range config.FocusOptions {
		if string(f) == v {
			return true
		}
	}
	return false
}

type tokenRange struct{ min, max int }

var lengthTokens = map[Length]tokenRange{
	Brief:    {min: 30, max: 100},
	Standard: {min: 80, max: 200},
	Detailed: {min: 150, max: 400},
}

type penalties struct {
	length, repetition float64
	noRepeatNgram      int
}

var focusPenalties = map[Focus]penalties{
	General:     {length: 1.0, repetition: 1.1},
	Obligations: {length: 1.2, repetition: 1.0, noRepeatNgram: 2},
	Parties:     {length: 0.8, repetition: 1.2, noRepeatNgram: 3},
	Dates:       {length: 0.9, repetition: 1.1, noRepeatNgram: 2},
}

var emphasisKeywords = map[Focus][]string{
	Obligations: {"shall", "must", "required", "obligation", "duty", "responsible",
		"liable", "covenant", "undertake", "agree to", "commit to"},
	Parties: {"party", "parties", "client", "contractor", "vendor", "supplier",
		"buyer", "seller", "lessor", "lessee", "licensor", "licensee",
		"plaintiff", "defendant", "company", "corporation", "individual"},
	Dates: {"date", "deadline", "due", "expire", "expires", "term", "period", "duration",
		"commence", "terminate", "effective", "within", "before", "after"},
}

// LengthParams maps a length preset and focus to generation parameters
// and the focus's emphasis keywords. Unknown values use the defaults.
func LengthParams(length Length, focus Focus) (model.GenParams, []string) {
	tr, ok := lengthTokens[length]
	if !ok {
		tr = lengthTokens[Standard]
	}
	pen, ok := focusPenalties[focus]
	if !ok {
		pen = focusPenalties[General]
	}
	return model.GenParams{
		MinTokens:         tr.min,
		MaxTokens:         tr.max,
		NumBeams:          4,
		LengthPenalty:     pen.length,
		RepetitionPenalty: pen.repetition,
		NoRepeatNgramSize: pen.noRepeatNgram,
		EarlyStopping:     true,
	}, emphasisKeywords[focus]
}

// DefaultGenParams are the conservative settings used on a retry.
func DefaultGenParams() model.GenParams {
	return model.GenParams{
		MinTokens:         50,
		MaxTokens:         150,
		NumBeams:          2,
		LengthPenalty:     1.0,
		RepetitionPenalty: 1.1,
		EarlyStopping:     true,
	}
}

var focusPrompts = map[Focus]string{
	General:     "Summarize the following legal document, highlighting the main points and key information:",
	Obligations: "Summarize the following legal document, focusing specifically on obligations, duties, responsibilities, and requirements of each party:",
	Parties:     "Summarize the following legal document, focusing specifically on the parties involved, their roles, and relationships:",
	Dates:       "Summarize the following legal document, focusing specifically on important dates, deadlines, time periods, and temporal requirements:",
}

// FocusPrompt is the instruction prepended to each chunk.
func FocusPrompt(focus Focus) string {
	if p, ok := focusPrompts[focus]; ok {
		return p
	}
	return focusPrompts[General]
}

// LengthOption describes a length preset for clients.
type LengthOption struct {
	Value       Length `json:"value"`
	Description string `json:"description"`
	MinWords    int    `json:"min_words"`
	MaxWords    int    `json:"max_words"`
}

// FocusOption describes a focus for clients.
type FocusOption struct {
	Value       Focus  `json:"value"`
	Description string `json:"description"`
}

// CustomizationOptions lists what a client may choose.
type CustomizationOptions struct {
	Lengths    []LengthOption `json:"lengths"`
	Focuses    []FocusOption  `json:"focuses"`
	WordLimits struct {
		Min     int `json:"min"`
		Max     int `json:"max"`
		Default int `json:"default"`
	} `json:"word_limits"`
}

var lengthLabels = map[Length]string{Brief: "Short", Standard: "Standard", Detailed: "Detailed"}

var focusDescriptions = map[Focus]string{
	General:     "General overview of the document",
	Obligations: "Focus on duties, responsibilities, and requirements",
	Parties:     "Focus on parties involved and their roles",
	Dates:       "Focus on important dates, deadlines, and time periods",
}

// AvailableOptions returns the customization choices offered to clients.
func AvailableOptions() CustomizationOptions {
	var o CustomizationOptions
	for _, l := range []Length{Brief, Standard, Detailed} {
		wl := config.SummaryLengths[string(l)]
		o.Lengths = append(o.Lengths, LengthOption{
			Value:       l,
			Description: fmt.Sprintf("%s summary (%d-%d words)", lengthLabels[l], wl.MinWords, wl.MaxWords),
			MinWords:    wl.MinWords,
			MaxWords:    wl.MaxWords,
		})
	}
	for _, f := range config.FocusOptions {
		o.Focuses = append(o.Focuses, FocusOption{Value: Focus(f), Description: focusDescriptions[Focus(f)]})
	}
	o.WordLimits.Min = config.MinMaxWords
	o.WordLimits.Max = config.MaxMaxWords
	o.WordLimits.Default = config.WordLimitsFor(config.DefaultLength).MaxWords
	return o
}
