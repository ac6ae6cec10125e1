package report

// Tone is a coarse severity derived from a percentage. It only drives
// presentation; the category label from the service is always shown as is.
type Tone string

// Tones.
const (
	ToneUnknown  Tone = "unknown"
	ToneLow      Tone = "low"
	ToneModerate Tone = "moderate"
	ToneHigh     Tone = "high"
)

// Upper bounds of the analysis service's own bands: up to 25 is low and
// up to 50 is moderate.
const (
	moderateFrom = 25.0
	highFrom     = 50.0
)

// ToneFor maps a percentage to a tone.
func ToneFor(p Percent) Tone {
	v, ok := p.Value()
	switch {
	case !ok:
		return ToneUnknown
	case v > highFrom:
		return ToneHigh
	case v > moderateFrom:
		return ToneModerate
	default:
		return ToneLow
	}
}
