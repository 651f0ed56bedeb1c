package reading

// Band is the coarse light-level classification consumed by dashboard pages.
type Band string

const (
	BandDark   Band = "dark"
	BandDim    Band = "dim"
	BandBright Band = "bright"
)

// Thresholds between bands, in raw LDR units (0..1023 on the sensor side).
const (
	darkCeiling = 300
	dimCeiling  = 700
)

// Classify maps an integer reading onto one of the three named bands.
func Classify(value int) Band {
	switch {
	case value < darkCeiling:
		return BandDark
	case value < dimCeiling:
		return BandDim
	default:
		return BandBright
	}
}
