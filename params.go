package patchy

import "fmt"

// Block size exponent bounds: B = 2^BlockSizeLog2.
const (
	MinBlockSizeLog2     = 6
	MaxBlockSizeLog2     = 24
	DefaultBlockSizeLog2 = 11 // experimentally the best balanced value for smallest patch size
)

// Compression level bounds, passed through to the zstd encoder.
const (
	MinCompressionLevel     = 1
	MaxCompressionLevel     = 22
	DefaultCompressionLevel = 15
)

// Params bundles the two operator-tunable knobs: the block-size
// exponent and the zstd compression level. The zero value is not
// ready to use; call NewParams or set both fields and Clamp().
type Params struct {
	BlockSizeLog2    int
	CompressionLevel int
}

// NewParams returns Params set to their documented defaults.
func NewParams() Params {
	return Params{
		BlockSizeLog2:    DefaultBlockSizeLog2,
		CompressionLevel: DefaultCompressionLevel,
	}
}

// BlockSize returns 2^BlockSizeLog2.
func (p Params) BlockSize() int {
	return 1 << uint(p.BlockSizeLog2)
}

// Clamp pulls both fields back into their documented bounds, returning
// a human-readable diagnostic line per clamped field (empty if nothing
// needed clamping). Out-of-range parameters are a warning, never an
// error, per the CLI's "clamp, don't reject" contract.
func (p *Params) Clamp() []string {
	var warnings []string
	if w, clamped := clampInt("Block size log2", p.BlockSizeLog2, MinBlockSizeLog2, MaxBlockSizeLog2); w != "" {
		warnings = append(warnings, w)
		p.BlockSizeLog2 = clamped
	}
	if w, clamped := clampInt("Compression level", p.CompressionLevel, MinCompressionLevel, MaxCompressionLevel); w != "" {
		warnings = append(warnings, w)
		p.CompressionLevel = clamped
	}
	return warnings
}

func clampInt(name string, v, lo, hi int) (warning string, clamped int) {
	clamped = v
	if clamped < lo {
		clamped = lo
	}
	if clamped > hi {
		clamped = hi
	}
	if clamped != v {
		warning = fmt.Sprintf("%s (%d) is outside of expected range [%d..%d] and was clamped to %d", name, v, lo, hi, clamped)
	}
	return warning, clamped
}
