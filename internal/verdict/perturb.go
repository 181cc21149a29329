package verdict

import (
	"math/rand/v2"

	"github.com/OneOfOne/xxhash"
)

// Perturber returns the score offset applied by the rule-based strategy.
// Implementations must be deterministic in content.
type Perturber interface {
	Perturb(content string) float64
}

// PerturberFunc adapts a function to Perturber.
type PerturberFunc func(content string) float64

// Perturb calls f(content).
func (f PerturberFunc) Perturb(content string) float64 { return f(content) }

// NoPerturbation is a Perturber that always returns zero.
var NoPerturbation = PerturberFunc(func(string) float64 { return 0 })

// HashPerturber draws a uniform offset in [-Amplitude, +Amplitude] from a
// generator seeded with the xxhash64 of the content.
type HashPerturber struct {
	Amplitude float64
}

// Perturb returns the offset for content.
func (p HashPerturber) Perturb(content string) float64 {
	if p.Amplitude == 0 {
		return 0
	}
	seed := xxhash.ChecksumString64(content)
	r := rand.New(rand.NewPCG(seed, seed>>1|1))
	return (r.Float64()*2 - 1) * p.Amplitude
}
