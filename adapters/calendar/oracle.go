// Package calendar implements the ground-truth oracle: one typed adapter per
// calendar system behind a single dispatching facade. Splitting the systems
// keeps each one unit-testable in isolation, including the lunisolar anomaly
// years and the Julian/Gregorian Easter divergence, and makes jurisdiction
// ambiguity an explicit return value instead of a default guess.
package calendar

import (
	"fmt"

	domain "feastbench/domain/calendar"
	"feastbench/ports"
)

// Oracle dispatches to the per-system oracles by holiday definition.
// All backing tables are read-only after construction; the Oracle is safe
// for concurrent use.
type Oracle struct {
	registry  domain.Registry
	easter    *EasterOracle
	lunisolar *LunisolarOracle
	hijri     *HijriOracle
	gregorian *GregorianOracle
}

// NewOracle creates an oracle over the given frozen holiday registry
func NewOracle(registry domain.Registry) *Oracle {
	return &Oracle{
		registry:  registry,
		easter:    NewEasterOracle(),
		lunisolar: NewLunisolarOracle(),
		hijri:     NewHijriOracle(),
		gregorian: NewGregorianOracle(),
	}
}

// NewDefaultOracle creates an oracle over the default benchmark registry
func NewDefaultOracle() *Oracle {
	return NewOracle(domain.DefaultRegistry())
}

// Definitions returns the frozen registry backing this oracle
func (o *Oracle) Definitions() domain.Registry {
	return o.registry
}

// Resolve computes the canonical ground truth for (holiday, year, convention)
func (o *Oracle) Resolve(holiday domain.Holiday, year int, convention domain.Convention) (domain.Resolution, error) {
	def, ok := o.registry[holiday]
	if !ok {
		return domain.Resolution{}, fmt.Errorf("oracle: holiday %q not in registry", holiday)
	}
	if !def.Supports(convention) {
		return domain.Resolution{}, fmt.Errorf("oracle: %s does not support convention %q", holiday, convention)
	}

	switch def.System {
	case domain.SystemComputusEaster:
		return o.easter.Resolve(year, convention)
	case domain.SystemChineseLunisolar:
		return o.lunisolar.Resolve(holiday, year)
	case domain.SystemHijriIslamic:
		return o.hijri.Resolve(holiday, year, convention)
	case domain.SystemGregorianFixed:
		return o.gregorian.Resolve(holiday, year)
	default:
		return domain.Resolution{}, fmt.Errorf("oracle: unknown calendar system %q", def.System)
	}
}

var _ ports.Oracle = (*Oracle)(nil)
