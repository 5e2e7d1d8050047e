package solar

import (
	"testing"
	"time"
)

func TestClearSkyGHI(t *testing.T) {
	noon := time.Date(2024, 6, 20, 20, 10, 0, 0, time.UTC) // ~solar noon in Portland
	midnight := time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC)

	t.Run("night is zero", func(t *testing.T) {
		if got := ClearSkyGHI(portland, midnight, 0); got != 0 {
			t.Errorf("GHI = %v at night, expected 0", got)
		}
	})

	t.Run("summer noon plausible", func(t *testing.T) {
		got := ClearSkyGHI(portland, noon, 50)
		if got < 700 || got > 1100 {
			t.Errorf("GHI = %.0f W/m2, expected within [700, 1100] for clear summer noon", got)
		}
	})

	t.Run("winter noon weaker", func(t *testing.T) {
		winterNoon := time.Date(2024, 12, 21, 20, 10, 0, 0, time.UTC)
		summer := ClearSkyGHI(portland, noon, 50)
		winter := ClearSkyGHI(portland, winterNoon, 50)
		if winter <= 0 || winter >= summer {
			t.Errorf("winter GHI %.0f should be positive and below summer %.0f", winter, summer)
		}
	})

	t.Run("morning weaker than noon", func(t *testing.T) {
		morning := ClearSkyGHI(portland, time.Date(2024, 6, 20, 15, 0, 0, 0, time.UTC), 50)
		atNoon := ClearSkyGHI(portland, noon, 50)
		if morning <= 0 || morning >= atNoon {
			t.Errorf("morning GHI %.0f should be positive and below noon %.0f", morning, atNoon)
		}
	})

	t.Run("elevation strengthens the beam", func(t *testing.T) {
		seaLevel := ClearSkyGHI(portland, noon, 0)
		mountain := ClearSkyGHI(portland, noon, 2000)
		if mountain <= seaLevel {
			t.Errorf("GHI at 2000 m (%.0f) should exceed sea level (%.0f)", mountain, seaLevel)
		}
	})
}
