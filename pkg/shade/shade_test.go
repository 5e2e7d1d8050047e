package shade

import (
	"math"
	"testing"

	"github.com/solarsim/solarsim/pkg/solar"
)

func TestObstacleTypeRoundTrip(t *testing.T) {
	for _, typ := range []ObstacleType{TreeDeciduous, TreeEvergreen, Building, Fence, Hedge} {
		parsed, err := ParseObstacleType(typ.String())
		if err != nil {
			t.Errorf("ParseObstacleType(%q): %v", typ.String(), err)
			continue
		}
		if parsed != typ {
			t.Errorf("round trip %v -> %q -> %v", typ, typ.String(), parsed)
		}
	}

	if _, err := ParseObstacleType("pergola"); err == nil {
		t.Error("expected error for unknown obstacle type")
	}
}

func TestTransparency(t *testing.T) {
	tests := []struct {
		typ  ObstacleType
		want float64
	}{
		{Building, 0.0},
		{Fence, 0.0},
		{TreeDeciduous, 0.4},
		{TreeEvergreen, 0.4},
		{Hedge, 0.3},
	}
	for _, tt := range tests {
		if got := tt.typ.Transparency(); got != tt.want {
			t.Errorf("%v.Transparency() = %v, expected %v", tt.typ, got, tt.want)
		}
	}
}

func TestObstacleValidate(t *testing.T) {
	valid := Obstacle{Type: Building, Direction: 90, Distance: 10, Height: 5, Width: 4}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid obstacle rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Obstacle)
	}{
		{"zero distance", func(o *Obstacle) { o.Distance = 0 }},
		{"negative height", func(o *Obstacle) { o.Height = -1 }},
		{"zero width", func(o *Obstacle) { o.Width = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mutate(&o)
			if err := o.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAngularGeometry(t *testing.T) {
	// height == distance subtends 45 degrees; width == 2*distance gives a
	// 45 degree half-width.
	o := Obstacle{Type: Building, Direction: 180, Distance: 10, Height: 10, Width: 20}

	if got := o.AngularHeight(); math.Abs(got-45) > 1e-9 {
		t.Errorf("AngularHeight = %v, expected 45", got)
	}
	if got := o.AngularHalfWidth(); math.Abs(got-45) > 1e-9 {
		t.Errorf("AngularHalfWidth = %v, expected 45", got)
	}

	// Same obstacle twice as far subtends a smaller silhouette.
	far := o
	far.Distance = 20
	if far.AngularHeight() >= o.AngularHeight() {
		t.Error("angular height should shrink with distance")
	}
}

func TestIsBlocked(t *testing.T) {
	wall := Obstacle{Type: Building, Direction: 180, Distance: 10, Height: 10, Width: 20}

	tests := []struct {
		name        string
		sun         solar.Position
		obstacle    Obstacle
		wantBlocked bool
		wantShade   float64
	}{
		{
			name:        "sun below horizon never blocked",
			sun:         solar.Position{Altitude: -5, Azimuth: 180},
			obstacle:    wall,
			wantBlocked: false,
		},
		{
			name:        "sun at horizon never blocked",
			sun:         solar.Position{Altitude: 0, Azimuth: 180},
			obstacle:    wall,
			wantBlocked: false,
		},
		{
			name:        "sun clears obstacle",
			sun:         solar.Position{Altitude: 60, Azimuth: 180},
			obstacle:    wall,
			wantBlocked: false,
		},
		{
			name:        "sun behind wall",
			sun:         solar.Position{Altitude: 30, Azimuth: 180},
			obstacle:    wall,
			wantBlocked: true,
			wantShade:   1.0,
		},
		{
			name:        "sun outside half-width",
			sun:         solar.Position{Altitude: 30, Azimuth: 100},
			obstacle:    wall,
			wantBlocked: false,
		},
		{
			name: "wraparound near due north",
			sun:  solar.Position{Altitude: 10, Azimuth: 359},
			obstacle: Obstacle{
				Type: Fence, Direction: 1, Distance: 10, Height: 5, Width: 4,
			},
			wantBlocked: true,
			wantShade:   1.0,
		},
		{
			name: "deciduous tree leaks light",
			sun:  solar.Position{Altitude: 20, Azimuth: 180},
			obstacle: Obstacle{
				Type: TreeDeciduous, Direction: 180, Distance: 10, Height: 10, Width: 20,
			},
			wantBlocked: true,
			wantShade:   0.6,
		},
		{
			name: "hedge leaks light",
			sun:  solar.Position{Altitude: 10, Azimuth: 180},
			obstacle: Obstacle{
				Type: Hedge, Direction: 180, Distance: 10, Height: 10, Width: 20,
			},
			wantBlocked: true,
			wantShade:   0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsBlocked(tt.sun, tt.obstacle)
			if got.Blocked != tt.wantBlocked {
				t.Fatalf("Blocked = %v, expected %v", got.Blocked, tt.wantBlocked)
			}
			if math.Abs(got.ShadeIntensity-tt.wantShade) > 1e-9 {
				t.Errorf("ShadeIntensity = %v, expected %v", got.ShadeIntensity, tt.wantShade)
			}
		})
	}
}

func TestEffectiveSunFraction(t *testing.T) {
	up := solar.Position{Altitude: 20, Azimuth: 180}
	wall := Obstacle{Type: Building, Direction: 180, Distance: 10, Height: 10, Width: 20}
	tree := Obstacle{Type: TreeDeciduous, Direction: 180, Distance: 10, Height: 10, Width: 20}

	tests := []struct {
		name      string
		sun       solar.Position
		obstacles []Obstacle
		want      float64
	}{
		{"sun down", solar.Position{Altitude: -1, Azimuth: 180}, []Obstacle{wall}, 0},
		{"no obstacles", up, nil, 1},
		{"opaque wall", up, []Obstacle{wall}, 0},
		{"tree only", up, []Obstacle{tree}, 0.4},
		{"most blocking wins, not additive", up, []Obstacle{tree, wall, tree}, 0},
		{"two trees do not stack", up, []Obstacle{tree, tree}, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveSunFraction(tt.sun, tt.obstacles)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EffectiveSunFraction = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestAzimuthDelta(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 0, 0},
		{10, 350, 20},
		{350, 10, 20},
		{180, 0, 180},
		{90, 270, 180},
		{359.5, 0.5, 1},
	}
	for _, tt := range tests {
		if got := azimuthDelta(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("azimuthDelta(%v, %v) = %v, expected %v", tt.a, tt.b, got, tt.want)
		}
	}
}
