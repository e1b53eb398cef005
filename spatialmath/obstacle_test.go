package spatialmath

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/rhplan/logging"
	"go.viam.com/rhplan/utils"
)

func squareHalfPlanes() []HalfPlane {
	return []HalfPlane{
		{Normal: r2.Point{X: 1, Y: 0}, Offset: 1},
		{Normal: r2.Point{X: -1, Y: 0}, Offset: 1},
		{Normal: r2.Point{X: 0, Y: 1}, Offset: 1},
		{Normal: r2.Point{X: 0, Y: -1}, Offset: 1},
	}
}

func pentagonHalfPlanes() []HalfPlane {
	return []HalfPlane{
		{Normal: r2.Point{X: 1, Y: 2}, Offset: 2},
		{Normal: r2.Point{X: -2, Y: 1}, Offset: 2},
		{Normal: r2.Point{X: -1, Y: -1}, Offset: 2},
		{Normal: r2.Point{X: 1, Y: -1}, Offset: 2},
		{Normal: r2.Point{X: 0, Y: -1}, Offset: 1.5},
	}
}

func TestObstacleH(t *testing.T) {
	circle, err := NewCircle(r2.Point{X: 5, Y: 5}, 1, "circle")
	test.That(t, err, test.ShouldBeNil)
	ellipse, err := NewEllipse(r2.Point{X: 5, Y: 0}, 2, 1.5, "ellipse")
	test.That(t, err, test.ShouldBeNil)
	square, err := NewPolyhedron(r2.Point{}, squareHalfPlanes(), "square")
	test.That(t, err, test.ShouldBeNil)
	pentagon, err := NewPolyhedron(r2.Point{X: 0, Y: 5}, pentagonHalfPlanes(), "pentagon")
	test.That(t, err, test.ShouldBeNil)
	nlr1 := NewNonlinearShape1(r2.Point{X: -5, Y: 0}, "nlr1")
	nlr2 := NewNonlinearShape2(r2.Point{X: -5, Y: -5}, "nlr2")

	nlr2Inside := (2 * math.Sin(2)) * (3 * math.Sin(1)) * 3 * 4

	for _, tc := range []struct {
		name     string
		obstacle Obstacle
		pt       r2.Point
		expected float64
	}{
		{"circle centre", circle, r2.Point{X: 5, Y: 5}, 1},
		{"circle inside", circle, r2.Point{X: 5.5, Y: 5}, 0.75},
		{"circle boundary", circle, r2.Point{X: 6, Y: 5}, 0},
		{"circle outside", circle, r2.Point{X: 7, Y: 7}, 0},
		{"ellipse centre", ellipse, r2.Point{X: 5, Y: 0}, 1},
		{"ellipse inside", ellipse, r2.Point{X: 6, Y: 0}, 0.75},
		{"ellipse outside", ellipse, r2.Point{X: 7.1, Y: 0}, 0},
		{"square centre", square, r2.Point{}, 1},
		{"square inside", square, r2.Point{X: 0.5, Y: 0}, 0.75},
		{"square one violated", square, r2.Point{X: 2, Y: 0}, 0},
		{"pentagon centre", pentagon, r2.Point{X: 0, Y: 5}, 24},
		{"pentagon outside", pentagon, r2.Point{X: 0, Y: 2}, 0},
		{"nlr1 inside", nlr1, r2.Point{X: -5, Y: 0.5}, 0.25},
		{"nlr1 below", nlr1, r2.Point{X: -5, Y: -1}, 0},
		{"nlr1 above", nlr1, r2.Point{X: -5, Y: 2}, 0},
		{"nlr2 inside", nlr2, r2.Point{X: -1, Y: -5}, nlr2Inside},
		{"nlr2 left of band", nlr2, r2.Point{X: -4.5, Y: -5}, 0},
		{"nlr2 right of band", nlr2, r2.Point{X: 4, Y: -5}, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := tc.obstacle.H(tc.pt)
			test.That(t, h, test.ShouldAlmostEqual, tc.expected, 1e-12)
			test.That(t, h, test.ShouldBeGreaterThanOrEqualTo, 0.)
			test.That(t, Inside(tc.obstacle, tc.pt), test.ShouldEqual, tc.expected > 0)
		})
	}
}

func TestObstacleHNeverNegative(t *testing.T) {
	circle, err := NewCircle(r2.Point{}, 2, "")
	test.That(t, err, test.ShouldBeNil)
	square, err := NewPolyhedron(r2.Point{X: 1, Y: 1}, squareHalfPlanes(), "")
	test.That(t, err, test.ShouldBeNil)
	obstacles := []Obstacle{circle, square, NewNonlinearShape1(r2.Point{}, ""), NewNonlinearShape2(r2.Point{}, "")}

	for x := -12.; x <= 12; x += 0.37 {
		for y := -12.; y <= 12; y += 0.41 {
			pt := r2.Point{X: x, Y: y}
			for _, o := range obstacles {
				test.That(t, o.H(pt), test.ShouldBeGreaterThanOrEqualTo, 0.)
			}
			test.That(t, TotalH(obstacles, pt), test.ShouldBeGreaterThanOrEqualTo, 0.)
		}
	}
	test.That(t, TotalH(nil, r2.Point{}), test.ShouldEqual, 0.)
}

func TestBadObstacleDimensions(t *testing.T) {
	_, err := NewCircle(r2.Point{}, 0, "")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewEllipse(r2.Point{}, 1, -1, "")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPolyhedron(r2.Point{}, nil, "")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPolyhedron(r2.Point{}, []HalfPlane{{Offset: 1}}, "")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestObstacleConfigSerializationJSON(t *testing.T) {
	testCases := []struct {
		name    string
		config  ObstacleConfig
		success bool
	}{
		{"circle", ObstacleConfig{Type: CircleType, X: 5, Y: 5, R: 1, Label: "circle"}, true},
		{"circle bad dims", ObstacleConfig{Type: CircleType, R: -1}, false},
		{"infer circle", ObstacleConfig{X: 1, Y: 2, R: 1.5, Label: "infer circle"}, true},
		{"ellipse", ObstacleConfig{Type: EllipseType, X: 5, RX: 2, RY: 1.5, Label: "ellipse"}, true},
		{"ellipse bad dims", ObstacleConfig{Type: EllipseType, RX: 2}, false},
		{"infer ellipse", ObstacleConfig{RX: 2, RY: 1, Label: "infer ellipse"}, true},
		{
			"polyhedron",
			ObstacleConfig{
				Type: PolyhedronType, Y: 5, Label: "polyhedron",
				HalfPlanes: []HalfPlaneConfig{{[2]float64{1, 2}, 2}, {[2]float64{-2, 1}, 2}, {[2]float64{0, -1}, 1.5}},
			},
			true,
		},
		{"polyhedron empty", ObstacleConfig{Type: PolyhedronType}, false},
		{"infer polyhedron", ObstacleConfig{HalfPlanes: []HalfPlaneConfig{{[2]float64{1, 0}, 1}}, Label: "infer polyhedron"}, true},
		{"nonlinear1", ObstacleConfig{Type: Nonlinear1Type, X: -5, Label: "nonlinear1"}, true},
		{"nonlinear2", ObstacleConfig{Type: Nonlinear2Type, X: -5, Y: -5, Label: "nonlinear2"}, true},
		{"infer nothing", ObstacleConfig{}, false},
		{"bad type", ObstacleConfig{Type: "torus"}, false},
		{"non-finite centre", ObstacleConfig{Type: CircleType, X: math.NaN(), R: 1}, false},
	}

	probes := []r2.Point{{X: 0, Y: 0}, {X: 5, Y: 5.3}, {X: 0.2, Y: 5.1}, {X: -5, Y: 0.5}, {X: -1, Y: -5}, {X: 1.5, Y: 2}}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			o, err := testCase.config.ParseConfig()
			if !testCase.success {
				test.That(t, err, test.ShouldNotBeNil)
				return
			}
			test.That(t, err, test.ShouldBeNil)
			data, err := json.Marshal(o)
			test.That(t, err, test.ShouldBeNil)
			config := ObstacleConfig{}
			test.That(t, json.Unmarshal(data, &config), test.ShouldBeNil)
			parsed, err := config.ParseConfig()
			test.That(t, err, test.ShouldBeNil)
			test.That(t, parsed.Kind(), test.ShouldEqual, o.Kind())
			test.That(t, config.Label, test.ShouldEqual, testCase.name)
			for _, pt := range probes {
				test.That(t, parsed.H(pt), test.ShouldEqual, o.H(pt))
			}
		})
	}
}

func TestObstaclesFromConfigs(t *testing.T) {
	obstacles, err := ObstaclesFromConfigs([]*ObstacleConfig{
		{Type: CircleType, X: 5, Y: 4, R: 1.5},
		{Type: CircleType, X: 1, Y: 2, R: 1},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obstacles, test.ShouldHaveLength, 2)

	_, err = ObstaclesFromConfigs([]*ObstacleConfig{
		{Type: CircleType, R: -1},
		{Type: CircleType, X: 1, Y: 2, R: 1},
		{Type: "torus"},
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "obstacle 0")
	test.That(t, err.Error(), test.ShouldContainSubstring, "obstacle 2")
}

func TestDebugObstacle(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	circle, err := NewCircle(r2.Point{X: 5, Y: 5}, 1, "c")
	test.That(t, err, test.ShouldBeNil)
	dbg := WithDebugLogging(circle, logger)

	test.That(t, dbg.H(r2.Point{X: 5, Y: 5}), test.ShouldEqual, 1.)
	test.That(t, dbg.H(r2.Point{}), test.ShouldEqual, 0.)
	entries := observed.FilterMessage("obstacle evaluated").All()
	test.That(t, entries, test.ShouldHaveLength, 2)
	test.That(t, entries[0].ContextMap()["inside"], test.ShouldBeTrue)
	test.That(t, entries[1].ContextMap()["inside"], test.ShouldBeFalse)

	config, err := NewObstacleConfig(dbg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, config.R, test.ShouldEqual, 1.)
}

func TestPositionFromSlice(t *testing.T) {
	p, err := PositionFromSlice([]float64{1, 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldResemble, r2.Point{X: 1, Y: 2})
	test.That(t, PositionToSlice(p), test.ShouldResemble, []float64{1, 2})

	_, err = PositionFromSlice([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, utils.IsFinite(Distance(r2.Point{}, r2.Point{X: 3, Y: 4})), test.ShouldBeTrue)
	test.That(t, Distance(r2.Point{}, r2.Point{X: 3, Y: 4}), test.ShouldEqual, 5.)
}
