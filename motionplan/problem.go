package motionplan

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rhplan/numdiff"
	"go.viam.com/rhplan/spatialmath"
	"go.viam.com/rhplan/utils"
)

const (
	// NumDecisionVariables is the length of the decision variable, the candidate next position.
	NumDecisionVariables = 2

	// NumConstraints is the length of the constraint mapping F1.
	NumConstraints = 2

	// Entries of F1.
	obstacleResidual     = 0
	reachabilityResidual = 1
)

// Problem is the nonlinear program of a single horizon step: move from xNow towards xRef by at
// most uMax while staying outside every obstacle. It is immutable once constructed and is built
// fresh for every step.
type Problem struct {
	xNow      r2.Point
	xRef      r2.Point
	obstacles []spatialmath.Obstacle
	uMax      float64
	diff      *numdiff.Settings
}

// NewProblem returns the step problem for the given state. An empty obstacle set is allowed and
// makes the obstacle residual identically zero.
func NewProblem(xNow, xRef r2.Point, obstacles []spatialmath.Obstacle, uMax float64) (*Problem, error) {
	if !spatialmath.PositionIsFinite(xNow) || !spatialmath.PositionIsFinite(xRef) {
		return nil, errors.Errorf("positions must be finite, got x_now %v and x_ref %v", xNow, xRef)
	}
	if !(uMax > 0) || !utils.IsFinite(uMax) {
		return nil, newBadStepBoundError(uMax)
	}
	for i, o := range obstacles {
		if o == nil {
			return nil, errors.Errorf("obstacle %d is nil", i)
		}
	}
	return &Problem{
		xNow:      xNow,
		xRef:      xRef,
		obstacles: obstacles,
		uMax:      uMax,
		diff:      &numdiff.Settings{Step: numdiff.DefaultStep},
	}, nil
}

// Dims returns the number of decision variables and constraints.
func (p *Problem) Dims() (int, int) {
	return NumDecisionVariables, NumConstraints
}

// XNow returns the position the step starts from.
func (p *Problem) XNow() r2.Point { return p.xNow }

// XRef returns the goal.
func (p *Problem) XRef() r2.Point { return p.xRef }

// UMax returns the step bound.
func (p *Problem) UMax() float64 { return p.uMax }

// Cost returns the squared distance from u to the goal.
func (p *Problem) Cost(u []float64) (float64, error) {
	if err := utils.CheckDims("u", u, NumDecisionVariables); err != nil {
		return 0, err
	}
	return utils.Square(u[0]-p.xRef.X) + utils.Square(u[1]-p.xRef.Y), nil
}

// Gradient stores the forward difference gradient of Cost at u in grad.
func (p *Problem) Gradient(u, grad []float64) error {
	if err := utils.CheckDims("u", u, NumDecisionVariables); err != nil {
		return err
	}
	if err := utils.CheckDims("gradient", grad, NumDecisionVariables); err != nil {
		return err
	}
	return numdiff.Gradient(grad, p.Cost, u, p.diff)
}

// Constraints stores F1(u) in f1u. Entry 0 is the summed inside-ness of u over every obstacle.
// Entry 1 is how far u lies beyond the step bound from xNow. Both are zero when satisfied.
func (p *Problem) Constraints(u, f1u []float64) error {
	if err := utils.CheckDims("u", u, NumDecisionVariables); err != nil {
		return err
	}
	if err := utils.CheckDims("constraints", f1u, NumConstraints); err != nil {
		return err
	}
	pt := r2.Point{X: u[0], Y: u[1]}
	f1u[obstacleResidual] = spatialmath.TotalH(p.obstacles, pt)
	f1u[reachabilityResidual] = utils.Ramp(spatialmath.Distance(pt, p.xNow) - p.uMax)
	return nil
}

// JacobianTransposeProduct stores J_F1(u)ᵀ·d in res, where J_F1 is the forward difference
// Jacobian of Constraints. When u is outside every obstacle the obstacle row of the Jacobian is
// zeroed first, selecting the zero subgradient at the boundary kink. The reachability row is
// never masked.
func (p *Problem) JacobianTransposeProduct(u, d, res []float64) error {
	if err := utils.CheckDims("u", u, NumDecisionVariables); err != nil {
		return err
	}
	if err := utils.CheckDims("d", d, NumConstraints); err != nil {
		return err
	}
	if err := utils.CheckDims("result", res, NumDecisionVariables); err != nil {
		return err
	}

	f1u := make([]float64, NumConstraints)
	if err := p.Constraints(u, f1u); err != nil {
		return err
	}
	jac := mat.NewDense(NumConstraints, NumDecisionVariables, nil)
	settings := *p.diff
	settings.OriginValue = f1u
	if err := numdiff.Jacobian(jac, p.constraintsFunc, u, &settings); err != nil {
		return err
	}
	if f1u[obstacleResidual] == 0 {
		jac.SetRow(obstacleResidual, make([]float64, NumDecisionVariables))
	}

	var product mat.VecDense
	product.MulVec(jac.T(), mat.NewVecDense(NumConstraints, d))
	copy(res, product.RawVector().Data)
	return nil
}

// constraintsFunc adapts Constraints to the argument order of numdiff.Func.
func (p *Problem) constraintsFunc(y, x []float64) error {
	return p.Constraints(x, y)
}
