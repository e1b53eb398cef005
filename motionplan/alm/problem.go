package alm

// Problem is a constrained minimisation problem
//
//	minimise f(u) subject to u ∈ U and F1(u) ∈ C
//
// exposed through its cost, gradient, constraint mapping and the transposed Jacobian product of
// the constraint mapping. Every method receives caller owned buffers whose lengths follow Dims.
type Problem interface {
	// Dims returns the number of decision variables n and the number of constraints n1.
	Dims() (n, n1 int)
	Cost(u []float64) (float64, error)
	// Gradient stores ∇f(u) in grad.
	Gradient(u, grad []float64) error
	// Constraints stores F1(u) in f1u.
	Constraints(u, f1u []float64) error
	// JacobianTransposeProduct stores J_F1(u)ᵀ·d in res.
	JacobianTransposeProduct(u, d, res []float64) error
}
