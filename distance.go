package cottontail

import (
	"fmt"
	"math"
)

// DistanceKernel computes a scalar distance/similarity between two equal-
// length real or complex vectors (§4.3). Cost returns an approximate
// per-call operation count used by the planner's cost model to choose
// between a combined scan-kNN stage and a two-stage plan (§11).
//
// WeightedDistance is the "(a, b, weights) -> double" form of the kernel
// (§4.3): weight is applied per-dimension before the per-term values are
// combined. A nil or short weight vector is treated as 1 for the missing
// dimensions, so WeightedDistance(a, b, nil) must equal Distance(a, b).
// The complex-vector paths of cosine and inner product do not apply
// weight: they return the unweighted distance.
type DistanceKernel interface {
	Name() string
	Distance(a, b Value) (float64, error)
	WeightedDistance(a, b Value, weight []float64) (float64, error)
	Cost(dimensions int) float64
}

// weightAt returns weight[i], or 1 when weight is nil or too short — the
// "unweighted" default for any dimension the caller didn't weight.
func weightAt(weight []float64, i int) float64 {
	if i < len(weight) {
		return weight[i]
	}
	return 1
}

// NewDistanceKernel resolves the kernel named by the query's kNN predicate.
// Unknown names yield a BindError, since kernel selection happens at bind
// time, before any scan runs.
func NewDistanceKernel(name string) (DistanceKernel, error) {
	switch name {
	case "L1", "manhattan":
		return l1Kernel{}, nil
	case "L2", "euclidean":
		return l2Kernel{}, nil
	case "cosine":
		return cosineKernel{}, nil
	case "inner_product", "dot":
		return innerProductKernel{}, nil
	case "hamming":
		return hammingKernel{}, nil
	case "chi_squared":
		return chiSquaredKernel{}, nil
	case "Lp":
		return nil, NewBindError(CodeMalformedPredicate, "Lp kernel requires an explicit exponent; set the kNN request's exponent field")
	default:
		if len(name) > 2 && name[:2] == "Lp" {
			return nil, NewBindError(CodeMalformedPredicate, fmt.Sprintf("Lp kernel requires an explicit exponent, e.g. Lp(3); got %q", name))
		}
		return nil, NewBindError(CodeMalformedPredicate, fmt.Sprintf("unknown distance kernel %q", name))
	}
}

// NewLpKernel builds a generalized Minkowski-distance kernel for exponent p
// (p > 0). L1 and L2 are the p=1 and p=2 special cases but are offered as
// dedicated kernels above because they avoid the pow() calls in the
// general case (§4.3 "kernels MUST be selectable by name").
func NewLpKernel(p float64) (DistanceKernel, error) {
	if p <= 0 {
		return nil, NewBindError(CodeMalformedPredicate, "Lp exponent must be positive")
	}
	return lpKernel{p: p}, nil
}

func realVectors(a, b Value) ([]float64, []float64, error) {
	if a.LogicalSize() != b.LogicalSize() {
		return nil, nil, NewSizeError(fmt.Sprintf("vector size mismatch: %d vs %d", a.LogicalSize(), b.LogicalSize()))
	}
	fa, err := a.AsFloat64Vector()
	if err != nil {
		return nil, nil, err
	}
	fb, err := b.AsFloat64Vector()
	if err != nil {
		return nil, nil, err
	}
	return fa, fb, nil
}

type l1Kernel struct{}

func (l1Kernel) Name() string       { return "L1" }
func (l1Kernel) Cost(d int) float64 { return float64(d) }
func (l1Kernel) Distance(a, b Value) (float64, error) {
	return l1Kernel{}.WeightedDistance(a, b, nil)
}
func (l1Kernel) WeightedDistance(a, b Value, weight []float64) (float64, error) {
	fa, fb, err := realVectors(a, b)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range fa {
		sum += weightAt(weight, i) * math.Abs(fa[i]-fb[i])
	}
	return sum, nil
}

type l2Kernel struct{}

func (l2Kernel) Name() string       { return "L2" }
func (l2Kernel) Cost(d int) float64 { return float64(d) }
func (l2Kernel) Distance(a, b Value) (float64, error) {
	return l2Kernel{}.WeightedDistance(a, b, nil)
}
func (l2Kernel) WeightedDistance(a, b Value, weight []float64) (float64, error) {
	fa, fb, err := realVectors(a, b)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range fa {
		diff := fa[i] - fb[i]
		sum += weightAt(weight, i) * diff * diff
	}
	return math.Sqrt(sum), nil
}

type lpKernel struct{ p float64 }

func (k lpKernel) Name() string       { return fmt.Sprintf("Lp(%g)", k.p) }
func (k lpKernel) Cost(d int) float64 { return float64(d) * 3 } // pow() per element
func (k lpKernel) Distance(a, b Value) (float64, error) {
	return k.WeightedDistance(a, b, nil)
}
func (k lpKernel) WeightedDistance(a, b Value, weight []float64) (float64, error) {
	fa, fb, err := realVectors(a, b)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range fa {
		sum += weightAt(weight, i) * math.Pow(math.Abs(fa[i]-fb[i]), k.p)
	}
	return math.Pow(sum, 1/k.p), nil
}

// cosineKernel returns the cosine *distance* (1 - cosine similarity) so
// that, like every other kernel, smaller is more similar (§4.3).
type cosineKernel struct{}

func (cosineKernel) Name() string       { return "cosine" }
func (cosineKernel) Cost(d int) float64 { return float64(d) * 2 }
func (cosineKernel) Distance(a, b Value) (float64, error) {
	return cosineKernel{}.WeightedDistance(a, b, nil)
}
func (cosineKernel) WeightedDistance(a, b Value, weight []float64) (float64, error) {
	if a.typ.IsComplex() || b.typ.IsComplex() {
		ca, err := a.AsComplex128Vector()
		if err != nil {
			return 0, err
		}
		cb, err := b.AsComplex128Vector()
		if err != nil {
			return 0, err
		}
		if len(ca) != len(cb) {
			return 0, NewSizeError(fmt.Sprintf("vector size mismatch: %d vs %d", len(ca), len(cb)))
		}
		dot := hermitianDot(ca, cb)
		na, _ := a.Norm2()
		nb, _ := b.Norm2()
		if na == 0 || nb == 0 {
			return 1, nil
		}
		return 1 - real(dot)/(na*nb), nil
	}
	fa, fb, err := realVectors(a, b)
	if err != nil {
		return 0, err
	}
	var dot, na, nb float64
	for i := range fa {
		w := weightAt(weight, i)
		dot += w * fa[i] * fb[i]
		na += w * fa[i] * fa[i]
		nb += w * fb[i] * fb[i]
	}
	if na == 0 || nb == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}

// innerProductKernel returns the negated dot product so that smaller means
// more similar, consistent with every other kernel (§4.3).
type innerProductKernel struct{}

func (innerProductKernel) Name() string       { return "inner_product" }
func (innerProductKernel) Cost(d int) float64 { return float64(d) }
func (innerProductKernel) Distance(a, b Value) (float64, error) {
	return innerProductKernel{}.WeightedDistance(a, b, nil)
}
func (innerProductKernel) WeightedDistance(a, b Value, weight []float64) (float64, error) {
	if a.typ.IsComplex() || b.typ.IsComplex() {
		ca, err := a.AsComplex128Vector()
		if err != nil {
			return 0, err
		}
		cb, err := b.AsComplex128Vector()
		if err != nil {
			return 0, err
		}
		if len(ca) != len(cb) {
			return 0, NewSizeError(fmt.Sprintf("vector size mismatch: %d vs %d", len(ca), len(cb)))
		}
		return -real(hermitianDot(ca, cb)), nil
	}
	fa, fb, err := realVectors(a, b)
	if err != nil {
		return 0, err
	}
	var dot float64
	for i := range fa {
		dot += weightAt(weight, i) * fa[i] * fb[i]
	}
	return -dot, nil
}

// hermitianDot computes sum(a[i] * conj(b[i])), the conjugate-linear
// inner product used for complex vectors (§3 "Hermitian dot product").
func hermitianDot(a, b []complex128) complex128 {
	var sum complex128
	for i := range a {
		sum += a[i] * complex(real(b[i]), -imag(b[i]))
	}
	return sum
}

type hammingKernel struct{}

func (hammingKernel) Name() string       { return "hamming" }
func (hammingKernel) Cost(d int) float64 { return float64(d) }
func (hammingKernel) Distance(a, b Value) (float64, error) {
	return hammingKernel{}.WeightedDistance(a, b, nil)
}
func (hammingKernel) WeightedDistance(a, b Value, weight []float64) (float64, error) {
	if a.typ == TypeBooleanVector && b.typ == TypeBooleanVector {
		if a.LogicalSize() != b.LogicalSize() {
			return 0, NewSizeError(fmt.Sprintf("vector size mismatch: %d vs %d", a.LogicalSize(), b.LogicalSize()))
		}
		var diff float64
		for i := range a.bv {
			if a.bv[i] != b.bv[i] {
				diff += weightAt(weight, i)
			}
		}
		return diff, nil
	}
	fa, fb, err := realVectors(a, b)
	if err != nil {
		return 0, err
	}
	var diff float64
	for i := range fa {
		if fa[i] != fb[i] {
			diff += weightAt(weight, i)
		}
	}
	return diff, nil
}

type chiSquaredKernel struct{}

func (chiSquaredKernel) Name() string       { return "chi_squared" }
func (chiSquaredKernel) Cost(d int) float64 { return float64(d) * 2 }
func (chiSquaredKernel) Distance(a, b Value) (float64, error) {
	return chiSquaredKernel{}.WeightedDistance(a, b, nil)
}

// WeightedDistance implements §4.3's "when weights is supplied, multiply
// each term by w_i" for chi-squared explicitly.
func (chiSquaredKernel) WeightedDistance(a, b Value, weight []float64) (float64, error) {
	fa, fb, err := realVectors(a, b)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range fa {
		denom := fa[i] + fb[i]
		if denom == 0 {
			continue
		}
		diff := fa[i] - fb[i]
		sum += weightAt(weight, i) * (diff * diff) / denom
	}
	return sum, nil
}
