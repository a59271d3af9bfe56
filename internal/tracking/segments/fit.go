package segments

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
)

// FitCircle fits a generalized circle through the points with the Riemann
// method: the points are lifted onto the paraboloid z = x*x + y*y and the
// plane of least squared distance is the circle. The trajectory is
// oriented along the point order. chi2 is the sum of squared distances.
// The fit needs at least three points.
func FitCircle(points []geometry.Vector2D) (geometry.Trajectory2D, float64, bool) {
	n := len(points)
	if n < 3 {
		return geometry.Trajectory2D{}, 0, false
	}

	data := mat.NewDense(n, 3, nil)
	for i, p := range points {
		data.Set(i, 0, p.X)
		data.Set(i, 1, p.Y)
		data.Set(i, 2, p.NormSquared())
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, true) {
		return geometry.Trajectory2D{}, 0, false
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// Eigenvalues come in ascending order; the plane normal is the first.
	n1, n2, n3 := vecs.At(0, 0), vecs.At(1, 0), vecs.At(2, 0)

	means := make([]float64, 3)
	for j := range means {
		means[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}
	n0 := -floats.Dot([]float64{n1, n2, n3}, means)

	traj, ok := geometry.NewTrajectory(n0, n1, n2, n3)
	if !ok {
		return geometry.Trajectory2D{}, 0, false
	}

	// Orient along the point order.
	var along float64
	for i := 0; i+1 < n; i++ {
		along += traj.Direction(points[i]).Dot(points[i+1].Sub(points[i]))
	}
	if along < 0 {
		traj = traj.Reversed()
	}

	dists := make([]float64, n)
	for i, p := range points {
		dists[i] = traj.Distance(p)
	}
	return traj, floats.Dot(dists, dists), true
}
