package gp

import (
	"math"

	"github.com/patrikhermansson/mff/core"
	"gonum.org/v1/gonum/stat"
)

// Errors summarizes prediction errors on a test set. SMAE is the standard
// deviation of the absolute errors.
type Errors struct {
	MAE  float64
	SMAE float64
	RMSE float64
}

// EnergyErrors compares predicted and true energies.
func EnergyErrors(pred, truth []float64) Errors {
	n := len(truth)
	if n == 0 {
		return Errors{}
	}
	abs := make([]float64, n)
	var sq float64
	for i := range truth {
		e := pred[i] - truth[i]
		abs[i] = math.Abs(e)
		sq += e * e
	}
	mean, std := stat.PopMeanStdDev(abs, nil)
	return Errors{MAE: mean, SMAE: std, RMSE: math.Sqrt(sq / float64(n))}
}

// ForceErrors compares predicted and true forces. MAE and SMAE are taken over
// the error vector norms, RMSE over the individual components.
func ForceErrors(pred, truth []core.Vec3) Errors {
	n := len(truth)
	if n == 0 {
		return Errors{}
	}
	norms := make([]float64, n)
	var sq float64
	for i := range truth {
		e := pred[i].Sub(truth[i])
		norms[i] = e.Norm()
		sq += e[0]*e[0] + e[1]*e[1] + e[2]*e[2]
	}
	mean, std := stat.PopMeanStdDev(norms, nil)
	return Errors{MAE: mean, SMAE: std, RMSE: math.Sqrt(sq / float64(3*n))}
}

// MAEC is the mean absolute error over force components.
func MAEC(pred, truth []core.Vec3) float64 {
	if len(truth) == 0 {
		return 0
	}
	var s float64
	for i := range truth {
		for c := 0; c < 3; c++ {
			s += math.Abs(pred[i][c] - truth[i][c])
		}
	}
	return s / float64(3*len(truth))
}

// NegLogPredictive is the mean negative log predictive density of the true
// forces under independent Gaussians per component.
func NegLogPredictive(pred, std, truth []core.Vec3) float64 {
	if len(truth) == 0 {
		return 0
	}
	var s float64
	for i := range truth {
		for c := 0; c < 3; c++ {
			e := truth[i][c] - pred[i][c]
			sd := std[i][c]
			s += e*e/(2*sd*sd) + math.Log(sd) + 0.5*math.Log(2*math.Pi)
		}
	}
	return s / float64(3*len(truth))
}
