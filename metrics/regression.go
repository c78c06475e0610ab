// Package metrics は回帰モデルの評価指標を提供します。
//
// 学習データ上の当てはまりを成果物に残すためのもので、入力は同じ長さの
// 実測値と予測値のスライスです。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

func checkPair(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// MSE は平均二乗誤差
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(len(yTrue)), nil
}

// RMSE is the square root of MSE, in the unit of the target (t/ha).
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	return floats.Distance(yTrue, yPred, 1) / float64(len(yTrue)), nil
}

// R2Score is the coefficient of determination. A target without variance
// has no R²; that case is an error.
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}
	if len(yTrue) < 2 || stat.Variance(yTrue, nil) == 0 {
		return 0, errors.NewValueError("R2Score", "no variance in yTrue")
	}
	return stat.RSquaredFrom(yPred, yTrue, nil), nil
}

// Report groups the regression metrics logged after training.
type Report struct {
	N    int     `json:"n"`
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// Evaluate computes every metric of Report. R2 is NaN, with an
// UndefinedMetricWarning, when yTrue has no variance.
func Evaluate(yTrue, yPred []float64) (Report, error) {
	if err := checkPair("Evaluate", yTrue, yPred); err != nil {
		return Report{}, err
	}
	if err := errors.CheckFinite("Evaluate", yPred); err != nil {
		return Report{}, err
	}

	rep := Report{N: len(yTrue)}
	rep.MSE, _ = MSE(yTrue, yPred)
	rep.RMSE = math.Sqrt(rep.MSE)
	rep.MAE, _ = MAE(yTrue, yPred)

	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		r2 = math.NaN()
		errors.Warn(errors.NewUndefinedMetricWarning("r2_score", "no variance in yTrue", r2))
	}
	rep.R2 = r2
	return rep, nil
}
