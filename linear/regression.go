// Package linear は正規方程式による線形回帰（任意のL2正則化付き）を提供します。
// 収量モデルの最終段として使われます。
package linear

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/agriyield/core/model"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

// LinearRegression は線形回帰モデル
type LinearRegression struct {
	model.BaseEstimator // BaseEstimatorを埋め込み

	Weights   *mat.VecDense // 重み（係数）
	Intercept float64       // 切片
	NFeatures int           // 特徴量の数

	alpha        float64
	fitIntercept bool
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{fitIntercept: true}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Alpha returns the L2 penalty.
func (lr *LinearRegression) Alpha() float64 { return lr.alpha }

// Fit はモデルを訓練データで学習させる
// 正規方程式 w = (X^T X + αI)^(-1) X^T y を使用（切片は正則化しない）
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	// 入力の検証
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}
	if lr.alpha < 0 || math.IsNaN(lr.alpha) {
		return errors.NewValidationError("alpha", "must be non-negative", lr.alpha)
	}

	// 切片項のために X に 1 の列を追加
	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	design := mat.NewDense(r, c+offset, nil)
	for i := 0; i < r; i++ {
		if lr.fitIntercept {
			design.Set(i, 0, 1.0)
		}
		for j := 0; j < c; j++ {
			design.Set(i, j+offset, X.At(i, j))
		}
	}

	var XTX mat.Dense
	XTX.Mul(design.T(), design)
	for j := offset; j < c+offset; j++ {
		XTX.Set(j, j, XTX.At(j, j)+lr.alpha)
	}

	yVec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		yVec.SetVec(i, y.At(i, 0))
	}
	var XTy mat.VecDense
	XTy.MulVec(design.T(), yVec)

	// 連立方程式を解く
	var weights mat.VecDense
	if err := weights.SolveVec(&XTX, &XTy); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}
	if err := errors.CheckFinite("LinearRegression.Fit", weights.RawVector().Data); err != nil {
		return err
	}

	lr.NFeatures = c
	lr.Intercept = 0
	if lr.fitIntercept {
		lr.Intercept = weights.AtVec(0)
	}
	lr.Weights = mat.NewVecDense(c, nil)
	for i := 0; i < c; i++ {
		lr.Weights.SetVec(i, weights.AtVec(i+offset))
	}

	lr.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.CheckFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	// 予測: y = X * weights + intercept
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.Weights.AtVec(j)
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// GetWeights は学習された重み（係数）を返す
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}
	weights := make([]float64, lr.Weights.Len())
	for i := range weights {
		weights[i] = lr.Weights.AtVec(i)
	}
	return weights
}

// GetIntercept は学習された切片を返す
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	if err := lr.CheckFitted("LinearRegression", "Score"); err != nil {
		return 0, err
	}

	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	// 全変動 (TSS) と残差変動 (RSS)
	var tss, rss float64
	for i := 0; i < r; i++ {
		yTrue := y.At(i, 0)
		d := yTrue - yPred.At(i, 0)
		tss += (yTrue - yMean) * (yTrue - yMean)
		rss += d * d
	}
	if tss == 0 {
		return 0, errors.Newf("total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}

// regressionParams は成果物に保存されるパラメータ
type regressionParams struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	NFeatures    int       `json:"n_features"`
	Alpha        float64   `json:"alpha"`
	FitIntercept bool      `json:"fit_intercept"`
}

// Params implements model.Persistable.
func (lr *LinearRegression) Params() (interface{}, error) {
	if err := lr.CheckFitted("LinearRegression", "Params"); err != nil {
		return nil, err
	}
	return regressionParams{
		Coefficients: lr.GetWeights(),
		Intercept:    lr.Intercept,
		NFeatures:    lr.NFeatures,
		Alpha:        lr.alpha,
		FitIntercept: lr.fitIntercept,
	}, nil
}

// SetParams implements model.Persistable.
func (lr *LinearRegression) SetParams(raw []byte) error {
	var p regressionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.NewModelError("LinearRegression.SetParams", "invalid params", err)
	}
	if p.NFeatures <= 0 || len(p.Coefficients) != p.NFeatures {
		return errors.NewDimensionError("LinearRegression.SetParams", p.NFeatures, len(p.Coefficients), 1)
	}
	if err := errors.CheckFinite("LinearRegression.SetParams", append([]float64{p.Intercept}, p.Coefficients...)); err != nil {
		return err
	}
	lr.Weights = mat.NewVecDense(p.NFeatures, append([]float64(nil), p.Coefficients...))
	lr.Intercept = p.Intercept
	lr.NFeatures = p.NFeatures
	lr.alpha = p.Alpha
	lr.fitIntercept = p.FitIntercept
	lr.SetFitted()
	return nil
}
