package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer computes the coefficient of determination R² of the predictions.
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// Regressor is a fitted-then-used regression model.
type Regressor interface {
	Fitter
	Predictor
	Scorer
	IsFitted() bool
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Persistable is implemented by components that are stored inside a model
// artifact. Params must return a JSON-encodable value and SetParams must
// accept what Params produced, leaving the component fitted.
type Persistable interface {
	Params() (interface{}, error)
	SetParams(raw []byte) error
}
