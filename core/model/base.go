// Package model は学習器の共通部品（学習状態、インターフェース、JSON成果物の読み書き）を提供します。
package model

import "github.com/YuminosukeSato/agriyield/pkg/errors"

// EstimatorState は学習状態
type EstimatorState int

const (
	NotFitted EstimatorState = iota
	Fitted
)

func (s EstimatorState) String() string {
	if s == Fitted {
		return "fitted"
	}
	return "not_fitted"
}

// BaseEstimator is embedded by the scaler, the encoder and the regressor.
// Its zero value is not fitted.
type BaseEstimator struct {
	state EstimatorState
}

func (e *BaseEstimator) IsFitted() bool        { return e.state == Fitted }
func (e *BaseEstimator) State() EstimatorState { return e.state }

// SetFitted marks the estimator fitted; Fit and artifact decoding call it last.
func (e *BaseEstimator) SetFitted() { e.state = Fitted }

// Reset forgets the fitted state.
func (e *BaseEstimator) Reset() { e.state = NotFitted }

// CheckFitted returns a NotFittedError naming estimator and method when the
// estimator has not been fitted.
func (e *BaseEstimator) CheckFitted(estimator, method string) error {
	if e.state != Fitted {
		return errors.NewNotFittedError(estimator, method)
	}
	return nil
}
