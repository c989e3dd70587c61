package model

import "github.com/YuminosukeSato/datalab/pkg/errors"

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は全てのモデルの基底となる構造体。
// 学習時に見た特徴量数も保持し、予測時の形状チェックに使う。
type BaseEstimator struct {
	state     EstimatorState
	nFeatures int
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted はモデルを学習済み状態に設定する
func (e *BaseEstimator) SetFitted(nFeatures int) {
	e.state = Fitted
	e.nFeatures = nFeatures
}

// NFeatures は学習時の特徴量数を返す（未学習なら0）
func (e *BaseEstimator) NFeatures() int {
	return e.nFeatures
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
	e.nFeatures = 0
}

// RequireFitted は未学習ならNotFittedErrorを、特徴量数が違えばDimensionErrorを返す
func (e *BaseEstimator) RequireFitted(modelName, method string, nFeatures int) error {
	if !e.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	if nFeatures != e.nFeatures {
		return errors.NewDimensionError(method, e.nFeatures, nFeatures, 1)
	}
	return nil
}
