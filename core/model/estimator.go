package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。教師なしモデルはyを無視する
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う（n×1の列ベクトル）
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は学習と予測の両方を行うモデル
type Estimator interface {
	Fitter
	Predictor
}

// FeatureImporter は特徴量重要度を報告できるモデル
type FeatureImporter interface {
	// FeatureImportances は特徴量ごとの非負の重要度を返す
	FeatureImportances() []float64
}

// LinearModel は線形モデルのインターフェース
type LinearModel interface {
	// Weights は学習された重み（係数）を返す
	Weights() []float64
	// Intercept は学習された切片を返す
	Intercept() float64
}

// Transformer は列データ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
