package preprocessing

import (
	"encoding/json"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/agriyield/core/model"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

// OneHotEncoder はカテゴリ列を0/1の指標列に展開する
//
// 学習時に見なかったカテゴリはすべて0の行になる（handle_unknown="ignore"相当）。
type OneHotEncoder struct {
	model.BaseEstimator

	// Categories は列ごとのカテゴリ（昇順）
	Categories [][]string

	index []map[string]int
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

// Fit は列ごとのカテゴリ集合を学習する。Xは n_samples × n_columns の文字列表
func (e *OneHotEncoder) Fit(X [][]string) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	c := len(X[0])
	sets := make([]map[string]struct{}, c)
	for j := range sets {
		sets[j] = make(map[string]struct{})
	}
	for i, row := range X {
		if len(row) != c {
			return errors.NewDimensionError(fmt.Sprintf("OneHotEncoder.Fit row %d", i), c, len(row), 1)
		}
		for j, v := range row {
			sets[j][v] = struct{}{}
		}
	}

	e.Categories = make([][]string, c)
	for j, set := range sets {
		cats := make([]string, 0, len(set))
		for v := range set {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.Categories[j] = cats
	}
	e.buildIndex()
	e.SetFitted()
	return nil
}

func (e *OneHotEncoder) buildIndex() {
	e.index = make([]map[string]int, len(e.Categories))
	for j, cats := range e.Categories {
		m := make(map[string]int, len(cats))
		for k, v := range cats {
			m[v] = k
		}
		e.index[j] = m
	}
}

// NOutputs は出力列数（全カテゴリ数の合計）を返す
func (e *OneHotEncoder) NOutputs() int {
	n := 0
	for _, cats := range e.Categories {
		n += len(cats)
	}
	return n
}

// Transform はXを指標行列に変換する
func (e *OneHotEncoder) Transform(X [][]string) (*mat.Dense, error) {
	if err := e.CheckFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}

	out := mat.NewDense(len(X), e.NOutputs(), nil)
	for i, row := range X {
		if len(row) != len(e.Categories) {
			return nil, errors.NewDimensionError("OneHotEncoder.Transform", len(e.Categories), len(row), 1)
		}
		offset := 0
		for j, v := range row {
			if k, ok := e.index[j][v]; ok {
				out.Set(i, offset+k, 1)
			}
			offset += len(e.Categories[j])
		}
	}
	return out, nil
}

// FitTransform は学習と変換を続けて行う
func (e *OneHotEncoder) FitTransform(X [][]string) (*mat.Dense, error) {
	if err := e.Fit(X); err != nil {
		return nil, err
	}
	return e.Transform(X)
}

// Known reports whether value was seen for column j during Fit.
func (e *OneHotEncoder) Known(j int, value string) bool {
	if j < 0 || j >= len(e.index) {
		return false
	}
	_, ok := e.index[j][value]
	return ok
}

// OutputNames returns "<column>_<category>" for every output column.
func (e *OneHotEncoder) OutputNames(columns []string) []string {
	out := make([]string, 0, e.NOutputs())
	for j, cats := range e.Categories {
		name := fmt.Sprintf("x%d", j)
		if j < len(columns) {
			name = columns[j]
		}
		for _, v := range cats {
			out = append(out, name+"_"+v)
		}
	}
	return out
}

type encoderParams struct {
	Categories [][]string `json:"categories"`
}

// Params implements model.Persistable.
func (e *OneHotEncoder) Params() (interface{}, error) {
	if err := e.CheckFitted("OneHotEncoder", "Params"); err != nil {
		return nil, err
	}
	return encoderParams{Categories: e.Categories}, nil
}

// SetParams implements model.Persistable.
func (e *OneHotEncoder) SetParams(raw []byte) error {
	var p encoderParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.NewModelError("OneHotEncoder.SetParams", "invalid params", err)
	}
	if len(p.Categories) == 0 {
		return errors.NewModelError("OneHotEncoder.SetParams", "no categories", errors.ErrEmptyData)
	}
	e.Categories = p.Categories
	e.buildIndex()
	e.SetFitted()
	return nil
}
