package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mycogo/core/model"
	"github.com/YuminosukeSato/mycogo/dataset"
	"github.com/YuminosukeSato/mycogo/pkg/errors"
)

// OneHotEncoder はカテゴリカル列をone-hotベクトルに変換するエンコーダー
// 各列の語彙はFit時に学習され、ソート順で固定される
//
// 学習時に観測されなかったカテゴリ値はその列のブロックが全て0になる
// （エラーにはならず、EncodingWarningが発生する）
//
// 全フィールドはgobエンコードのために公開されている
type OneHotEncoder struct {
	State *model.StateManager

	// Columns はエンコード対象のカテゴリカル列名（Fit時の順序で固定）
	Columns []string

	// Categories は列ごとの学習済み語彙（ソート済み）
	Categories map[string][]string

	// Offsets は各列のone-hotブロックの開始位置
	Offsets []int

	// Width はエンコード後の総次元数（全ブロック幅の合計）
	Width int
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewOneHotEncoder()
//	err := enc.Fit(table, []string{"cap-shape", "habitat"})
//	X, err := enc.Transform(table)
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{State: model.NewStateManager()}
}

// Fit は訓練データから各カテゴリカル列の語彙を学習する
//
// 語彙は列の欠損でない値の重複を除いたソート済みリストとして固定され、
// 以降のTransform/EncodeRowで再導出されることはない
//
// パラメータ:
//   - t: 訓練データのテーブル
//   - columns: エンコード対象の列名（この順序がブロック順になる）
//
// 戻り値:
//   - error: 列が存在しない、またはカテゴリカルでない場合
func (e *OneHotEncoder) Fit(t *dataset.Table, columns []string) error {
	if len(columns) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "no columns to encode", errors.ErrEmptyData)
	}

	cols := make([]string, len(columns))
	copy(cols, columns)
	cats := make(map[string][]string, len(cols))
	offsets := make([]int, len(cols))
	width := 0

	for i, name := range cols {
		vocab, err := t.DistinctSorted(name)
		if err != nil {
			return errors.Wrapf(err, "OneHotEncoder.Fit: column %q", name)
		}
		cats[name] = vocab
		offsets[i] = width
		// 単一カテゴリの列は幅1のブロックになる（正常）
		width += len(vocab)
	}

	e.Columns = cols
	e.Categories = cats
	e.Offsets = offsets
	e.Width = width
	if e.State == nil {
		e.State = model.NewStateManager()
	}
	e.State.SetDimensions(width, t.NumRows())
	e.State.SetFitted()
	return nil
}

// IsFitted は語彙が学習済みかどうかを返す
func (e *OneHotEncoder) IsFitted() bool {
	return e.State != nil && e.State.IsFitted()
}

// Transform は学習済みの語彙を使ってテーブルをone-hot行列に変換する
//
// 未知のカテゴリ値は全0ブロックにエンコードされ、(列, 値)の組ごとに
// 一度だけEncodingWarningが発生する
//
// パラメータ:
//   - t: 変換するテーブル（Fit時の全列を含むこと）
//
// 戻り値:
//   - *mat.Dense: n_samples × Width のone-hot行列
//   - error: 未学習、または列が欠けている場合
func (e *OneHotEncoder) Transform(t *dataset.Table) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}

	colValues := make([][]string, len(e.Columns))
	for i, name := range e.Columns {
		vals, err := t.Strings(name)
		if err != nil {
			return nil, errors.Wrapf(err, "OneHotEncoder.Transform: column %q", name)
		}
		colValues[i] = vals
	}

	n := t.NumRows()
	result := mat.NewDense(n, e.Width, nil)
	warned := make(map[string]struct{})
	row := make([]string, len(e.Columns))
	for i := 0; i < n; i++ {
		for j := range e.Columns {
			row[j] = colValues[j][i]
		}
		vec, unseen := e.encodeRow(row)
		result.SetRow(i, vec)
		for _, w := range unseen {
			key := w.Column + "\x00" + w.Value
			if _, ok := warned[key]; ok {
				continue
			}
			warned[key] = struct{}{}
			errors.Warn(w)
		}
	}
	return result, nil
}

// FitTransform は語彙を学習し、同じテーブルを変換する
func (e *OneHotEncoder) FitTransform(t *dataset.Table, columns []string) (*mat.Dense, error) {
	if err := e.Fit(t, columns); err != nil {
		return nil, err
	}
	return e.Transform(t)
}

// EncodeRow は1行分のカテゴリ値をone-hotベクトルに変換する
//
// 推論経路で使用される。valuesはColumnsと同じ順序・同じ長さであること
//
// パラメータ:
//   - values: 各エンコード対象列の生のカテゴリ値
//
// 戻り値:
//   - []float64: 長さWidthのone-hotベクトル
//   - []*errors.EncodingWarning: 未知カテゴリの一覧（呼び出し側がログする）
//   - error: 未学習、または長さが不一致の場合
func (e *OneHotEncoder) EncodeRow(values []string) ([]float64, []*errors.EncodingWarning, error) {
	if !e.IsFitted() {
		return nil, nil, errors.NewNotFittedError("OneHotEncoder", "EncodeRow")
	}
	if len(values) != len(e.Columns) {
		return nil, nil, errors.NewDimensionError("OneHotEncoder.EncodeRow", len(e.Columns), len(values), 1)
	}
	vec, unseen := e.encodeRow(values)
	return vec, unseen, nil
}

// encodeRow は検証済みの1行をエンコードする内部実装
func (e *OneHotEncoder) encodeRow(values []string) ([]float64, []*errors.EncodingWarning) {
	vec := make([]float64, e.Width)
	var unseen []*errors.EncodingWarning
	for j, name := range e.Columns {
		vocab := e.Categories[name]
		v := values[j]
		// 語彙はソート済みなので二分探索で位置を引く
		pos := sort.SearchStrings(vocab, v)
		if pos < len(vocab) && vocab[pos] == v {
			vec[e.Offsets[j]+pos] = 1
		} else {
			unseen = append(unseen, errors.NewEncodingWarning(name, v))
		}
	}
	return vec, unseen
}

// FeatureNames はエンコード後の各次元の名前を "列名_カテゴリ値" 形式で返す
//
// 戻り値の長さはWidthと一致する
func (e *OneHotEncoder) FeatureNames() ([]string, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "FeatureNames")
	}
	names := make([]string, 0, e.Width)
	for _, name := range e.Columns {
		for _, v := range e.Categories[name] {
			names = append(names, name+"_"+v)
		}
	}
	return names, nil
}

// GetParams はエンコーダーのパラメータを取得する
func (e *OneHotEncoder) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"columns": e.Columns,
	}
}

// String はエンコーダーの文字列表現を返す
func (e *OneHotEncoder) String() string {
	if !e.IsFitted() {
		return "OneHotEncoder()"
	}
	return fmt.Sprintf("OneHotEncoder(n_columns=%d, width=%d)", len(e.Columns), e.Width)
}
