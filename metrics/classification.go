// Package metrics は分類モデルの評価指標を提供する
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mycogo/pkg/errors"
)

// logLossEpsilon は log(0) を避けるための確率のクリップ幅
const logLossEpsilon = 1e-15

// validateVectors は2つのベクトルの存在と長さを検証する
func validateVectors(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// validateBinaryLabels はラベルが0/1のみであることを検証する
func validateBinaryLabels(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		v := y.AtVec(i)
		if v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
	}
	return nil
}

// Accuracy は正解率（正しく分類されたサンプルの割合）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validateVectors("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - Accuracy）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "ClassificationError")
	}
	return 1 - acc, nil
}

// Precision は陽性クラス（ラベル1）の適合率 TP/(TP+FP) を計算する
//
// 陽性の予測が一つもない場合は0を返し、UndefinedMetricWarningが発生する
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validateVectors("Precision", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := validateBinaryLabels("Precision", yTrue); err != nil {
		return 0, err
	}
	if err := validateBinaryLabels("Precision", yPred); err != nil {
		return 0, err
	}

	tp, fp := 0, 0
	for i := 0; i < n; i++ {
		if yPred.AtVec(i) == 1 {
			if yTrue.AtVec(i) == 1 {
				tp++
			} else {
				fp++
			}
		}
	}
	if tp+fp == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted positives", 0))
		return 0, nil
	}
	return float64(tp) / float64(tp+fp), nil
}

// Recall は陽性クラス（ラベル1）の再現率 TP/(TP+FN) を計算する
//
// 陽性のラベルが一つもない場合は0を返し、UndefinedMetricWarningが発生する
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validateVectors("Recall", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := validateBinaryLabels("Recall", yTrue); err != nil {
		return 0, err
	}
	if err := validateBinaryLabels("Recall", yPred); err != nil {
		return 0, err
	}

	tp, fn := 0, 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			if yPred.AtVec(i) == 1 {
				tp++
			} else {
				fn++
			}
		}
	}
	if tp+fn == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true positives in labels", 0))
		return 0, nil
	}
	return float64(tp) / float64(tp+fn), nil
}

// F1Score は適合率と再現率の調和平均を計算する
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	p, err := Precision(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "F1Score")
	}
	r, err := Recall(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "F1Score")
	}
	if p+r == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("f1_score", "precision and recall are both zero", 0))
		return 0, nil
	}
	return 2 * p * r / (p + r), nil
}

// ConfusionMatrix は混同行列を計算する
//
// 行が真のラベル、列が予測ラベルに対応する。ラベルは両ベクトルに
// 出現する値の昇順ソートで、行列と同じ順序で返される
//
// 戻り値:
//   - *mat.Dense: len(labels) × len(labels) のカウント行列
//   - []float64: 行列の行・列に対応するラベル（昇順）
//   - error: 入力が不正な場合
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (*mat.Dense, []float64, error) {
	n, err := validateVectors("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[float64]struct{})
	for i := 0; i < n; i++ {
		seen[yTrue.AtVec(i)] = struct{}{}
		seen[yPred.AtVec(i)] = struct{}{}
	}
	labels := make([]float64, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	pos := make(map[float64]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	k := len(labels)
	cm := mat.NewDense(k, k, nil)
	for i := 0; i < n; i++ {
		r := pos[yTrue.AtVec(i)]
		c := pos[yPred.AtVec(i)]
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm, labels, nil
}

// BinaryLogLoss は二値分類の交差エントロピー損失を計算する
//
// 予測確率は log(0) を避けるため [eps, 1-eps] にクリップされる
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validateVectors("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := validateBinaryLabels("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEpsilon, 1-logLossEpsilon)
		y := yTrue.AtVec(i)
		sum += y*math.Log(p) + (1-y)*math.Log(1-p)
	}
	return -sum / float64(n), nil
}

// AUC はROC曲線の下面積（Area Under the Curve）を計算する
//
// 同順位はMann-Whitney U統計量に従い平均ランクで扱う。ラベルが片方の
// クラスしか含まない場合は0.5を返し、UndefinedMetricWarningが発生する
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validateVectors("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := validateBinaryLabels("AUC", yTrue); err != nil {
		return 0, err
	}

	nPos, nNeg := 0, 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in labels", 0.5))
		return 0.5, nil
	}

	// 予測値の昇順にランク付けし、同順位には平均ランクを与える
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b])
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && yPred.AtVec(idx[j]) == yPred.AtVec(idx[i]) {
			j++
		}
		// i..j-1 が同順位グループ（ランクは1始まり）
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	var rankSumPos float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			rankSumPos += ranks[i]
		}
	}
	u := rankSumPos - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する
//
// 複数列の行列が渡された場合は先頭列のみを使用する
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, _ := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	if rTrue != rPred {
		return 0, errors.NewDimensionError("AUCMatrix", rTrue, rPred, 0)
	}

	yTrueVec := mat.NewVecDense(rTrue, nil)
	yPredVec := mat.NewVecDense(rTrue, nil)
	for i := 0; i < rTrue; i++ {
		yTrueVec.SetVec(i, yTrue.At(i, 0))
		yPredVec.SetVec(i, yPred.At(i, 0))
	}
	return AUC(yTrueVec, yPredVec)
}
