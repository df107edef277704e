package common

import (
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/turtacn/ChemScreen/pkg/errors"
)

// ---------------------------------------------------------------------------
// Confusion matrix
// ---------------------------------------------------------------------------

// ConfusionMatrix tallies binary predictions against truth.  The positive
// event is LabelPositive, the screened class.
type ConfusionMatrix struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Total returns the number of scored samples.
func (c *ConfusionMatrix) Total() int { return c.TP + c.FP + c.TN + c.FN }

// Accuracy is the fraction of correct predictions.
func (c *ConfusionMatrix) Accuracy() float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(c.TP+c.TN) / float64(c.Total())
}

// Precision is TP / (TP + FP); zero when nothing was predicted positive.
func (c *ConfusionMatrix) Precision() float64 {
	if c.TP+c.FP == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall is TP / (TP + FN); zero when no positives exist.
func (c *ConfusionMatrix) Recall() float64 {
	if c.TP+c.FN == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// Specificity is TN / (TN + FP); zero when no negatives exist.
func (c *ConfusionMatrix) Specificity() float64 {
	if c.TN+c.FP == 0 {
		return 0
	}
	return float64(c.TN) / float64(c.TN+c.FP)
}

// F1 is the harmonic mean of precision and recall.
func (c *ConfusionMatrix) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// ---------------------------------------------------------------------------
// ROC
// ---------------------------------------------------------------------------

// ROCPoint is one point on the receiver operating characteristic curve.
type ROCPoint struct {
	FPR       float64 `json:"fpr"`
	TPR       float64 `json:"tpr"`
	Threshold float64 `json:"threshold"`
}

// ---------------------------------------------------------------------------
// Report
// ---------------------------------------------------------------------------

// Report is the evaluation outcome for one trained model on one hold-out set.
type Report struct {
	Model     string          `json:"model"`
	Confusion ConfusionMatrix `json:"confusion"`
	Accuracy  float64         `json:"accuracy"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1"`
	ROC       []ROCPoint      `json:"roc"`
	AUC       float64         `json:"auc"`
}

// Evaluate scores predictions and decision scores against the true labels.
// Scores must rank samples by evidence for LabelPositive: a higher score
// means the model considers the sample more likely to belong to the screened
// class.
func Evaluate(model string, truth, predicted []int, scores []float64) (*Report, error) {
	n := len(truth)
	if n == 0 {
		return nil, errors.New(errors.ErrCodeEvaluationFailed, "no samples to evaluate")
	}
	if len(predicted) != n || len(scores) != n {
		return nil, errors.Newf(errors.ErrCodeEvaluationFailed,
			"mismatched lengths: %d truth, %d predictions, %d scores", n, len(predicted), len(scores))
	}

	report := &Report{Model: model}
	for i := 0; i < n; i++ {
		switch {
		case truth[i] == LabelPositive && predicted[i] == LabelPositive:
			report.Confusion.TP++
		case truth[i] == LabelPositive && predicted[i] != LabelPositive:
			report.Confusion.FN++
		case truth[i] != LabelPositive && predicted[i] == LabelPositive:
			report.Confusion.FP++
		default:
			report.Confusion.TN++
		}
	}
	report.Accuracy = report.Confusion.Accuracy()
	report.Precision = report.Confusion.Precision()
	report.Recall = report.Confusion.Recall()
	report.F1 = report.Confusion.F1()

	roc, auc, err := rocCurve(truth, scores)
	if err != nil {
		return nil, err
	}
	report.ROC = roc
	report.AUC = auc
	return report, nil
}

// rocCurve computes the ROC points and the area under the curve, treating
// LabelPositive as the positive event.
func rocCurve(truth []int, scores []float64) ([]ROCPoint, float64, error) {
	type pair struct {
		score float64
		pos   bool
	}
	pairs := make([]pair, len(truth))
	hasPos, hasNeg := false, false
	for i, y := range truth {
		pairs[i] = pair{score: scores[i], pos: y == LabelPositive}
		if pairs[i].pos {
			hasPos = true
		} else {
			hasNeg = true
		}
	}
	if !hasPos || !hasNeg {
		return nil, 0, errors.New(errors.ErrCodeEvaluationFailed,
			"ROC needs both classes in the hold-out set")
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })
	ys := make([]float64, len(pairs))
	classes := make([]bool, len(pairs))
	for i, p := range pairs {
		ys[i] = p.score
		classes[i] = p.pos
	}

	tpr, fpr, thresholds := stat.ROC(nil, ys, classes, nil)

	// stat.ROC walks thresholds upward, so both rates run from 1 down to 0;
	// reverse them for an ascending-FPR curve before integrating.
	points := make([]ROCPoint, len(tpr))
	xs := make([]float64, len(tpr))
	yvals := make([]float64, len(tpr))
	for i := range tpr {
		j := len(tpr) - 1 - i
		points[i] = ROCPoint{FPR: fpr[j], TPR: tpr[j], Threshold: thresholds[j]}
		xs[i] = fpr[j]
		yvals[i] = tpr[j]
	}
	return points, integrate.Trapezoidal(xs, yvals), nil
}
