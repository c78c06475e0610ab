package linear

import (
	"encoding/json"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

func TestLinearRegression_Basic(t *testing.T) {
	// y = 2x + 1
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	if math.Abs(lr.GetWeights()[0]-2) > 1e-9 {
		t.Errorf("Expected coefficient 2.0, got %f", lr.GetWeights()[0])
	}
	if math.Abs(lr.GetIntercept()-1) > 1e-9 {
		t.Errorf("Expected intercept 1.0, got %f", lr.GetIntercept())
	}

	pred, err := lr.Predict(mat.NewDense(2, 1, []float64{5, 6}))
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	expected := []float64{11, 13}
	for i := range expected {
		if math.Abs(pred.At(i, 0)-expected[i]) > 1e-9 {
			t.Errorf("Expected prediction %f, got %f", expected[i], pred.At(i, 0))
		}
	}

	score, err := lr.Score(X, y)
	if err != nil || math.Abs(score-1) > 1e-9 {
		t.Errorf("Score() = (%v, %v), want 1", score, err)
	}
}

func TestLinearRegression_MultipleFeatures(t *testing.T) {
	// y = 2*x1 + 3*x2 + 1
	X := mat.NewDense(5, 2, []float64{
		1, 1,
		2, 1,
		3, 2,
		4, 2,
		5, 3,
	})
	y := mat.NewDense(5, 1, []float64{6, 8, 13, 15, 20})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	want := []float64{2, 3}
	for i, w := range lr.GetWeights() {
		if math.Abs(w-want[i]) > 1e-9 {
			t.Errorf("weight[%d] = %f, want %f", i, w, want[i])
		}
	}
}

func TestLinearRegression_NoIntercept(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	lr := NewLinearRegression(WithFitIntercept(false))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	if math.Abs(lr.GetWeights()[0]-2) > 1e-9 || lr.GetIntercept() != 0 {
		t.Errorf("weights = %v, intercept = %v", lr.GetWeights(), lr.GetIntercept())
	}
}

func TestLinearRegression_CollinearNeedsAlpha(t *testing.T) {
	// 2列のone-hotは切片と完全に共線
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 0,
		0, 1,
		0, 1,
	})
	y := mat.NewDense(4, 1, []float64{1, 1, 3, 3})

	plain := NewLinearRegression()
	err := plain.Fit(X, y)
	if err == nil {
		// 数値誤差で解けてしまう場合でも予測は正しいはず
		t.Log("unregularized fit succeeded despite collinearity")
	}

	ridge := NewLinearRegression(WithAlpha(1e-6))
	if err := ridge.Fit(X, y); err != nil {
		t.Fatalf("ridge fit failed: %v", err)
	}
	pred, err := ridge.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i, want := range []float64{1, 1, 3, 3} {
		if math.Abs(pred.At(i, 0)-want) > 1e-4 {
			t.Errorf("pred[%d] = %v, want %v", i, pred.At(i, 0), want)
		}
	}
}

func TestLinearRegression_Errors(t *testing.T) {
	lr := NewLinearRegression()

	if _, err := lr.Predict(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("Predict before Fit should fail")
	} else {
		var nf *errors.NotFittedError
		if !errors.As(err, &nf) {
			t.Errorf("err = %v, want NotFittedError", err)
		}
	}

	err := lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(2, 1, []float64{1, 2}))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("err = %v, want DimensionError", err)
	}

	if err := NewLinearRegression(WithAlpha(-1)).Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(2, 1, []float64{1, 2})); err == nil {
		t.Error("negative alpha should be rejected")
	}

	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if _, err := lr.Predict(mat.NewDense(1, 2, []float64{1, 2})); !errors.As(err, &dimErr) {
		t.Errorf("err = %v, want DimensionError", err)
	}
}

func TestLinearRegression_Params(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})
	lr := NewLinearRegression(WithAlpha(1e-3))
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	params, err := lr.Params()
	if err != nil {
		t.Fatalf("Params() error = %v", err)
	}
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}

	restored := NewLinearRegression()
	if err := restored.SetParams(raw); err != nil {
		t.Fatalf("SetParams() error = %v", err)
	}
	if !restored.IsFitted() || restored.Alpha() != 1e-3 {
		t.Errorf("restored model = %+v", restored)
	}
	a, _ := lr.Predict(X)
	b, _ := restored.Predict(X)
	if !mat.Equal(a, b) {
		t.Error("restored model predicts differently")
	}

	if err := restored.SetParams([]byte(`{"coefficients":[1,2],"n_features":3}`)); err == nil {
		t.Error("inconsistent params should be rejected")
	}
	if _, err := NewLinearRegression().Params(); err == nil {
		t.Error("Params() on an unfitted model should fail")
	}
}
