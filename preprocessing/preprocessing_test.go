package preprocessing

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	scaler := NewStandardScaler()
	got, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	if scaler.Mean[0] != 2.5 || math.Abs(scaler.Scale[0]-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("mean/scale = %v / %v", scaler.Mean, scaler.Scale)
	}
	// 定数列はスケール1
	if scaler.Scale[1] != 1 {
		t.Errorf("constant column scale = %v, want 1", scaler.Scale[1])
	}
	if got.At(0, 1) != 0 {
		t.Errorf("constant column should center to 0, got %v", got.At(0, 1))
	}

	back, err := scaler.InverseTransform(got)
	if err != nil {
		t.Fatalf("InverseTransform() error = %v", err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Errorf("InverseTransform() = %v, want %v", mat.Formatted(back), mat.Formatted(X))
	}
}

func TestStandardScalerErrors(t *testing.T) {
	scaler := NewStandardScaler()
	if _, err := scaler.Transform(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("Transform before Fit should fail")
	}
	if err := scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
		t.Fatal(err)
	}
	var dimErr *errors.DimensionError
	if _, err := scaler.Transform(mat.NewDense(1, 3, []float64{1, 2, 3})); !errors.As(err, &dimErr) {
		t.Errorf("err = %v, want DimensionError", err)
	}
}

func TestStandardScalerParams(t *testing.T) {
	scaler := NewStandardScaler()
	if err := scaler.Fit(mat.NewDense(3, 1, []float64{1, 2, 3})); err != nil {
		t.Fatal(err)
	}
	params, _ := scaler.Params()
	raw, _ := json.Marshal(params)

	restored := NewStandardScaler()
	if err := restored.SetParams(raw); err != nil {
		t.Fatalf("SetParams() error = %v", err)
	}
	if !restored.IsFitted() || restored.NFeatures != 1 || restored.Mean[0] != 2 {
		t.Errorf("restored = %s %+v", restored, restored.Mean)
	}
	if err := restored.SetParams([]byte(`{"mean":[0],"scale":[0]}`)); err == nil {
		t.Error("zero scale should be rejected")
	}
}

func TestOneHotEncoder(t *testing.T) {
	X := [][]string{
		{"Sahel", "Mil"},
		{"Centre", "Maïs"},
		{"Sahel", "Maïs"},
	}

	enc := NewOneHotEncoder()
	got, err := enc.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	names := enc.OutputNames([]string{"Région", "Céréale"})
	if strings.Join(names, ",") != "Région_Centre,Région_Sahel,Céréale_Maïs,Céréale_Mil" {
		t.Errorf("OutputNames() = %v", names)
	}
	want := mat.NewDense(3, 4, []float64{
		0, 1, 0, 1,
		1, 0, 1, 0,
		0, 1, 1, 0,
	})
	if !mat.Equal(got, want) {
		t.Errorf("Transform() =\n%v\nwant\n%v", mat.Formatted(got), mat.Formatted(want))
	}
}

func TestOneHotEncoderUnknownIsZero(t *testing.T) {
	enc := NewOneHotEncoder()
	if err := enc.Fit([][]string{{"Sahel"}, {"Centre"}}); err != nil {
		t.Fatal(err)
	}

	got, err := enc.Transform([][]string{{"Est"}})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got.At(0, 0) != 0 || got.At(0, 1) != 0 {
		t.Errorf("unknown category should encode as zeros, got %v", mat.Formatted(got))
	}
	if enc.Known(0, "Est") || !enc.Known(0, "Sahel") {
		t.Error("Known() mismatch")
	}
}

func TestOneHotEncoderParams(t *testing.T) {
	enc := NewOneHotEncoder()
	if _, err := enc.Transform([][]string{{"a"}}); err == nil {
		t.Error("Transform before Fit should fail")
	}
	if err := enc.Fit([][]string{{"a", "x"}, {"b", "y"}}); err != nil {
		t.Fatal(err)
	}
	params, _ := enc.Params()
	raw, _ := json.Marshal(params)

	restored := NewOneHotEncoder()
	if err := restored.SetParams(raw); err != nil {
		t.Fatalf("SetParams() error = %v", err)
	}
	a, _ := enc.Transform([][]string{{"b", "x"}})
	b, _ := restored.Transform([][]string{{"b", "x"}})
	if !mat.Equal(a, b) {
		t.Error("restored encoder transforms differently")
	}

	if err := enc.Fit([][]string{{"a", "x"}, {"b"}}); err == nil {
		t.Error("ragged rows should be rejected")
	}
}
