package model

import (
	"encoding/json"
	"io"
	"os"

	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

// FormatVersion is the artifact format written by WriteArtifact.
const FormatVersion = "1.0"

// Spec はJSON成果物のヘッダ
type Spec struct {
	Name          string `json:"name"`
	FormatVersion string `json:"format_version"`
}

// Artifact はモデル成果物のJSON表現
//
//	{
//	  "model_spec": {"name": "YieldPipeline", "format_version": "1.0"},
//	  "params": {...}
//	}
type Artifact struct {
	Spec   Spec            `json:"model_spec"`
	Params json.RawMessage `json:"params"`
}

// WriteArtifact はparamsをnameのヘッダ付きでwに書き出す
func WriteArtifact(w io.Writer, name string, params interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return errors.Wrapf(err, "marshal %s params", name)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Artifact{Spec: Spec{Name: name, FormatVersion: FormatVersion}, Params: raw}); err != nil {
		return errors.Wrapf(err, "encode %s artifact", name)
	}
	return nil
}

// ReadArtifact はrから成果物を読み込み、ヘッダがnameと一致することを確認してparamsを返す
func ReadArtifact(r io.Reader, name string) (json.RawMessage, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, errors.NewModelError("model.ReadArtifact", "invalid artifact", err)
	}
	if a.Spec.Name != name {
		return nil, errors.NewValidationError("model_spec.name", "unexpected model type, want "+name, a.Spec.Name)
	}
	if a.Spec.FormatVersion != FormatVersion {
		return nil, errors.NewValidationError("model_spec.format_version", "unsupported format version", a.Spec.FormatVersion)
	}
	if len(a.Params) == 0 {
		return nil, errors.NewModelError("model.ReadArtifact", "missing params", errors.ErrEmptyData)
	}
	return a.Params, nil
}

// SaveArtifact はWriteArtifactの結果をファイルに保存する
func SaveArtifact(path, name string, params interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteArtifact(f, name, params); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadArtifact はファイルから成果物を読み込む
func LoadArtifact(path, name string) (json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadArtifact(f, name)
}
