package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PredictionResult is a single classification response for one image.
type PredictionResult struct {
	PredictedClass string        `json:"predicted_class"`
	Confidence     float64       `json:"confidence"`
	Probabilities  Probabilities `json:"probabilities"`
	ProcessingTime float64       `json:"processing_time"`
	Filename       string        `json:"filename,omitempty"`
}

type ClassProbability struct {
	Class   string
	Percent float64
}

// Probabilities keeps the class order of the JSON object it was decoded from.
type Probabilities []ClassProbability

func (p *Probabilities) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("probabilities: expected object, got %v", tok)
	}

	out := Probabilities{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("probabilities: unexpected key %v", keyTok)
		}

		var pct float64
		if err := dec.Decode(&pct); err != nil {
			return fmt.Errorf("probabilities: decoding %q: %w", key, err)
		}
		out = append(out, ClassProbability{Class: key, Percent: pct})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = out
	return nil
}

func (p Probabilities) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cp := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cp.Class)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(cp.Percent)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// HistoryEntry is one row of the server-side prediction log.
type HistoryEntry struct {
	Timestamp      string  `json:"timestamp"`
	Filename       string  `json:"filename"`
	PredictedClass string  `json:"predicted_class"`
	Confidence     float64 `json:"confidence"`
}

type History struct {
	History []HistoryEntry `json:"history"`
	Total   int            `json:"total,omitempty"`
}

type ModelInfo struct {
	ModelName   string   `json:"model_name,omitempty"`
	InputShape  string   `json:"input_shape,omitempty"`
	Classes     []string `json:"classes,omitempty"`
	Accuracy    float64  `json:"accuracy"`
	Description string   `json:"description,omitempty"`
}

type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Timestamp   string `json:"timestamp,omitempty"`
}
