package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrArtifactLoad wraps failures to retrieve or decode a model/scaler
	// artifact. Fatal to one inference attempt, never retried here.
	ErrArtifactLoad = errors.New("forecast artifact load failed")

	// ErrShapeMismatch means the input window does not match the shape the
	// model was trained on.
	ErrShapeMismatch = errors.New("input window shape mismatch")
)

// modelBundle is the JSON weights document stored per ticker in the artifact
// store. Gate order in the LSTM blocks follows Keras: input, forget, cell,
// output.
type modelBundle struct {
	Ticker     string `json:"ticker"`
	WindowSize int    `json:"window_size"`
	Features   int    `json:"features"`
	Units      int    `json:"units"`
	Horizon    int    `json:"horizon"`
	LSTM       struct {
		Kernel          [][]float64 `json:"kernel"`           // [features][4*units]
		RecurrentKernel [][]float64 `json:"recurrent_kernel"` // [units][4*units]
		Bias            []float64   `json:"bias"`             // [4*units]
	} `json:"lstm"`
	Dense struct {
		Kernel [][]float64 `json:"kernel"` // [units][horizon]
		Bias   []float64   `json:"bias"`   // [horizon]
	} `json:"dense"`
}

// Model is a single-layer LSTM with a dense head, the architecture every
// per-ticker forecaster shares. Immutable after parsing; safe for concurrent
// Predict calls since each pass allocates its own state.
type Model struct {
	WindowSize int
	Features   int
	Units      int
	Horizon    int

	lstmKernel    *mat.Dense // features x 4*units
	lstmRecurrent *mat.Dense // units x 4*units
	lstmBias      *mat.Dense // 1 x 4*units
	denseKernel   *mat.Dense // units x horizon
	denseBias     *mat.Dense // 1 x horizon
}

// ParseModel decodes and shape-checks a weights bundle.
func ParseModel(raw []byte) (*Model, error) {
	var b modelBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: decode bundle: %v", ErrArtifactLoad, err)
	}
	if b.WindowSize <= 0 || b.Features <= 0 || b.Units <= 0 || b.Horizon <= 0 {
		return nil, fmt.Errorf("%w: non-positive dimensions in bundle", ErrArtifactLoad)
	}

	lk, err := dense(b.LSTM.Kernel, b.Features, 4*b.Units, "lstm.kernel")
	if err != nil {
		return nil, err
	}
	lr, err := dense(b.LSTM.RecurrentKernel, b.Units, 4*b.Units, "lstm.recurrent_kernel")
	if err != nil {
		return nil, err
	}
	if len(b.LSTM.Bias) != 4*b.Units {
		return nil, fmt.Errorf("%w: lstm.bias has %d values, want %d", ErrArtifactLoad, len(b.LSTM.Bias), 4*b.Units)
	}
	dk, err := dense(b.Dense.Kernel, b.Units, b.Horizon, "dense.kernel")
	if err != nil {
		return nil, err
	}
	if len(b.Dense.Bias) != b.Horizon {
		return nil, fmt.Errorf("%w: dense.bias has %d values, want %d", ErrArtifactLoad, len(b.Dense.Bias), b.Horizon)
	}

	return &Model{
		WindowSize:    b.WindowSize,
		Features:      b.Features,
		Units:         b.Units,
		Horizon:       b.Horizon,
		lstmKernel:    lk,
		lstmRecurrent: lr,
		lstmBias:      mat.NewDense(1, 4*b.Units, append([]float64(nil), b.LSTM.Bias...)),
		denseKernel:   dk,
		denseBias:     mat.NewDense(1, b.Horizon, append([]float64(nil), b.Dense.Bias...)),
	}, nil
}

// Predict runs one forward pass over a normalized window and returns the
// normalized multi-step predictions (length Horizon). The window must be
// exactly [WindowSize][Features].
func (m *Model) Predict(window [][]float64) ([]float64, error) {
	if len(window) != m.WindowSize {
		return nil, fmt.Errorf("%w: got %d timesteps, model wants %d", ErrShapeMismatch, len(window), m.WindowSize)
	}
	for i, row := range window {
		if len(row) != m.Features {
			return nil, fmt.Errorf("%w: timestep %d has %d features, model wants %d", ErrShapeMismatch, i, len(row), m.Features)
		}
	}

	u := m.Units
	h := mat.NewDense(1, u, nil)
	c := mat.NewDense(1, u, nil)

	// z = x·W + h·U + b, split into the four Keras gates.
	z := mat.NewDense(1, 4*u, nil)
	zh := mat.NewDense(1, 4*u, nil)
	for t := 0; t < m.WindowSize; t++ {
		x := mat.NewDense(1, m.Features, window[t])
		z.Mul(x, m.lstmKernel)
		zh.Mul(h, m.lstmRecurrent)
		z.Add(z, zh)
		z.Add(z, m.lstmBias)

		for j := 0; j < u; j++ {
			in := sigmoid(z.At(0, j))
			forget := sigmoid(z.At(0, u+j))
			cell := math.Tanh(z.At(0, 2*u+j))
			out := sigmoid(z.At(0, 3*u+j))

			cNew := forget*c.At(0, j) + in*cell
			c.Set(0, j, cNew)
			h.Set(0, j, out*math.Tanh(cNew))
		}
	}

	y := mat.NewDense(1, m.Horizon, nil)
	y.Mul(h, m.denseKernel)
	y.Add(y, m.denseBias)

	preds := make([]float64, m.Horizon)
	for j := 0; j < m.Horizon; j++ {
		preds[j] = y.At(0, j)
	}
	return preds, nil
}

func dense(rows [][]float64, r, c int, name string) (*mat.Dense, error) {
	if len(rows) != r {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrArtifactLoad, name, len(rows), r)
	}
	flat := make([]float64, 0, r*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("%w: %s row %d has %d cols, want %d", ErrArtifactLoad, name, i, len(row), c)
		}
		flat = append(flat, row...)
	}
	return mat.NewDense(r, c, flat), nil
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
