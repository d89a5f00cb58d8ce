package passage

import (
	"encoding/json"
	"fmt"
)

// Algorithm identifies one of the wait-time estimators whose predictions
// are carried on every record.
type Algorithm int

const (
	// AlgLidar is the LiDAR queue-length based estimate.
	AlgLidar Algorithm = iota
	// AlgThroughput is the recent-throughput based estimate.
	AlgThroughput
	// AlgFinal is the blended estimate shown to travellers.
	AlgFinal

	// NumAlgorithms is the number of estimation algorithms.
	NumAlgorithms = 3
)

// Algorithms lists every algorithm in index order.
var Algorithms = [NumAlgorithms]Algorithm{AlgLidar, AlgThroughput, AlgFinal}

var algorithmNames = [NumAlgorithms]string{"lidar", "throughput", "final"}

// String returns the algorithm's short name.
func (a Algorithm) String() string {
	if a < 0 || int(a) >= NumAlgorithms {
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
	return algorithmNames[a]
}

// ParseAlgorithm maps a short name back to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	for i, n := range algorithmNames {
		if n == name {
			return Algorithm(i), nil
		}
	}
	return 0, fmt.Errorf("unknown algorithm %q", name)
}

// MarshalText lets Algorithm be used as a JSON object key.
func (a Algorithm) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= NumAlgorithms {
		return nil, fmt.Errorf("invalid algorithm %d", int(a))
	}
	return []byte(algorithmNames[a]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	v, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Factors holds one float per algorithm: raw estimates on a record, or
// correction multipliers in a trained model. It encodes to JSON as an
// object keyed by algorithm name.
type Factors [NumAlgorithms]float64

// Uniform returns Factors with every algorithm set to v.
func Uniform(v float64) Factors {
	return Factors{v, v, v}
}

// MarshalJSON implements json.Marshaler.
func (f Factors) MarshalJSON() ([]byte, error) {
	m := make(map[Algorithm]float64, NumAlgorithms)
	for _, alg := range Algorithms {
		m[alg] = f[alg]
	}
	return json.Marshal(m)
}

// UnmarshalJSON requires every algorithm to be present.
func (f *Factors) UnmarshalJSON(data []byte) error {
	var m map[Algorithm]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != NumAlgorithms {
		return fmt.Errorf("factors: want %d algorithms, got %d", NumAlgorithms, len(m))
	}
	for alg, v := range m {
		f[alg] = v
	}
	return nil
}

// Predictions holds one rounded wait time (seconds) per algorithm.
type Predictions [NumAlgorithms]int64
