package training

import (
	"encoding/gob"
	"fmt"
	"os"

	"gharsense/internal/models"
	"gharsense/internal/regress"
)

// Kind distinguishes the two artifact variants.
type Kind string

const (
	KindBase     Kind = "base"
	KindEnsemble Kind = "ensemble"
)

// Artifact is one trained model: either a base learner carrying its
// fitted regressor, or an ensemble carrying component names plus
// weights. Ensembles persist only metadata — their components live in
// the base artifacts — so serialization stays flat.
type Artifact struct {
	Name       string
	Kind       Kind
	Base       regress.Regressor
	Components []string
	Weights    []float64
	Score      models.ModelScore
	Rank       int

	resolved []*Artifact
}

// Resolve wires an ensemble's component names to loaded base artifacts.
// Base artifacts resolve trivially.
func (a *Artifact) Resolve(byName map[string]*Artifact) error {
	if a.Kind != KindEnsemble {
		return nil
	}
	a.resolved = make([]*Artifact, len(a.Components))
	for i, name := range a.Components {
		component, ok := byName[name]
		if !ok {
			return fmt.Errorf("ensemble %s references missing component %s", a.Name, name)
		}
		if component.Kind != KindBase {
			return fmt.Errorf("ensemble %s references non-base component %s", a.Name, name)
		}
		a.resolved[i] = component
	}
	return nil
}

// Predict dispatches on the variant: base artifacts delegate to their
// regressor, ensembles combine resolved component predictions.
func (a *Artifact) Predict(x []float64) (float64, error) {
	if a.Kind == KindBase {
		if a.Base == nil {
			return 0, fmt.Errorf("artifact %s has no fitted model", a.Name)
		}
		return a.Base.Predict(x), nil
	}

	if len(a.resolved) == 0 {
		return 0, fmt.Errorf("ensemble %s is not resolved", a.Name)
	}
	var sum float64
	if len(a.Weights) == 0 {
		for _, component := range a.resolved {
			sum += component.Base.Predict(x)
		}
		return sum / float64(len(a.resolved)), nil
	}
	for i, component := range a.resolved {
		sum += a.Weights[i] * component.Base.Predict(x)
	}
	return sum, nil
}

// Save gob-encodes the artifact to path.
func (a *Artifact) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(a); err != nil {
		return fmt.Errorf("failed to encode artifact %s: %w", a.Name, err)
	}
	return nil
}

// LoadArtifact reads a gob-encoded artifact. Ensembles still need
// Resolve before they can predict.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a := &Artifact{}
	if err := gob.NewDecoder(f).Decode(a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}
	return a, nil
}
