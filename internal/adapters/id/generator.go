package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generator mints prefixed, collision-resistant IDs for run-level entities
// that need a stable name before anything else about them is known (a run
// is named before its first candidate exists).
type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

// GenerateRunID names a fresh optimization run.
func (g *Generator) GenerateRunID() string {
	return g.generate("run")
}

// GenerateDeploymentID names a fresh candidate deployment (see
// postgres.GEPAStore.Promote).
func (g *Generator) GenerateDeploymentID() string {
	return g.generate("dep")
}
