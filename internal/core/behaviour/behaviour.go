// Package behaviour enumerates the protocol-deviation behaviours a signing
// party can be configured with in adversarial test builds.
//
// Names() is the single source of truth: the CLI validates input against it,
// and FromName is total over it.
package behaviour

import (
	"fmt"

	"github.com/yndnr/tssd/internal/core/domain"
)

// Kind identifies one behaviour variant.
type Kind int

const (
	Honest Kind = iota
	R1BadProof
	R2FalseAccusation
	R2BadMta
	R2BadMtaWc
	R3FalseAccusationMta
	R3FalseAccusationMtaWc
	R3BadProof
	R4BadReveal
	R5BadProof
	R6BadProof
	R6FalseAccusation
	R7BadSigSummand
)

// Shape groups kinds by the parameters they carry.
type Shape int

const (
	ShapeHonest Shape = iota
	ShapeStage        // deviates at one round, no target
	ShapeVictim       // deviates against one victim party
)

type entry struct {
	kind  Kind
	name  string
	shape Shape
}

// table lists every variant in declaration order.
var table = []entry{
	{Honest, "Honest", ShapeHonest},
	{R1BadProof, "R1BadProof", ShapeVictim},
	{R2FalseAccusation, "R2FalseAccusation", ShapeVictim},
	{R2BadMta, "R2BadMta", ShapeVictim},
	{R2BadMtaWc, "R2BadMtaWc", ShapeVictim},
	{R3FalseAccusationMta, "R3FalseAccusationMta", ShapeVictim},
	{R3FalseAccusationMtaWc, "R3FalseAccusationMtaWc", ShapeVictim},
	{R3BadProof, "R3BadProof", ShapeStage},
	{R4BadReveal, "R4BadReveal", ShapeStage},
	{R5BadProof, "R5BadProof", ShapeVictim},
	{R6BadProof, "R6BadProof", ShapeStage},
	{R6FalseAccusation, "R6FalseAccusation", ShapeVictim},
	{R7BadSigSummand, "R7BadSigSummand", ShapeStage},
}

var byName = func() map[string]entry {
	m := make(map[string]entry, len(table))
	for _, e := range table {
		m[e.name] = e
	}
	return m
}()

// Names returns every accepted behaviour name.
func Names() []string {
	out := make([]string, len(table))
	for i, e := range table {
		out[i] = e.name
	}
	return out
}

// Valid reports whether name is in Names().
func Valid(name string) bool {
	_, ok := byName[name]
	return ok
}

// ParseName validates name against Names().
// Returns domain.ErrParse for unlisted names.
func ParseName(name string) (string, error) {
	if !Valid(name) {
		return "", domain.ErrParse.WithDetails(fmt.Sprintf("unknown behaviour %q, expected one of %v", name, Names()))
	}
	return name, nil
}

// Behaviour is a configured variant. Victim is meaningful only for ShapeVictim.
type Behaviour struct {
	Kind   Kind
	Victim uint
}

// FromName maps a validated name to its variant. Victim is dropped for
// variants that take none.
//
// It panics on a name outside Names(): callers must validate first.
func FromName(name string, victim uint) Behaviour {
	e, ok := byName[name]
	if !ok {
		panic(fmt.Sprintf("behaviour: unmapped name %q", name))
	}
	if e.shape != ShapeVictim {
		victim = 0
	}
	return Behaviour{Kind: e.kind, Victim: victim}
}

// Shape returns the parameter shape of b.
func (b Behaviour) Shape() Shape {
	return table[b.Kind].shape
}

// IsHonest reports whether b is the honest variant.
func (b Behaviour) IsHonest() bool {
	return b.Kind == Honest
}

// Targets reports whether b deviates against party index i.
func (b Behaviour) Targets(i uint) bool {
	return b.Shape() == ShapeVictim && b.Victim == i
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(table) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return table[k].name
}

func (b Behaviour) String() string {
	if b.Shape() == ShapeVictim {
		return fmt.Sprintf("%s{victim: %d}", b.Kind, b.Victim)
	}
	return b.Kind.String()
}

// Stage returns the protocol round (1-7) a non-honest kind deviates at,
// or 0 for Honest.
func (k Kind) Stage() int {
	switch {
	case k == Honest:
		return 0
	case k == R1BadProof:
		return 1
	case k <= R2BadMtaWc:
		return 2
	case k <= R3BadProof:
		return 3
	case k == R4BadReveal:
		return 4
	case k == R5BadProof:
		return 5
	case k <= R6FalseAccusation:
		return 6
	default:
		return 7
	}
}
