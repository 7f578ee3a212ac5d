// Package testdata seeds sample contacts.
package testdata

import (
	"context"
	"fmt"
	"math/rand"
)

// Inserter adds a contact and returns its id.
type Inserter interface {
	Insert(ctx context.Context, name, phone string) (int64, error)
}

var (
	firstNames = []string{"Ana", "Ángel", "beto", "Carla", "Émile", "José", "María-José", "Ñico", "O'Brien", "zoë"}
	lastNames  = []string{"Pérez", "Smith", "de la Cruz", "Müller", "Ó Súilleabháin", "St. John"}
)

// Seed inserts n contacts with names drawn from a mixed-case, accented
// pool. Every generated name passes name validation.
func Seed(ctx context.Context, ins Inserter, n int, rng *rand.Rand) ([]int64, error) {
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		name := firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
		phone := fmt.Sprintf("555-%04d", rng.Intn(10000))
		id, err := ins.Insert(ctx, name, phone)
		if err != nil {
			return ids, fmt.Errorf("seed contact %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
