package layout

import (
	"fmt"
	"strconv"

	"github.com/spherical/formation-extractor/internal/domain"
)

// RandomAlphabet is the random-formation letter set. I is left out because it
// reads as the digit 1 on the cards.
const RandomAlphabet = "ABCDEFGHJKLMNOPQ"

// IDScheme assigns identifiers to a page's cells in reading order.
type IDScheme interface {
	// ID returns the identifier of the i-th cell.
	ID(i int) (domain.FormationID, error)
	// Capacity is the number of identifiers available, or -1 if unbounded.
	Capacity() int
	Kind() domain.FormationKind
	Validate() error
}

// Sequence numbers cells consecutively from Start.
type Sequence struct {
	Start int
}

func (s Sequence) ID(i int) (domain.FormationID, error) {
	if i < 0 {
		return "", fmt.Errorf("negative cell index %d", i)
	}
	return domain.FormationID(strconv.Itoa(s.Start + i)), nil
}

func (s Sequence) Capacity() int              { return -1 }
func (s Sequence) Kind() domain.FormationKind { return domain.KindBlock }

func (s Sequence) Validate() error {
	if s.Start < 1 {
		return fmt.Errorf("sequence must start at 1 or above, got %d", s.Start)
	}
	return nil
}

// Alphabet labels cells with single letters in the given order.
type Alphabet struct {
	Symbols string
}

func (a Alphabet) ID(i int) (domain.FormationID, error) {
	if i < 0 || i >= len(a.Symbols) {
		return "", fmt.Errorf("cell index %d outside alphabet %q", i, a.Symbols)
	}
	return domain.FormationID(a.Symbols[i : i+1]), nil
}

func (a Alphabet) Capacity() int              { return len(a.Symbols) }
func (a Alphabet) Kind() domain.FormationKind { return domain.KindRandom }

func (a Alphabet) Validate() error {
	if a.Symbols == "" {
		return fmt.Errorf("alphabet is empty")
	}
	seen := make(map[rune]bool, len(a.Symbols))
	for _, r := range a.Symbols {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("alphabet symbol %q is not an uppercase letter", r)
		}
		if r == 'I' {
			return fmt.Errorf("alphabet must not contain I")
		}
		if seen[r] {
			return fmt.Errorf("alphabet symbol %q repeated", r)
		}
		seen[r] = true
	}
	return nil
}
