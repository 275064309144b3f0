package attachid

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const prefix = "att_"

// Generator issues attachment identifiers. It is an interface so tests
// can substitute a deterministic implementation.
type Generator interface {
	New() string
}

// ULIDGenerator produces att_* ULID strings. Monotonic entropy keeps
// ids strictly increasing within the same millisecond, so ids are
// unique even under concurrent uploads to the same owner.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator() *ULIDGenerator {
	source := rand.NewSource(time.Now().UnixNano())
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.New(source), 0),
	}
}

// New returns an att_* ULID string.
func (g *ULIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return prefix + strings.ToLower(id.String())
}

// IsValid reports whether the string is an att_* ULID.
func IsValid(value string) bool {
	if !strings.HasPrefix(value, prefix) {
		return false
	}
	_, err := Parse(value)
	return err == nil
}

// Parse strips the att_ prefix and returns the ULID.
func Parse(value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, prefix)
	value = strings.TrimPrefix(value, "ATT_")
	return ulid.Parse(value)
}
