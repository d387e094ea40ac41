package images

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

const variantExt = ".webp"

var (
	baseNamePattern    = regexp.MustCompile(`^[A-Za-z0-9-]+\.webp$`)
	variantNamePattern = regexp.MustCompile(`^(\d+)_([A-Za-z0-9-]+\.webp)$`)
)

func newBaseName() string {
	return uuid.NewString() + variantExt
}

// VariantName returns the object name of one size of a variant set.
func VariantName(size int, base string) string {
	return fmt.Sprintf("%d_%s", size, base)
}

// ParseVariantName splits "{size}_{base}" and reports whether name is a
// well-formed variant name.
func ParseVariantName(name string) (int, string, bool) {
	m := variantNamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, "", false
	}

	size, err := strconv.Atoi(m[1])
	if err != nil || size <= 0 {
		return 0, "", false
	}

	return size, m[2], true
}

func IsValidBaseName(base string) bool {
	return baseNamePattern.MatchString(base)
}
