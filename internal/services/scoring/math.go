package scoring

import (
	"regexp"
	"strconv"

	"golang.org/x/exp/constraints"
)

var roomCountRe = regexp.MustCompile(`\d+`)

type number interface {
	constraints.Integer | constraints.Float
}

// overshoot — относительное превышение границы: |value-bound| / bound.
func overshoot[T number](value, bound T) (float64, error) {
	if bound == 0 {
		return 0, ErrZeroBound
	}
	diff := float64(value) - float64(bound)
	if diff < 0 {
		diff = -diff
	}
	b := float64(bound)
	if b < 0 {
		b = -b
	}
	return diff / b, nil
}

// linearDecay — 1 - ratio*factor, не ниже нуля.
func linearDecay(ratio, factor float64) float64 {
	return max(0, 1-ratio*factor)
}

func absDiff[T number](a, b T) T {
	if a > b {
		return a - b
	}
	return b - a
}

// roomCount — первое целое в планировке, 0 если его нет: "3LDK" -> 3.
func roomCount(layout string) int {
	m := roomCountRe.FindString(layout)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// roomProximity — близость по числу комнат: совпадение 0.8, разница в одну 0.6, иначе 0.3.
func roomProximity(a, b string) float64 {
	switch absDiff(roomCount(a), roomCount(b)) {
	case 0:
		return 0.8
	case 1:
		return 0.6
	default:
		return 0.3
	}
}
