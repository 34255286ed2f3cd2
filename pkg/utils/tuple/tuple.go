package tuple

import "fmt"

func PairOf[A, B any](a A, b B) Pair[A, B] {
	return Pair[A, B]{First: a, Second: b}
}

type Pair[A, B any] struct {
	First  A
	Second B
}

func (p Pair[A, B]) Decompose() (A, B) {
	return p.First, p.Second
}

func (p Pair[A, B]) String() string {
	return fmt.Sprintf(`Pair{%v, %v}`, p.First, p.Second)
}

// UnzipPair splits pairs into the slice of firsts and the slice of seconds.
func UnzipPair[A, B any](ps []Pair[A, B]) ([]A, []B) {
	as := make([]A, len(ps))
	bs := make([]B, len(ps))
	for i, p := range ps {
		as[i], bs[i] = p.Decompose()
	}
	return as, bs
}
