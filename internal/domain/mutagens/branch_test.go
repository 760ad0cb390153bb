package mutagens

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBreakContinueReplacement(t *testing.T) {
	t.Run("swaps inside loops", func(t *testing.T) {
		src := `package p

func f(xs []int) int {
	total := 0
	for _, x := range xs {
		if x < 0 {
			continue
		}
		if x > 100 {
			break
		}
		total += x
	}
	return total
}
`
		out := mutants(t, BreakContinueReplacement(), src)

		require.Len(t, out, 2)
		requireMutant(t, out, "if x < 0 {\n\t\t\tbreak")
		requireMutant(t, out, "if x > 100 {\n\t\t\tcontinue")
	})

	t.Run("resigns on switch break outside loops", func(t *testing.T) {
		src := `package p

func f(x int) int {
	switch x {
	case 1:
		break
	}
	return x
}
`
		require.Empty(t, mutants(t, BreakContinueReplacement(), src))
	})

	t.Run("resigns on switch break inside a loop", func(t *testing.T) {
		src := `package p

func f(xs []int) int {
	n := 0
	for _, x := range xs {
		switch x {
		case 0:
			break
		default:
			continue
		}
		n++
	}
	return n
}
`
		out := mutants(t, BreakContinueReplacement(), src)

		require.Len(t, out, 1)
		requireMutant(t, out, "default:\n\t\t\tbreak")
	})

	t.Run("resigns on select break inside a loop", func(t *testing.T) {
		src := `package p

func f(ch chan int) {
	for {
		select {
		case <-ch:
			break
		}
	}
}
`
		require.Empty(t, mutants(t, BreakContinueReplacement(), src))
	})

	t.Run("resigns inside a closure of a loop", func(t *testing.T) {
		src := `package p

func f(xs []int) {
	for range xs {
		func() {
			select {
			default:
				break
			}
		}()
	}
}
`
		require.Empty(t, mutants(t, BreakContinueReplacement(), src))
	})

	t.Run("resigns on labels", func(t *testing.T) {
		src := `package p

func f(xs []int) {
outer:
	for range xs {
		for range xs {
			break outer
		}
	}
}
`
		require.Empty(t, mutants(t, BreakContinueReplacement(), src))
	})
}
