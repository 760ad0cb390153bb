package controller

import (
	"fmt"
	"time"
)

type tickMsg time.Time

// resultItem is one classified mutant in the results list.
type resultItem struct {
	number int
	target string
	muts   string
	status string
	killer string
	diff   string
}

func (r resultItem) FilterValue() string {
	return fmt.Sprintf("%d %s %s %s", r.number, r.target, r.muts, r.status)
}
