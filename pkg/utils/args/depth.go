package args

import (
	"fmt"
	"strconv"
	"strings"
)

// Depth is how many transactions a trace follows from its root.
//
// "all" (and 0) follows to the end.
type Depth struct {
	n int
}

func NewDepth(n int) Depth {
	if n < 0 {
		n = 0
	}
	return Depth{n: n}
}

// Int returns the depth as a query parameter of fairtraced. 0 means no limit.
func (d Depth) Int() int {
	return d.n
}

func (d Depth) IsAll() bool {
	return d.n == 0
}

func (d Depth) String() string {
	if d.IsAll() {
		return "all"
	}
	return strconv.Itoa(d.n)
}

func (d *Depth) Set(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		d.n = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf(`depth should be a non-negative integer or "all": %s`, s)
	}
	d.n = n
	return nil
}

func (*Depth) Type() string {
	return "depth"
}
