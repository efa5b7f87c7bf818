package automaton

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

//MaxNeighbours is the biggest count of live neighbours (Moore neighbourhood)
const MaxNeighbours = 8

var (
	bornRe    = regexp.MustCompile(`B(\d*)S`)
	surviveRe = regexp.MustCompile(`S(\d*)/`)
	agingRe   = regexp.MustCompile(`/(\d*)$`)
)

//DefaultRule is Conway's Game of Life B3S23/0
var DefaultRule = Rule{born: 1 << 3, survive: 1<<2 | 1<<3}

//Rule describes the birth, survival and aging parameters of the automaton
//Rule is comparable, two rules with the same sets and aging are equal
type Rule struct {
	born    neighbourSet
	survive neighbourSet
	aging   int
}

//neighbourSet is the bit set of the live neighbours counts, bit n means count n
type neighbourSet uint16

func (s neighbourSet) has(n int) bool {
	return n >= 0 && n <= MaxNeighbours && s&(1<<uint(n)) != 0
}

func (s neighbourSet) counts() []int {
	var c []int
	for n := 0; n <= MaxNeighbours; n++ {
		if s.has(n) {
			c = append(c, n)
		}
	}
	return c
}

func (s neighbourSet) String() string {
	var b strings.Builder
	for _, n := range s.counts() {
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

func makeNeighbourSet(counts []int) (neighbourSet, error) {
	var s neighbourSet
	for _, n := range counts {
		if n < 0 || n > MaxNeighbours {
			return 0, fmt.Errorf("%w: neighbours count %d is out of 0..%d", ErrInvalidRule, n, MaxNeighbours)
		}
		s |= 1 << uint(n)
	}
	return s, nil
}

//NewRule creates the Rule, all counts must be in 0..8 and aging must be >= 0
//duplicates are allowed, they are merged into one set member
func NewRule(born []int, survive []int, aging int) (Rule, error) {
	b, err := makeNeighbourSet(born)
	if err != nil {
		return Rule{}, err
	}
	s, err := makeNeighbourSet(survive)
	if err != nil {
		return Rule{}, err
	}
	if aging < 0 {
		return Rule{}, fmt.Errorf("%w: aging %d must be >= 0", ErrInvalidRule, aging)
	}
	return Rule{born: b, survive: s, aging: aging}, nil
}

//MustRule is like ParseRule but panics on the error
func MustRule(s string) Rule {
	r, err := ParseRule(s)
	if err != nil {
		panic(err)
	}
	return r
}

//ParseRule parses the B<digits>S<digits>/<aging> string, for example B3S23/0
//the ranges are validated by NewRule
func ParseRule(s string) (Rule, error) {
	born := bornRe.FindStringSubmatch(s)
	survive := surviveRe.FindStringSubmatch(s)
	aging := agingRe.FindStringSubmatch(s)
	if born == nil || survive == nil || aging == nil {
		return Rule{}, fmt.Errorf("%w: %q doesn't match B<digits>S<digits>/<aging>", ErrParse, s)
	}
	a, err := strconv.Atoi(aging[1])
	if err != nil {
		return Rule{}, fmt.Errorf("%w: aging of %q: %v", ErrParse, s, err)
	}
	return NewRule(digits(born[1]), digits(survive[1]), a)
}

//digits splits the string of decimal digits to ints, the regexps guarantee the input
func digits(s string) []int {
	d := make([]int, 0, len(s))
	for _, r := range s {
		d = append(d, int(r-'0'))
	}
	return d
}

//Born returns the sorted counts of live neighbours giving birth to a dead cell
func (r Rule) Born() []int {
	return r.born.counts()
}

//Survive returns the sorted counts of live neighbours keeping the cell alive
func (r Rule) Survive() []int {
	return r.survive.counts()
}

//Aging returns the number of aging stages, 0 means the cells die immediately
func (r Rule) Aging() int {
	return r.aging
}

//IsBorn reports whether a dead cell with n live neighbours becomes alive
func (r Rule) IsBorn(n int) bool {
	return r.born.has(n)
}

//Survives reports whether a live cell with n live neighbours stays alive
func (r Rule) Survives(n int) bool {
	return r.survive.has(n)
}

//WithBorn returns the copy of the rule with the new born set
func (r Rule) WithBorn(born ...int) (Rule, error) {
	return NewRule(born, r.Survive(), r.aging)
}

//WithSurvive returns the copy of the rule with the new survive set
func (r Rule) WithSurvive(survive ...int) (Rule, error) {
	return NewRule(r.Born(), survive, r.aging)
}

//WithAging returns the copy of the rule with the new aging
func (r Rule) WithAging(aging int) (Rule, error) {
	return NewRule(r.Born(), r.Survive(), aging)
}

//Next returns the next state of the cell with n live neighbours
func (r Rule) Next(cell int, n int) int {
	switch cell {
	case Alive:
		if r.Survives(n) {
			return Alive
		}
		if r.aging > 0 {
			return Alive + 1
		}
		return Dead
	case Dead:
		if r.IsBorn(n) {
			return Alive
		}
		return Dead
	default:
		if cell < r.aging {
			return cell + 1
		}
		return Dead
	}
}

func (r Rule) String() string {
	return "B" + r.born.String() + "S" + r.survive.String() + "/" + strconv.Itoa(r.aging)
}
