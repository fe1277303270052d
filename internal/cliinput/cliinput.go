// Package cliinput resolves the week and batch counts of the weekly run from
// positional arguments or, when absent, from an interactive prompt.
package cliinput

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

const (
	MaxWeeks       = 10
	DefaultWeeks   = 1
	DefaultBatches = 2
)

// ParseWeeks reads a week count in 1..MaxWeeks; anything else yields
// DefaultWeeks.
func ParseWeeks(arg string) int {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		log.Printf("cliinput invalid_weeks value=%q default=%d", arg, DefaultWeeks)
		return DefaultWeeks
	}
	if n < 1 || n > MaxWeeks {
		log.Printf("cliinput weeks_out_of_range value=%d default=%d", n, DefaultWeeks)
		return DefaultWeeks
	}
	return n
}

// BatchChoice is the operator's batches-per-week answer. It is kept as an
// answer rather than a number so "all" follows each week's pending count.
type BatchChoice struct {
	All bool
	N   int
}

// Resolve returns the number of batches to run out of total.
func (c BatchChoice) Resolve(total int) int {
	if c.All {
		return total
	}
	return min(c.N, total)
}

// ParseBatchChoice reads "all" or a count in 1..total; anything else
// yields DefaultBatches.
func ParseBatchChoice(arg string, total int) BatchChoice {
	arg = strings.TrimSpace(arg)
	if strings.EqualFold(arg, "all") {
		return BatchChoice{All: true}
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > total {
		log.Printf("cliinput invalid_batches value=%q total=%d default=%d", arg, total, DefaultBatches)
		return BatchChoice{N: DefaultBatches}
	}
	return BatchChoice{N: n}
}

// ParseBatches is ParseBatchChoice resolved against total.
func ParseBatches(arg string, total int) int {
	return ParseBatchChoice(arg, total).Resolve(total)
}

// Prompter asks bounded questions on a terminal.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

func (p *Prompter) line(question string) (string, bool) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

// Weeks asks until it gets a count in range. Empty input or an unusable
// answer falls back to DefaultWeeks.
func (p *Prompter) Weeks() int {
	for {
		s, ok := p.line(fmt.Sprintf("How many weeks to process? (1-%d, default: %d): ", MaxWeeks, DefaultWeeks))
		if !ok || s == "" {
			return DefaultWeeks
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			fmt.Fprintf(p.out, "Defaulting to %d week\n", DefaultWeeks)
			return DefaultWeeks
		}
		if n >= 1 && n <= MaxWeeks {
			return n
		}
		fmt.Fprintf(p.out, "Please enter a number between 1 and %d\n", MaxWeeks)
	}
}

// BatchChoice asks until it gets a count in 1..total or "all". An unusable
// answer falls back to DefaultBatches.
func (p *Prompter) BatchChoice(total int) BatchChoice {
	for {
		s, ok := p.line(fmt.Sprintf("How many batches to process per week? (1-%d, or 'all'): ", total))
		if !ok {
			return BatchChoice{N: DefaultBatches}
		}
		if strings.EqualFold(s, "all") {
			return BatchChoice{All: true}
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			fmt.Fprintf(p.out, "Defaulting to %d batches\n", DefaultBatches)
			return BatchChoice{N: DefaultBatches}
		}
		if n >= 1 && n <= total {
			return BatchChoice{N: n}
		}
		fmt.Fprintf(p.out, "Please enter a number between 1 and %d\n", total)
	}
}

func (p *Prompter) Batches(total int) int {
	return p.BatchChoice(total).Resolve(total)
}
