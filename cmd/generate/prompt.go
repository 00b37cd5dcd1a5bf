package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
)

// prompter asks questions on out and reads answers from in, repeating a
// question until the answer validates.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) readLine(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ask repeats question until parse accepts the answer. EOF aborts.
func ask[T any](p *prompter, question string, parse func(string) (T, error)) (T, error) {
	for {
		line, err := p.readLine(question)
		if err != nil {
			var zero T
			return zero, err
		}
		v, err := parse(line)
		if err == nil {
			return v, nil
		}
		fmt.Fprintf(p.out, "  %v, please try again.\n", err)
	}
}

func (p *prompter) ticketCount(max int) (int, error) {
	return ask(p, fmt.Sprintf("How many tickets would you like to generate (1-%d)? ", max), func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, &lotto.InputValidationError{Field: "count", Reason: fmt.Sprintf("%q is not a whole number", s)}
		}
		return n, lotto.ValidateTicketCount(n, max)
	})
}

func (p *prompter) damping() (float64, error) {
	question := fmt.Sprintf("Damping factor in (0, 1] [%.1f]: ", lotto.DefaultDampingFactor)
	return ask(p, question, lotto.ParseDamping)
}

func (p *prompter) luckyNumbers(question string) ([]int, error) {
	return ask(p, question, lotto.ParseLuckyNumbers)
}

func (p *prompter) confirm(question string, def bool) (bool, error) {
	suffix := " [y/N]: "
	if def {
		suffix = " [Y/n]: "
	}
	return ask(p, question+suffix, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		return false, fmt.Errorf("answer y or n")
	})
}

func (p *prompter) extraSets(max int) (int, error) {
	return ask(p, fmt.Sprintf("How many Extra sets (0-%d) [0]: ", max), func(s string) (int, error) {
		if s == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, &lotto.InputValidationError{Field: "extra_sets", Reason: fmt.Sprintf("%q is not a whole number", s)}
		}
		return n, lotto.ValidateExtraSets(n, max)
	})
}
