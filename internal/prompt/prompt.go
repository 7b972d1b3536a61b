// Package prompt acquires validated input from a user or a scripted source.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/san-kum/physfit/internal/fit"
)

const DefaultMaxRetries = 5

var ErrRetriesExhausted = errors.Mark(errors.New("prompt: no valid answer within retry limit"), fit.ErrInvalidInput)

// Asker is anything that can ask for a bounded number or an existing file.
type Asker interface {
	Float(question string, r Range) (float64, error)
	Path(question string) (string, error)
}

// Rejection is the message shown to the user for an invalid answer.
type Rejection string

func (r Rejection) Error() string { return string(r) }

// Range bounds an answer. Open excludes both endpoints.
type Range struct {
	Lower, Upper float64
	Open         bool
}

// Check returns the message to show for v, or nil when v is acceptable.
func (r Range) Check(v float64) error {
	switch {
	case r.Open && v <= r.Lower:
		return Rejection(fmt.Sprintf("The value given must be greater than %v so please enter another value.", r.Lower))
	case r.Open && v >= r.Upper:
		return Rejection(fmt.Sprintf("The value given must be less than %v so please enter another value.", r.Upper))
	case v < r.Lower:
		return Rejection(fmt.Sprintf("The value given is lower than %v so please enter another value.", r.Lower))
	case v > r.Upper:
		return Rejection(fmt.Sprintf("The value given is greater than %v so please enter another value.", r.Upper))
	}
	return nil
}

// ParseFloat parses an answer and checks it against r.
func (r Range) ParseFloat(answer string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
	if err != nil {
		return 0, Rejection("The value given must be a number.")
	}
	if err := r.Check(v); err != nil {
		return 0, err
	}
	return v, nil
}

// CheckPath returns the message to show when path is not a readable file.
func CheckPath(path string) error {
	path = strings.TrimSpace(path)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Rejection("This file does not exist. Try again. It must be formatted as: filename.extension")
	}
	return nil
}

// Prompter asks questions line by line on in and writes to out, re-asking
// after every invalid answer up to MaxRetries times.
type Prompter struct {
	in         *bufio.Scanner
	out        io.Writer
	MaxRetries int
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:         bufio.NewScanner(in),
		out:        out,
		MaxRetries: DefaultMaxRetries,
	}
}

func (p *Prompter) Float(question string, r Range) (float64, error) {
	var v float64
	err := p.ask(question, func(answer string) error {
		var err error
		v, err = r.ParseFloat(answer)
		return err
	})
	if err != nil {
		return 0, err
	}
	fmt.Fprintln(p.out, "Value is ok")
	return v, nil
}

func (p *Prompter) Path(question string) (string, error) {
	var path string
	err := p.ask(question, func(answer string) error {
		path = strings.TrimSpace(answer)
		return CheckPath(path)
	})
	if err != nil {
		return "", errors.Mark(err, fit.ErrMissingResource)
	}
	return path, nil
}

func (p *Prompter) ask(question string, accept func(string) error) error {
	retries := p.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	for attempt := 0; attempt < retries; attempt++ {
		fmt.Fprint(p.out, question, " ")
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return errors.Wrap(err, "prompt: read")
			}
			return errors.Mark(errors.Wrapf(io.ErrUnexpectedEOF, "prompt: %q", question), fit.ErrInvalidInput)
		}
		err := accept(p.in.Text())
		if err == nil {
			return nil
		}
		fmt.Fprintln(p.out, err.Error())
	}
	return errors.Wrapf(ErrRetriesExhausted, "%q after %d attempts", question, retries)
}
