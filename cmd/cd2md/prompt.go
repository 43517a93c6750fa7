package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cd2md/internal/cddb"
	"cd2md/internal/netmd"
	"cd2md/internal/workflow"
)

// prompter asks questions on out and reads answers from in.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// choose lists CDDB matches and returns the picked index.
func (p *prompter) choose(choices []cddb.Choice) (int, error) {
	fmt.Fprintln(p.out, "Multiple CDDB entries match this disc:")
	for i, c := range choices {
		fmt.Fprintf(p.out, "  %2d) [%s] %s\n", i+1, c.Genre(), c.Description)
	}
	for {
		fmt.Fprintf(p.out, "Select entry [1-%d]: ", len(choices))
		line, err := p.readLine()
		if err != nil {
			return -1, err
		}
		if line == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(choices) {
			return n - 1, nil
		}
		fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n", len(choices))
	}
}

// confirm asks a y/n question. Anything but y/yes is no.
func (p *prompter) confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/n]: ", question)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// eraseDecision handles a MiniDisc that already holds tracks.
func (p *prompter) eraseDecision(md netmd.DiscInfo) (workflow.EraseDecision, error) {
	title := md.Name
	if strings.TrimSpace(title) == "" {
		title = "<untitled>"
	}
	fmt.Fprintf(p.out, "MiniDisc %q holds %d tracks (%s free).\n",
		title, md.TrackCount, netmd.FormatDuration(md.FreeSeconds))
	for {
		fmt.Fprint(p.out, "(a)ppend, (e)rase or (q)uit? ")
		line, err := p.readLine()
		if err != nil {
			return workflow.DecisionAbort, err
		}
		switch strings.ToLower(line) {
		case "a", "append":
			return workflow.DecisionAppend, nil
		case "e", "erase":
			return workflow.DecisionErase, nil
		case "q", "quit":
			return workflow.DecisionAbort, nil
		}
	}
}
