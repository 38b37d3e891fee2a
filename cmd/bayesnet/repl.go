package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/CTAG07/bayesnet/pkg/bayes"
)

const menu = `Available commands:
	markov <variable_name>      = print Markov blanket
	evidence <name> <value>     = add evidence with value
	remove_evidence <name>      = remove evidence
	print_evidence              = shows currently added evidence
	query <name>                = add a variable to the query
	remove_query <name>         = remove a variable from the query
	steps <number>              = sets number of steps, default 1000
	network                     = prints the network loaded from file
	stats                       = prints statistics about the network
	MCMC or mcmc                = mcmc using evidence, query, steps
	history                     = shows the most recent runs
	exit                        = exits the program
	help                        = displays this message
`

const prompt = "Input your command: "

var (
	errExit     = errors.New("exit requested")
	errNotSet   = errors.New("not set")
	errNoQuery  = errors.New("no query variables, add one with 'query <name>'")
	errDisabled = errors.New("run history is disabled")
)

// Interface is the state of one interactive session: the evidence and query
// collected so far and the number of steps to sample.
type Interface struct {
	Evidence bayes.Evidence
	Query    []string
	Steps    int

	sampler      *Sampler
	historyLimit int
	out          io.Writer
}

// NewInterface creates a session that reports to out.
func NewInterface(sampler *Sampler, steps, historyLimit int, out io.Writer) *Interface {
	return &Interface{
		Evidence:     bayes.Evidence{},
		Steps:        steps,
		sampler:      sampler,
		historyLimit: historyLimit,
		out:          out,
	}
}

type command struct {
	usage string
	args  int
	run   func(in *Interface, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"markov":          {usage: "markov <variable_name>", args: 1, run: (*Interface).markov},
	"evidence":        {usage: "evidence <name> <value>", args: 2, run: (*Interface).evidence},
	"remove_evidence": {usage: "remove_evidence <name>", args: 1, run: (*Interface).removeEvidence},
	"print_evidence":  {usage: "print_evidence", run: (*Interface).printEvidence},
	"query":           {usage: "query <name>", args: 1, run: (*Interface).query},
	"remove_query":    {usage: "remove_query <name>", args: 1, run: (*Interface).removeQuery},
	"steps":           {usage: "steps <number>", args: 1, run: (*Interface).steps},
	"network":         {usage: "network", run: (*Interface).network},
	"stats":           {usage: "stats", run: (*Interface).stats},
	"mcmc":            {usage: "mcmc", run: (*Interface).mcmc},
	"MCMC":            {usage: "MCMC", run: (*Interface).mcmc},
	"history":         {usage: "history", run: (*Interface).history},
	"help":            {usage: "help", run: (*Interface).help},
	"exit":            {usage: "exit", run: (*Interface).exit},
}

// Execute runs a single command line. It returns false once the session
// should end.
func (in *Interface) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd, ok := commands[fields[0]]
	if !ok {
		fmt.Fprintln(in.out, "Wrong input, type 'help' for the list of commands.")
		return true
	}
	args := fields[1:]
	if len(args) != cmd.args {
		fmt.Fprintf(in.out, "Usage: %s\n", cmd.usage)
		return true
	}
	if err := cmd.run(in, ctx, args); err != nil {
		if errors.Is(err, errExit) {
			return false
		}
		fmt.Fprintf(in.out, "Something went wrong: %v\n", err)
		return true
	}
	fmt.Fprintln(in.out, "Command accepted.")
	return true
}

// Loop reads commands from r until exit or end of input.
func (in *Interface) Loop(ctx context.Context, r io.Reader) error {
	fmt.Fprint(in.out, menu)
	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprint(in.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(in.out)
			return scanner.Err()
		}
		if !in.Execute(ctx, scanner.Text()) {
			return nil
		}
	}
}

func (in *Interface) markov(_ context.Context, args []string) error {
	blanket, err := in.sampler.Network().MarkovBlanket(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(in.out, "markov blanket for %s:\n[%s]\n", args[0], strings.Join(blanket, ", "))
	return nil
}

// evidence sets name = value. Unknown names and values are rejected without
// touching the current evidence.
func (in *Interface) evidence(_ context.Context, args []string) error {
	name, value := args[0], args[1]
	node, err := in.sampler.Network().Node(name)
	if err != nil {
		return err
	}
	if !node.HasValue(value) {
		return fmt.Errorf("'%s' is not a value of '%s', expected one of [%s]", value, name, strings.Join(node.Values, ", "))
	}
	in.Evidence[name] = value
	return nil
}

func (in *Interface) removeEvidence(_ context.Context, args []string) error {
	if _, ok := in.Evidence[args[0]]; !ok {
		return fmt.Errorf("evidence for '%s' %w", args[0], errNotSet)
	}
	delete(in.Evidence, args[0])
	return nil
}

func (in *Interface) printEvidence(context.Context, []string) error {
	fmt.Fprintln(in.out, in.Evidence)
	return nil
}

func (in *Interface) query(_ context.Context, args []string) error {
	name := args[0]
	if !in.sampler.Network().Has(name) {
		return fmt.Errorf("%w: '%s'", bayes.ErrUnknownVariable, name)
	}
	if !slices.Contains(in.Query, name) {
		in.Query = append(in.Query, name)
	}
	return nil
}

func (in *Interface) removeQuery(_ context.Context, args []string) error {
	i := slices.Index(in.Query, args[0])
	if i < 0 {
		return fmt.Errorf("query '%s' %w", args[0], errNotSet)
	}
	in.Query = slices.Delete(in.Query, i, i+1)
	return nil
}

func (in *Interface) steps(_ context.Context, args []string) error {
	steps, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid number of steps '%s'", args[0])
	}
	if steps < 1 {
		return fmt.Errorf("%w: %d", bayes.ErrInvalidSteps, steps)
	}
	in.Steps = steps
	return nil
}

func (in *Interface) network(context.Context, []string) error {
	fmt.Fprint(in.out, in.sampler.Network())
	return nil
}

func (in *Interface) stats(context.Context, []string) error {
	s, err := in.sampler.Network().Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(in.out, "nodes: %d\nedges: %d\ntable rows: %d\nroots: %d\nleaves: %d\n", s.Nodes, s.Edges, s.TableRows, s.Roots, s.Leaves)
	fmt.Fprintf(in.out, "mean parents: %.2f\nmax parents: %d\nlargest markov blanket: %d\n", s.MeanParents, s.MaxParents, s.MaxBlanket)
	return nil
}

func (in *Interface) mcmc(ctx context.Context, _ []string) error {
	if len(in.Query) == 0 {
		return errNoQuery
	}
	run, err := in.sampler.Run(ctx, in.Evidence, in.Query, in.Steps)
	if err != nil {
		return err
	}
	fmt.Fprintf(in.out, "The probability of: [%s]\n", strings.Join(in.Query, ", "))
	fmt.Fprintf(in.out, "Given that: %v\n", in.Evidence)
	fmt.Fprintf(in.out, "Obtained in %d steps is:\n", in.Steps)
	fmt.Fprintln(in.out, run.Estimate)
	return nil
}

func (in *Interface) history(ctx context.Context, _ []string) error {
	h := in.sampler.History()
	if h == nil {
		return errDisabled
	}
	runs, err := h.Recent(ctx, in.historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(in.out, "No runs recorded yet.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(in.out, "%s  %s  steps=%d  query=[%s]  evidence=%v\n  %v\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"), run.ID, run.Steps,
			strings.Join(run.Query, ", "), run.Evidence, run.Estimate)
	}
	return nil
}

func (in *Interface) help(context.Context, []string) error {
	fmt.Fprint(in.out, menu)
	return nil
}

func (in *Interface) exit(context.Context, []string) error {
	return errExit
}
