// Package adjust implements the human-in-the-loop correction step. Automatic
// clustering gets the routes close; an operator then moves the handful of
// addresses the geometry got wrong. The session reads commands from any
// io.Reader, so tests drive it with a scripted string.
package adjust

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/peter-mxtoolbox/treeroutes/internal/routes"
)

// Session is one interactive adjustment run over an assignment table.
// Every mutation is validated and written through to disk before the next
// prompt, so quitting (or crashing) never loses an accepted change.
type Session struct {
	log      *slog.Logger
	table    *routes.Table
	path     string       // path the table is saved to after each mutation
	capacity int          // capacity used by the violations report
	regen    func() error // regen rebuilds downstream outputs (map, sheets)
	in       io.Reader
	out      io.Writer
}

// NewSession creates an adjustment session. The regen hook may be nil.
func NewSession(
	table *routes.Table,
	path string,
	capacity int,
	regen func() error,
	in io.Reader,
	out io.Writer,
	log *slog.Logger,
) *Session {
	return &Session{
		log:      log,
		table:    table,
		path:     path,
		capacity: capacity,
		regen:    regen,
		in:       in,
		out:      out,
	}
}

// Run executes the command loop until "quit" or end of input.
func (s *Session) Run() error {
	s.printHelp()

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])

		if cmd == "quit" || cmd == "q" {
			break
		}

		if err := s.dispatch(cmd, fields[1:]); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read commands: %w", err)
	}
	return nil
}

func (s *Session) dispatch(cmd string, args []string) error {
	switch cmd {
	case "move":
		if len(args) != 2 {
			return errors.New("usage: move <address-id> <route>")
		}
		return s.move(args[0], strings.ToUpper(args[1]))
	case "merge":
		if len(args) != 2 {
			return errors.New("usage: merge <route-a> <route-b>")
		}
		return s.merge(strings.ToUpper(args[0]), strings.ToUpper(args[1]))
	case "violations":
		s.printViolations()
		return nil
	case "routes":
		s.printRoutes()
		return nil
	case "find":
		if len(args) == 0 {
			return errors.New("usage: find <name>")
		}
		s.find(strings.Join(args, " "))
		return nil
	case "regen":
		return s.regenerate()
	case "help":
		s.printHelp()
		return nil
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (s *Session) move(addressID, routeID string) error {
	if err := s.table.Move(addressID, routeID); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}
	record := s.table.Records[addressID]
	fmt.Fprintf(s.out, "moved %s (%s) to route %s (%d trees now)\n",
		record.Name, addressID, routeID, s.table.Trees(routeID))
	s.log.Info("Address moved", "address", addressID, "route", routeID)
	return nil
}

func (s *Session) merge(a, b string) error {
	if err := s.table.Merge(a, b); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "merged route %s into %s: %d pickups, %d trees\n",
		b, a, len(s.table.Route(a)), s.table.Trees(a))
	if s.table.Trees(a) > s.capacity {
		fmt.Fprintf(s.out, "warning: route %s is over capacity by %d trees\n",
			a, s.table.Trees(a)-s.capacity)
	}
	s.log.Info("Routes merged", "into", a, "from", b)
	return nil
}

func (s *Session) save() error {
	if err := s.table.Save(s.path); err != nil {
		return fmt.Errorf("change not saved: %w", err)
	}
	return nil
}

func (s *Session) regenerate() error {
	if s.regen == nil {
		return errors.New("no output generator configured")
	}
	if err := s.regen(); err != nil {
		return fmt.Errorf("failed to regenerate outputs: %w", err)
	}
	fmt.Fprintln(s.out, "outputs regenerated")
	return nil
}

func (s *Session) printViolations() {
	violations := s.table.Violations(s.capacity)
	if len(violations) == 0 {
		fmt.Fprintf(s.out, "all routes within %d tree capacity\n", s.capacity)
		return
	}
	for _, v := range violations {
		fmt.Fprintf(s.out, "route %s: %d pickups, %d trees (over by %d)\n",
			v.RouteID, v.Pickups, v.Trees, v.Over)
	}
}

func (s *Session) printRoutes() {
	for _, routeID := range s.table.RouteIDs() {
		addrs := s.table.Route(routeID)
		fmt.Fprintf(s.out, "route %s: %d pickups, %d trees\n",
			routeID, len(addrs), s.table.Trees(routeID))
	}
}

func (s *Session) find(name string) {
	needle := strings.ToLower(name)
	found := 0
	for _, routeID := range s.table.RouteIDs() {
		for _, addr := range s.table.Route(routeID) {
			if strings.Contains(strings.ToLower(addr.Name), needle) {
				fmt.Fprintf(s.out, "%s  %s  route %s  %d trees  %s\n",
					addr.ID, addr.Name, routeID, addr.Trees, addr.Address)
				found++
			}
		}
	}
	if found == 0 {
		fmt.Fprintf(s.out, "no addresses matching %q\n", name)
	}
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.out, `commands:
  move <address-id> <route>   move one address to another route
  merge <route-a> <route-b>   fold route-b into route-a
  violations                  list routes over capacity
  routes                      list all routes with totals
  find <name>                 look up an address id by requester name
  regen                       regenerate map and route sheets
  quit                        exit`)
}
