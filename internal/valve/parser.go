package valve

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Parser turns puzzle text into a Network. Build one with NewParser and reuse it.
type Parser struct {
	record *regexp.Regexp
	name   *regexp.Regexp
}

func NewParser() *Parser {
	return &Parser{
		record: regexp.MustCompile(`^Valve (\S+) has flow rate=(\d+); (?:tunnels lead to valves|tunnel leads to valve) (.+)$`),
		name:   regexp.MustCompile(`^[A-Za-z0-9]+$`),
	}
}

func (p *Parser) Parse(input string) (*Network, error) {
	var valves []Valve
	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := p.parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		valves = append(valves, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return NewNetwork(valves)
}

func (p *Parser) parseLine(line string) (Valve, error) {
	m := p.record.FindStringSubmatch(line)
	if m == nil {
		return Valve{}, fmt.Errorf("%w: %q", ErrMalformedRecord, line)
	}
	if !p.name.MatchString(m[1]) {
		return Valve{}, fmt.Errorf("%w: bad valve name %q", ErrMalformedRecord, m[1])
	}
	flow, err := strconv.Atoi(m[2])
	if err != nil {
		return Valve{}, fmt.Errorf("%w: flow rate %q: %v", ErrMalformedRecord, m[2], err)
	}
	parts := strings.Split(m[3], ",")
	tunnels := make([]string, 0, len(parts))
	for _, part := range parts {
		t := strings.TrimSpace(part)
		if !p.name.MatchString(t) {
			return Valve{}, fmt.Errorf("%w: bad tunnel target %q", ErrMalformedRecord, t)
		}
		tunnels = append(tunnels, t)
	}
	return Valve{Name: m[1], Flow: flow, Tunnels: tunnels}, nil
}
