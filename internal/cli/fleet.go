package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	urfave "github.com/urfave/cli/v2"

	"github.com/okian/co2risk/internal/domain/policy"
)

var (
	policyFlag = &urfave.StringFlag{
		Name:  "policy",
		Usage: "Fleet policy key",
		Value: policy.EU20202024,
	}

	valuesFileFlag = &urfave.StringFlag{
		Name:  "file",
		Usage: "File with CO₂ values, one per line or comma separated (- for stdin)",
	}

	fleetCmd = &urfave.Command{
		Name:      "fleet",
		Usage:     "Evaluate fleet-average compliance for a list of CO₂ values",
		ArgsUsage: "[value ...]",
		Flags: []urfave.Flag{
			policyFlag,
			valuesFileFlag,
		},
		Action: cmdFleet,
	}

	policiesCmd = &urfave.Command{
		Name:   "policies",
		Usage:  "List fleet policies and the penalty rate",
		Action: cmdPolicies,
	}
)

func cmdFleet(c *urfave.Context) error {
	values, err := parseValues(strings.Join(c.Args().Slice(), ","))
	if err != nil {
		return err
	}
	if path := c.String(valuesFileFlag.Name); path != "" {
		fromFile, err := readValues(c, path)
		if err != nil {
			return err
		}
		values = append(values, fromFile...)
	}

	res, err := getService(c).FleetCompliance(c.Context, values, c.String(policyFlag.Name))
	if err != nil {
		return err
	}
	return encode(c, res)
}

func cmdPolicies(c *urfave.Context) error {
	svc := getService(c)
	return encode(c, map[string]any{
		"penalty_rate_per_gram": svc.PenaltyRate(),
		"policies":              svc.Policies(),
	})
}

func readValues(c *urfave.Context, path string) ([]float64, error) {
	var r io.Reader
	if path == "-" {
		r = c.App.Reader
		if r == nil {
			r = os.Stdin
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var values []float64
	sc := bufio.NewScanner(r)
	sc.Split(scanValues)
	for n := 1; sc.Scan(); n++ {
		v, err := parseValue(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("%s value %d: %w", path, n, err)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return values, nil
}

// scanValues is a bufio.SplitFunc yielding one value per token, so long
// comma separated lines never hit the scanner's token limit.
func scanValues(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && isSeparator(rune(data[start])) {
		start++
	}
	for i := start; i < len(data); i++ {
		if isSeparator(rune(data[i])) {
			return i + 1, data[start:i], nil
		}
	}
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

func isSeparator(r rune) bool {
	switch r {
	case ',', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// parseValues splits on commas and whitespace; blank fields are skipped.
func parseValues(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, isSeparator)
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := parseValue(f)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid CO₂ value %q", s)
	}
	return v, nil
}
