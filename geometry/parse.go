package geometry

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is returned for geometry text that cannot be read.
var ErrParse = errors.New("geometry: cannot parse")

// Format identifies a geometry text format.
type Format string

const (
	// FormatDidgmo is the legacy single-line format
	// DIDGMO:<length_mm>,<d1>,<d2>,...,<dn> with evenly spaced diameters in mm.
	FormatDidgmo Format = "DIDGMO"
	// FormatCSV holds one "position,diameter" pair per line, in mm.
	FormatCSV Format = "CSV"
	// FormatJSON is an array of {"position","diameter"} objects, or an object
	// {"unit": "mm|cm|m|in", "points": [...]}.
	FormatJSON Format = "JSON"
)

// Parsed is the decoded content of a geometry text.
type Parsed struct {
	Length    Length   `json:"length"`
	Diameters []Length `json:"diameters"`
	Format    Format   `json:"format"`

	// positions is nil for DIDGMO, where samples are evenly spaced
	positions []Length
}

// Points converts the parsed profile into validated bore points. A DIDGMO
// profile with a single diameter describes a uniform bore.
func (p *Parsed) Points() ([]Point, error) {
	var points []Point

	switch {
	case p.positions != nil:
		points = make([]Point, len(p.positions))
		for i := range p.positions {
			points[i] = Point{Position: p.positions[i], Diameter: p.Diameters[i]}
		}
	case len(p.Diameters) == 1:
		points = []Point{
			{Position: 0, Diameter: p.Diameters[0]},
			{Position: p.Length, Diameter: p.Diameters[0]},
		}
	default:
		n := len(p.Diameters)
		points = make([]Point, n)
		for i, d := range p.Diameters {
			points[i] = Point{
				Position: p.Length * Length(i) / Length(n-1),
				Diameter: d,
			}
		}
	}

	if err := Validate(points); err != nil {
		return nil, err
	}
	return points, nil
}

// ParseGeometry decodes geometry text in any supported format.
func ParseGeometry(text string) (*Parsed, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty input", ErrParse)
	}

	if text[0] == '[' || text[0] == '{' {
		return parseJSON(text)
	}

	if prefix, rest, ok := strings.Cut(text, ":"); ok && isWord(prefix) {
		if !strings.EqualFold(prefix, string(FormatDidgmo)) {
			return nil, fmt.Errorf("%w: unknown format prefix %q", ErrParse, prefix)
		}
		return parseDidgmo(rest)
	}

	return parseCSV(text)
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

func parseDidgmo(body string) (*Parsed, error) {
	fields := strings.Split(strings.TrimSpace(body), ",")
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: DIDGMO needs a length and at least one diameter", ErrParse)
	}

	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := parseNumber(f)
		if err != nil {
			return nil, fmt.Errorf("%w: DIDGMO field %d: %v", ErrParse, i+1, err)
		}
		values[i] = v
	}

	parsed := &Parsed{
		Length:    Length(values[0]) * Millimeter,
		Diameters: make([]Length, len(values)-1),
		Format:    FormatDidgmo,
	}
	for i, v := range values[1:] {
		parsed.Diameters[i] = Length(v) * Millimeter
	}

	return parsed, nil
}

func parseCSV(text string) (*Parsed, error) {
	parsed := &Parsed{Format: FormatCSV}

	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pos, diam, ok := strings.Cut(line, ",")
		if !ok {
			pos, diam, ok = strings.Cut(line, ";")
		}
		if !ok {
			return nil, fmt.Errorf("%w: line %d: expected position,diameter", ErrParse, lineNo)
		}

		p, err := parseNumber(pos)
		if err != nil {
			// a non-numeric first row is a header
			if len(parsed.positions) == 0 && lineNo == 1 {
				continue
			}
			return nil, fmt.Errorf("%w: line %d: %v", ErrParse, lineNo, err)
		}
		d, err := parseNumber(diam)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrParse, lineNo, err)
		}

		parsed.positions = append(parsed.positions, Length(p)*Millimeter)
		parsed.Diameters = append(parsed.Diameters, Length(d)*Millimeter)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if len(parsed.positions) == 0 {
		return nil, fmt.Errorf("%w: no geometry rows", ErrParse)
	}
	parsed.Length = parsed.positions[len(parsed.positions)-1] - parsed.positions[0]

	return parsed, nil
}

type jsonPoint struct {
	Position *float64 `json:"position"`
	Diameter *float64 `json:"diameter"`
}

type jsonProfile struct {
	Unit   string      `json:"unit"`
	Points []jsonPoint `json:"points"`
}

func parseJSON(text string) (*Parsed, error) {
	var profile jsonProfile
	if text[0] == '[' {
		if err := json.Unmarshal([]byte(text), &profile.Points); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	} else if err := json.Unmarshal([]byte(text), &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	unit, err := unitFor(profile.Unit)
	if err != nil {
		return nil, err
	}
	if len(profile.Points) == 0 {
		return nil, fmt.Errorf("%w: no geometry points", ErrParse)
	}

	parsed := &Parsed{Format: FormatJSON}
	for i, p := range profile.Points {
		if p.Position == nil || p.Diameter == nil {
			return nil, fmt.Errorf("%w: point %d needs position and diameter", ErrParse, i)
		}
		parsed.positions = append(parsed.positions, Length(*p.Position)*unit)
		parsed.Diameters = append(parsed.Diameters, Length(*p.Diameter)*unit)
	}
	parsed.Length = parsed.positions[len(parsed.positions)-1] - parsed.positions[0]

	return parsed, nil
}

func unitFor(name string) (Length, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mm":
		return Millimeter, nil
	case "cm":
		return Centimeter, nil
	case "m":
		return Meter, nil
	case "in", "inch":
		return Inch, nil
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrParse, name)
	}
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
