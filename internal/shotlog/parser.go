package shotlog

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vburojevic/shotbridge/internal/domain"
	"github.com/vburojevic/shotbridge/internal/logger"
)

// LaunchVarsMarker identifies launch-variables records in the simulator log.
const LaunchVarsMarker = "LaunchExt Vars:"

const number = `([-+]?\d+(?:\.\d+)?)`

var launchVarsPattern = regexp.MustCompile(
	`sp ` + number + `, el ` + number + `, az ` + number + `, ts ` + number +
		`, sa ` + number + `, cy ([-+]?\d+), id ([-+]?\d+)`,
)

// ParseLine extracts a shot from one log line.
// It returns nil, nil when the line is not a launch-variables record.
func ParseLine(line string) (*domain.Shot, error) {
	if !strings.Contains(line, LaunchVarsMarker) {
		return nil, nil
	}
	m := launchVarsPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}

	// m[6] is the club metric, which the simulator does not take.
	speed, err := parseFloat("sp", m[1])
	if err != nil {
		return nil, err
	}
	vla, err := parseFloat("el", m[2])
	if err != nil {
		return nil, err
	}
	hla, err := parseFloat("az", m[3])
	if err != nil {
		return nil, err
	}
	spin, err := parseFloat("ts", m[4])
	if err != nil {
		return nil, err
	}
	axis, err := parseFloat("sa", m[5])
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(m[7])
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", m[7], err)
	}

	return domain.NewBallShot(domain.NewBallData(speed, axis, spin, hla, vla), id), nil
}

func parseFloat(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("parse %s %q: value is not finite", field, raw)
	}
	return v, nil
}

// ParserStats counts what the parser has seen.
type ParserStats struct {
	Matched int
	Missed  int
	Errors  int
}

// Parser wraps ParseLine with logging and counters. It never fails: bad
// records are logged and reported as no shot.
type Parser struct {
	logger *zap.Logger

	mu    sync.Mutex
	stats ParserStats
}

// NewParser creates a parser logging to l (nil disables logging).
func NewParser(l *zap.Logger) *Parser {
	return &Parser{logger: logger.OrNop(l)}
}

// Parse returns the shot on the line, or nil.
func (p *Parser) Parse(line string) *domain.Shot {
	if !strings.Contains(line, LaunchVarsMarker) {
		return nil
	}
	p.logger.Debug("found launch vars record", zap.String("line", line))

	shot, err := ParseLine(line)
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case err != nil:
		p.stats.Errors++
		p.logger.Error("failed to parse launch vars", zap.Error(err), zap.String("line", line))
		return nil
	case shot == nil:
		p.stats.Missed++
		return nil
	}
	p.stats.Matched++
	return shot
}

// Stats returns a snapshot of the counters.
func (p *Parser) Stats() ParserStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
