package ports

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// DefaultPatterns match the usual serial device nodes on Linux hosts.
var DefaultPatterns = []string{
	"/dev/ttyS*",
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/ttyAMA*",
}

// Enumerator lists the serial ports an RTU device can be attached to:
// the statically configured names followed by whatever the glob patterns
// match at call time.
type Enumerator struct {
	static   []string
	patterns []string
	logger   *zap.Logger
}

func NewEnumerator(static, patterns []string, logger *zap.Logger) *Enumerator {
	return &Enumerator{
		static:   append([]string(nil), static...),
		patterns: append([]string(nil), patterns...),
		logger:   logger,
	}
}

// List returns the port names without duplicates. Configured names keep
// their order; discovered ones are sorted.
func (e *Enumerator) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{}, len(e.static))
	result := make([]string, 0, len(e.static))

	for _, name := range e.static {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}

	discovered := make([]string, 0)
	for _, pattern := range e.patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid port pattern %q: %w", pattern, err)
		}

		for _, name := range matches {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			discovered = append(discovered, name)
		}
	}

	sort.Strings(discovered)
	result = append(result, discovered...)

	e.logger.Debug("Serial ports enumerated",
		zap.Int("configured", len(e.static)),
		zap.Int("discovered", len(discovered)))

	return result, nil
}
