package parsers

import (
	"bufio"
	"io"
	"strings"
	"time"

	logpkg "github.com/haukened/rr-filter/internal/filter/common/log"
	"github.com/haukened/rr-filter/internal/filter/domain"
)

// ParsePlainList parses a newline-delimited list of domains into deny rules
// with sequential ids starting at firstID. A leading "*." or "." marks the
// entry as covering subdomains only.
//
// Behavior:
// - Supports comments starting with '#' (inline or whole-line)
// - Skips empty lines and entries that are not valid registrable names
// - De-duplicates by canonical name and marker while preserving first-seen order
// - Each rule is attributed to the provided source and timestamped with now
func ParsePlainList(r io.Reader, source string, firstID int, logger logpkg.Logger, now time.Time) ([]domain.DomainRule, error) {
	scanner := bufio.NewScanner(r)

	seen := make(map[string]struct{})
	out := make([]domain.DomainRule, 0, 256)
	logger.Debug(map[string]any{"source": source}, "parse_plain_list_start")
	nextID := firstID
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())

		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}

		s := strings.TrimSpace(stripInlineComment(line))
		onlySubdomains := subdomainsOnlyFromRaw(s)
		name := normalizeDomainName(s)

		if !isValidFQDN(name) {
			logger.Debug(map[string]any{"line": lineNum, "raw": s, "name": name}, "skip_invalid_fqdn")
			continue
		}

		seenKey := name
		if onlySubdomains {
			seenKey = "*." + name
		}
		if _, ok := seen[seenKey]; ok {
			logger.Debug(map[string]any{"line": lineNum, "name": name}, "skip_duplicate")
			continue
		}

		rule, err := domain.NewDomainRule(nextID, name, domain.ListDeny, source, now)
		if err != nil {
			// public suffixes and similar entries cannot anchor a rule
			logger.Debug(map[string]any{"line": lineNum, "name": name, "error": err.Error()}, "skip_constructor_error")
			continue
		}
		rule.OnlySubdomains = onlySubdomains
		out = append(out, rule)
		seen[seenKey] = struct{}{}
		nextID++
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_plain_list_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_plain_list_done")
	return out, nil
}
