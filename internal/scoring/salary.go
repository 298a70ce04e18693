package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

// Boards state salaries as free text: "R$ 4.000 - R$ 6.500", "80k-100k",
// "a partir de 5000". The parser extracts a numeric [min,max] range and
// reports false when no usable numbers are present.

var salaryNumberRe = regexp.MustCompile(`(\d[\d.,]*)\s*([kK])?`)

// ParseSalaryRange extracts a monthly salary range from free text. A
// single number yields a degenerate range [n, n].
func ParseSalaryRange(text string) (minSalary, maxSalary int, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, 0, false
	}

	matches := salaryNumberRe.FindAllStringSubmatch(text, -1)
	var values []int
	for _, m := range matches {
		value, parsed := parseAmount(m[1], m[2] != "")
		if !parsed || value <= 0 {
			continue
		}
		values = append(values, value)
	}

	if len(values) == 0 {
		return 0, 0, false
	}

	minSalary, maxSalary = values[0], values[0]
	for _, v := range values[1:] {
		if v < minSalary {
			minSalary = v
		}
		if v > maxSalary {
			maxSalary = v
		}
	}

	return minSalary, maxSalary, true
}

func parseAmount(raw string, thousands bool) (int, bool) {
	// "4.000" and "4,000" are thousand separators; "4.5k" is a decimal.
	cleaned := strings.NewReplacer(".", "", ",", "").Replace(raw)

	if thousands {
		// Keep one decimal place for forms like "4.5k".
		if idx := strings.IndexAny(raw, ".,"); idx != -1 && len(raw)-idx-1 <= 2 {
			f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
			if err != nil {
				return 0, false
			}
			return int(f * 1000), true
		}

		n, err := strconv.Atoi(cleaned)
		if err != nil {
			return 0, false
		}
		return n * 1000, true
	}

	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return n, true
}
