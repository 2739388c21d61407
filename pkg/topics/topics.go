// Package topics implements MQTT topic filter validation and matching.
package topics

import (
	"strings"

	"github.com/rotisserie/eris"
)

const separator = "/"

// ValidateFilter checks that a subscription filter follows the MQTT rules:
// `+` and `#` must occupy a whole level, `#` only as the last level.
func ValidateFilter(filter string) error {
	if filter == "" {
		return eris.New("empty topic filter")
	}
	levels := strings.Split(filter, separator)
	for i, level := range levels {
		if level == "#" {
			if i != len(levels)-1 {
				return eris.Errorf("'#' must be the last level in filter %q", filter)
			}
			continue
		}
		if strings.Contains(level, "#") {
			return eris.Errorf("'#' must occupy a whole level in filter %q", filter)
		}
		if level != "+" && strings.Contains(level, "+") {
			return eris.Errorf("'+' must occupy a whole level in filter %q", filter)
		}
	}
	return nil
}

// ValidateTopic checks a concrete topic name as used for publishing or
// received from the broker. Wildcards are not allowed here.
func ValidateTopic(topic string) error {
	if topic == "" {
		return eris.New("empty topic")
	}
	if strings.ContainsAny(topic, "+#") {
		return eris.Errorf("topic %q must not contain wildcards", topic)
	}
	return nil
}

// Match reports whether a concrete topic matches a subscription filter.
// `+` matches exactly one level, a trailing `#` matches the remaining levels
// including the parent itself ("sensors/#" matches "sensors"). Matching is
// case-sensitive.
func Match(filter, topic string) bool {
	if filter == topic {
		return true
	}

	fl := strings.Split(filter, separator)
	tl := strings.Split(topic, separator)

	for i, f := range fl {
		if f == "#" {
			return true
		}
		if i >= len(tl) {
			// "sensors/#" also matches "sensors"
			return f == "#"
		}
		if f != "+" && f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
