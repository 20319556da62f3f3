package grading

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// ErrInvalidSlotList indicates a slots parameter that is not a comma separated list of positive integers.
var ErrInvalidSlotList = errors.New("invalid slot list")

// ParseSlots reads a comma separated slot list. An empty value means all slots
// and yields nil. The result is de-duplicated and ascending.
func ParseSlots(value string) ([]int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	slots := make([]int, 0, len(parts))
	for _, part := range parts {
		slot, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || slot <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSlotList, value)
		}
		slots = append(slots, slot)
	}

	slots = lo.Uniq(slots)
	sort.Ints(slots)
	return slots, nil
}

// FormatSlots renders slots in the comma separated form used by links.
func FormatSlots(slots []int) string {
	return strings.Join(lo.Map(slots, func(slot int, _ int) string {
		return strconv.Itoa(slot)
	}), ",")
}
