package grading

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSlots(t *testing.T) {
	slots, err := ParseSlots("")
	require.NoError(t, err)
	require.Nil(t, slots)

	slots, err = ParseSlots("3,1, 2,3")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, slots)

	for _, invalid := range []string{"1,,2", "a", "0", "-1", "1;2"} {
		_, err := ParseSlots(invalid)
		require.ErrorIs(t, err, ErrInvalidSlotList, invalid)
	}
}

func TestFormatSlots(t *testing.T) {
	require.Equal(t, "", FormatSlots(nil))
	require.Equal(t, "1,4,10", FormatSlots([]int{1, 4, 10}))
}
