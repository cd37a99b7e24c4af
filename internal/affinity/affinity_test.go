package affinity

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidIndexClampsOutOfRangeToZero(t *testing.T) {
	require.Equal(t, 0, ValidIndex(-1))
	require.Equal(t, 0, ValidIndex(runtime.NumCPU()+1000))
}

func TestValidIndexPassesThroughInRangeValues(t *testing.T) {
	require.Equal(t, 0, ValidIndex(0))
}
