package instance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDPrefersExplicitValue(t *testing.T) {
	t.Setenv("ORDERDESK_INSTANCE_ID", "api-7")
	t.Setenv("DYNO", "web.1")
	require.Equal(t, "api-7", ID())
}

func TestIDFallsBackToDyno(t *testing.T) {
	t.Setenv("ORDERDESK_INSTANCE_ID", "")
	t.Setenv("DYNO", "web.1")
	require.Equal(t, "web.1", ID())
}

func TestIDNeverEmpty(t *testing.T) {
	t.Setenv("ORDERDESK_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	require.NotEmpty(t, ID())
}
