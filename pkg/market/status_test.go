package market

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusFromWire(t *testing.T) {
	names := map[int64]string{
		0: "Pending Verification",
		1: "Rejected",
		2: "Available",
		3: "Hidden",
		4: "Reserved",
		5: "Sold",
		6: "Unavailable",
	}
	seen := make(map[string]bool)
	for code, name := range names {
		s, err := StatusFromWire(code)
		require.NoError(t, err)
		require.Equal(t, name, s.String())
		require.True(t, s.IsValid())
		require.False(t, seen[name])
		seen[name] = true
	}

	for _, code := range []int64{-1, 7, 8, 255, 256, 1 << 40} {
		_, err := StatusFromWire(code)
		require.ErrorIs(t, err, ErrUnknownStatus, code)
		require.ErrorIs(t, err, ErrData, code)
	}
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "Sold", Sold.String())
	require.Equal(t, "Unknown(9)", Status(9).String())
	require.False(t, Status(7).IsValid())
}

func TestParseStatus(t *testing.T) {
	for in, expected := range map[string]Status{
		"Pending Verification": PendingVerification,
		"pendingverification":  PendingVerification,
		"pending-verification": PendingVerification,
		"AVAILABLE":            Available,
		"sold":                 Sold,
		"6":                    Unavailable,
		"0":                    PendingVerification,
	} {
		t.Run(in, func(t *testing.T) {
			s, err := ParseStatus(in)
			require.NoError(t, err)
			require.Equal(t, expected, s)
		})
	}
	for _, in := range []string{"", "pending", "7", "-1", "gone"} {
		_, err := ParseStatus(in)
		require.ErrorIs(t, err, ErrUnknownStatus, in)
	}
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(Available)
	require.NoError(t, err)
	require.Equal(t, `"Available"`, string(data))

	var s Status
	require.NoError(t, json.Unmarshal([]byte(`"Pending Verification"`), &s))
	require.Equal(t, PendingVerification, s)

	require.Error(t, json.Unmarshal([]byte(`"Burnt"`), &s))
	_, err = json.Marshal(Status(10))
	require.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(PendingVerification, Available))
	require.True(t, CanTransition(PendingVerification, Rejected))
	require.True(t, CanTransition(Available, Sold))
	require.True(t, CanTransition(Sold, Available))
	require.True(t, CanTransition(Sold, Unavailable))
	require.True(t, CanTransition(Unavailable, Available))

	require.False(t, CanTransition(Available, PendingVerification))
	require.False(t, CanTransition(PendingVerification, Sold))
	require.False(t, CanTransition(Rejected, Sold))
	require.False(t, CanTransition(Status(42), Available))
}
