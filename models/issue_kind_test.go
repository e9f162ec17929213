package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueKindString(t *testing.T) {
	testCases := []struct {
		name     string
		kind     IssueKind
		expected string
	}{
		{"magic number", KindMagicNumber, "MagicNumber"},
		{"hardcoded threshold", KindHardcodedThreshold, "HardcodedThreshold"},
		{"hardcoded timeout", KindHardcodedTimeout, "HardcodedTimeout"},
		{"concurrency abuse", KindConcurrencyPrimitiveAbuse, "ConcurrencyPrimitiveAbuse"},
		{"unwrap abuse", KindUnwrapAbuse, "UnwrapAbuse"},
		{"sleep abuse", KindSleepAbuse, "SleepAbuse"},
		{"clone abuse", KindCloneAbuse, "CloneAbuse"},
		{"custom kind", KindCustomBase, "Custom"},
		{"custom kind above base", KindCustomBase + 7, "Custom"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.kind.String())
		})
	}
}

func TestKindFromName(t *testing.T) {
	kind, ok := KindFromName("MagicNumber")
	require.True(t, ok)
	assert.Equal(t, KindMagicNumber, kind)

	// Case-insensitive lookup
	kind, ok = KindFromName("unwrapabuse")
	require.True(t, ok)
	assert.Equal(t, KindUnwrapAbuse, kind)

	_, ok = KindFromName("NoSuchKind")
	assert.False(t, ok)
}

func TestIsCustom(t *testing.T) {
	for _, kind := range BuiltinKinds() {
		assert.False(t, kind.IsCustom(), "builtin kind %s flagged custom", kind)
	}
	assert.True(t, KindCustomBase.IsCustom())
	assert.True(t, (KindCustomBase + 1).IsCustom())
}

func TestBuiltinKindsRoundTrip(t *testing.T) {
	// Every builtin kind resolves back to itself through its name.
	for _, kind := range BuiltinKinds() {
		resolved, ok := KindFromName(kind.String())
		require.True(t, ok, "kind %s not resolvable", kind)
		assert.Equal(t, kind, resolved)
	}
}
