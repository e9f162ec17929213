package models

import "strings"

// IssueKind identifies a detectable code smell as an enum
type IssueKind uint16

const (
	KindMagicNumber IssueKind = iota
	KindHardcodedThreshold
	KindHardcodedTimeout
	KindConcurrencyPrimitiveAbuse
	KindUnwrapAbuse
	KindSleepAbuse
	KindCloneAbuse

	// KindCustomBase is the first identifier handed out for custom rules.
	// Registries allocate custom kinds upward from here, so built-in kinds
	// can be added below without colliding.
	KindCustomBase IssueKind = 100
)

var kindNames = map[IssueKind]string{
	KindMagicNumber:               "MagicNumber",
	KindHardcodedThreshold:        "HardcodedThreshold",
	KindHardcodedTimeout:          "HardcodedTimeout",
	KindConcurrencyPrimitiveAbuse: "ConcurrencyPrimitiveAbuse",
	KindUnwrapAbuse:               "UnwrapAbuse",
	KindSleepAbuse:                "SleepAbuse",
	KindCloneAbuse:                "CloneAbuse",
}

func (k IssueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Custom"
}

// IsCustom reports whether the kind was allocated for a custom rule.
func (k IssueKind) IsCustom() bool {
	return k >= KindCustomBase
}

// KindFromName resolves a built-in kind by its name, case-insensitively.
func KindFromName(name string) (IssueKind, bool) {
	for kind, kindName := range kindNames {
		if strings.EqualFold(kindName, name) {
			return kind, true
		}
	}
	return 0, false
}

// BuiltinKinds returns the built-in kinds in ascending order.
func BuiltinKinds() []IssueKind {
	return []IssueKind{
		KindMagicNumber,
		KindHardcodedThreshold,
		KindHardcodedTimeout,
		KindConcurrencyPrimitiveAbuse,
		KindUnwrapAbuse,
		KindSleepAbuse,
		KindCloneAbuse,
	}
}
