package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SeverityTier buckets a confidence score into a discrete severity
type SeverityTier uint8

const (
	SeverityLow SeverityTier = iota // 🟢 informational findings
	SeverityMedium                  // 🟡 worth a look
	SeverityHigh                    // 🟠 should be fixed
	SeverityCritical                // 🔴 almost certainly a problem
)

var tierNames = [...]string{"low", "medium", "high", "critical"}

func (s SeverityTier) String() string {
	if int(s) < len(tierNames) {
		return tierNames[s]
	}
	return fmt.Sprintf("SeverityTier(%d)", uint8(s))
}

// ParseSeverityTier resolves a tier by name, case-insensitively.
func ParseSeverityTier(name string) (SeverityTier, error) {
	for i, tierName := range tierNames {
		if strings.EqualFold(tierName, name) {
			return SeverityTier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown severity tier %q", name)
}

// MarshalJSON renders the tier as its name so reports stay readable.
func (s SeverityTier) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SeverityTier) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	tier, err := ParseSeverityTier(name)
	if err != nil {
		return err
	}
	*s = tier
	return nil
}
