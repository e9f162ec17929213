package models

// Alert is a single reported finding. Alerts are immutable once returned
// and always sorted by (file, line, column, kind), never by the order the
// matching rules were registered in.
type Alert struct {
	Kind         IssueKind    `json:"-" msgpack:"kind"`
	KindName     string       `json:"kind" msgpack:"kind_name"`
	Severity     SeverityTier `json:"severity" msgpack:"severity"`
	Confidence   float64      `json:"confidence" msgpack:"confidence"`
	File         string       `json:"file,omitempty" msgpack:"file"`
	Line         int          `json:"line" msgpack:"line"`
	Column       int          `json:"column" msgpack:"column"`
	Snippet      string       `json:"snippet" msgpack:"snippet"`
	Rationale    string       `json:"rationale" msgpack:"rationale"`
	SuggestedFix string       `json:"suggested_fix" msgpack:"suggested_fix"`
}
