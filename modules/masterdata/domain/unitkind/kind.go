package unitkind

import (
	"encoding/json"
	"fmt"
)

// Kind classifies an organizational unit. The numeric value encodes the
// hierarchical level: a child must be of equal or more local kind than its
// parent.
type Kind int

const (
	Unspecified Kind = iota
	Federal
	Canton
	District
	Municipality
	Church
	Other
)

var names = map[Kind]string{
	Unspecified:  "unspecified",
	Federal:      "federal",
	Canton:       "canton",
	District:     "district",
	Municipality: "municipality",
	Church:       "church",
	Other:        "other",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("unitkind(%d)", int(k))
}

func (k Kind) Valid() bool {
	return k > Unspecified && k <= Other
}

// Level is the hierarchy ordering used by the parent/child invariant.
func (k Kind) Level() int {
	return int(k)
}

// Political reports whether the kind belongs to the political hierarchy.
// Church bodies and other administrative units form separate, non-political
// trees.
func (k Kind) Political() bool {
	return k >= Federal && k <= Municipality
}

// Kinds travel by name in JSON, both in event payloads and API responses.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func Parse(s string) (Kind, error) {
	for k, name := range names {
		if name == s && k != Unspecified {
			return k, nil
		}
	}
	return Unspecified, fmt.Errorf("unknown unit kind %q", s)
}
