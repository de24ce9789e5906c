package usecase

import "fmt"

// OwnerKind scopes an asset's URL namespace. Validation and storage
// behave identically for every kind.
type OwnerKind string

const (
	OwnerCandidate OwnerKind = "candidate"
	OwnerEmployer  OwnerKind = "employer"
	OwnerCompany   OwnerKind = "company"
	OwnerJob       OwnerKind = "job"
)

var OwnerKinds = []OwnerKind{OwnerCandidate, OwnerEmployer, OwnerCompany, OwnerJob}

func ParseOwnerKind(s string) (OwnerKind, error) {
	for _, k := range OwnerKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown owner kind %q", s)
}

func (k OwnerKind) String() string {
	return string(k)
}
