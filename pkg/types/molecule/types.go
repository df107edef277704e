// Package molecule defines cross-layer value types for molecular data:
// drug-class labels, binary targets, and fingerprint type enumerations.
package molecule

import "fmt"

// Class is the drug-class label attached to every loaded molecule.
type Class string

const (
	ClassAntibacterial Class = "antibacterial"
	ClassAntiviral     Class = "antiviral"
	ClassOther         Class = "other"
)

// IsValid reports whether the class is one of the three known labels.
func (c Class) IsValid() bool {
	switch c {
	case ClassAntibacterial, ClassAntiviral, ClassOther:
		return true
	default:
		return false
	}
}

// String returns the string form of the class.
func (c Class) String() string { return string(c) }

// ParseClass parses a string into a Class.
func ParseClass(s string) (Class, error) {
	c := Class(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown drug class %q", s)
	}
	return c, nil
}

// PositiveClasses returns the two classes that form binary datasets against
// ClassOther.
func PositiveClasses() []Class {
	return []Class{ClassAntibacterial, ClassAntiviral}
}

// BinaryTarget is the two-valued classification target.  The mapping is a
// pure function of the class label: the dataset's positive class maps to
// TargetPositive ("0") and ClassOther maps to TargetOther ("1").  No other
// value can survive assembly.
type BinaryTarget string

const (
	TargetPositive BinaryTarget = "0"
	TargetOther    BinaryTarget = "1"
)

// IsValid reports whether the target is one of the two legal values.
func (t BinaryTarget) IsValid() bool {
	return t == TargetPositive || t == TargetOther
}

// TargetFor maps a class label to its binary target within a dataset whose
// positive class is positive.  Returns an error for any label that is neither
// the positive class nor ClassOther.
func TargetFor(label, positive Class) (BinaryTarget, error) {
	switch label {
	case positive:
		return TargetPositive, nil
	case ClassOther:
		return TargetOther, nil
	default:
		return "", fmt.Errorf("class %q does not belong to a %s-vs-other dataset", label, positive)
	}
}

// FingerprintType enumerates the supported fingerprint algorithms.
type FingerprintType string

const (
	FPMorgan FingerprintType = "morgan"
	FPMACCS  FingerprintType = "maccs"
	FPPath   FingerprintType = "path"
)

// IsValid reports whether the fingerprint type is supported.
func (t FingerprintType) IsValid() bool {
	switch t {
	case FPMorgan, FPMACCS, FPPath:
		return true
	default:
		return false
	}
}

// String returns the string form of the fingerprint type.
func (t FingerprintType) String() string { return string(t) }

// ParseFingerprintType converts a string to a FingerprintType.
func ParseFingerprintType(s string) (FingerprintType, error) {
	t := FingerprintType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown fingerprint type %q", s)
	}
	return t, nil
}
