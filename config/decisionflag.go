package config

import (
	"github.com/zalando/recorder/capture"
)

// decisionFlag sets an optional capture decision. The decision stays
// nil when neither the flag nor the config file sets it.
type decisionFlag struct {
	Ptr **capture.Decision
}

func newDecisionFlag(ptr **capture.Decision) *decisionFlag {
	return &decisionFlag{Ptr: ptr}
}

func (df *decisionFlag) Set(value string) error {
	d, err := capture.ParseDecision(value)
	if err != nil {
		return err
	}

	*df.Ptr = &d
	return nil
}

func (df *decisionFlag) String() string {
	if df == nil || df.Ptr == nil || *df.Ptr == nil {
		return ""
	}

	return (*df.Ptr).String()
}
