package status

import (
	"fmt"
	"time"

	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
)

// TypeTimeframe is the status descriptor type of the timeframe
// mechanism. It needs no external lookup: the credential is valid only
// while the current time falls inside the recorded window.
const TypeTimeframe = "RevocationTimeframe2024"

const (
	startValidityProperty = "startValidity"
	granularityProperty   = "granularity"
)

// Granularity is the width of a timeframe window.
type Granularity string

const (
	// GranularityMinute truncates the window start to the minute.
	GranularityMinute Granularity = "minute"
	// GranularityHour truncates the window start to the hour.
	GranularityHour Granularity = "hour"
)

func (g Granularity) duration() (time.Duration, error) {
	switch g {
	case GranularityMinute:
		return time.Minute, nil
	case GranularityHour:
		return time.Hour, nil
	default:
		return 0, verror.Newf(verror.KindStructural, "invalid timeframe granularity %q", string(g))
	}
}

// truncate drops the sub-granularity components: seconds for minute
// granularity, minutes and seconds for hour granularity.
func (g Granularity) truncate(t time.Time) (time.Time, error) {
	d, err := g.duration()
	if err != nil {
		return time.Time{}, err
	}

	return t.UTC().Truncate(d), nil
}

// NewTimeframeStatus snapshots now, truncated to the requested
// granularity, and records both the truncated timestamp and the
// granularity tag.
func NewTimeframeStatus(granularity Granularity, now time.Time) (Descriptor, error) {
	start, err := granularity.truncate(now)
	if err != nil {
		return Descriptor{}, verror.Wrap(verror.KindConfiguration, "cannot build timeframe status", err)
	}

	return Descriptor{
		Type: TypeTimeframe,
		Properties: map[string]interface{}{
			startValidityProperty: start.Format(time.RFC3339),
			granularityProperty:   string(granularity),
		},
	}, nil
}

// checkTimeframe interprets a timeframe status. Both fields must be
// present and parseable; a missing or malformed field is a structural
// error, never treated as "not revoked". The credential counts as
// revoked once now falls outside [startValidity, startValidity+granularity).
func checkTimeframe(desc Descriptor, now time.Time) error {
	startStr, err := desc.property(startValidityProperty)
	if err != nil {
		return err
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return verror.Wrap(verror.KindStructural,
			fmt.Sprintf("malformed %s %q", startValidityProperty, startStr), err)
	}

	granularityStr, err := desc.property(granularityProperty)
	if err != nil {
		return err
	}

	width, err := Granularity(granularityStr).duration()
	if err != nil {
		return err
	}

	if now.Before(start) || !now.Before(start.Add(width)) {
		return verror.Wrap(verror.KindRevocation,
			fmt.Sprintf("timeframe window starting %s (%s) has lapsed", startStr, granularityStr),
			verror.ErrRevoked)
	}

	return nil
}
