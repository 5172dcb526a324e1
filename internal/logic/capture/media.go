package capture

import (
	"context"
	"fmt"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

// formatProgress follows the progress rate of a media format. The rate
// reads zero both before the body starts and after it finishes, so only a
// zero after a positive reading is completion.
type formatProgress struct {
	started bool
}

// observe feeds one reading and reports completion.
func (f *formatProgress) observe(rate uint64) bool {
	if !f.started {
		if rate > 0 {
			f.started = true
		}
		return false
	}
	return rate == 0
}

var formatCodes = []property.Code{
	property.MediaSLOT1FormatEnableStatus, property.MediaSLOT2FormatEnableStatus,
	property.MediaSLOT1QuickFormatEnableStatus, property.MediaSLOT2QuickFormatEnableStatus,
}

func (s *Sequencer) enabled(c property.Code) bool {
	raw, ok := s.props.CurrentRaw(c)
	return ok && raw == property.Enable
}

// QuickFormatAvailable reports whether the body offers quick format on any
// slot.
func (s *Sequencer) QuickFormatAvailable() bool {
	writable := s.props.Writable(property.MediaSLOT1QuickFormatEnableStatus) ||
		s.props.Writable(property.MediaSLOT2QuickFormatEnableStatus)
	return writable && (s.enabled(property.MediaSLOT1QuickFormatEnableStatus) ||
		s.enabled(property.MediaSLOT2QuickFormatEnableStatus))
}

// FormatMedia formats the media in slot 1 or 2, fully or quickly, and waits
// for the body to report the end of the format. The wait has no bound; it
// ends on completion, a transport error, a disconnection or ctx.
func (s *Sequencer) FormatMedia(ctx context.Context, slot int, quick bool) error {
	if slot != 1 && slot != 2 {
		return fmt.Errorf("%w: slot %d", ErrCancelled, slot)
	}
	q, done, err := s.begin(ctx, "format media")
	if err != nil {
		return err
	}
	defer done()

	if err := q.load(formatCodes...); err != nil {
		return err
	}
	if !s.enabled(property.MediaSLOT1FormatEnableStatus) && !s.enabled(property.MediaSLOT2FormatEnableStatus) {
		return fmt.Errorf("%w: neither slot can be formatted", ErrNotSupported)
	}

	cmd := sdk.CmdMediaFormat
	status := property.MediaSLOT1FormatEnableStatus
	if slot == 2 {
		status = property.MediaSLOT2FormatEnableStatus
	}
	if quick {
		if !s.QuickFormatAvailable() {
			return fmt.Errorf("%w: quick format", ErrNotSupported)
		}
		cmd = sdk.CmdMediaQuickFormat
		status = property.MediaSLOT1QuickFormatEnableStatus
		if slot == 2 {
			status = property.MediaSLOT2QuickFormatEnableStatus
		}
	}
	if !s.enabled(status) {
		return fmt.Errorf("%w: slot %d cannot be formatted", ErrNotSupported, slot)
	}

	param := sdk.ParamUp
	if slot == 2 {
		param = sdk.ParamDown
	}
	if err := q.command(cmd, param); err != nil {
		return err
	}
	return q.pollFormat()
}

func (q *seq) pollFormat() error {
	if err := q.start("format progress", 0); err != nil {
		return err
	}
	var fp formatProgress
	for {
		if err := q.live(); err != nil {
			return q.end(OutcomeCancelled, err)
		}
		if err := q.s.props.Load(property.MediaFormatProgressRate); err != nil {
			return q.end(OutcomeFailed, err)
		}
		rate, _ := q.s.props.CurrentRaw(property.MediaFormatProgressRate)
		if fp.observe(rate) {
			q.s.log.Live("format completed")
			return q.end(OutcomeSuccess, nil)
		}
		q.s.log.Verbose("format progress %d%%", rate)
		q.cur.Retries++
		q.wait(q.s.t.FormatPoll)
	}
}
