package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/logic/capture"
	"github.com/cjeanneret/remocam/internal/logic/content"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

// cancel is the answer that abandons any interactive choice.
const cancel = -1

var errUsage = errors.New("usage")

func (s *Shell) commands() map[string]command {
	simple := func(help string, fn func(*capture.Sequencer, context.Context) error) command {
		return command{help: help, run: func(ctx context.Context, _ []string) error { return fn(s.r.Seq, ctx) }}
	}
	return map[string]command{
		"status":     {help: "session and cache state", run: s.status},
		"props":      {usage: "[name]", help: "list properties or show one", run: s.props},
		"get":        {usage: "<name>", help: "read one property", run: s.get},
		"set":        {usage: "<name> <value>", help: "write one property", run: s.set},
		"choose":     {usage: "<name>", help: "pick a value from the possible list", run: s.choose},
		"wait":       {usage: "<name> <value>", help: "wait until a property reads value", run: s.wait},
		"capture":    simple("half press, release, let go", (*capture.Sequencer).HalfFullRelease),
		"release":    simple("single shutter release", (*capture.Sequencer).Release),
		"s1":         simple("half press and hold", (*capture.Sequencer).S1Shooting),
		"af":         simple("AF lock then release", (*capture.Sequencer).AFShutter),
		"burst":      simple("continuous shooting", (*capture.Sequencer).ContinuousShooting),
		"wb":         {usage: "[x y]", help: "custom white balance capture at x,y", run: s.whiteBalance},
		"afpos":      {usage: "[x y]", help: "move the flexible spot AF area", run: s.afPosition},
		"format":     {usage: "[slot] [quick]", help: "format a memory card", run: s.format},
		"zoom":       {help: "interactive zoom", run: s.zoom},
		"preset":     {usage: "<save|load> [slot]", help: "zoom and focus preset", run: s.preset},
		"lock":       {usage: "<ael|fel|afl|awbl> <on|off>", help: "engage or release a lock", run: s.lock},
		"movie":      {usage: "<start|stop>", help: "movie record button", run: s.movie},
		"liveview":   {help: "save the current live view frame", run: s.liveView},
		"lvtoggle":   {help: "switch live view on or off", run: s.toggleLiveView},
		"contents":   {help: "list the images on the card", run: s.contents},
		"pull":       {usage: "<index> [sn]", help: "download an image or its screennail", run: s.pull},
		"thumb":      {usage: "<index>", help: "save the thumbnail of an image", run: s.thumb},
		"connect":    {usage: "[remote|transfer]", help: "open a session", run: s.connect},
		"disconnect": {help: "close the session", run: s.disconnect},
	}
}

// choice asks for an index in [0, n). The cancel value, an empty answer and
// anything out of range abandon the choice.
func (s *Shell) choice(label string, n int) (int, error) {
	answer, err := s.Prompt(fmt.Sprintf("%s (%d to cancel)", label, cancel))
	if err != nil {
		return 0, capture.ErrCancelled
	}
	i, err := strconv.Atoi(answer)
	if err != nil || i == cancel || i < 0 || i >= n {
		return 0, capture.ErrCancelled
	}
	return i, nil
}

// number asks for an integer; the cancel value abandons.
func (s *Shell) number(label string) (int, error) {
	answer, err := s.Prompt(fmt.Sprintf("%s (%d to cancel)", label, cancel))
	if err != nil {
		return 0, capture.ErrCancelled
	}
	i, err := strconv.Atoi(answer)
	if err != nil || i == cancel {
		return 0, capture.ErrCancelled
	}
	return i, nil
}

func (s *Shell) status(_ context.Context, _ []string) error {
	sess := s.r.Session
	fmt.Fprintf(s.out, "state:      %s\n", sess.State())
	if id := sess.ID(); id != "" {
		fmt.Fprintf(s.out, "session:    %s\n", id)
	}
	fmt.Fprintf(s.out, "mode:       %s\n", s.r.Cache.Mode())
	fmt.Fprintf(s.out, "properties: %d (%d loads)\n", s.r.Cache.Len(), s.r.Cache.Loads())
	st := s.r.Dispatcher.Stats()
	fmt.Fprintf(s.out, "events:     %d received, %d coalesced, %d lost, %d queued\n",
		st.Received, st.Coalesced, st.Lost, st.Queued)
	return nil
}

func access(p property.Property) string {
	if p.Writable {
		return "rw"
	}
	return "ro"
}

func (s *Shell) props(_ context.Context, args []string) error {
	if len(args) == 0 {
		for _, p := range s.r.Cache.Snapshot() {
			fmt.Fprintf(s.out, "%-36s %-20s %s\n", p.Code, p.Current, access(p))
		}
		return nil
	}
	c, err := property.Resolve(args[0])
	if err != nil {
		return err
	}
	p, ok := s.r.Cache.Get(c)
	if !ok {
		return fmt.Errorf("%s is not reported by the device", c)
	}
	fmt.Fprintf(s.out, "%s = %s (%s, %s)\n", p.Code, p.Current, p.Kind, access(p))
	for i, v := range p.Possible {
		fmt.Fprintf(s.out, "  [%d] %s\n", i, v)
	}
	return nil
}

func (s *Shell) get(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: get <name>", errUsage)
	}
	c, err := property.Resolve(args[0])
	if err != nil {
		return err
	}
	v, err := s.r.Seq.GetValue(ctx, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s = %s\n", c, v)
	return nil
}

func (s *Shell) set(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: set <name> <value>", errUsage)
	}
	c, err := property.Resolve(args[0])
	if err != nil {
		return err
	}
	v, err := property.Parse(c, args[1])
	if err != nil {
		return err
	}
	if err := s.r.Seq.SetValue(ctx, c, v.Raw()); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s <- %s\n", c, v)
	return nil
}

func (s *Shell) wait(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: wait <name> <value>", errUsage)
	}
	c, err := property.Resolve(args[0])
	if err != nil {
		return err
	}
	v, err := property.Parse(c, args[1])
	if err != nil {
		return err
	}
	if err := s.r.Seq.WaitForValue(ctx, c, v.Raw()); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s = %s\n", c, v)
	return nil
}

func (s *Shell) choose(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: choose <name>", errUsage)
	}
	c, err := property.Resolve(args[0])
	if err != nil {
		return err
	}
	if err := s.r.Cache.Load(c); err != nil {
		return err
	}
	p, ok := s.r.Cache.Get(c)
	if !ok || len(p.Possible) == 0 {
		return fmt.Errorf("%w: no possible values for %s", capture.ErrNotSupported, c)
	}
	fmt.Fprintf(s.out, "%s = %s\n", c, p.Current)
	for i, v := range p.Possible {
		fmt.Fprintf(s.out, "  [%d] %s\n", i, v)
	}
	i, err := s.choice("value", len(p.Possible))
	if err != nil {
		return err
	}
	return s.r.Seq.SetFromPossible(ctx, c, i)
}

// position reads x and y from args or asks for them.
func (s *Shell) position(args []string) (x, y int, err error) {
	if len(args) == 2 {
		a, err1 := strconv.Atoi(args[0])
		b, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return 0, 0, fmt.Errorf("%w: position must be two integers", errUsage)
		}
		return a, b, nil
	}
	if x, err = s.number(fmt.Sprintf("x 0..%d", capture.MaxPositionX)); err != nil {
		return 0, 0, err
	}
	if y, err = s.number(fmt.Sprintf("y 0..%d", capture.MaxPositionY)); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func (s *Shell) whiteBalance(ctx context.Context, args []string) error {
	x, y, err := s.position(args)
	if err != nil {
		return err
	}
	if err := s.r.Seq.CustomWhiteBalance(ctx, x, y); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "custom white balance captured")
	return nil
}

func (s *Shell) afPosition(ctx context.Context, args []string) error {
	x, y, err := s.position(args)
	if err != nil {
		return err
	}
	return s.r.Seq.SetAFAreaPosition(ctx, x, y)
}

func (s *Shell) format(ctx context.Context, args []string) error {
	var (
		slot  int
		quick bool
		err   error
	)
	if len(args) > 0 {
		if slot, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("%w: format [1|2] [quick]", errUsage)
		}
		quick = len(args) > 1 && strings.EqualFold(args[1], "quick")
	} else {
		if slot, err = s.number("slot 1 or 2"); err != nil {
			return err
		}
		if s.r.Seq.QuickFormatAvailable() {
			answer, err := s.Prompt("quick format? [y/N]")
			if err != nil {
				return capture.ErrCancelled
			}
			quick = strings.HasPrefix(strings.ToLower(answer), "y")
		}
	}
	answer, err := s.Prompt(fmt.Sprintf("erase everything on slot %d? [y/N]", slot))
	if err != nil || !strings.HasPrefix(strings.ToLower(answer), "y") {
		return capture.ErrCancelled
	}
	if err := s.r.Seq.FormatMedia(ctx, slot, quick); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "slot %d formatted\n", slot)
	return nil
}

func (s *Shell) zoom(ctx context.Context, _ []string) error {
	return s.r.Seq.Zoom(ctx, s)
}

func (s *Shell) preset(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: preset <save|load> [slot]", errUsage)
	}
	var op capture.PresetOp
	switch strings.ToLower(args[0]) {
	case "save":
		op = capture.PresetSave
	case "load":
		op = capture.PresetLoad
	default:
		return fmt.Errorf("%w: preset <save|load> [slot]", errUsage)
	}
	var (
		slot int
		err  error
	)
	if len(args) > 1 {
		slot, err = strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: slot must be a number", errUsage)
		}
	} else if slot, err = s.number("preset slot"); err != nil {
		return err
	}
	return s.r.Seq.PresetFocus(ctx, op, slot)
}

var lockNames = map[string]property.Code{
	"ael": property.AEL, "fel": property.FEL, "afl": property.AFL, "awbl": property.AWBL,
}

func onOff(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on", "lock", "1":
		return true, true
	case "off", "unlock", "0":
		return false, true
	}
	return false, false
}

func (s *Shell) lock(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: lock <ael|fel|afl|awbl> <on|off>", errUsage)
	}
	c, ok := lockNames[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("%w: unknown lock %q", errUsage, args[0])
	}
	on, ok := onOff(args[1])
	if !ok {
		return fmt.Errorf("%w: lock state must be on or off", errUsage)
	}
	return s.r.Seq.Lock(ctx, c, on)
}

func (s *Shell) movie(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: movie <start|stop>", errUsage)
	}
	switch strings.ToLower(args[0]) {
	case "start":
		return s.r.Seq.MovieRecord(ctx, sdk.ParamDown)
	case "stop":
		return s.r.Seq.MovieRecord(ctx, sdk.ParamUp)
	}
	return fmt.Errorf("%w: movie <start|stop>", errUsage)
}

func (s *Shell) liveView(_ context.Context, _ []string) error {
	p, err := s.r.Content.LiveView(s.dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "saved %s\n", p)

	overlay, err := s.r.Content.LiveViewOverlay()
	if err != nil {
		fmt.Fprintf(s.out, "no overlay: %v\n", err)
		return nil
	}
	for _, prop := range overlay {
		fmt.Fprintf(s.out, "  %-20s %s\n", prop.Code, prop.Current)
	}
	return nil
}

func (s *Shell) toggleLiveView(ctx context.Context, _ []string) error {
	on, err := s.r.Seq.ToggleLiveView(ctx)
	if err != nil {
		return err
	}
	state := "off"
	if on {
		state = "on"
	}
	fmt.Fprintf(s.out, "live view %s\n", state)
	return nil
}

func (s *Shell) contents(_ context.Context, _ []string) error {
	folders, err := s.r.Content.List()
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		fmt.Fprintln(s.out, "no content")
		return nil
	}
	for _, f := range folders {
		fmt.Fprintf(s.out, "%s (%d)\n", f.Name(), len(f.Items))
		for _, it := range f.Items {
			fmt.Fprintf(s.out, "  [%d] %s\n", it.Index, it.Name)
		}
	}
	return nil
}

func (s *Shell) item(args []string, usage string) (content.Item, error) {
	if len(args) == 0 {
		return content.Item{}, fmt.Errorf("%w: %s", errUsage, usage)
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i == cancel {
		return content.Item{}, capture.ErrCancelled
	}
	return s.r.Content.Item(i)
}

func (s *Shell) pull(_ context.Context, args []string) error {
	it, err := s.item(args, "pull <index> [sn]")
	if err != nil {
		return err
	}
	if len(args) > 1 && strings.EqualFold(args[1], "sn") {
		return s.r.Content.PullScreennail(it)
	}
	return s.r.Content.Pull(it)
}

func (s *Shell) thumb(_ context.Context, args []string) error {
	it, err := s.item(args, "thumb <index>")
	if err != nil {
		return err
	}
	p, err := s.r.Content.Thumbnail(it, s.dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "saved %s\n", p)
	return nil
}

func (s *Shell) connect(ctx context.Context, args []string) error {
	mode := s.r.Mode()
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "remote":
			mode = sdk.ModeRemote
		case "transfer", "contents":
			mode = sdk.ModeContentsTransfer
		default:
			return fmt.Errorf("%w: connect [remote|transfer]", errUsage)
		}
	}
	if err := s.r.ConnectMode(ctx, mode); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "connected (%s)\n", mode)
	return nil
}

func (s *Shell) disconnect(ctx context.Context, _ []string) error {
	if err := s.r.Disconnect(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "disconnected")
	return nil
}
