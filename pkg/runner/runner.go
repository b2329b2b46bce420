package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/internal/presentation/tui"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/hierarchy"
)

// ContentRenderer transforms markdown before it is written, e.g. to ANSI.
type ContentRenderer func(string) (string, error)

// Runner is the terminal loop over one wizard.
type Runner struct {
	input    *bufio.Reader
	output   io.Writer
	renderer ContentRenderer
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithInput sets the command source.
func WithInput(r io.Reader) Option {
	return func(rn *Runner) {
		rn.input = bufio.NewReader(r)
	}
}

// WithOutput sets where screens are written.
func WithOutput(w io.Writer) Option {
	return func(rn *Runner) {
		rn.output = w
	}
}

// WithRenderer sets the markdown renderer.
func WithRenderer(renderer ContentRenderer) Option {
	return func(rn *Runner) {
		rn.renderer = renderer
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(rn *Runner) {
		rn.logger = logger
	}
}

// New creates a Runner on stdin and stdout.
func New(opts ...Option) *Runner {
	r := &Runner{
		input:  bufio.NewReader(os.Stdin),
		output: os.Stdout,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// screen is the local state of the step being edited.
type screen struct {
	index   int
	gen     uint64
	data    stepwise.StepData
	loaded  bool
	draft   domain.Selection
	fields  map[string]any
	query   string
	preview string
}

// Run starts or resumes the wizard and processes commands until the session
// closes, the user quits, the input ends or ctx is canceled.
func (r *Runner) Run(ctx context.Context, wz *stepwise.Wizard) error {
	view, err := wz.Start(ctx)
	if err != nil {
		return err
	}

	var sc *screen
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		view = wz.View()
		if !view.Open() {
			r.print(tui.SessionSummary(view))
			return nil
		}

		if sc == nil || sc.index != view.CurrentIndex || sc.gen != view.Generation {
			sc = r.enter(ctx, wz, view)
		}
		r.show(view, sc)

		line, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}

		done, err := r.exec(ctx, wz, view, sc, line)
		if err != nil {
			fmt.Fprintf(r.output, "! %v\n", err)
		}
		if done {
			return nil
		}
	}
}

// enter prepares the screen of the active step. The draft starts from the
// payload already committed there, so revisited steps keep their choices.
func (r *Runner) enter(ctx context.Context, wz *stepwise.Wizard, view *domain.Session) *screen {
	step := view.Current()
	sc := &screen{
		index:  view.CurrentIndex,
		gen:    view.Generation,
		draft:  domain.EmptySelection(),
		fields: map[string]any{},
	}
	switch p := view.Payloads[step.ID].(type) {
	case domain.SelectionPayload:
		sc.draft = p.Selection
	case domain.FieldsPayload:
		for k, v := range p.Values {
			sc.fields[k] = v
		}
	}

	if step.Source != nil {
		r.load(ctx, wz, sc)
	}
	return sc
}

func (r *Runner) load(ctx context.Context, wz *stepwise.Wizard, sc *screen) {
	data, err := wz.Options(ctx)
	if err != nil {
		r.logger.Debug("Options failed", "err", err)
		return
	}
	sc.data = data
	sc.loaded = true
}

func (r *Runner) show(view *domain.Session, sc *screen) {
	step := view.Current()
	var sb strings.Builder

	title := step.ID
	if step.Title != "" {
		title = step.Title
	}
	fmt.Fprintf(&sb, "## Step %d/%d: %s\n\n", view.CurrentIndex+1, len(view.Steps), title)
	if e := view.TransientError; e != nil {
		hint := "type `next` to retry"
		if !e.Retryable() {
			hint = "type `back` to change an earlier step"
		}
		fmt.Fprintf(&sb, "> **%s:** %s (%s)\n\n", e.Severity, e.Message, hint)
	}

	switch {
	case step.Kind == domain.KindFields:
		if len(sc.fields) == 0 {
			sb.WriteString("_No fields set. Use `set key=value`._\n")
		}
		for _, k := range slices.Sorted(maps.Keys(sc.fields)) {
			fmt.Fprintf(&sb, "- **%s**: %v\n", k, sc.fields[k])
		}
	case step.Source == nil:
		fmt.Fprintf(&sb, "Selected: %s\n", strings.Join(sc.draft.IDs(), ", "))
	case !sc.loaded:
		sb.WriteString("_Options unavailable._\n")
	case sc.data.Groups.Len() == 0 && !sc.data.Parents.IsEmpty():
		sb.WriteString("_Nothing to choose for the current selection._\n")
	case sc.data.Groups.Len() == 0:
		sb.WriteString("_Select something in the previous step first._\n")
	default:
		groups := sc.data.Groups
		if sc.query != "" {
			fmt.Fprintf(&sb, "Filter: `%s`\n\n", sc.query)
			groups = hierarchy.Search(groups, sc.query)
		}
		sb.WriteString(tui.OptionsSummary(groups, sc.draft))
	}
	if sc.preview != "" {
		fmt.Fprintf(&sb, "\n_%s_\n", sc.preview)
	}

	r.print(sb.String())
}

func (r *Runner) exec(ctx context.Context, wz *stepwise.Wizard, view *domain.Session, sc *screen, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	step := view.Current()

	switch strings.ToLower(cmd) {
	case "help", "?":
		r.print(helpText)
	case "quit", "exit":
		fmt.Fprintln(r.output, "Progress saved. Bye.")
		return true, nil
	case "abort":
		return false, wz.Abandon(ctx)
	case "next", "n":
		return false, r.submit(ctx, wz, step, sc)
	case "back", "b":
		return false, wz.Retreat(ctx)
	case "jump":
		var n int
		if _, err := fmt.Sscanf(arg, "%d", &n); err != nil {
			return false, fmt.Errorf("usage: jump <step number>")
		}
		return false, wz.JumpTo(ctx, n-1)
	case "dismiss":
		wz.DismissError()
	case "search", "/":
		sc.query = arg
	case "set":
		if step.Kind != domain.KindFields {
			return false, fmt.Errorf("set only applies to fields steps")
		}
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return false, fmt.Errorf("usage: set key=value")
		}
		sc.fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
	case "toggle", "t":
		if err := r.requireSelection(step); err != nil {
			return false, err
		}
		if sc.loaded && !slices.Contains(sc.data.Groups.ItemIDs(), arg) {
			return false, fmt.Errorf("unknown option %q", arg)
		}
		r.changeDraft(ctx, wz, sc, hierarchy.ToggleItem(sc.draft, arg))
	case "group", "g":
		if err := r.requireSelection(step); err != nil {
			return false, err
		}
		ids := sc.data.Groups.GroupIDs(arg)
		if len(ids) == 0 {
			return false, fmt.Errorf("unknown group %q", arg)
		}
		r.changeDraft(ctx, wz, sc, hierarchy.ToggleGroup(sc.draft, ids))
	case "all":
		if err := r.requireSelection(step); err != nil {
			return false, err
		}
		r.changeDraft(ctx, wz, sc, hierarchy.SelectAll(sc.data.Groups.ItemIDs()))
	case "none":
		if err := r.requireSelection(step); err != nil {
			return false, err
		}
		r.changeDraft(ctx, wz, sc, hierarchy.ClearAll())
	default:
		return false, fmt.Errorf("unknown command %q, type help", cmd)
	}
	return false, nil
}

func (r *Runner) requireSelection(step domain.StepDefinition) error {
	if step.Kind != domain.KindSelection {
		return fmt.Errorf("this step takes fields, use set key=value")
	}
	return nil
}

// changeDraft applies a new draft and preloads the options of the step that
// depends on it.
func (r *Runner) changeDraft(ctx context.Context, wz *stepwise.Wizard, sc *screen, next domain.Selection) {
	sc.draft = next
	sc.preview = ""

	data, err := wz.UpstreamChanged(ctx, next).Wait(ctx)
	switch {
	case errors.Is(err, domain.ErrStale):
	case err != nil:
		r.logger.Debug("Preload failed", "err", err)
	case data.HasOptions():
		sc.preview = fmt.Sprintf("%d option(s) ready in the next step", len(data.Groups.ItemIDs()))
	}
}

func (r *Runner) submit(ctx context.Context, wz *stepwise.Wizard, step domain.StepDefinition, sc *screen) error {
	var p domain.Payload
	if step.Kind == domain.KindFields {
		p = domain.NewFieldsPayload(sc.fields)
	} else {
		p = domain.SelectionPayload{Selection: sc.draft}
	}

	err := wz.Submit(ctx, p)
	var stepErr *domain.StepError
	if errors.As(err, &stepErr) {
		// Shown through the session's error banner.
		return nil
	}
	return err
}

func (r *Runner) readLine() (string, error) {
	fmt.Fprint(r.output, "> ")
	text, err := r.input.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || text == "") {
		return "", err
	}
	return SanitizeLine(text)
}

func (r *Runner) print(markdown string) {
	out := markdown
	if r.renderer != nil {
		if rendered, err := r.renderer(markdown); err == nil {
			out = rendered
		}
	}
	fmt.Fprintln(r.output, strings.TrimRight(out, "\n"))
}

const helpText = "```\n" +
	"toggle <id>     add or remove one item\n" +
	"group <parent>  select a whole group, or clear it\n" +
	"all | none      select every option, or clear\n" +
	"search [query]  filter the listing\n" +
	"set <k>=<v>     set a field\n" +
	"next            submit (or retry)\n" +
	"back            previous step\n" +
	"jump <n>        revisit step n\n" +
	"dismiss         clear the error\n" +
	"abort           abandon the session\n" +
	"quit            leave, keeping progress\n" +
	"```\n"
