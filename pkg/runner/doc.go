/*
Package runner drives a wizard from a line-oriented terminal.

Each step is printed with its options as a checklist; the user edits a draft
selection with commands and submits it with next. Changing the draft of a
step that feeds a later step preloads that step's options, so moving on is
instant.

# Commands

	toggle <id>     add or remove one item
	group <parent>  select a whole group, or clear it when fully selected
	all | none      select every option of the step, or clear the draft
	search [query]  filter the listing (selection is unaffected)
	set <k>=<v>     set a field on a fields step
	next            submit the draft (also retries a failed submission)
	back            go to the previous step, abandoning from the first
	jump <n>        revisit step n
	dismiss         clear the error banner
	abort           abandon the session
	quit            leave, keeping saved progress

# Usage

	r := runner.New(
		runner.WithInput(os.Stdin),
		runner.WithOutput(os.Stdout),
		runner.WithRenderer(tui.NewRenderer(false)),
	)
	if err := r.Run(ctx, wizard); err != nil {
		log.Fatal(err)
	}
*/
package runner
