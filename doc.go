/*
Package stepwise is a multi-step wizard engine with cascading selection.

A wizard is an ordered list of steps. Each step commits one payload: either a
set of selected item ids or a bag of form fields. Selection steps can be fed by
a three-level hierarchy (modules, menus, apis) where the options of a level are
filtered by what was selected one level up.

The engine keeps the state machine pure (package pkg/domain), pushes I/O to
ports (hierarchy providers, a submitter, a snapshot store), and guarantees:

  - a step's gate is checked before anything is sent;
  - a failed submission leaves every committed payload untouched and is
    reported as retryable or blocking;
  - results of operations overtaken by navigation are discarded;
  - an interrupted session resumes from its last committed step.

# Usage

	steps := []domain.StepDefinition{
		{ID: "modules", Kind: domain.KindSelection, Source: &domain.LevelSource{Level: domain.Level0},
			Gate: domain.RequireSelection("modules")},
		{ID: "menus", Kind: domain.KindSelection, Source: &domain.LevelSource{Level: domain.Level1, ParentStep: "modules"}},
		{ID: "apis", Kind: domain.KindSelection, Source: &domain.LevelSource{Level: domain.Level2, ParentStep: "menus"}},
	}

	w, err := stepwise.New(stepwise.SessionKey("role-create", "42"), steps,
		stepwise.WithProvider(provider),
		stepwise.WithSnapshotStore(file.New("")),
		stepwise.WithOnComplete(func(ctx context.Context, key string, p domain.Payloads) { ... }),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer w.Close()

	view, err := w.Start(ctx)
	data, err := w.Options(ctx)
	err = w.Submit(ctx, domain.NewSelectionPayload("hr"))
*/
package stepwise
