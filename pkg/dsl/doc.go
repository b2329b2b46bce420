/*
Package dsl provides a fluent builder for wizard step lists.

It is an alternative to flow files when steps are known at compile time, and
it is what the flow compiler uses under the hood.

Example usage:

	b := dsl.New()

	b.Add("modules").
		Title("Modules").
		Roots().
		RequireSelection()

	b.Add("menus").
		Title("Menus").
		ChildrenOf("modules").
		RequireSelection()

	b.Add("notes").
		Fields().
		RequireCommitted("menus")

	steps, err := b.Build()
	// ... pass steps to stepwise.New(...)

A step fed by ChildrenOf takes the level below its parent step, so a chain
Roots → ChildrenOf → ChildrenOf yields Level0, Level1 and Level2.
*/
package dsl
