/*
Package domain contains the core domain models of the stepwise wizard engine.

It defines the entities of a linear multi-step wizard, the selectable items of a
three-level hierarchy and the persisted snapshot. This package is kept pure and
free of I/O, following Hexagonal Architecture principles: adapters live in
pkg/adapters and orchestration lives in the root package and internal/runtime.

# Key Entities

  - Item: A selectable option at Level 0, 1 or 2 of the hierarchy.
  - Selection: An immutable set of selected item ids.
  - Payload: The committed output of a step (SelectionPayload or FieldsPayload).
  - StepDefinition: Identity, payload kind, gate and data source of a step.
  - Session: The wizard state machine (current step, payloads, status).
  - Snapshot: The durable form of a session's committed payloads.
*/
package domain
