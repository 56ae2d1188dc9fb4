/*
Package domain contains the core domain models of the chatflow engine.

It defines the flow graph (Flow, Node, Edge, TriggerDescriptor), the externalized
interpreter state (ExecutionState) and the abstract outbound message units the
interpreter produces. This package is kept pure and free of I/O, following
Hexagonal Architecture principles.

# Key Entities

  - Flow: A tenant-owned conversation script: ordered nodes, edges and a trigger.
  - Node: One step of a flow. Its behavior is selected by Type and configured by a
    type-specific payload decoded into one of the *Config variants.
  - Edge: A directed connection between two nodes, optionally tagged with a handle
    (button_0, condition_2, default) for multi-exit nodes.
  - ExecutionState: The suspended interpreter for one conversation: program counter
    (CurrentNodeID), variables and the waiting-for-input flag.
  - Message: An abstract unit the channel adapter renders (text, quick replies, cards).
*/
package domain
