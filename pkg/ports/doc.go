/*
Package ports defines the driven ports (interfaces) of the chatflow engine.

These interfaces decouple the interpreter and the conversation processor from
external implementations, allowing the engine to work with various storage
backends, flow definition sources and side-effect executors.

# Key Interfaces

  - ExecutionStore: Reads and writes the suspended ExecutionState of a conversation.
  - FlowRepository: Resolves a tenant's flow definitions.
  - ActionDispatcher: Executes api_action side-effects and returns variables to merge.
  - AnalyticsSink: Receives flow start and completion events.
  - DistributedLocker: Serializes messages of one conversation across replicas.
*/
package ports
