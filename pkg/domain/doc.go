/*
Package domain contains the core domain models of the forge block runtime.

It defines the vocabulary shared by blocks, registries and hosts: the runnable
state set and its forward-only transition graph, the state change event, the
listener contract and the lines that connect blocks inside an instance. This
package is kept pure and free of I/O.

# Key Entities

  - RunnableState: The lifecycle of a block or instance (created, ready, running, done, failed).
  - StateChangeEvent: An immutable record of one observed transition.
  - StateChangeListener: Any component that wants to react to transitions.
  - Line: A resolved connection between two blocks of an instance.
*/
package domain
