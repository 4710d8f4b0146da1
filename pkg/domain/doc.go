/*
Package domain contains the core models of graphlab.

It defines the input graph, the step events a traversal emits, the serializable
engine state and the session description. This package is kept pure and free of
external dependencies like I/O or persistence.

# Key Entities

  - Graph: The immutable input (nodes in input order, edges with optional weights).
  - Event: One primitive traversal action with a full-snapshot payload.
  - EngineState: Where a traversal is suspended, in a form that can be persisted.
  - Checkpoint: A session as stored by a SessionStore.
*/
package domain
