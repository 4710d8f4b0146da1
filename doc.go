/*
Package graphlab runs graph traversals one step at a time.

A session holds a graph, an algorithm (BFS, DFS or Dijkstra) and a start
node. Every step advances the traversal by exactly one primitive action and
returns it as an event: a node pushed to or popped from the frontier, an edge
discovered, a node marked visited, a distance table updated. Clients fold
those events into a visualization state and can rebuild it from any prefix
of the event log.

# Packages

  - pkg/session: the session manager. Steps of one session are serialized;
    sessions can be checkpointed to a store and resumed.
  - pkg/adapters/http: the call/response API and the WebSocket channel. Both
    carry byte-identical events.
  - pkg/client: the event reducer and a driver that steps a session over
    HTTP, WebSocket or in-process, falling back between them.
  - pkg/adapters/redis: checkpoint store and distributed step lock.

# Usage

	srv, err := graphlab.NewServer(ctx, graphlab.Options{SessionTTL: 30 * time.Minute})
	if err != nil {
		log.Fatal(err)
	}
	defer srv.Close()
	log.Fatal(http.ListenAndServe(":8080", srv.Handler))

The graphlab command wraps the same wiring: `graphlab serve` starts the
server and `graphlab run graph.yaml` plays a traversal in the terminal.
*/
package graphlab
