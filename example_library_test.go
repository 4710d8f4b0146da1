package graphlab_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/graphlab/pkg/client"
	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/aretw0/graphlab/pkg/session"
)

// Example_library demonstrates stepping a traversal purely as a Go library,
// without a server.
func Example_library() {
	// 1. Define your graph using pure Go structs
	graph := domain.Graph{
		Nodes: []domain.NodeID{"1", "2", "3", "4"},
		Edges: []domain.Edge{{U: "1", V: "2"}, {U: "1", V: "3"}, {U: "2", V: "4"}},
	}

	// 2. Start a session
	ctx := context.Background()
	manager := session.NewManager()
	id, err := manager.Create(ctx, session.CreateRequest{Graph: graph, Algorithm: domain.AlgorithmBFS, Start: "1"})
	if err != nil {
		log.Fatal(err)
	}

	// 3. Step until the end event
	var events []domain.Event
	for {
		ev, err := manager.Step(ctx, id)
		if err != nil {
			log.Fatal(err)
		}
		events = append(events, ev)
		if ev.Terminal() {
			break
		}
	}

	// 4. Rebuild the visualization state from the log
	state := client.Replay(events)
	fmt.Println("events:", len(events))
	fmt.Println("visited:", state.Visited)
	// Output:
	// events: 17
	// visited: [1 2 3 4]
}
