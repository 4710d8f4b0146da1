package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/go-playground/validator/v10"
)

// requestValidate is shared by every request type of this package.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New(validator.WithRequiredStructEnabled())
	// Report json field names instead of Go names.
	requestValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Directed  bool            `json:"directed"`
	Weighted  bool            `json:"weighted"`
	Nodes     []domain.NodeID `json:"nodes" validate:"required,min=1,dive,required"`
	Edges     []EdgeRequest   `json:"edges" validate:"dive"`
	Algorithm string          `json:"algorithm,omitempty" validate:"omitempty,oneof=bfs dfs dijkstra"`
	Start     domain.NodeID   `json:"start,omitempty"`
}

// EdgeRequest is one edge of a CreateSessionRequest.
type EdgeRequest struct {
	U domain.NodeID `json:"u" validate:"required"`
	V domain.NodeID `json:"v" validate:"required"`
	W *float64      `json:"w,omitempty"`
}

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// Validate checks the request shape. Graph invariants that need the whole
// graph (edge endpoints, weights) are checked when the session is created.
func (r *CreateSessionRequest) Validate() error {
	if err := requestValidate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q validation", domain.ErrInvalidInput, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// Graph converts the request into the domain graph.
func (r *CreateSessionRequest) Graph() domain.Graph {
	g := domain.Graph{
		Directed: r.Directed,
		Weighted: r.Weighted,
		Nodes:    r.Nodes,
		Edges:    make([]domain.Edge, len(r.Edges)),
	}
	for i, e := range r.Edges {
		g.Edges[i] = domain.Edge{U: e.U, V: e.V, W: e.W}
	}
	return g
}
