package graphlab_test

import (
	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/aretw0/graphlab/pkg/session"
)

func sessionRequest() session.CreateRequest {
	return session.CreateRequest{Graph: lineGraph(), Algorithm: domain.AlgorithmBFS, Start: "a"}
}
