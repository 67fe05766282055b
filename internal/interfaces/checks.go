package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.

import (
	"log"

	"github.com/mrlokans/datakit/internal/mediator"
	"github.com/mrlokans/datakit/internal/result"
)

// Logger implementations
var _ mediator.Logger = (*log.Logger)(nil)

// Result variants
var (
	_ result.Result[string] = result.Data[string]{}
	_ result.Result[string] = result.Failure[string]{}
)
