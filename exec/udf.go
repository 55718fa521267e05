// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package exec

import "github.com/euanmacinnes/clarium/types"

// UDFKind tags a registered user-defined function as scalar or aggregate,
// per spec §6's scripting-runtime contract.
type UDFKind int

const (
	UDFScalar UDFKind = iota
	UDFAggregate
)

// UDFSignature is what resolve(name) returns from the scripting runtime:
// enough for the parser/executor to arity-check a call and coerce its
// result.
type UDFSignature struct {
	Kind     UDFKind
	Returns  types.DType
	Nullable bool
	MinArity int
	MaxArity int // -1 means unbounded
}

// Registry is the executor's side of the scripting (Lua) runtime contract
// (spec §6): resolve a name to a signature, invoke a scalar function over
// a batch of argument rows, or invoke an aggregate over one group's rows.
// This is a non-goal surface (the Lua runtime itself lives outside the
// core); exec only consumes an implementation of this interface.
type Registry interface {
	Resolve(name string) (UDFSignature, bool)
	InvokeScalar(name string, args [][]types.Value) ([]types.Value, error)
	InvokeAggregate(name string, groupArgs [][]types.Value) (types.Value, error)
}

// EmptyRegistry is a Registry with no registered functions; every Resolve
// call reports not-found, so unknown-function calls fail loudly rather
// than silently succeeding with undefined behavior.
type EmptyRegistry struct{}

func (EmptyRegistry) Resolve(string) (UDFSignature, bool) { return UDFSignature{}, false }
func (EmptyRegistry) InvokeScalar(string, [][]types.Value) ([]types.Value, error) {
	return nil, nil
}
func (EmptyRegistry) InvokeAggregate(string, [][]types.Value) (types.Value, error) {
	return nil, nil
}
