package nodes

import (
	"log"

	"github.com/dunamismax/autoflow/internal/node"
)

func Builtin(logger *log.Logger) *node.Registry {
	reg := node.NewRegistry()
	reg.MustRegister(
		NewSizeCalculator(logger),
		NewConcat(),
		NewConcatMulti(),
		NewReplace(logger),
		NewSplit(),
		NewFormat(logger),
		NewCase(),
		NewPathParse(),
		NewPathJoin(),
		NewPathValidate(),
		NewTimestamp(logger),
		NewReformat(logger),
		NewCompare(logger),
		NewSelect(),
		NewCollectInts(),
		NewPickInt(),
		NewListLength(),
	)
	return reg
}
