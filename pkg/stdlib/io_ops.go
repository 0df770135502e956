package stdlib

import (
	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/logsink"
)

// escrever(args...) → texto; logs the joined arguments at info level
func ioWrite(c *evaluator.Call, args []evaluator.Value) (evaluator.Result, error) {
	msg := joinArgs(args)
	c.Log(logsink.LevelInfo, msg)
	return evaluator.Result{Value: evaluator.NewString(msg)}, nil
}

// erro(args...) → texto; logs the joined arguments at error level
func ioError(c *evaluator.Call, args []evaluator.Value) (evaluator.Result, error) {
	msg := joinArgs(args)
	c.Log(logsink.LevelError, msg)
	return evaluator.Result{Value: evaluator.NewString(msg)}, nil
}

// ler(prompt...) → texto; suspends until the host delivers a line
func ioRead(c *evaluator.Call, args []evaluator.Value) (evaluator.Result, error) {
	return c.Input(joinArgs(args)), nil
}
