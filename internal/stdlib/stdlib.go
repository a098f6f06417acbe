// Package stdlib implements Cosmo's base library (print, tostring, type,
// clock, input, setproto, getproto) and registers it through the VM's
// normal embedding surface (spec.md §6) rather than as new opcodes
// (SPEC_FULL.md §4).
package stdlib

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/value"
	"github.com/cosmolang/cosmo/internal/vm"
)

// Register installs every base-library function into s's globals, writing
// print() output to stdout and reading input() lines from stdin.
func Register(s *vm.State, stdout io.Writer, stdin io.Reader) {
	in := bufio.NewReader(stdin)

	register(s, "print", func(args []value.Value) ([]value.Value, error) {
		parts := make([]string, len(args))

		for i, a := range args {
			str, err := s.ToDisplayString(a)
			if err != nil {
				return nil, err
			}

			parts[i] = str
		}

		fmt.Fprintln(stdout, strings.Join(parts, " "))

		return nil, nil
	})

	register(s, "tostring", func(args []value.Value) ([]value.Value, error) {
		str, err := s.ToDisplayString(arg(args, 0))
		if err != nil {
			return nil, err
		}

		return one(value.FromRef(s.NewString([]byte(str)))), nil
	})

	register(s, "type", func(args []value.Value) ([]value.Value, error) {
		return one(value.FromRef(s.NewString([]byte(value.TypeName(arg(args, 0)))))), nil
	})

	register(s, "clock", func(args []value.Value) ([]value.Value, error) {
		return one(value.Number(float64(time.Now().UnixNano()) / 1e9)), nil
	})

	register(s, "input", func(args []value.Value) ([]value.Value, error) {
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return one(value.Nil), nil
		}

		line = strings.TrimRight(line, "\r\n")

		return one(value.FromRef(s.NewString([]byte(line)))), nil
	})

	register(s, "setproto", func(args []value.Value) ([]value.Value, error) {
		obj, ok := arg(args, 0).AsRef().(*object.Obj)
		if !ok {
			return nil, fmt.Errorf("setproto: first argument must be an object")
		}

		protoArg := arg(args, 1)

		if protoArg.IsNil() {
			obj.Proto = nil

			return one(args[0]), nil
		}

		proto, ok := protoArg.AsRef().(*object.Obj)
		if !ok {
			return nil, fmt.Errorf("setproto: second argument must be an object or nil")
		}

		obj.Proto = proto

		return one(args[0]), nil
	})

	register(s, "getproto", func(args []value.Value) ([]value.Value, error) {
		obj, ok := arg(args, 0).AsRef().(*object.Obj)
		if !ok || obj.Proto == nil {
			return one(value.Nil), nil
		}

		return one(value.FromRef(obj.Proto)), nil
	})
}

func register(s *vm.State, name string, fn object.CFunc) {
	s.Globals().Set(value.FromRef(s.NewString([]byte(name))), value.FromRef(s.NewCFunction(name, fn)))
}

func arg(args []value.Value, i int) value.Value {
	if i >= len(args) {
		return value.Nil
	}

	return args[i]
}

func one(v value.Value) []value.Value { return []value.Value{v} }
