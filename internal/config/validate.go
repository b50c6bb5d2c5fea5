package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/cfgsync/internal/cfgerr"
)

//go:embed schema.cue
var schemaSrc string

// Validate checks cfg against the embedded CUE schema. All violations are
// reported in one INVALID_CONFIG error.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cfgerr.InvalidConfig("compile config schema", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := ctx.Encode(cfg)
	if err := value.Err(); err != nil {
		return cfgerr.InvalidConfig("encode configuration", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return cfgerr.InvalidConfig(describe(err), err)
	}
	return nil
}

// describe flattens CUE errors into one line per violation.
func describe(err error) string {
	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := strings.Join(e.Path(), "."); path != "" {
			msg = path + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return "invalid configuration"
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}
