// Package shell emits a compiled run-list as one self-contained script.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"

	"github.com/dtcenter/METplus-sub003/codegen"
	"github.com/dtcenter/METplus-sub003/lang"
	"github.com/dtcenter/METplus-sub003/lang/diag"
)

// Write renders every run-list entry of c, in order, each in its own
// subshell after the shared function library.
func Write(w io.Writer, c *lang.Compiler) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\n%s", codegen.Header(c), codegen.Functions)

	for i, e := range c.Runs() {
		body, err := c.Shell(e.Scope)
		if err != nil {
			return diag.WrapError(err).With(slog.String("task", e.Scope.Describe()))
		}

		fmt.Fprintf(bw, "\n# %d: %s\n(\n%s\n)\n", i+1, e.Scope.Describe(), body)
	}

	return bw.Flush()
}
