package codegen

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// atparse runs the library's atparse on in with the given environment.
func atparse(t *testing.T, in string, env ...string) string {
	t.Helper()

	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not found")
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, bash, "-c", Functions+"\natparse")
	cmd.Env = append([]string{}, env...)
	cmd.Stdin = strings.NewReader(in)

	out, err := cmd.Output()
	require.NoError(t, ctx.Err(), "atparse did not finish")
	require.NoError(t, err)

	return string(out)
}

func TestAtParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		env  []string
		want string
	}{
		{"plain", "no markers\n", nil, "no markers\n"},
		{"value", "dir=@[dir]/x\n", []string{"dir=/tmp"}, "dir=/tmp/x\n"},
		{"repeated", "@[b]-@[b]\n", []string{"b=B"}, "B-B\n"},
		{"unset", "[@[none]]\n", nil, "[]\n"},
		{"at", "@[@][x]\n", []string{"x=X"}, "@[x]\n"},
		{"value not rescanned", "v=@[a]\n", []string{"a=@[b]", "b=B"}, "v=@[b]\n"},
		{"self reference", "@[x]\n", []string{"x=y@[x]"}, "y@[x]\n"},
		{"glob characters", "p@[q]s\n", []string{"q=a*b"}, "pa*bs\n"},
		{"no trailing newline", "@[b]", []string{"b=B"}, "B\n"},
		{"lines", "@[a]\n@[b]\n", []string{"a=1", "b=2"}, "1\n2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, atparse(t, tt.in, tt.env...))
		})
	}
}
