package lang

import (
	"testing"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

const platforms = `platform hera {
  detect = "env.SITE == 'hera'"
}
platform orion {
  detect = "env.SITE == 'orion'"
}
autodetect plat (/ hera, orion /)
`

func TestAutoDetect(t *testing.T) {
	tests := []struct {
		name   string
		site   string
		forced string
		want   string
		err    error
	}{
		{name: "hera", site: "hera", want: "hera"},
		{name: "orion", site: "orion", want: "orion"},
		{name: "none", site: "jet", err: diag.ErrAutodetect},
		{name: "forced", site: "hera", forced: "orion", want: "orion"},
		{name: "forced unknown", site: "hera", forced: "jet", err: diag.ErrAutodetect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{WithEnv([]string{"SITE=" + tt.site})}
			if tt.forced != "" {
				opts = append(opts, WithPlatform(tt.forced))
			}

			if tt.err != nil {
				wantErr(t, compileErr(t, platforms, opts...), tt.err)

				return
			}

			c := compile(t, platforms, opts...)

			if p := c.Platform(); p == nil || p.Name != tt.want {
				t.Fatalf("platform = %v, want %s", p, tt.want)
			}

			if p := lookup(t, c, "plat").(*Scope); p.Name != tt.want {
				t.Errorf("plat = %s, want %s", p.Name, tt.want)
			}
		})
	}
}

func TestAutoDetectAmbiguous(t *testing.T) {
	err := compileErr(t, `platform a {
  detect = 1
}
platform b {
  detect = 1
}
autodetect plat (/ a, b /)
`)
	wantErr(t, err, diag.ErrAutodetect)
}

func TestAutoDetectNotPlatform(t *testing.T) {
	err := compileErr(t, `hash a {
}
autodetect plat (/ a /)
`)
	wantErr(t, err, diag.ErrType)
}
