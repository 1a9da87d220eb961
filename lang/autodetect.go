package lang

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

// AutoDetect chooses the one platform in platforms whose detect predicate
// holds and records it as the compiler's platform. A platform forced with
// [WithPlatform] is chosen by name without evaluating any predicate.
func (c *Compiler) AutoDetect(ctx context.Context, platforms []*Scope) (*Scope, error) {
	names := make([]string, 0, len(platforms))

	for _, p := range platforms {
		if p.Kind != KindPlatform {
			return nil, diag.ErrType.With(
				slog.String("scope", p.Describe()),
				slog.String("expected", KindPlatform.String()),
			)
		}

		names = append(names, p.Name)
	}

	if c.forced != "" {
		for _, p := range platforms {
			if p.Name == c.forced {
				c.logger.DebugContext(ctx, "platform forced", slog.String("platform", p.Name))
				c.platform = p

				return p, nil
			}
		}

		return nil, diag.ErrAutodetect.With(
			slog.String("platform", c.forced),
			slog.String("candidates", strings.Join(names, " ")),
		)
	}

	var matched []*Scope

	for _, p := range platforms {
		ok, err := c.Bool(ctx, p)
		if err != nil {
			return nil, err
		}

		c.logger.TraceContext(ctx, "detect",
			slog.String("platform", p.Name),
			slog.Bool("match", ok),
		)

		if ok {
			matched = append(matched, p)
		}
	}

	if len(matched) != 1 {
		found := make([]string, 0, len(matched))
		for _, p := range matched {
			found = append(found, p.Name)
		}

		if len(found) == 0 {
			found = append(found, "none")
		}

		return nil, diag.ErrAutodetect.With(
			slog.String("matched", strings.Join(found, " ")),
			slog.String("candidates", strings.Join(names, " ")),
		)
	}

	c.platform = matched[0]

	return matched[0], nil
}
