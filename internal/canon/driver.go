package canon

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jatincse/circt/internal/rtl"
)

// maxPasses bounds the fixpoint iteration. Every rule strictly reduces some
// measure of the graph, so the bound only trips on a rule bug.
const maxPasses = 1000

// CanonicalizeGraph drives folds and rewrite rules over g until nothing
// changes. Dead combinational ops left behind by rewrites are swept each
// pass; wires, instances and the terminator are never removed.
func CanonicalizeGraph(g *rtl.Graph) error {
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for _, id := range g.Ops() {
			rewritten, err := visit(g, id)
			if err != nil {
				return err
			}
			changed = changed || rewritten
		}
		if sweepDead(g) {
			changed = true
		}
		if !changed {
			return nil
		}
	}
	return fmt.Errorf("canonicalize: no fixpoint after %d passes", maxPasses)
}

// visit applies at most one rewrite to the op: the fold engine first, then
// the kind's rules in priority order.
func visit(g *rtl.Graph, id rtl.OpID) (bool, error) {
	op := g.Op(id)
	if op.Kind == rtl.KindOutput || len(op.Results) != 1 {
		return false, nil
	}
	result := op.Results[0]

	if folded, ok := rtl.TryFold(g, id); ok {
		replacement := folded.Value
		if replacement == rtl.NoValue {
			g.SetInsertionPoint(id)
			cst, err := g.Constant(folded.Width, folded.Literal)
			g.ResetInsertionPoint()
			if err != nil {
				return false, err
			}
			replacement = cst
		}
		return true, replace(g, id, result, replacement)
	}

	for _, rule := range rulesFor(op.Kind) {
		action := rule(g, id)
		if action == nil {
			continue
		}
		g.SetInsertionPoint(id)
		replacement, err := action.Apply()
		g.ResetInsertionPoint()
		if err != nil {
			return false, fmt.Errorf("%s: %w", action.Name, err)
		}
		return true, replace(g, id, result, replacement)
	}
	return false, nil
}

func replace(g *rtl.Graph, id rtl.OpID, old, new rtl.ValueID) error {
	// A rewrite must not lose a display name.
	if name := g.ValueName(old); name != "" && g.ValueName(new) == "" {
		g.SetValueName(new, name)
	}
	g.ReplaceAllUses(old, new)
	return g.Erase(id)
}

// sweepDead erases combinational ops none of whose results are used. Reverse
// order lets one sweep clear whole dead chains.
func sweepDead(g *rtl.Graph) bool {
	swept := false
	ops := g.Ops()
	for i := len(ops) - 1; i >= 0; i-- {
		id := ops[i]
		op := g.Op(id)
		if !op.Kind.IsCombinational() {
			continue
		}
		live := false
		for _, res := range op.Results {
			if g.Uses(res) > 0 {
				live = true
				break
			}
		}
		if live {
			continue
		}
		if err := g.Erase(id); err == nil {
			swept = true
		}
	}
	return swept
}

// CanonicalizeModule canonicalizes one module's body. External modules have
// no body and pass through.
func CanonicalizeModule(m *rtl.Module) error {
	if m.Body == nil {
		return nil
	}
	if err := CanonicalizeGraph(m.Body); err != nil {
		return fmt.Errorf("module @%s: %w", m.Name, err)
	}
	return nil
}

// CanonicalizeDesign canonicalizes every module of the design concurrently.
// Module bodies are disjoint and the rewrites never touch the shared symbol
// namespace, so one goroutine per module is safe. The first failure cancels
// the rest.
func CanonicalizeDesign(ctx context.Context, d *rtl.Design) error {
	grp, ctx := errgroup.WithContext(ctx)
	for _, m := range d.Modules {
		m := m
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return CanonicalizeModule(m)
		})
	}
	return grp.Wait()
}
