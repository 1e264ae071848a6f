// File: internal/compiler/reconcile.go
// Brief: Tagged-ownership merge against the previously deployed stack.

package compiler

import "strings"

const ownerPrefix = "liftctl:"

// reconcile merges the freshly compiled graph with the prior stack. Diffing is
// a set operation over tagged resource identifiers:
//
//   - prior resources carrying a liftctl owner tag that the new graph no
//     longer emits are scheduled for removal;
//   - prior resources without a liftctl owner tag are external: they are
//     carried through untouched and never enter the removal set.
func reconcile(g *ResourceGraph, prior *DeployedStackState) {
	if prior == nil {
		return
	}
	emitted := make(map[string]struct{}, len(g.Resources))
	for _, r := range g.Resources {
		emitted[r.ID] = struct{}{}
	}
	for _, p := range prior.Resources {
		if _, ok := emitted[p.ID]; ok {
			continue
		}
		if strings.HasPrefix(p.Owner, ownerPrefix) {
			g.Removed = append(g.Removed, p.ID)
			continue
		}
		// External resource: preserve as-is.
		g.add(Resource{ID: p.ID, Type: p.Type, Owner: p.Owner, Spec: p.Spec})
	}
}
