package decode

// Inline is the simplest GrammarSource: plan.GrammarRef already *is* the
// grammar source text, and every request uses the same dialect. Production
// deployments would more likely back GrammarSource with a grammar
// registry keyed by a short ref string, but that registry is a deployment
// concern outside this module's scope.
type Inline struct {
	Dialect string
}

// Resolve implements GrammarSource.
func (in Inline) Resolve(ref string) (source, dialect string, err error) {
	return ref, in.Dialect, nil
}
