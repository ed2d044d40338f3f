package runner

// Result maps each parameter name to the ordered sequence of per-chain
// draw sequences, in launch order. Dropped chains simply do not appear.
// The caller owns the result; the runner keeps nothing.
type Result struct {
	names  []string
	Values map[string][][]string
}

// Parameters returns the parameter names in output-header order.
func (r *Result) Parameters() []string {
	return append([]string(nil), r.names...)
}

// Chains returns the per-chain draw sequences for one parameter.
func (r *Result) Chains(name string) [][]string {
	return r.Values[name]
}

// Draws returns every draw of one parameter with the chains
// concatenated in launch order.
func (r *Result) Draws(name string) []string {
	var out []string
	for _, chain := range r.Values[name] {
		out = append(out, chain...)
	}
	return out
}

// ChainCount returns how many chains contributed to the result.
func (r *Result) ChainCount() int {
	if len(r.names) == 0 {
		return 0
	}
	return len(r.Values[r.names[0]])
}

// Empty reports whether no chain succeeded.
func (r *Result) Empty() bool {
	return len(r.names) == 0
}
