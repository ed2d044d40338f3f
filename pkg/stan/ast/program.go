package ast

// Function is a generated user function: a named sub-program with typed
// arguments and a body.
type Function struct {
	Name       string
	ReturnType string // "" means void
	Args       []*Decl
	Body       Stmt
}

// Transform is a transformed-data, transformed-parameter, or
// generated-quantity block: a declaration plus the statements that
// compute it. Transforms are de-duplicated by declaration name.
type Transform struct {
	Decl *Decl
	Body Stmt
}

// Program is the root aggregate produced by the builder. Declarations,
// functions, and transform blocks appear at most once each; Model is the
// single model body.
type Program struct {
	Data                  []*Decl
	Parameters            []*Decl
	Functions             []*Function
	TransformedData       []*Transform
	TransformedParameters []*Transform
	GeneratedQuantities   []*Transform
	Model                 Stmt
}

// Roots returns every top-level statement tree in the program, in
// emission order. The transform passes run once per root.
func (p *Program) Roots() []Stmt {
	var roots []Stmt
	for _, f := range p.Functions {
		if f.Body != nil {
			roots = append(roots, f.Body)
		}
	}
	for _, t := range p.TransformedData {
		if t.Body != nil {
			roots = append(roots, t.Body)
		}
	}
	for _, t := range p.TransformedParameters {
		if t.Body != nil {
			roots = append(roots, t.Body)
		}
	}
	if p.Model != nil {
		roots = append(roots, p.Model)
	}
	for _, t := range p.GeneratedQuantities {
		if t.Body != nil {
			roots = append(roots, t.Body)
		}
	}
	return roots
}
