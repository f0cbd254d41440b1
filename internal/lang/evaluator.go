// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package lang

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/instances"
	"github.com/opentofu/tofucore/internal/tfdiags"
)

// InstanceValueFunc resolves the live state of one resource instance, as
// written into the shared live-state map by the DAG Walker (§4.G/§4.E).
// It returns false if no state has been recorded yet for that instance —
// the common case for forward references during Plan, where the map is
// still empty.
type InstanceValueFunc func(addrs.ResourceInstance) (cty.Value, bool)

// Evaluator resolves references, templates, function calls, and
// conditionals in an already-parsed hcl.Expression against the evaluation
// context described by spec.md §4.E: a set of variable defaults, plus a
// shared live-resource-states map. It carries no configuration-parsing
// logic of its own — building the hcl.Expression values it evaluates is
// the declarative-config parser's job, an out-of-scope collaborator.
type Evaluator struct {
	VarDefaults map[string]cty.Value
	Expander    *instances.Expander
	LiveState   InstanceValueFunc

	functions map[string]function.Function
}

// NewEvaluator constructs an Evaluator. expander may be nil if the caller
// already knows no resource in scope uses count/for_each (e.g. unit
// tests); liveState may be nil during Plan, where the spec requires the
// map to behave as if always empty.
func NewEvaluator(varDefaults map[string]cty.Value, expander *instances.Expander, liveState InstanceValueFunc) *Evaluator {
	if varDefaults == nil {
		varDefaults = map[string]cty.Value{}
	}
	if liveState == nil {
		liveState = func(addrs.ResourceInstance) (cty.Value, bool) { return cty.NilVal, false }
	}
	return &Evaluator{VarDefaults: varDefaults, Expander: expander, LiveState: liveState, functions: Functions()}
}

// Eval evaluates expr and returns its value. A nil expr (an absent
// attribute in a sparse user config) evaluates to a null value of
// unknown type, consistent with the Schema Shaper (§4.D) treating an
// absent attribute as null. Per §4.E, any value that comes back unknown —
// whether because it traces to a forward reference with no live state yet,
// or to one of the reserved-but-unmodeled roots (local/each/count/path/
// terraform/self/module) — collapses to null.
func (e *Evaluator) Eval(expr hcl.Expression) (cty.Value, tfdiags.Diagnostics) {
	if expr == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	var diags tfdiags.Diagnostics

	refs, refDiags := e.references(expr)
	diags = diags.Append(refDiags)

	ctx := &hcl.EvalContext{
		Variables: e.buildVariables(refs),
		Functions: e.functionTable(),
	}

	val, evalDiags := e.evalWithContext(expr, ctx)
	diags = diags.Append(evalDiags)
	diags = append(diags, e.suggestUnknownFunctions(evalDiags)...)

	// A call to a name outside the fixed function table is reported as a
	// warning, not an error; HCL gives such a call an unknown value.
	for _, d := range diags {
		if strings.Contains(strings.ToLower(d.Summary), "unknown function") {
			d.Severity = tfdiags.Warning
		}
	}

	if val != cty.NilVal && !val.IsKnown() {
		val = cty.NullVal(val.Type())
	}
	return val, diags
}

// suggestUnknownFunctions scans diags for HCL's own "call to unknown
// function" diagnostics and appends a "did you mean" follow-up for each,
// using this evaluator's fixed, closed function table (§4.E — unlike the
// teacher's ~100-function surface, an unresolved name here is far more
// likely to be a typo of one of two dozen names than a genuinely missing
// function). Grounded in the teacher's command-suggestion flow
// (internal/command's nearest-match lookup), reused here for expression
// diagnostics instead of CLI subcommand names.
func (e *Evaluator) suggestUnknownFunctions(diags tfdiags.Diagnostics) tfdiags.Diagnostics {
	var extra tfdiags.Diagnostics
	for _, d := range diags {
		if !strings.Contains(strings.ToLower(d.Summary), "unknown function") {
			continue
		}
		given := unknownFunctionName(d.Detail)
		if given == "" {
			continue
		}
		if suggestion := suggestFunctionName(given, e.functionTable()); suggestion != "" {
			extra = append(extra, tfdiags.Sourceless(tfdiags.Error,
				"Unknown function",
				fmt.Sprintf("There is no function named %q. Did you mean %q?", given, suggestion)))
		}
	}
	return extra
}

// unknownFunctionName extracts the quoted function name out of HCL's
// "There is no function named \"foo\"." detail message.
func unknownFunctionName(detail string) string {
	const marker = `named "`
	i := strings.Index(detail, marker)
	if i < 0 {
		return ""
	}
	rest := detail[i+len(marker):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		return ""
	}
	return rest[:j]
}

func (e *Evaluator) functionTable() map[string]function.Function {
	if e.functions == nil {
		e.functions = Functions()
	}
	return e.functions
}

// evalWithContext special-cases *hclsyntax.TemplateExpr so that multi-part
// templates follow §4.E's JSON-rendering rule for composite interpolation
// results, which HCL's own template evaluator does not implement (it
// requires every interpolated value to convert cleanly to string).
// hclsyntax.TemplateWrapExpr — the single-interpolation case — already
// passes its wrapped value through unchanged and needs no help.
func (e *Evaluator) evalWithContext(expr hcl.Expression, ctx *hcl.EvalContext) (cty.Value, tfdiags.Diagnostics) {
	if tmpl, ok := expr.(*hclsyntax.TemplateExpr); ok {
		return e.evalTemplate(tmpl, ctx)
	}
	val, diags := expr.Value(ctx)
	return val, tfdiags.Diagnostics(nil).Append(diags)
}

func (e *Evaluator) evalTemplate(tmpl *hclsyntax.TemplateExpr, ctx *hcl.EvalContext) (cty.Value, tfdiags.Diagnostics) {
	var diags tfdiags.Diagnostics
	var out strings.Builder
	for _, part := range tmpl.Parts {
		v, partDiags := e.evalWithContext(part, ctx)
		diags = diags.Append(partDiags)
		if v == cty.NilVal {
			continue
		}
		out.WriteString(renderValue(v))
	}
	return cty.StringVal(out.String()), diags
}

// references extracts every reference appearing in expr (via HCL's own
// Variables() traversal scan) and parses each one with addrs.ParseRef.
// Traversals that don't parse as a recognized reference are ignored here;
// the actual evaluation attempt below will surface a real diagnostic for
// any that were genuinely required.
func (e *Evaluator) references(expr hcl.Expression) ([]*addrs.Reference, tfdiags.Diagnostics) {
	var diags tfdiags.Diagnostics
	var refs []*addrs.Reference
	for _, trav := range expr.Variables() {
		ref, err := addrs.ParseRef(trav)
		if err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, diags
}

// buildVariables assembles the hcl.EvalContext.Variables tree: one nested
// object per reserved root ("var", "data") plus one entry per referenced
// resource type, each holding that type's referenced resource names. The
// value held for any single resource name is either the one instance's
// state (no count/for_each) or a tuple/object collecting every instance's
// state (count/for_each, so that `[idx]`/`[key]`/`[*]` indexing and
// splatting in the caller's expression works the same way HCL's own
// traversal evaluation already handles collections).
func (e *Evaluator) buildVariables(refs []*addrs.Reference) map[string]cty.Value {
	root := map[string]map[string]cty.Value{}
	dataRoot := map[string]map[string]cty.Value{}
	varRoot := map[string]cty.Value{}

	ensure := func(m map[string]map[string]cty.Value, t string) map[string]cty.Value {
		if _, ok := m[t]; !ok {
			m[t] = map[string]cty.Value{}
		}
		return m[t]
	}

	for _, ref := range refs {
		switch subj := ref.Subject.(type) {
		case addrs.InputVariable:
			if v, ok := e.VarDefaults[subj.Name]; ok {
				varRoot[subj.Name] = v
			} else {
				varRoot[subj.Name] = cty.NullVal(cty.DynamicPseudoType)
			}
		case addrs.Resource:
			e.placeResource(subj, root, dataRoot, ensure)
		case addrs.ResourceInstance:
			e.placeResource(subj.Resource, root, dataRoot, ensure)
		default:
			// Reserved-but-unmodeled (§4.E/§9): UnmodeledAttr, LocalValue,
			// CountAttr, ForEachAttr, PathAttr, and Self all fall here.
			// Every first-segment token this evaluator doesn't model
			// resolves through cty.DynamicVal, which HCL's own traversal
			// machinery propagates unchanged through any further
			// attribute/index steps, collapsing to null once Eval sees
			// the top-level result is unknown.
		}
	}

	out := map[string]cty.Value{}
	for t, names := range root {
		out[t] = objectOfNames(names)
	}
	if len(dataRoot) > 0 {
		dataObj := map[string]cty.Value{}
		for t, names := range dataRoot {
			dataObj[t] = objectOfNames(names)
		}
		out["data"] = cty.ObjectVal(dataObj)
	}
	out["var"] = objectOfNames(varRoot)
	for _, reserved := range []string{"local", "each", "count", "path", "terraform", "self", "module"} {
		out[reserved] = cty.DynamicVal
	}
	return out
}

func (e *Evaluator) placeResource(res addrs.Resource, root, dataRoot map[string]map[string]cty.Value, ensure func(map[string]map[string]cty.Value, string) map[string]cty.Value) {
	m := root
	if res.Mode == addrs.DataResourceMode {
		m = dataRoot
	}
	names := ensure(m, res.Type)
	if _, already := names[res.Name]; already {
		return
	}
	names[res.Name] = e.resourceValue(res)
}

// resourceValue produces the EvalContext value standing in for every
// instance of the given base resource: the bare instance state if the
// resource has no repetition registered (or the Expander is nil), a tuple
// keyed by count index, or an object keyed by for_each key.
func (e *Evaluator) resourceValue(res addrs.Resource) cty.Value {
	if e.Expander == nil || !e.Expander.KnowsResource(res) {
		v, ok := e.LiveState(res.Instance(addrs.NoKey))
		if !ok {
			return cty.DynamicVal
		}
		return v
	}
	instances := e.Expander.ExpandResource(res)
	if len(instances) == 0 {
		return cty.DynamicVal
	}
	if _, isInt := instances[0].Key.(addrs.IntKey); isInt || instances[0].Key == addrs.NoKey {
		if instances[0].Key == addrs.NoKey {
			v, ok := e.LiveState(instances[0])
			if !ok {
				return cty.DynamicVal
			}
			return v
		}
		vals := make([]cty.Value, len(instances))
		for i, inst := range instances {
			if v, ok := e.LiveState(inst); ok {
				vals[i] = v
			} else {
				vals[i] = cty.DynamicVal
			}
		}
		return cty.TupleVal(vals)
	}
	obj := map[string]cty.Value{}
	for _, inst := range instances {
		sk, _ := inst.Key.(addrs.StringKey)
		if v, ok := e.LiveState(inst); ok {
			obj[string(sk)] = v
		} else {
			obj[string(sk)] = cty.DynamicVal
		}
	}
	return cty.ObjectVal(obj)
}

func objectOfNames(names map[string]cty.Value) cty.Value {
	if len(names) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(names)
}

// EvalCount evaluates a resource's "count" meta-argument expression
// against variable defaults only, as required during DAG construction
// (§4.F): it must produce a non-negative integer, and a null result (an
// unresolved forward reference) is an error rather than a silent zero.
func (e *Evaluator) EvalCount(expr hcl.Expression) (int, tfdiags.Diagnostics) {
	val, diags := e.Eval(expr)
	if diags.HasErrors() {
		return 0, diags
	}
	if val.IsNull() {
		return 0, diags.Append(tfdiags.Sourceless(tfdiags.Error,
			"Invalid count argument",
			"The count value is null. If this is a reference to a variable or resource, missing variable?"))
	}
	var n int
	if err := fromCtyNumber(val, &n); err != nil {
		return 0, diags.Append(tfdiags.Sourceless(tfdiags.Error, "Invalid count argument", err.Error()))
	}
	if n < 0 {
		return 0, diags.Append(tfdiags.Sourceless(tfdiags.Error, "Invalid count argument", "count must be a non-negative integer"))
	}
	return n, diags
}

// EvalForEach evaluates a resource's "for_each" meta-argument, producing
// the string-keyed map §4.F expansion needs. A list/set is converted to an
// identity map keyed by each element's string form, per §4.F.
func (e *Evaluator) EvalForEach(expr hcl.Expression) (map[string]cty.Value, tfdiags.Diagnostics) {
	val, diags := e.Eval(expr)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, diags
	}
	ty := val.Type()
	switch {
	case ty.IsObjectType(), ty.IsMapType():
		out := map[string]cty.Value{}
		it := val.ElementIterator()
		for it.Next() {
			k, v := it.Element()
			out[k.AsString()] = v
		}
		return out, diags
	case ty.IsListType(), ty.IsSetType(), ty.IsTupleType():
		out := map[string]cty.Value{}
		it := val.ElementIterator()
		for it.Next() {
			_, v := it.Element()
			out[renderValue(v)] = v
		}
		return out, diags
	default:
		return nil, diags.Append(tfdiags.Sourceless(tfdiags.Error,
			"Invalid for_each argument",
			fmt.Sprintf("for_each requires a map, a set of strings, or a list, got %s", ty.FriendlyName())))
	}
}
